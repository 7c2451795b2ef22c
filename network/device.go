package network

import (
	"fmt"
	"strings"

	"github.com/klauspost/cpuid/v2"
)

// Device names where the model parameters live and batches are computed.
type Device string

// CPU is the only compute device; kernels run in pure Go.
const CPU Device = "cpu"

// ParseDevice validates a device name. An empty name selects the CPU.
func ParseDevice(name string) (Device, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "cpu":
		return CPU, nil
	default:
		return "", fmt.Errorf("device %q is not available, only %q is supported", name, CPU)
	}
}

// Describe returns a human readable summary of the device hardware.
func (d Device) Describe() string {
	if d != CPU {
		return string(d)
	}
	var simd []string
	for _, f := range []struct {
		id   cpuid.FeatureID
		name string
	}{
		{cpuid.AVX2, "avx2"},
		{cpuid.FMA3, "fma3"},
		{cpuid.AVX512F, "avx512f"},
		{cpuid.ASIMD, "asimd"},
	} {
		if cpuid.CPU.Supports(f.id) {
			simd = append(simd, f.name)
		}
	}
	brand := cpuid.CPU.BrandName
	if brand == "" {
		brand = "unknown cpu"
	}
	if len(simd) == 0 {
		return fmt.Sprintf("cpu (%s, %d logical cores)", brand, cpuid.CPU.LogicalCores)
	}
	return fmt.Sprintf("cpu (%s, %d logical cores, %s)", brand, cpuid.CPU.LogicalCores, strings.Join(simd, " "))
}
