package datasets

import (
	"fmt"
	"math"
	"math/rand"
)

// DefaultSplitSeed keeps the patient split reproducible between runs.
const DefaultSplitSeed = 42

// SplitPatients partitions ids into train and test groups. The test group
// holds ceil(testSize*len(ids)) ids chosen by a permutation seeded with seed;
// the rest go to train. Duplicate ids are not expected.
func SplitPatients(ids []string, testSize float64, seed int64) (train, test []string, err error) {
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, fmt.Errorf("test size must be in (0, 1), got %v", testSize)
	}
	n := len(ids)
	nTest := int(math.Ceil(testSize * float64(n)))
	nTrain := n - nTest
	if nTest == 0 || nTrain == 0 {
		return nil, nil, fmt.Errorf("with %d patients and test size %v one of the splits is empty", n, testSize)
	}

	perm := rand.New(rand.NewSource(seed)).Perm(n)
	test = make([]string, 0, nTest)
	train = make([]string, 0, nTrain)
	for i, p := range perm {
		if i < nTest {
			test = append(test, ids[p])
		} else {
			train = append(train, ids[p])
		}
	}
	return train, test, nil
}
