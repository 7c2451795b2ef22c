package datasets

import (
	"fmt"
	"reflect"
	"testing"
)

func patientIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("patient-%03d", i)
	}
	return ids
}

// TestSplitPatients_DisjointAndCovering checks that for many population sizes
// the two groups never share a patient and together contain every patient.
func TestSplitPatients_DisjointAndCovering(t *testing.T) {
	for _, n := range []int{2, 3, 5, 10, 37, 100} {
		ids := patientIDs(n)
		train, test, err := SplitPatients(ids, 0.2, DefaultSplitSeed)
		if err != nil {
			t.Fatalf("n=%d: SplitPatients error: %v", n, err)
		}

		seen := make(map[string]string)
		for _, id := range train {
			seen[id] = "train"
		}
		for _, id := range test {
			if side, ok := seen[id]; ok {
				t.Fatalf("n=%d: patient %s is in both test and %s", n, id, side)
			}
			seen[id] = "test"
		}
		if len(seen) != n || len(train)+len(test) != n {
			t.Fatalf("n=%d: split covers %d patients (train=%d test=%d)", n, len(seen), len(train), len(test))
		}

		wantTest := (n*2 + 9) / 10 // ceil(0.2*n)
		if len(test) != wantTest {
			t.Fatalf("n=%d: expected %d test patients, got %d", n, wantTest, len(test))
		}
	}
}

func TestSplitPatients_Deterministic(t *testing.T) {
	ids := patientIDs(20)
	train1, test1, err := SplitPatients(ids, 0.2, 42)
	if err != nil {
		t.Fatalf("SplitPatients error: %v", err)
	}
	train2, test2, err := SplitPatients(ids, 0.2, 42)
	if err != nil {
		t.Fatalf("SplitPatients error: %v", err)
	}
	if !reflect.DeepEqual(train1, train2) || !reflect.DeepEqual(test1, test2) {
		t.Fatalf("same seed produced different splits")
	}
}

func TestSplitPatients_Errors(t *testing.T) {
	if _, _, err := SplitPatients(patientIDs(1), 0.2, 42); err == nil {
		t.Fatalf("expected error when the train split would be empty")
	}
	if _, _, err := SplitPatients(nil, 0.2, 42); err == nil {
		t.Fatalf("expected error for no patients")
	}
	if _, _, err := SplitPatients(patientIDs(10), 1.5, 42); err == nil {
		t.Fatalf("expected error for an invalid test size")
	}
}

// TestFilterPatients_KeepsAllRowsOfAPatient verifies rows follow their patient
// to exactly one side of the split.
func TestFilterPatients_KeepsAllRowsOfAPatient(t *testing.T) {
	frame := &Frame{Records: []Record{
		rec("a", 1, 0, 0), rec("b", 1, 0, 0), rec("a", 2, 0, 0),
		rec("c", 1, 0, 0), rec("b", 2, 0, 0), rec("a", 3, 0, 0),
	}}
	train, test, err := SplitPatients(frame.PatientIDs(), 0.2, 42)
	if err != nil {
		t.Fatalf("SplitPatients error: %v", err)
	}
	trainFrame := frame.FilterPatients(train)
	testFrame := frame.FilterPatients(test)
	if trainFrame.Len()+testFrame.Len() != frame.Len() {
		t.Fatalf("rows lost in split: train=%d test=%d total=%d", trainFrame.Len(), testFrame.Len(), frame.Len())
	}
	inTrain := make(map[string]bool)
	for _, r := range trainFrame.Records {
		inTrain[r.KeyID] = true
	}
	for _, r := range testFrame.Records {
		if inTrain[r.KeyID] {
			t.Fatalf("patient %s has rows on both sides", r.KeyID)
		}
	}
}
