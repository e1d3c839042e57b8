package plan

import "testing"

func TestEvenPartitionExact(t *testing.T) {
	got := EvenPartition(Interval{0, 10}, 5)
	want := []Interval{{0, 2}, {2, 4}, {4, 6}, {6, 8}, {8, 10}}
	if len(got) != len(want) {
		t.Fatalf("got %d parts, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("part %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestEvenPartitionRemainder(t *testing.T) {
	got := EvenPartition(Interval{0, 10}, 3)
	total := 0
	for _, p := range got {
		total += p.Len()
	}
	if total != 10 {
		t.Errorf("partitioned lengths sum to %d, want 10", total)
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].Len()-got[i].Len() > 1 || got[i].Len()-got[i-1].Len() > 1 {
			t.Errorf("parts %d and %d differ by more than one element: %v, %v", i-1, i, got[i-1], got[i])
		}
	}
}

func TestEvenPartitionZeroParts(t *testing.T) {
	if got := EvenPartition(Interval{0, 10}, 0); got != nil {
		t.Errorf("EvenPartition with k=0 = %v, want nil", got)
	}
}
