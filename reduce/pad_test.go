package reduce

import "testing"

func TestPadSingleEntryIsUnchanged(t *testing.T) {
	if got := Pad(1000, 4, true, false); got != 1000 {
		t.Errorf("Pad(single entry) = %d, want unchanged 1000", got)
	}
}

func TestPadHeterogeneousIsUnchanged(t *testing.T) {
	if got := Pad(1000, 4, false, true); got != 1000 {
		t.Errorf("Pad(heterogeneous) = %d, want unchanged 1000", got)
	}
}

func TestPadFusedHomogeneousRoundsUpToAtom(t *testing.T) {
	const localSize = 4
	atom := localSize * FusionAtom
	got := Pad(1026, localSize, true, true)
	if got%atom != 0 {
		t.Errorf("Pad(1026) = %d, not a multiple of %d", got, atom)
	}
	if got < 1026 {
		t.Errorf("Pad(1026) = %d, should round up not down", got)
	}
	if got-atom >= 1026 {
		t.Errorf("Pad(1026) = %d, overshoots by more than one atom", got)
	}
}

func TestPadExactMultipleIsUnchanged(t *testing.T) {
	const localSize = 4
	atom := localSize * FusionAtom
	e := atom * 3
	if got := Pad(e, localSize, true, true); got != e {
		t.Errorf("Pad(exact multiple) = %d, want unchanged %d", got, e)
	}
}

func TestSplitHeterogeneousForcesEperZero(t *testing.T) {
	eper, erem, root := Split(1000, 4, false)
	if eper != 0 {
		t.Errorf("Split(heterogeneous).eper = %d, want 0", eper)
	}
	if erem != 1000 {
		t.Errorf("Split(heterogeneous).erem = %d, want 1000 (entire tail)", erem)
	}
	if root != 0 {
		t.Errorf("Split(heterogeneous).root = %d, want 0", root)
	}
}

func TestSplitHomogeneousDividesEvenly(t *testing.T) {
	eper, erem, root := Split(1152, 4, true)
	if eper != 288 {
		t.Errorf("Split(1152,4).eper = %d, want 288", eper)
	}
	if erem != 0 {
		t.Errorf("Split(1152,4).erem = %d, want 0", erem)
	}
	if root != 3 {
		t.Errorf("Split(1152,4).root = %d, want localSize-1=3", root)
	}
}

func TestSplitHomogeneousWithRemainder(t *testing.T) {
	eper, erem, root := Split(10, 4, true)
	if eper != 2 {
		t.Errorf("Split(10,4).eper = %d, want 2", eper)
	}
	if erem != 2 {
		t.Errorf("Split(10,4).erem = %d, want 2", erem)
	}
	if root != 3 {
		t.Errorf("Split(10,4).root = %d, want 3", root)
	}
}

func TestSplitEperCanBeZeroAtTheBoundary(t *testing.T) {
	// Fewer elements than local ranks: every element lands in the tail.
	eper, erem, _ := Split(2, 4, true)
	if eper != 0 {
		t.Errorf("Split(2,4).eper = %d, want 0", eper)
	}
	if erem != 2 {
		t.Errorf("Split(2,4).erem = %d, want 2", erem)
	}
}
