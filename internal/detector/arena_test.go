package detector

import (
	"testing"

	"amdscan/pkg/model"
)

func TestArenaAssignsMonotonicIDs(t *testing.T) {
	a := NewArena(0)
	for i := 0; i < 3; i++ {
		a.Add(&model.Pattern{State: model.StateRangeConfirmed})
	}
	if a.Len() != 3 {
		t.Fatalf("Expected 3 patterns, got %d", a.Len())
	}
	for _, want := range []int{1, 2, 3} {
		p := a.Get(want)
		if p == nil || p.ID != want {
			t.Errorf("Get(%d) = %+v", want, p)
		}
	}
	if a.Get(0) != nil || a.Get(4) != nil {
		t.Error("Expected nil for out-of-range IDs")
	}
}

func TestArenaRecentWindowBounded(t *testing.T) {
	a := NewArena(2)
	for i := 0; i < 5; i++ {
		a.Add(&model.Pattern{State: model.StateResolved})
	}

	recent := a.Recent(10)
	if len(recent) != 2 {
		t.Fatalf("Expected recent window capped at 2, got %d", len(recent))
	}
	if recent[0].ID != 4 || recent[1].ID != 5 {
		t.Errorf("Expected IDs [4 5] newest last, got [%d %d]", recent[0].ID, recent[1].ID)
	}

	if got := a.Recent(1); len(got) != 1 || got[0].ID != 5 {
		t.Errorf("Recent(1) = %+v", got)
	}
	// The full arena is unaffected by the recent cap.
	if len(a.All()) != 5 {
		t.Errorf("Expected All to keep every pattern, got %d", len(a.All()))
	}
}

func TestArenaResolvedFilters(t *testing.T) {
	a := NewArena(0)
	a.Add(&model.Pattern{State: model.StateResolved})
	a.Add(&model.Pattern{State: model.StateOpen})
	a.Add(&model.Pattern{State: model.StateResolved})

	resolved := a.Resolved()
	if len(resolved) != 2 {
		t.Fatalf("Expected 2 resolved patterns, got %d", len(resolved))
	}
	if resolved[0].ID != 1 || resolved[1].ID != 3 {
		t.Errorf("Expected IDs [1 3], got [%d %d]", resolved[0].ID, resolved[1].ID)
	}
}

func TestArenaReturnsCopies(t *testing.T) {
	a := NewArena(0)
	a.Add(&model.Pattern{State: model.StateOpen})

	all := a.All()
	all[0].State = model.StateResolved
	if a.Get(1).State != model.StateOpen {
		t.Error("Mutating a returned copy must not change arena state")
	}
}
