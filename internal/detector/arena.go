package detector

import "amdscan/pkg/model"

// Arena is append-only storage for every pattern a detector has created,
// keyed by monotonically increasing ID (1-based). Storage growth is
// decoupled from display: reporting consumers read the bounded Recent
// window instead of walking the whole arena.
type Arena struct {
	patterns  []*model.Pattern
	recent    []int // pattern IDs, newest last, capped at recentCap
	recentCap int
}

// NewArena creates an arena whose recently-active index keeps at most
// recentCap entries. recentCap <= 0 disables the bound.
func NewArena(recentCap int) *Arena {
	return &Arena{recentCap: recentCap}
}

// Add assigns the next ID to p and stores it.
func (a *Arena) Add(p *model.Pattern) {
	p.ID = len(a.patterns) + 1
	a.patterns = append(a.patterns, p)

	a.recent = append(a.recent, p.ID)
	if a.recentCap > 0 && len(a.recent) > a.recentCap {
		a.recent = a.recent[len(a.recent)-a.recentCap:]
	}
}

// Get returns the pattern with the given ID, or nil.
func (a *Arena) Get(id int) *model.Pattern {
	if id < 1 || id > len(a.patterns) {
		return nil
	}
	return a.patterns[id-1]
}

// Len returns the number of patterns ever created.
func (a *Arena) Len() int {
	return len(a.patterns)
}

// All returns value copies of every pattern in creation order.
func (a *Arena) All() []model.Pattern {
	out := make([]model.Pattern, len(a.patterns))
	for i, p := range a.patterns {
		out[i] = *p
	}
	return out
}

// Resolved returns value copies of resolved patterns only, in creation order.
func (a *Arena) Resolved() []model.Pattern {
	var out []model.Pattern
	for _, p := range a.patterns {
		if p.State == model.StateResolved {
			out = append(out, *p)
		}
	}
	return out
}

// Recent returns copies of the most recently created patterns, newest
// last, at most n (and never more than the arena's recent cap).
func (a *Arena) Recent(n int) []model.Pattern {
	ids := a.recent
	if n > 0 && len(ids) > n {
		ids = ids[len(ids)-n:]
	}
	out := make([]model.Pattern, 0, len(ids))
	for _, id := range ids {
		if p := a.Get(id); p != nil {
			out = append(out, *p)
		}
	}
	return out
}
