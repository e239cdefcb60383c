package learndb

import (
	"encoding/json"
	"sort"
)

// CompletedSet holds completed challenge ids. Insertion is idempotent.
type CompletedSet map[string]struct{}

func NewCompletedSet(ids ...string) CompletedSet {
	s := make(CompletedSet, len(ids))
	for _, id := range ids {
		if id != "" {
			s[id] = struct{}{}
		}
	}
	return s
}

func (s CompletedSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// With returns a copy of s containing id, and whether id was new.
func (s CompletedSet) With(id string) (CompletedSet, bool) {
	if s.Has(id) {
		return s.Clone(), false
	}
	out := s.Clone()
	out[id] = struct{}{}
	return out, true
}

func (s CompletedSet) Clone() CompletedSet {
	out := make(CompletedSet, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// IDs returns the members sorted.
func (s CompletedSet) IDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s CompletedSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.IDs())
}

func (s *CompletedSet) UnmarshalJSON(b []byte) error {
	var ids []string
	if err := json.Unmarshal(b, &ids); err != nil {
		return err
	}
	*s = NewCompletedSet(ids...)
	return nil
}

// Progression is the durable gamification state. Completed only grows,
// except through an explicit full reset.
type Progression struct {
	Completed   CompletedSet `json:"completed"`
	TotalPoints int          `json:"total_points"`
}

func NewProgression() Progression {
	return Progression{Completed: CompletedSet{}}
}

func (p Progression) Clone() Progression {
	return Progression{Completed: p.Completed.Clone(), TotalPoints: p.TotalPoints}
}

func (p Progression) Level() LevelInfo {
	return LevelFor(p.TotalPoints)
}

func (p Progression) MarshalJSON() ([]byte, error) {
	type view struct {
		Completed   CompletedSet `json:"completed"`
		TotalPoints int          `json:"total_points"`
		Level       LevelInfo    `json:"level"`
	}
	completed := p.Completed
	if completed == nil {
		completed = CompletedSet{}
	}
	return json.Marshal(view{Completed: completed, TotalPoints: p.TotalPoints, Level: p.Level()})
}
