package challenge

import (
	"github.com/yungbote/learndb-studio/internal/domain/learndb"
)

// Phase is the position of the active attempt in its lifecycle:
// unloaded → loading → loaded → setting_up → ready ⇄ submitting → passed | failed.
type Phase string

const (
	PhaseUnloaded   Phase = "unloaded"
	PhaseLoading    Phase = "loading"
	PhaseLoaded     Phase = "loaded"
	PhaseSettingUp  Phase = "setting_up"
	PhaseReady      Phase = "ready"
	PhaseSubmitting Phase = "submitting"
	PhasePassed     Phase = "passed"
	PhaseFailed     Phase = "failed"
)

// AwardPolicy decides whether a passing resubmission of a completed
// challenge adds its points again.
type AwardPolicy int

const (
	// EveryPass adds the earned points on every passing submission.
	EveryPass AwardPolicy = iota
	// FirstPass adds points only when the challenge first enters the
	// completed set.
	FirstPass
)

func ParseAwardPolicy(s string) (AwardPolicy, bool) {
	switch s {
	case "", "every_pass":
		return EveryPass, true
	case "first_pass":
		return FirstPass, true
	}
	return EveryPass, false
}

func (p AwardPolicy) String() string {
	if p == FirstPass {
		return "first_pass"
	}
	return "every_pass"
}

// Attempt is the transient state of one loaded challenge. len(RevealedHints)
// always equals HintsUsed.
type Attempt struct {
	HintsUsed      int                       `json:"hints_used"`
	RevealedHints  []string                  `json:"revealed_hints"`
	LastSubmission *learndb.SubmissionResult `json:"last_submission,omitempty"`
}

func (a Attempt) clone() Attempt {
	return Attempt{
		HintsUsed:      a.HintsUsed,
		RevealedHints:  append([]string(nil), a.RevealedHints...),
		LastSubmission: a.LastSubmission.Clone(),
	}
}

// HintsRemaining is the hint budget left for d, never negative.
func (a Attempt) HintsRemaining(d *learndb.ChallengeDetail) int {
	if d == nil || a.HintsUsed >= d.HintsCount {
		return 0
	}
	return d.HintsCount - a.HintsUsed
}

// State is an immutable snapshot of the challenge controller.
type State struct {
	Catalog      learndb.Catalog          `json:"catalog"`
	Challenge    *learndb.ChallengeDetail `json:"challenge,omitempty"`
	Phase        Phase                    `json:"phase"`
	Attempt      Attempt                  `json:"attempt"`
	Progression  learndb.Progression      `json:"progression"`
	Badges       []learndb.Badge          `json:"badges"`
	IsLoading    bool                     `json:"is_loading"`
	IsSubmitting bool                     `json:"is_submitting"`
	Error        string                   `json:"error,omitempty"`
}

// ChallengeID returns the loaded challenge id or "".
func (s State) ChallengeID() string {
	if s.Challenge == nil {
		return ""
	}
	return s.Challenge.ID
}

func (s State) clone() State {
	out := s
	out.Catalog = s.Catalog.Clone()
	out.Challenge = s.Challenge.Clone()
	out.Attempt = s.Attempt.clone()
	out.Progression = s.Progression.Clone()
	out.Badges = append([]learndb.Badge(nil), s.Badges...)
	return out
}
