package challenge

import (
	"github.com/yungbote/learndb-studio/internal/domain/learndb"
)

// Transitions are pure: previous state plus an outcome in, next state out.

func failed(s State, msg string) State {
	next := s.clone()
	next.Error = msg
	return next
}

func withPhase(s State, p Phase) State {
	next := s.clone()
	next.Phase = p
	return next
}

func catalogLoaded(s State, c learndb.Catalog) State {
	next := s.clone()
	next.Catalog = c.MarkCompleted(s.Progression.Completed)
	next.Error = ""
	return next
}

// challengeLoaded replaces the detail and clears the attempt, even when d is
// the challenge already loaded.
func challengeLoaded(s State, d *learndb.ChallengeDetail) State {
	next := s.clone()
	next.Challenge = d.Clone()
	next.Attempt = Attempt{}
	next.Phase = PhaseLoaded
	next.Error = ""
	return next
}

func setupDone(s State) State {
	next := s.clone()
	next.Phase = PhaseReady
	next.Error = ""
	return next
}

func submissionGraded(s State, res *learndb.SubmissionResult) State {
	next := s.clone()
	next.Attempt.LastSubmission = res.Clone()
	if res.Passed {
		next.Phase = PhasePassed
	} else {
		next.Phase = PhaseFailed
	}
	next.Error = ""
	return next
}

// awardPass records a passing grade for id. Completed-set insertion is
// idempotent; whether points are added again depends on policy.
func awardPass(s State, id string, xp int, policy AwardPolicy) State {
	next := s.clone()
	done, added := s.Progression.Completed.With(id)
	next.Progression.Completed = done
	if added || policy == EveryPass {
		next.Progression.TotalPoints += xp
	}
	next.Catalog = next.Catalog.MarkCompleted(done)
	return next
}

// hintRevealed appends text as hint number index. It is a no-op unless the
// attempt still expects that index.
func hintRevealed(s State, index int, text string) State {
	if s.Attempt.HintsUsed != index || s.Attempt.HintsRemaining(s.Challenge) == 0 {
		return s.clone()
	}
	next := s.clone()
	next.Attempt.RevealedHints = append(next.Attempt.RevealedHints, text)
	next.Attempt.HintsUsed = index + 1
	next.Error = ""
	return next
}

// attemptReset clears hints and the last submission. A graded attempt goes
// back to ready since the sandbox is still prepared.
func attemptReset(s State) State {
	next := s.clone()
	next.Attempt = Attempt{}
	switch s.Phase {
	case PhasePassed, PhaseFailed, PhaseSubmitting:
		next.Phase = PhaseReady
	}
	return next
}

func progressionReset(s State, remote learndb.Catalog) State {
	next := s.clone()
	next.Progression = learndb.NewProgression()
	next.Catalog = remote.MarkCompleted(next.Progression.Completed)
	next.Error = ""
	return next
}

func progressionRestored(s State, p learndb.Progression, remote learndb.Catalog) State {
	next := s.clone()
	next.Progression = p.Clone()
	if next.Progression.Completed == nil {
		next.Progression.Completed = learndb.CompletedSet{}
	}
	next.Catalog = remote.MarkCompleted(next.Progression.Completed)
	return next
}

func withDerived(s State, loading, submitting int) State {
	s.IsLoading = loading > 0
	s.IsSubmitting = submitting > 0
	s.Badges = learndb.EarnedBadges(s.Progression, s.Catalog)
	return s
}
