package learndb

type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
	DifficultyExpert       Difficulty = "expert"
)

type CategoryID string

const (
	CategorySelectBasics CategoryID = "select_basics"
	CategoryFiltering    CategoryID = "filtering"
	CategoryJoins        CategoryID = "joins"
	CategoryAggregation  CategoryID = "aggregation"
	CategoryDDL          CategoryID = "ddl"
	CategoryDML          CategoryID = "dml"
)

type ChallengeListItem struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Difficulty Difficulty `json:"difficulty"`
	XPReward   int        `json:"xp_reward"`
	Completed  bool       `json:"completed"`
}

type Category struct {
	Name        CategoryID          `json:"name"`
	DisplayName string              `json:"display_name"`
	Challenges  []ChallengeListItem `json:"challenges"`
}

// Catalog is the challenge list grouped by category.
type Catalog struct {
	Categories []Category `json:"categories"`
	TotalCount int        `json:"total_count"`
}

func (c Catalog) Clone() Catalog {
	out := Catalog{TotalCount: c.TotalCount}
	if c.Categories == nil {
		return out
	}
	out.Categories = make([]Category, len(c.Categories))
	for i, cat := range c.Categories {
		out.Categories[i] = cat
		out.Categories[i].Challenges = append([]ChallengeListItem(nil), cat.Challenges...)
	}
	return out
}

// MarkCompleted returns a copy with Completed set for every id in done.
// Flags already set by the remote catalog are kept.
func (c Catalog) MarkCompleted(done CompletedSet) Catalog {
	out := c.Clone()
	for i := range out.Categories {
		for j := range out.Categories[i].Challenges {
			item := &out.Categories[i].Challenges[j]
			item.Completed = item.Completed || done.Has(item.ID)
		}
	}
	return out
}

// ChallengeIDs returns the ids in category, in catalog order.
func (c Catalog) ChallengeIDs(category CategoryID) []string {
	for _, cat := range c.Categories {
		if cat.Name != category {
			continue
		}
		ids := make([]string, 0, len(cat.Challenges))
		for _, ch := range cat.Challenges {
			ids = append(ids, ch.ID)
		}
		return ids
	}
	return nil
}

type ChallengeDetail struct {
	ID                   string     `json:"id"`
	Title                string     `json:"title"`
	Description          string     `json:"description"`
	Difficulty           Difficulty `json:"difficulty"`
	XPReward             int        `json:"xp_reward"`
	Category             CategoryID `json:"category"`
	EstimatedTimeMinutes int        `json:"estimated_time_minutes"`
	HintsCount           int        `json:"hints_count"`
	Prerequisites        []string   `json:"prerequisites"`
}

func (d *ChallengeDetail) Clone() *ChallengeDetail {
	if d == nil {
		return nil
	}
	out := *d
	out.Prerequisites = append([]string(nil), d.Prerequisites...)
	return &out
}

// SubmissionResult is the grade of one attempt.
type SubmissionResult struct {
	Success         bool             `json:"success"`
	Passed          bool             `json:"passed"`
	Feedback        string           `json:"feedback"`
	XPEarned        int              `json:"xp_earned"`
	ExecutionTimeMS float64          `json:"execution_time_ms"`
	ActualOutput    []map[string]any `json:"actual_output,omitempty"`
}

func (s *SubmissionResult) Clone() *SubmissionResult {
	if s == nil {
		return nil
	}
	out := *s
	out.ActualOutput = cloneRows(s.ActualOutput)
	return &out
}

// Hint is one revealed hint; Index is zero-based.
type Hint struct {
	Index     int    `json:"hint_index"`
	Text      string `json:"hint"`
	Remaining int    `json:"hints_remaining"`
}
