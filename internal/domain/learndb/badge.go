package learndb

type Badge struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`

	minCompleted int
	category     CategoryID
}

// Badges that can be derived from local progression and the catalog.
var Badges = []Badge{
	{ID: "first_challenge", Name: "Challenge Accepted", Description: "Complete your first challenge", Icon: "trophy", minCompleted: 1},
	{ID: "ten_challenges", Name: "Getting Serious", Description: "Complete 10 challenges", Icon: "award", minCompleted: 10},
	{ID: "select_master", Name: "SELECT Master", Description: "Complete all SELECT challenges", Icon: "star", category: CategorySelectBasics},
	{ID: "join_expert", Name: "Join Expert", Description: "Complete all JOIN challenges", Icon: "link", category: CategoryJoins},
}

// EarnedBadges lists the badges p qualifies for. Category badges need the
// category to be present and non-empty in catalog.
func EarnedBadges(p Progression, catalog Catalog) []Badge {
	var out []Badge
	for _, b := range Badges {
		switch {
		case b.minCompleted > 0:
			if len(p.Completed) >= b.minCompleted {
				out = append(out, b)
			}
		case b.category != "":
			ids := catalog.ChallengeIDs(b.category)
			if len(ids) == 0 {
				continue
			}
			all := true
			for _, id := range ids {
				if !p.Completed.Has(id) {
					all = false
					break
				}
			}
			if all {
				out = append(out, b)
			}
		}
	}
	return out
}
