package learndb

type Level struct {
	Number     int    `json:"level"`
	Title      string `json:"name"`
	XPRequired int    `json:"xp_required"`
}

var Levels = []Level{
	{1, "SQL Novice", 0},
	{2, "Query Apprentice", 100},
	{3, "Data Explorer", 300},
	{4, "Table Master", 600},
	{5, "Join Journeyman", 1000},
	{6, "Aggregate Adept", 1500},
	{7, "Schema Sage", 2100},
	{8, "Index Innovator", 2800},
	{9, "Database Architect", 3600},
	{10, "SQL Grandmaster", 5000},
}

type LevelInfo struct {
	Level
	XPToNext int `json:"xp_to_next_level"`
}

// LevelFor maps a points total to its level. XPToNext is 0 at the top level.
func LevelFor(points int) LevelInfo {
	cur := Levels[0]
	for _, l := range Levels {
		if points >= l.XPRequired {
			cur = l
		}
	}
	info := LevelInfo{Level: cur}
	if cur.Number < len(Levels) {
		info.XPToNext = Levels[cur.Number].XPRequired - points
	}
	return info
}
