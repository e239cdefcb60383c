package learndb

import (
	"fmt"
	"testing"
	"time"
)

func TestIsStructural(t *testing.T) {
	cases := map[string]bool{
		"CREATE TABLE t (id INTEGER PRIMARY KEY)": true,
		"  drop table t":                          true,
		"\n\tCreate index i on t(id)":             true,
		"select * from t":                         false,
		"insert into t values (1)":                false,
		"":                                        false,
		"-- create\nselect 1":                     false,
	}
	for sql, want := range cases {
		if got := IsStructural(sql); got != want {
			t.Errorf("IsStructural(%q)=%v want %v", sql, got, want)
		}
	}
}

func TestPrependHistoryBound(t *testing.T) {
	var h []QueryHistoryItem
	base := time.Unix(0, 0)
	for i := 0; i < 51; i++ {
		h = PrependHistory(h, QueryHistoryItem{SQL: fmt.Sprintf("q%d", i), Timestamp: base.Add(time.Duration(i))}, 50)
	}
	if len(h) != 50 {
		t.Fatalf("len=%d want 50", len(h))
	}
	if h[0].SQL != "q50" || h[49].SQL != "q1" {
		t.Fatalf("order wrong: first=%s last=%s", h[0].SQL, h[49].SQL)
	}
	for i := 1; i < len(h); i++ {
		if !h[i-1].Timestamp.After(h[i].Timestamp) {
			t.Fatalf("not newest-first at %d", i)
		}
	}
}

func TestPrependHistoryDoesNotAlias(t *testing.T) {
	orig := []QueryHistoryItem{{SQL: "a"}, {SQL: "b"}}
	_ = PrependHistory(orig, QueryHistoryItem{SQL: "c"}, 2)
	if orig[0].SQL != "a" || orig[1].SQL != "b" {
		t.Fatalf("input mutated: %+v", orig)
	}
}

func TestQueryResultClone(t *testing.T) {
	r := &QueryResult{Success: true, Columns: []string{"id"}, Rows: []map[string]any{{"id": 1}}, RowCount: 1}
	c := r.Clone()
	c.Rows[0]["id"] = 2
	c.Columns[0] = "x"
	if r.Rows[0]["id"] != 1 || r.Columns[0] != "id" {
		t.Fatalf("clone aliases original")
	}
	if (*QueryResult)(nil).Clone() != nil {
		t.Fatalf("nil clone should be nil")
	}
}

func TestFailedResultIsWellFormed(t *testing.T) {
	r := FailedResult("connection refused")
	if r.Success || r.Rows == nil || r.Columns == nil || r.ErrorMessage != "connection refused" {
		t.Fatalf("unexpected %+v", r)
	}
}
