package learndb

type Column struct {
	Name         string `json:"name"`
	Datatype     string `json:"datatype"`
	IsPrimaryKey bool   `json:"is_primary_key"`
	IsNullable   bool   `json:"is_nullable"`
}

type Table struct {
	Name    string   `json:"name"`
	SQLText string   `json:"sql_text"`
	Columns []Column `json:"columns"`
}

// PrimaryKey returns the primary-key columns in declared order.
func (t Table) PrimaryKey() []Column {
	var out []Column
	for _, c := range t.Columns {
		if c.IsPrimaryKey {
			out = append(out, c)
		}
	}
	return out
}

// CloneTables deep-copies a schema snapshot.
func CloneTables(in []Table) []Table {
	if in == nil {
		return nil
	}
	out := make([]Table, len(in))
	for i, t := range in {
		out[i] = t
		out[i].Columns = append([]Column(nil), t.Columns...)
	}
	return out
}

// FindTable looks a table up by exact name.
func FindTable(tables []Table, name string) (Table, bool) {
	for _, t := range tables {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}

// TablePreview is a row-limited sample of one table.
type TablePreview struct {
	TableName    string           `json:"table_name"`
	Columns      []string         `json:"columns"`
	Rows         []map[string]any `json:"rows"`
	RowCount     int              `json:"row_count"`
	Success      bool             `json:"success"`
	ErrorMessage string           `json:"error_message,omitempty"`
}

func (p *TablePreview) Clone() *TablePreview {
	if p == nil {
		return nil
	}
	out := *p
	out.Columns = append([]string(nil), p.Columns...)
	out.Rows = cloneRows(p.Rows)
	return &out
}
