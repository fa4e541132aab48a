package models

// RawTable is decoded file content before normalization. Columns keeps the
// source order; every row is keyed by those column names.
type RawTable struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

func (t RawTable) Len() int { return len(t.Rows) }

func (t RawTable) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}
