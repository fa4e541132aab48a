package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"sort"

	"bitbucket.org/mmdatafocus/audit_backend/models"
)

// Keys under which exports commonly nest their record list.
var jsonRecordKeys = []string{"data", "records", "entries", "items"}

// ReadJSON accepts a root array of objects, an object wrapping one under a
// known key, or a single object.
func ReadJSON(content []byte) (models.RawTable, error) {
	dec := json.NewDecoder(bytes.NewReader(content))
	dec.UseNumber()
	var root any
	if err := dec.Decode(&root); err != nil {
		return models.RawTable{}, err
	}

	var items []any
	switch v := root.(type) {
	case []any:
		items = v
	case map[string]any:
		for _, k := range jsonRecordKeys {
			if list, ok := v[k].([]any); ok {
				items = list
				break
			}
		}
		if items == nil {
			items = []any{v}
		}
	default:
		return models.RawTable{}, errors.New("unsupported JSON structure")
	}

	table := models.RawTable{}
	seen := map[string]bool{}
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		// Column order across objects is not defined in JSON; sort new keys.
		var fresh []string
		for k := range obj {
			if !seen[k] {
				seen[k] = true
				fresh = append(fresh, k)
			}
		}
		sort.Strings(fresh)
		table.Columns = append(table.Columns, fresh...)
		table.Rows = append(table.Rows, obj)
	}
	if len(table.Rows) == 0 {
		return models.RawTable{}, errors.New("no records found")
	}
	return table, nil
}
