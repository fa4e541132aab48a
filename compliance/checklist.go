package compliance

import "bitbucket.org/mmdatafocus/audit_backend/models"

type ChecklistItem struct {
	RuleID      string          `json:"rule_id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Category    Category        `json:"category"`
	Severity    models.Severity `json:"severity"`
	References  []string        `json:"references,omitempty"`
}

type Checklist struct {
	Standard   models.Standard              `json:"standard"`
	Category   string                       `json:"category"`
	TotalItems int                          `json:"total_items"`
	Items      []ChecklistItem              `json:"items"`
	Categories map[Category][]ChecklistItem `json:"categories"`
}

// GetChecklist lists the standard's rules, optionally restricted to one
// category, grouped by category.
func (e *Engine) GetChecklist(standard models.Standard, category *Category) Checklist {
	cl := Checklist{
		Standard:   standard,
		Category:   "all",
		Categories: map[Category][]ChecklistItem{},
	}
	if category != nil {
		cl.Category = string(*category)
	}
	for _, r := range e.RulesForStandard(standard) {
		if category != nil && r.Category != *category {
			continue
		}
		item := ChecklistItem{
			RuleID:      r.ID,
			Title:       r.Title,
			Description: r.Description,
			Category:    r.Category,
			Severity:    r.Severity,
			References:  r.References,
		}
		cl.Items = append(cl.Items, item)
		cl.Categories[r.Category] = append(cl.Categories[r.Category], item)
	}
	cl.TotalItems = len(cl.Items)
	return cl
}
