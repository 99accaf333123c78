package patterns

import "github.com/verte-zerg/punchcall/internal/model"

// DefaultSetID is the set selected by a fresh configuration.
const DefaultSetID = "default-basic-1"

// DefaultSets returns the built-in sets in display order.
func DefaultSets() []model.PatternSet {
	return []model.PatternSet{
		{
			ID:        DefaultSetID,
			Name:      "Basic 1",
			IsDefault: true,
			Patterns:  []model.Pattern{{1}, {2}, {1, 2}, {1, 1, 2}, {1, 2, 3}},
		},
		{
			ID:        "default-basic-2",
			Name:      "Basic 2",
			IsDefault: true,
			Patterns:  []model.Pattern{{1, 2, 3, 2}, {1, 6, 3, 2}, {2, 3, 2}, {1, 2, 5, 2}, {3, 2, 3}},
		},
		{
			ID:        "default-hooks-uppercuts",
			Name:      "Hooks & Uppercuts",
			IsDefault: true,
			Patterns:  []model.Pattern{{3, 4}, {5, 6}, {3, 6, 3}, {4, 3, 4}, {1, 2, 3, 4}},
		},
	}
}
