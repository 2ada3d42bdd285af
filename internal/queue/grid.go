package queue

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/phrazzld/scry-kanji/internal/domain"
)

// GridSort orders the full catalog for the overview grid.
type GridSort string

// Grid orderings. Every ordering except GridDefault breaks ties by frequency.
const (
	GridDefault     GridSort = "default"
	GridFrequency   GridSort = "frequency"
	GridGrade       GridSort = "grade"
	GridJLPT        GridSort = "jlpt"
	GridStrokes     GridSort = "strokes"
	GridProficiency GridSort = "proficiency"
)

// ParseGridSort validates a grid ordering. The empty string means GridDefault.
func ParseGridSort(s string) (GridSort, error) {
	switch g := GridSort(s); g {
	case "":
		return GridDefault, nil
	case GridDefault, GridFrequency, GridGrade, GridJLPT, GridStrokes, GridProficiency:
		return g, nil
	default:
		return "", fmt.Errorf("%w: grid sort %q", domain.ErrInvalidFilter, s)
	}
}

// GridCell is one item of the grid together with its current level.
type GridCell struct {
	Item  domain.Item  `json:"item"`
	Level domain.Level `json:"level"`
	Due   bool         `json:"due"`
}

func valueOr(v *int, fallback int) int {
	if v == nil {
		return fallback
	}
	return *v
}

// Grid returns every catalog item in the requested order.
func (b *Builder) Grid(mode GridSort) ([]GridCell, error) {
	mode, err := ParseGridSort(string(mode))
	if err != nil {
		return nil, err
	}

	now := b.now()
	items := b.catalog.Items()
	cells := make([]GridCell, len(items))
	for i, item := range items {
		rec := b.progress.Get(item.ID)
		cells[i] = GridCell{Item: item, Level: rec.Level, Due: rec.IsDue(now)}
	}

	var key func(GridCell) int
	switch mode {
	case GridDefault:
		return cells, nil
	case GridFrequency:
		key = func(GridCell) int { return 0 }
	case GridGrade:
		key = func(c GridCell) int { return valueOr(c.Item.Grade, 999) }
	case GridJLPT:
		// N5 first
		key = func(c GridCell) int { return -valueOr(c.Item.JLPTLevel, 0) }
	case GridStrokes:
		key = func(c GridCell) int { return valueOr(c.Item.StrokeCount, 999) }
	case GridProficiency:
		key = func(c GridCell) int { return int(c.Level) }
	}

	slices.SortStableFunc(cells, func(a, b GridCell) int {
		return cmp.Or(
			cmp.Compare(key(a), key(b)),
			cmp.Compare(a.Item.Frequency(), b.Item.Frequency()),
		)
	})
	return cells, nil
}
