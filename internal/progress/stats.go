package progress

import (
	"time"

	"github.com/phrazzld/scry-kanji/internal/catalog"
	"github.com/phrazzld/scry-kanji/internal/domain"
)

// LevelCounts is the number of catalog items at each proficiency level.
type LevelCounts struct {
	Unknown  int `json:"unknown"`
	Learning int `json:"learning"`
	Familiar int `json:"familiar"`
	Known    int `json:"known"`
	Mastered int `json:"mastered"`
	Total    int `json:"total"`
}

// FilterCounts is the number of catalog items each proficiency filter selects.
type FilterCounts struct {
	All      int `json:"all"`
	Unknown  int `json:"unknown"`
	Learning int `json:"learning"`
	Familiar int `json:"familiar"`
	Known    int `json:"known"`
	Review   int `json:"review"`
}

// Stats counts catalog items by level. Items without a record count as unknown.
func (s *Store) Stats(cat *catalog.Catalog) LevelCounts {
	var counts LevelCounts
	for _, id := range cat.IDs() {
		counts.Total++
		switch s.Get(id).Level {
		case domain.LevelUnknown:
			counts.Unknown++
		case domain.LevelLearning:
			counts.Learning++
		case domain.LevelFamiliar:
			counts.Familiar++
		case domain.LevelKnown:
			counts.Known++
		case domain.LevelMastered:
			counts.Mastered++
		}
	}
	return counts
}

// FilterCounts counts catalog items per proficiency filter at now.
func (s *Store) FilterCounts(cat *catalog.Catalog, now time.Time) FilterCounts {
	levels := s.Stats(cat)
	counts := FilterCounts{
		All:      levels.Total,
		Unknown:  levels.Unknown,
		Learning: levels.Learning,
		Familiar: levels.Familiar,
		Known:    levels.Known,
	}
	for _, id := range cat.IDs() {
		if s.Get(id).IsDue(now) {
			counts.Review++
		}
	}
	return counts
}
