package domain

import (
	"encoding/json"
	"time"
)

// ExportFormatVersion is written into every export.
const ExportFormatVersion = "1.0"

// ExportSnapshot is the portable backup of a learner's progress.
// Preferences are opaque to the scheduler.
type ExportSnapshot struct {
	ItemProgress  map[string]ProgressRecord `json:"itemProgress"`
	Preferences   json.RawMessage           `json:"preferences,omitempty"`
	ExportedAt    time.Time                 `json:"exportedAt"`
	FormatVersion string                    `json:"formatVersion"`
}
