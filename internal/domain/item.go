package domain

// DefaultFrequencyRank is the rank assumed for items without frequency data.
// It sorts such items after every ranked item.
const DefaultFrequencyRank = 9999

// Item is a single entry of the catalog. Its ID is the kanji itself.
// Metadata fields are nil when the catalog has no value for them.
type Item struct {
	ID            string `json:"id"`
	FrequencyRank *int   `json:"frequency,omitempty"`
	Grade         *int   `json:"grade,omitempty"`
	JLPTLevel     *int   `json:"jlpt,omitempty"`
	StrokeCount   *int   `json:"strokes,omitempty"`
}

// Frequency returns the item's frequency rank, or DefaultFrequencyRank.
func (i Item) Frequency() int {
	if i.FrequencyRank == nil {
		return DefaultFrequencyRank
	}
	return *i.FrequencyRank
}

// IntPtr returns a pointer to v. It keeps catalog fixtures short.
func IntPtr(v int) *int {
	return &v
}
