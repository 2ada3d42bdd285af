package domain

// Example is a word that uses the item, in descending order of relevance.
type Example struct {
	Form       string `json:"form"`
	Furigana   string `json:"furigana,omitempty"`
	Definition string `json:"definition,omitempty"`
}

// Detail is the display content for one item, supplied by an external provider.
// Available is false when the provider could not be reached; the lists are
// then empty and the card is shown without detail.
type Detail struct {
	ItemID      string    `json:"itemId"`
	KunReadings []string  `json:"kunReadings"`
	OnReadings  []string  `json:"onReadings"`
	Meanings    []string  `json:"meanings"`
	Examples    []Example `json:"examples"`
	Available   bool      `json:"available"`
}

// UnavailableDetail returns the detail shown when fetching failed.
func UnavailableDetail(itemID string) *Detail {
	return &Detail{ItemID: itemID, Available: false}
}

// Readings returns kun readings followed by on readings.
func (d *Detail) Readings() []string {
	out := make([]string, 0, len(d.KunReadings)+len(d.OnReadings))
	out = append(out, d.KunReadings...)
	return append(out, d.OnReadings...)
}

// Representative returns the most relevant example, if any.
func (d *Detail) Representative() (Example, bool) {
	if len(d.Examples) == 0 {
		return Example{}, false
	}
	return d.Examples[0], true
}

// ContextWords returns the forms of up to n leading examples.
func (d *Detail) ContextWords(n int) []string {
	if n > len(d.Examples) {
		n = len(d.Examples)
	}
	words := make([]string, 0, n)
	for _, ex := range d.Examples[:n] {
		words = append(words, ex.Form)
	}
	return words
}
