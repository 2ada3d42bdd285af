package domain

import (
	"encoding/json"
	"fmt"
)

// Preferences controls which parts of an item's detail the study view shows.
// Unknown fields in stored preferences are ignored.
type Preferences struct {
	ShowKun         bool `json:"showKun"`
	ShowOn          bool `json:"showOn"`
	ShowMeaning     bool `json:"showMeaning"`
	ShowExamples    bool `json:"showExamples"`
	ShowStrokeOrder bool `json:"showStrokeOrder"`
	ShowInContext   bool `json:"showInContext"`

	// GridSort is the last ordering chosen for the grid view.
	GridSort string `json:"gridSort,omitempty"`
}

// DefaultPreferences shows readings and meanings only.
func DefaultPreferences() Preferences {
	return Preferences{
		ShowKun:     true,
		ShowOn:      true,
		ShowMeaning: true,
	}
}

// ParsePreferences decodes stored preferences on top of the defaults,
// so a field missing from raw keeps its default value.
func ParsePreferences(raw []byte) (Preferences, error) {
	prefs := DefaultPreferences()
	if len(raw) == 0 || string(raw) == "null" {
		return prefs, nil
	}
	if err := json.Unmarshal(raw, &prefs); err != nil {
		return DefaultPreferences(), fmt.Errorf("%w: preferences: %v", ErrMalformedPersistedState, err)
	}
	return prefs, nil
}
