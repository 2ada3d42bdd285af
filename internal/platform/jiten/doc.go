// Package jiten implements detail.Provider against the Jiten dictionary API.
//
// A lookup is a single GET of /api/kanji/{kanji}. The response carries kun and
// on readings, English meanings, and the most frequent words that use the
// character; those words become the detail's examples in the order the API
// returns them, which is descending relevance.
package jiten
