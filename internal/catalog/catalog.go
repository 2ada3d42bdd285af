// Package catalog loads the ordered, read-only universe of study items from a
// JSON metadata file keyed by kanji. The file's key order is the canonical
// default order of every session and grid view.
package catalog

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/phrazzld/scry-kanji/internal/domain"
)

// Catalog is an immutable, ordered set of items.
type Catalog struct {
	items  []domain.Item
	index  map[string]int
	fields []map[string]json.RawMessage
}

// metadata mirrors the fields of one entry in the metadata file.
// Zero values are treated as absent, as in the files in circulation.
type metadata struct {
	Frequency *int `json:"frequency"`
	Grade     *int `json:"grade"`
	JLPT      *int `json:"jlpt"`
	Strokes   *int `json:"strokes"`
}

// New builds a catalog from items in the given order. Later duplicates
// replace the metadata of earlier ones without changing their position.
func New(items []domain.Item) *Catalog {
	c := &Catalog{index: make(map[string]int, len(items))}
	for _, item := range items {
		c.add(item, nil)
	}
	return c
}

// Empty returns a catalog with no items.
func Empty() *Catalog {
	return New(nil)
}

func (c *Catalog) add(item domain.Item, fields map[string]json.RawMessage) {
	if i, ok := c.index[item.ID]; ok {
		c.items[i] = item
		c.fields[i] = fields
		return
	}
	c.index[item.ID] = len(c.items)
	c.items = append(c.items, item)
	c.fields = append(c.fields, fields)
}

// Load decodes a metadata object, preserving key order.
func Load(r io.Reader) (*Catalog, error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("catalog must be a JSON object, got %v", tok)
	}

	c := Empty()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("reading catalog key: %w", err)
		}
		id, ok := tok.(string)
		if !ok || id == "" {
			return nil, fmt.Errorf("invalid catalog key %v", tok)
		}

		var fields map[string]json.RawMessage
		if err := dec.Decode(&fields); err != nil {
			return nil, fmt.Errorf("decoding entry %q: %w", id, err)
		}

		nums := make(map[string]*int, len(numericFields))
		for _, name := range numericFields {
			raw, ok := fields[name]
			if !ok {
				continue
			}
			var v *int
			if err := json.Unmarshal(raw, &v); err != nil {
				return nil, fmt.Errorf("decoding %s of %q: %w", name, id, err)
			}
			nums[name] = v
		}

		c.add(domain.Item{
			ID:            id,
			FrequencyRank: positive(nums["frequency"]),
			Grade:         positive(nums["grade"]),
			JLPTLevel:     positive(nums["jlpt"]),
			StrokeCount:   positive(nums["strokes"]),
		}, fields)
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("reading end of catalog: %w", err)
	}

	return c, nil
}

// LoadFile reads the catalog at path. A missing or malformed file yields an
// empty catalog and a warning: every session then reports an empty queue.
func LoadFile(path string, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "catalog"))

	f, err := os.Open(path)
	if err != nil {
		logger.Warn("catalog unavailable, continuing with an empty catalog",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return Empty()
	}
	defer func() { _ = f.Close() }()

	c, err := Load(bufio.NewReader(f))
	if err != nil {
		logger.Warn("catalog malformed, continuing with an empty catalog",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return Empty()
	}

	logger.Info("catalog loaded", slog.String("path", path), slog.Int("items", c.Len()))
	return c
}

func positive(v *int) *int {
	if v == nil || *v <= 0 {
		return nil
	}
	return v
}

// Len returns the number of items.
func (c *Catalog) Len() int {
	return len(c.items)
}

// Items returns the items in catalog order. The slice is a copy.
func (c *Catalog) Items() []domain.Item {
	out := make([]domain.Item, len(c.items))
	copy(out, c.items)
	return out
}

// IDs returns item identities in catalog order.
func (c *Catalog) IDs() []string {
	out := make([]string, len(c.items))
	for i, item := range c.items {
		out[i] = item.ID
	}
	return out
}

// Get returns the item with the given identity.
func (c *Catalog) Get(id string) (domain.Item, bool) {
	i, ok := c.index[id]
	if !ok {
		return domain.Item{}, false
	}
	return c.items[i], true
}

// Contains reports whether id is in the catalog.
func (c *Catalog) Contains(id string) bool {
	_, ok := c.index[id]
	return ok
}

// Index returns the catalog position of id.
func (c *Catalog) Index(id string) (int, bool) {
	i, ok := c.index[id]
	return i, ok
}

// HasField reports whether the raw metadata entry for id contains field.
func (c *Catalog) HasField(id, field string) bool {
	i, ok := c.index[id]
	if !ok || c.fields[i] == nil {
		return false
	}
	_, ok = c.fields[i][field]
	return ok
}

// ErrUnknownItem is returned by Write when extra fields name an item that is not in the catalog.
var ErrUnknownItem = errors.New("unknown catalog item")

// Write encodes the catalog as an indented JSON object in catalog order.
// Fields in extra are merged into the matching entries, replacing existing
// fields of the same name. Unknown fields read by Load are preserved.
func (c *Catalog) Write(w io.Writer, extra map[string]map[string]any) error {
	for id := range extra {
		if !c.Contains(id) {
			return fmt.Errorf("%w: %q", ErrUnknownItem, id)
		}
	}

	var buf bytes.Buffer
	buf.WriteString("{\n")
	for i, item := range c.items {
		entry := make(map[string]any, len(c.fields[i])+4)
		for k, v := range c.fields[i] {
			entry[k] = v
		}
		if c.fields[i] == nil {
			for k, v := range itemFields(item) {
				entry[k] = v
			}
		}
		for k, v := range extra[item.ID] {
			entry[k] = v
		}

		key, err := json.Marshal(item.ID)
		if err != nil {
			return err
		}
		body, err := json.MarshalIndent(entry, "  ", "  ")
		if err != nil {
			return fmt.Errorf("encoding entry %q: %w", item.ID, err)
		}

		buf.WriteString("  ")
		buf.Write(key)
		buf.WriteString(": ")
		buf.Write(body)
		if i < len(c.items)-1 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}
	buf.WriteString("}\n")

	_, err := w.Write(buf.Bytes())
	return err
}

func itemFields(item domain.Item) map[string]any {
	out := make(map[string]any, 4)
	if item.FrequencyRank != nil {
		out["frequency"] = *item.FrequencyRank
	}
	if item.Grade != nil {
		out["grade"] = *item.Grade
	}
	if item.JLPTLevel != nil {
		out["jlpt"] = *item.JLPTLevel
	}
	if item.StrokeCount != nil {
		out["strokes"] = *item.StrokeCount
	}
	return out
}
