package jiten

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/phrazzld/scry-kanji/internal/config"
	"github.com/phrazzld/scry-kanji/internal/domain"
)

// DefaultBaseURL is the public Jiten API.
const DefaultBaseURL = "https://api.jiten.moe"

// maxBodyBytes caps how much of a response is read.
const maxBodyBytes = 1 << 20

// Client fetches kanji detail from Jiten.
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
	logger    *slog.Logger
}

// kanjiResponse is the subset of the Jiten kanji payload the scheduler uses.
type kanjiResponse struct {
	KunReadings []string   `json:"kunReadings"`
	OnReadings  []string   `json:"onReadings"`
	Meanings    []string   `json:"meanings"`
	TopWords    []wordJSON `json:"topWords"`
}

type wordJSON struct {
	Reading         string `json:"reading"`
	ReadingFurigana string `json:"readingFurigana"`
	MainDefinition  string `json:"mainDefinition"`
}

// Readings is the reading subset used by metadata enrichment.
type Readings struct {
	Kun []string
	On  []string
}

// NewClient creates a client from the detail configuration.
//
// Parameters:
//   - cfg: base URL, per-request timeout, and User-Agent
//   - httpClient: transport to use; nil means a client with cfg.Timeout
//   - logger: structured logger; nil means slog.Default
//
// Returns an error when the base URL does not parse.
func NewClient(cfg config.DetailConfig, httpClient *http.Client, logger *slog.Logger) (*Client, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("invalid jiten base url %q: %w", cfg.BaseURL, err)
	}

	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = "scry-kanji"
	}

	return &Client{
		baseURL:   base,
		userAgent: ua,
		http:      httpClient,
		logger:    logger.With("component", "jiten"),
	}, nil
}

// FetchDetail implements detail.Provider.
// Every failure wraps domain.ErrDetailUnavailable.
func (c *Client) FetchDetail(ctx context.Context, itemID string) (*domain.Detail, error) {
	resp, err := c.lookup(ctx, itemID)
	if err != nil {
		return nil, err
	}

	d := &domain.Detail{
		ItemID:      itemID,
		KunReadings: nonNil(resp.KunReadings),
		OnReadings:  nonNil(resp.OnReadings),
		Meanings:    nonNil(resp.Meanings),
		Examples:    make([]domain.Example, 0, len(resp.TopWords)),
		Available:   true,
	}
	for _, w := range resp.TopWords {
		if w.Reading == "" {
			continue
		}
		d.Examples = append(d.Examples, domain.Example{
			Form:       w.Reading,
			Furigana:   w.ReadingFurigana,
			Definition: w.MainDefinition,
		})
	}
	return d, nil
}

// FetchReadings returns only the readings of itemID. A payload without an
// onReadings field counts as a failure.
func (c *Client) FetchReadings(ctx context.Context, itemID string) (Readings, error) {
	resp, err := c.lookup(ctx, itemID)
	if err != nil {
		return Readings{}, err
	}
	if resp.OnReadings == nil {
		return Readings{}, fmt.Errorf("%w: %s has no readings", domain.ErrDetailUnavailable, itemID)
	}
	return Readings{Kun: nonNil(resp.KunReadings), On: resp.OnReadings}, nil
}

func (c *Client) lookup(ctx context.Context, itemID string) (*kanjiResponse, error) {
	if itemID == "" {
		return nil, fmt.Errorf("%w: empty item", domain.ErrDetailUnavailable)
	}

	endpoint := c.baseURL + "/api/kanji/" + url.PathEscape(itemID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDetailUnavailable, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request for %s: %v", domain.ErrDetailUnavailable, itemID, err)
	}
	defer func() { _ = res.Body.Close() }()

	c.logger.Debug("jiten lookup",
		slog.String("item", itemID),
		slog.Int("status", res.StatusCode),
		slog.Duration("duration", time.Since(start)))

	if res.StatusCode < 200 || res.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, maxBodyBytes))
		return nil, fmt.Errorf("%w: jiten returned %d for %s", domain.ErrDetailUnavailable, res.StatusCode, itemID)
	}

	var payload kanjiResponse
	dec := json.NewDecoder(io.LimitReader(res.Body, maxBodyBytes))
	if err := dec.Decode(&payload); err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("empty body")
		}
		return nil, fmt.Errorf("%w: decode %s: %v", domain.ErrDetailUnavailable, itemID, err)
	}
	return &payload, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
