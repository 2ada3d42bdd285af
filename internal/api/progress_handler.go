package api

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/phrazzld/scry-kanji/internal/api/shared"
	"github.com/phrazzld/scry-kanji/internal/catalog"
	"github.com/phrazzld/scry-kanji/internal/domain"
	"github.com/phrazzld/scry-kanji/internal/platform/logger"
	"github.com/phrazzld/scry-kanji/internal/progress"
	"github.com/phrazzld/scry-kanji/internal/queue"
)

// ProgressService is the subset of the item store the API reads and replaces.
type ProgressService interface {
	Stats(cat *catalog.Catalog) progress.LevelCounts
	FilterCounts(cat *catalog.Catalog, now time.Time) progress.FilterCounts
	Export(ctx context.Context, now time.Time) (*domain.ExportSnapshot, error)
	ApplyImport(ctx context.Context, snap *domain.ExportSnapshot) error
	Preferences(ctx context.Context) (domain.Preferences, error)
	SavePreferences(ctx context.Context, prefs domain.Preferences) error
}

// GridBuilder orders the catalog for the overview grid.
type GridBuilder interface {
	Grid(mode queue.GridSort) ([]queue.GridCell, error)
}

// ProgressHandler serves statistics, the grid, export/import and preferences.
type ProgressHandler struct {
	items   ProgressService
	catalog *catalog.Catalog
	grid    GridBuilder
	now     func() time.Time
	logger  *slog.Logger
}

// NewProgressHandler creates a ProgressHandler. A nil clock means time.Now.
func NewProgressHandler(
	items ProgressService,
	cat *catalog.Catalog,
	grid GridBuilder,
	now func() time.Time,
	logger *slog.Logger,
) *ProgressHandler {
	if items == nil || cat == nil || grid == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("item store, catalog and grid builder are required for ProgressHandler")
	}
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ProgressHandler{
		items:   items,
		catalog: cat,
		grid:    grid,
		now:     now,
		logger:  logger.With(slog.String("component", "progress_handler")),
	}
}

// GetStats handles GET /api/stats.
func (h *ProgressHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, StatsResponse{
		Levels:  h.items.Stats(h.catalog),
		Filters: h.items.FilterCounts(h.catalog, h.now()),
	})
}

// ListItems handles GET /api/items?sort=<mode>.
func (h *ProgressHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	mode, err := queue.ParseGridSort(r.URL.Query().Get("sort"))
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	cells, err := h.grid.Grid(mode)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list items")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, GridResponse{Sort: mode, Items: cells})
}

// Export handles GET /api/export and serves the snapshot as a download.
func (h *ProgressHandler) Export(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	snap, err := h.items.Export(r.Context(), now)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to export progress")
		return
	}
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="kanji-progress-%s.json"`, now.Format("2006-01-02")))
	shared.RespondWithJSON(w, r, http.StatusOK, snap)
}

// Import handles POST /api/import?confirm=true.
//
// The payload is checked before anything else. A valid payload without
// confirm=true is refused with 409 and nothing is written.
func (h *ProgressHandler) Import(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	data, err := io.ReadAll(io.LimitReader(r.Body, shared.MaxBodyBytes))
	if err != nil {
		HandleAPIError(w, r, err, "Failed to read import")
		return
	}
	snap, err := progress.ParseImport(data)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	confirmed, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
	if !confirmed {
		HandleAPIError(w, r, errImportNotConfirmed, "")
		return
	}

	if err := h.items.ApplyImport(r.Context(), snap); err != nil {
		HandleAPIError(w, r, err, "Failed to import progress")
		return
	}

	log.Info("progress imported", slog.Int("records", len(snap.ItemProgress)))
	shared.RespondWithJSON(w, r, http.StatusOK, ImportResponse{
		Records:       len(snap.ItemProgress),
		Preferences:   len(snap.Preferences) > 0,
		FormatVersion: snap.FormatVersion,
		ImportedAt:    h.now().UTC(),
	})
}

// GetPreferences handles GET /api/preferences.
func (h *ProgressHandler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	prefs, err := h.items.Preferences(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load preferences")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, prefs)
}

// PutPreferences handles PUT /api/preferences. Fields missing from the body
// take their default values.
func (h *ProgressHandler) PutPreferences(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, shared.MaxBodyBytes))
	if err != nil {
		HandleAPIError(w, r, err, "Failed to read preferences")
		return
	}
	if len(data) == 0 {
		HandleAPIError(w, r, shared.ErrEmptyBody, "")
		return
	}
	prefs, err := domain.ParsePreferences(data)
	if err != nil {
		HandleAPIError(w, r, fmt.Errorf("%w: %v", shared.ErrInvalidBody, err), "")
		return
	}
	if err := h.items.SavePreferences(r.Context(), prefs); err != nil {
		HandleAPIError(w, r, err, "Failed to save preferences")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, prefs)
}
