package httpapi

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"straintrack-data/internal/repository"

	"go.uber.org/zap"
)

// Version is reported by /health; overridable at build time with -ldflags.
var Version = "dev"

// APIHandler serves the read-only projections over the loaded tables.
type APIHandler struct {
	store  repository.Store
	logger *zap.Logger
}

func NewAPIHandler(store repository.Store, logger *zap.Logger) *APIHandler {
	return &APIHandler{store: store, logger: logger}
}

func (h *APIHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "straintrack-data",
		"version": Version,
	})
}

// ListRuns returns the last 20 pipeline runs, started_at descending.
func (h *APIHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.store.Runs().ListRuns(r.Context(), 20)
	if err != nil {
		h.logger.Error("failed to list runs", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	if runs == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

// dateParam parses an optional ?date=YYYY-MM-DD query parameter. ok=false
// means the response was already written (400).
func dateParam(w http.ResponseWriter, r *http.Request, required bool) (*time.Time, bool) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		if required {
			writeError(w, http.StatusBadRequest, "date query parameter is required")
			return nil, false
		}
		return nil, true
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid date format: '%s'. Expected format: YYYY-MM-DD", raw))
		return nil, false
	}
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &d, true
}

// CapacityLatest returns capacity rows for the requested date, or for the
// latest loaded date when none is given.
func (h *APIHandler) CapacityLatest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	target, ok := dateParam(w, r, false)
	if !ok {
		return
	}
	if target == nil {
		latest, err := h.store.Capacity().LatestDate(ctx)
		if err != nil {
			h.logger.Error("failed to get latest capacity date", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to query capacity")
			return
		}
		if latest == nil {
			writeJSON(w, http.StatusOK, map[string]any{"date": nil, "rows": []any{}})
			return
		}
		target = latest
	}

	facts, err := h.store.Capacity().ListByDate(ctx, *target)
	if err != nil {
		h.logger.Error("failed to list capacity", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to query capacity")
		return
	}

	rows := make([]map[string]any, 0, len(facts))
	for _, f := range facts {
		var bedOccPct any
		if f.TotalBeds > 0 {
			bedOccPct = round4(float64(f.OccupiedBeds) / float64(f.TotalBeds))
		}
		var icuOccPct any
		if f.ICUBeds != nil && f.ICUOccupied != nil && *f.ICUBeds > 0 {
			icuOccPct = round4(float64(*f.ICUOccupied) / float64(*f.ICUBeds))
		}
		rows = append(rows, map[string]any{
			"region":        f.RegionName,
			"total_beds":    f.TotalBeds,
			"occupied_beds": f.OccupiedBeds,
			"bed_occ_pct":   bedOccPct,
			"icu_beds":      f.ICUBeds,
			"icu_occupied":  f.ICUOccupied,
			"icu_occ_pct":   icuOccPct,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"date": target.Format("2006-01-02"),
		"rows": rows,
	})
}

// MetricsLatest returns derived metrics for the requested or latest date.
func (h *APIHandler) MetricsLatest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	target, ok := dateParam(w, r, false)
	if !ok {
		return
	}
	if target == nil {
		latest, err := h.store.Metrics().LatestDate(ctx)
		if err != nil {
			h.logger.Error("failed to get latest metrics date", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to query metrics")
			return
		}
		if latest == nil {
			writeJSON(w, http.StatusOK, map[string]any{"date": nil, "rows": []any{}})
			return
		}
		target = latest
	}

	facts, err := h.store.Metrics().ListByDate(ctx, *target)
	if err != nil {
		h.logger.Error("failed to list metrics", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to query metrics")
		return
	}

	rows := make([]map[string]any, 0, len(facts))
	for _, f := range facts {
		rows = append(rows, map[string]any{
			"region":       f.RegionName,
			"bed_occ_pct":  f.BedOccPct,
			"icu_occ_pct":  f.ICUOccPct,
			"strain_index": f.StrainIndex,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"date": target.Format("2006-01-02"),
		"rows": rows,
	})
}

// MetricsCompare returns each region's strain index for a date against the
// previous day.
func (h *APIHandler) MetricsCompare(w http.ResponseWriter, r *http.Request) {
	target, ok := dateParam(w, r, true)
	if !ok {
		return
	}
	comparisons, err := h.store.Metrics().CompareWithPreviousDay(r.Context(), *target)
	if err != nil {
		h.logger.Error("failed to compare metrics", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to query metrics")
		return
	}

	rows := make([]map[string]any, 0, len(comparisons))
	for _, c := range comparisons {
		var delta any
		if c.PrevStrainIndex != nil {
			delta = round4(c.StrainIndex - *c.PrevStrainIndex)
		}
		rows = append(rows, map[string]any{
			"region":            c.Region,
			"strain_index":      c.StrainIndex,
			"prev_strain_index": c.PrevStrainIndex,
			"delta":             delta,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"date": target.Format("2006-01-02"),
		"rows": rows,
	})
}

// AvailableDates returns min/max/count of metric dates; ?full=true includes
// the whole list.
func (h *APIHandler) AvailableDates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	minDate, maxDate, count, err := h.store.Metrics().AvailableDates(ctx)
	if err != nil {
		h.logger.Error("failed to get available dates", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to query metrics")
		return
	}

	response := map[string]any{
		"min_date": formatDatePtr(minDate),
		"max_date": formatDatePtr(maxDate),
		"count":    count,
	}
	if r.URL.Query().Get("full") == "true" {
		dates, err := h.store.Metrics().ListDates(ctx)
		if err != nil {
			h.logger.Error("failed to list dates", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to query metrics")
			return
		}
		formatted := make([]string, 0, len(dates))
		for _, d := range dates {
			formatted = append(formatted, d.Format("2006-01-02"))
		}
		response["dates"] = formatted
	}
	writeJSON(w, http.StatusOK, response)
}

// Coverage returns dates with at least min_rows regions, plus the most recent
// qualifying date.
func (h *APIHandler) Coverage(w http.ResponseWriter, r *http.Request) {
	minRows := 30
	if raw := r.URL.Query().Get("min_rows"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid min_rows: '%s'", raw))
			return
		}
		minRows = n
	}

	coverage, err := h.store.Metrics().Coverage(r.Context(), minRows)
	if err != nil {
		h.logger.Error("failed to get coverage", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to query metrics")
		return
	}

	dates := make([]map[string]any, 0, len(coverage))
	var bestDate any
	bestRows := 0
	for _, dc := range coverage {
		dates = append(dates, map[string]any{
			"date": dc.Date.Format("2006-01-02"),
			"rows": dc.Rows,
		})
		// coverage is date-ascending, so the last entry is the best date
		bestDate = dc.Date.Format("2006-01-02")
		bestRows = dc.Rows
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"min_rows":  minRows,
		"best_date": bestDate,
		"best_rows": bestRows,
		"dates":     dates,
	})
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

func formatDatePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format("2006-01-02")
}
