package httpapi

import (
	"fmt"
	"net/http"

	"straintrack-data/internal/repository"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// metricsExportHeader is the workbook header row for the metrics export.
var metricsExportHeader = []string{
	"Region",
	"Bed Occupancy %",
	"ICU Occupancy %",
	"Strain Index",
}

// ExportMetrics streams the latest (or requested) date's metrics as an Excel
// workbook for offline analysis.
func (h *APIHandler) ExportMetrics(w http.ResponseWriter, r *http.Request) {
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
			writeError(w, http.StatusNotFound, "no metrics available")
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

	book, err := buildMetricsWorkbook(facts)
	if err != nil {
		h.logger.Error("failed to build metrics workbook", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to build export")
		return
	}

	filename := fmt.Sprintf("strain_metrics_%s.xlsx", target.Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	if _, err := book.WriteTo(w); err != nil {
		h.logger.Error("failed to write metrics workbook", zap.Error(err))
	}
}

func buildMetricsWorkbook(facts []*repository.MetricsWithRegion) (*excelize.File, error) {
	f := excelize.NewFile()
	sheet := "Metrics"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}
	for col, title := range metricsExportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, title); err != nil {
			return nil, err
		}
	}
	for i, fact := range facts {
		values := []any{fact.RegionName, fact.BedOccPct, nil, fact.StrainIndex}
		if fact.ICUOccPct != nil {
			values[2] = *fact.ICUOccPct
		}
		for col, v := range values {
			if v == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, err
			}
		}
	}
	return f, nil
}
