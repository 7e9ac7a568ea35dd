package http

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/couchcryptid/float-query-service/internal/domain"
	"github.com/couchcryptid/float-query-service/internal/history"
)

var errNothingToExport = errors.New("query has no data to export")

// handleExport downloads the data behind a stored answer as CSV (default) or JSON.
func (s *Server) handleExport(c *gin.Context) {
	format := c.DefaultQuery("format", "csv")
	if format != "csv" && format != "json" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be csv or json"})
		return
	}

	queryID := c.Param("id")
	rec, err := s.deps.History.Get(c.Request.Context(), queryID)
	if errors.Is(err, history.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "query not found"})
		return
	}
	if err != nil {
		s.internalError(c, "export", err)
		return
	}
	if rec.Data == nil || !rec.Data.Success {
		c.JSON(http.StatusNotFound, gin.H{"error": errNothingToExport.Error()})
		return
	}

	filename := fmt.Sprintf("query_%s.%s", queryID, format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if format == "json" {
		c.JSON(http.StatusOK, rec.Data)
		return
	}

	rows, err := exportRows(rec.Data)
	if err != nil {
		s.internalError(c, "export", err)
		return
	}
	c.Status(http.StatusOK)
	c.Header("Content-Type", "text/csv; charset=utf-8")
	w := csv.NewWriter(c.Writer)
	if err := w.WriteAll(rows); err != nil {
		s.logger.Error("write csv export", "query_id", queryID, "error", err)
	}
}

// exportRows flattens an answer payload into CSV rows with a header. Stored
// payloads may come back from JSON, so the data is normalized through it.
func exportRows(d *domain.AnswerData) ([][]string, error) {
	raw, err := json.Marshal(d.Data)
	if err != nil {
		return nil, fmt.Errorf("encode export data: %w", err)
	}
	md := d.Metadata

	var value float64
	if err := json.Unmarshal(raw, &value); err == nil {
		return [][]string{
			{"variable", "operation", "value", "units", "n_profiles", "n_samples"},
			{string(md.Variable), string(md.Operation), formatFloat(value),
				md.Units, strconv.Itoa(md.NProfiles), strconv.Itoa(md.NSamples)},
		}, nil
	}

	var series []domain.Series
	if err := json.Unmarshal(raw, &series); err != nil {
		return nil, fmt.Errorf("decode export data: %w", err)
	}
	rows := [][]string{{"series", "profile_id", "variable", "depth_m", "value", "units"}}
	for _, s := range series {
		for _, p := range s.Points {
			rows = append(rows, []string{s.Name, s.ProfileID, string(s.Variable), formatFloat(p.X), formatFloat(p.Y), s.Unit})
		}
	}
	return rows, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
