package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jbaudry/previsk/internal/domain"
)

// =============================================================================
// CSV Generator
// =============================================================================

// CSVGenerator renders the DUERP as a flat CSV, one row per evaluated risk.
// Intended for spreadsheet review and imports into third-party tools.
type CSVGenerator struct{}

// NewCSVGenerator creates a new CSV generator.
func NewCSVGenerator() *CSVGenerator {
	return &CSVGenerator{}
}

// Format returns the output format of this generator.
func (g *CSVGenerator) Format() domain.ExportFormat {
	return domain.ExportCSV
}

var csvHeader = []string{
	"Site",
	"Unité de travail",
	"Danger",
	"Description",
	"Méthode",
	"Gravité",
	"Probabilité",
	"Score",
	"Priorité",
	"Actions",
	"Date d'évaluation",
}

// Generate writes the DUERP snapshot as CSV. A byte-counting writer wraps the
// destination because encoding/csv does not report bytes written.
func (g *CSVGenerator) Generate(ctx context.Context, data *DUERPData, w io.Writer) (int64, error) {
	counter := &countingWriter{w: w}
	writer := csv.NewWriter(counter)

	if err := writer.Write(csvHeader); err != nil {
		return counter.n, fmt.Errorf("csv header: %w", err)
	}

	for _, site := range data.Sites {
		for _, unit := range site.WorkUnits {
			for _, risk := range unit.Risks {
				if err := ctx.Err(); err != nil {
					return counter.n, err
				}
				if err := writer.Write(g.row(site, unit, risk)); err != nil {
					return counter.n, fmt.Errorf("csv row: %w", err)
				}
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return counter.n, fmt.Errorf("csv flush: %w", err)
	}
	return counter.n, nil
}

func (g *CSVGenerator) row(site DUERPSite, unit DUERPWorkUnit, risk DUERPRisk) []string {
	evaluation := risk.Evaluation
	return []string{
		site.Name,
		unit.Name,
		evaluation.Hazard,
		evaluation.Description,
		string(evaluation.Method),
		strconv.Itoa(evaluation.Severity),
		strconv.Itoa(evaluation.Probability),
		strconv.Itoa(evaluation.Score),
		PriorityLabel(evaluation.Priority),
		summarizeActions(risk.Actions),
		FormatDate(evaluation.CreatedAt),
	}
}

// summarizeActions flattens a risk's actions into one cell, separated by
// semicolons so the CSV stays one row per risk.
func summarizeActions(actions []domain.ActionPlan) string {
	if len(actions) == 0 {
		return ""
	}
	parts := make([]string, len(actions))
	for i, action := range actions {
		part := action.Title + " (" + ActionStatusLabel(action.Status) + ")"
		if action.DueDate != nil {
			part += " - " + FormatDate(*action.DueDate)
		}
		parts[i] = part
	}
	return strings.Join(parts, "; ")
}

// countingWriter tracks bytes written through it.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
