package report

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
	"github.com/jbaudry/previsk/internal/domain"
)

// =============================================================================
// PDF Generator
// =============================================================================

// PDFGenerator generates the DUERP document as a PDF.
type PDFGenerator struct {
	// Page dimensions (A4 in mm)
	pageWidth  float64
	pageHeight float64
	margin     float64

	// Content area
	contentWidth float64
}

// NewPDFGenerator creates a new PDF generator with default settings.
func NewPDFGenerator() *PDFGenerator {
	margin := 15.0
	pageWidth := 210.0 // A4 width in mm
	return &PDFGenerator{
		pageWidth:    pageWidth,
		pageHeight:   297.0, // A4 height in mm
		margin:       margin,
		contentWidth: pageWidth - (2 * margin),
	}
}

// Format returns the output format of this generator.
func (g *PDFGenerator) Format() domain.ExportFormat {
	return domain.ExportPDF
}

// Generate creates the DUERP PDF and writes it to the provided writer.
func (g *PDFGenerator) Generate(ctx context.Context, data *DUERPData, w io.Writer) (int64, error) {
	pdf := fpdf.New("P", "mm", "A4", "")

	// Core fonts are cp1252; the translator keeps French accents intact.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetTitle(tr("Document Unique - "+data.CompanyName), true)
	pdf.SetAuthor(tr(data.GeneratedBy), true)
	pdf.SetCreator("Previsk", true)

	pdf.SetAutoPageBreak(true, 20)
	pdf.SetFooterFunc(func() {
		g.addFooter(pdf, tr, data)
	})

	g.addCoverPage(pdf, tr, data)
	g.addSummary(pdf, tr, data)
	g.addRiskInventory(pdf, tr, data)

	if len(data.Participation) > 0 {
		g.addParticipationAnnex(pdf, tr, data)
	}

	if err := pdf.Error(); err != nil {
		return 0, fmt.Errorf("pdf generation error: %w", err)
	}

	// Write to buffer to count bytes
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return 0, fmt.Errorf("pdf output error: %w", err)
	}

	n, err := w.Write(buf.Bytes())
	return int64(n), err
}

// =============================================================================
// Cover Page
// =============================================================================

func (g *PDFGenerator) addCoverPage(pdf *fpdf.Fpdf, tr func(string) string, data *DUERPData) {
	pdf.AddPage()

	// Blue header bar
	r, gr, b := HexToRGB(BrandColors.Blue)
	pdf.SetFillColor(r, gr, b)
	pdf.Rect(0, 0, g.pageWidth, 70, "F")

	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 26)
	pdf.SetXY(g.margin, 22)
	pdf.Cell(0, 12, tr("Document Unique d'Évaluation"))
	pdf.SetXY(g.margin, 34)
	pdf.Cell(0, 12, tr("des Risques Professionnels"))

	pdf.SetFont("Helvetica", "", 14)
	pdf.SetXY(g.margin, 50)
	pdf.Cell(0, 8, tr(data.CompanyName))

	r, gr, b = HexToRGB(BrandColors.TextDark)
	pdf.SetTextColor(r, gr, b)

	// Company block
	pdf.SetXY(g.margin, 90)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "ENTREPRISE")
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 7, tr(data.CompanyName))
	pdf.Ln(7)
	if data.Siret != "" {
		pdf.Cell(0, 7, "SIRET : "+data.Siret)
		pdf.Ln(7)
	}
	if data.NafCode != "" {
		pdf.Cell(0, 7, "Code NAF : "+data.NafCode)
		pdf.Ln(7)
	}
	if data.Headcount > 0 {
		pdf.Cell(0, 7, tr(fmt.Sprintf("Effectif : %d salariés", data.Headcount)))
		pdf.Ln(7)
	}

	// Generation block
	pdf.Ln(10)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, tr("DATE D'ÉDITION"))
	pdf.Ln(10)
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 7, FormatDate(data.GeneratedAt))

	if data.GeneratedBy != "" {
		pdf.Ln(15)
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(0, 8, tr("ÉDITÉ PAR"))
		pdf.Ln(10)
		pdf.SetFont("Helvetica", "", 12)
		pdf.Cell(0, 7, tr(data.GeneratedBy))
	}
}

// =============================================================================
// Summary
// =============================================================================

func (g *PDFGenerator) addSummary(pdf *fpdf.Fpdf, tr func(string) string, data *DUERPData) {
	pdf.AddPage()
	g.addSectionHeader(pdf, tr, "Synthèse")

	// Risk counts by priority
	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(0, 8, tr("Risques évalués"))
	pdf.Ln(10)

	counts := data.RiskCountByPriority()

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(245, 245, 245)
	pdf.CellFormat(80, 8, tr("Priorité"), "1", 0, "L", true, 0, "")
	pdf.CellFormat(40, 8, "Nombre", "1", 1, "C", true, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	priorities := []domain.RiskPriority{
		domain.PriorityCritical,
		domain.PriorityHigh,
		domain.PriorityModerate,
		domain.PriorityLow,
	}

	for _, priority := range priorities {
		r, gr, b := HexToRGB(PriorityColor(priority))
		pdf.SetFillColor(r, gr, b)
		pdf.CellFormat(5, 8, "", "1", 0, "C", true, 0, "")
		pdf.SetFillColor(255, 255, 255)
		pdf.CellFormat(75, 8, tr(PriorityLabel(priority)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 8, fmt.Sprintf("%d", counts[priority]), "1", 1, "C", false, 0, "")
	}

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(245, 245, 245)
	pdf.CellFormat(80, 8, "Total", "1", 0, "L", true, 0, "")
	pdf.CellFormat(40, 8, fmt.Sprintf("%d", data.TotalRisks()), "1", 1, "C", true, 0, "")

	// Action plan rollup
	actionCounts := data.ActionCounts()
	pdf.Ln(10)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(0, 8, tr("Actions de prévention"))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 7, tr(fmt.Sprintf("À faire : %d", actionCounts.Todo)))
	pdf.Ln(7)
	pdf.Cell(0, 7, tr(fmt.Sprintf("En cours : %d", actionCounts.InProgress)))
	pdf.Ln(7)
	pdf.Cell(0, 7, tr(fmt.Sprintf("Terminées : %d", actionCounts.Done)))
	pdf.Ln(7)
	if actionCounts.Overdue > 0 {
		r, gr, b := HexToRGB(PriorityColors[domain.PriorityCritical])
		pdf.SetTextColor(r, gr, b)
		pdf.Cell(0, 7, tr(fmt.Sprintf("En retard : %d", actionCounts.Overdue)))
		pdf.Ln(7)
		r, gr, b = HexToRGB(BrandColors.TextDark)
		pdf.SetTextColor(r, gr, b)
	}
}

// =============================================================================
// Risk Inventory
// =============================================================================

func (g *PDFGenerator) addRiskInventory(pdf *fpdf.Fpdf, tr func(string) string, data *DUERPData) {
	pdf.AddPage()
	g.addSectionHeader(pdf, tr, "Inventaire des risques par unité de travail")

	if data.TotalRisks() == 0 {
		pdf.SetFont("Helvetica", "I", 11)
		pdf.Cell(0, 10, tr("Aucun risque évalué à ce jour."))
		return
	}

	for _, site := range data.Sites {
		if len(site.WorkUnits) == 0 {
			continue
		}

		if pdf.GetY() > 240 {
			pdf.AddPage()
		}

		// Site heading
		r, gr, b := HexToRGB(BrandColors.Blue)
		pdf.SetTextColor(r, gr, b)
		pdf.SetFont("Helvetica", "B", 13)
		pdf.Cell(0, 9, tr("Site : "+site.Name))
		pdf.Ln(9)
		if site.City != "" {
			pdf.SetFont("Helvetica", "", 10)
			r, gr, b = HexToRGB(BrandColors.TextMuted)
			pdf.SetTextColor(r, gr, b)
			pdf.Cell(0, 6, tr(site.Address+" - "+site.PostCode+" "+site.City))
			pdf.Ln(8)
		}
		r, gr, b = HexToRGB(BrandColors.TextDark)
		pdf.SetTextColor(r, gr, b)

		for _, unit := range site.WorkUnits {
			g.addWorkUnit(pdf, tr, unit)
		}

		pdf.Ln(4)
	}
}

func (g *PDFGenerator) addWorkUnit(pdf *fpdf.Fpdf, tr func(string) string, unit DUERPWorkUnit) {
	if pdf.GetY() > 230 {
		pdf.AddPage()
	}

	pdf.SetFont("Helvetica", "B", 11)
	title := unit.Name
	if unit.Headcount > 0 {
		title = fmt.Sprintf("%s (%d salariés)", unit.Name, unit.Headcount)
	}
	pdf.Cell(0, 8, tr("Unité de travail : "+title))
	pdf.Ln(9)

	if len(unit.Risks) == 0 {
		pdf.SetFont("Helvetica", "I", 10)
		pdf.Cell(0, 6, tr("Aucun risque évalué pour cette unité."))
		pdf.Ln(10)
		return
	}

	for i, risk := range unit.Risks {
		if pdf.GetY() > 240 {
			pdf.AddPage()
		}
		g.addRisk(pdf, tr, risk, i+1)
	}

	pdf.Ln(4)
}

func (g *PDFGenerator) addRisk(pdf *fpdf.Fpdf, tr func(string) string, risk DUERPRisk, number int) {
	evaluation := risk.Evaluation

	// Priority indicator
	r, gr, b := HexToRGB(PriorityColor(evaluation.Priority))
	pdf.SetFillColor(r, gr, b)
	pdf.Rect(g.margin, pdf.GetY(), 4, 7, "F")

	pdf.SetX(g.margin + 8)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.Cell(0, 7, tr(fmt.Sprintf("Risque %d : %s", number, evaluation.Hazard)))
	pdf.Ln(8)

	pdf.SetX(g.margin + 8)
	pdf.SetFont("Helvetica", "", 9)
	r, gr, b = HexToRGB(BrandColors.TextMuted)
	pdf.SetTextColor(r, gr, b)
	pdf.Cell(0, 5, tr(fmt.Sprintf("Gravité %d x Probabilité %d = Score %d - Priorité %s",
		evaluation.Severity, evaluation.Probability, evaluation.Score, PriorityLabel(evaluation.Priority))))
	pdf.Ln(6)
	r, gr, b = HexToRGB(BrandColors.TextDark)
	pdf.SetTextColor(r, gr, b)

	if evaluation.Description != "" {
		pdf.SetX(g.margin + 8)
		pdf.SetFont("Helvetica", "", 9)
		pdf.MultiCell(g.contentWidth-8, 5, tr(evaluation.Description), "", "L", false)
		pdf.Ln(1)
	}

	for _, action := range risk.Actions {
		pdf.SetX(g.margin + 12)
		pdf.SetFont("Helvetica", "", 9)
		line := fmt.Sprintf("- %s [%s]", action.Title, ActionStatusLabel(action.Status))
		if action.DueDate != nil {
			line += " - " + tr("échéance ") + FormatDate(*action.DueDate)
		}
		pdf.MultiCell(g.contentWidth-12, 5, tr(line), "", "L", false)
	}

	pdf.Ln(3)
}

// =============================================================================
// Participation Annex
// =============================================================================

func (g *PDFGenerator) addParticipationAnnex(pdf *fpdf.Fpdf, tr func(string) string, data *DUERPData) {
	pdf.AddPage()
	g.addSectionHeader(pdf, tr, "Annexe : participation des salariés")

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(245, 245, 245)
	pdf.CellFormat(30, 8, "Date", "1", 0, "L", true, 0, "")
	pdf.CellFormat(40, 8, "Type", "1", 0, "L", true, 0, "")
	pdf.CellFormat(110, 8, "Description", "1", 1, "L", true, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	for _, entry := range data.Participation {
		if pdf.GetY() > 260 {
			pdf.AddPage()
		}
		pdf.CellFormat(30, 7, FormatDate(entry.OccurredOn), "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 7, tr(ParticipationKindLabel(entry.Kind)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(110, 7, tr(TruncateText(entry.Description, 90)), "1", 1, "L", false, 0, "")
	}
}

// =============================================================================
// Helper Methods
// =============================================================================

func (g *PDFGenerator) addSectionHeader(pdf *fpdf.Fpdf, tr func(string) string, title string) {
	r, gr, b := HexToRGB(BrandColors.Blue)
	pdf.SetDrawColor(r, gr, b)
	pdf.SetLineWidth(0.5)

	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetTextColor(r, gr, b)
	pdf.Cell(0, 10, tr(title))
	pdf.Ln(12)

	pdf.Line(g.margin, pdf.GetY(), g.pageWidth-g.margin, pdf.GetY())
	pdf.Ln(10)

	r, gr, b = HexToRGB(BrandColors.TextDark)
	pdf.SetTextColor(r, gr, b)
}

func (g *PDFGenerator) addFooter(pdf *fpdf.Fpdf, tr func(string) string, data *DUERPData) {
	pdf.SetY(-15)

	r, gr, b := HexToRGB(BrandColors.Border)
	pdf.SetDrawColor(r, gr, b)
	pdf.Line(g.margin, pdf.GetY()-3, g.pageWidth-g.margin, pdf.GetY()-3)

	r, gr, b = HexToRGB(BrandColors.TextMuted)
	pdf.SetTextColor(r, gr, b)
	pdf.SetFont("Helvetica", "", 8)

	// Left: generation date
	pdf.Cell(0, 10, tr("Édité le ")+FormatDateTime(data.GeneratedAt))

	// Right: page number
	pdf.SetX(-g.margin - 30)
	pdf.CellFormat(30, 10, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "R", false, 0, "")
}
