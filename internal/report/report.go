// Package report provides PDF and CSV generation for DUERP exports.
//
// This package defines a Generator interface implemented by PDFGenerator and
// CSVGenerator, along with common helpers for formatting and styling
// documents in the Previsk brand style.
package report

import (
	"context"
	"io"
	"time"

	"github.com/jbaudry/previsk/internal/domain"
)

// =============================================================================
// Generator Interface
// =============================================================================

// Generator defines the interface for DUERP document generators.
// Implementations handle the specifics of each format (PDF, CSV).
type Generator interface {
	// Generate creates a document and writes it to the provided writer.
	// Returns the number of bytes written and any error.
	Generate(ctx context.Context, data *DUERPData, w io.Writer) (int64, error)

	// Format returns the output format of this generator.
	Format() domain.ExportFormat
}

// =============================================================================
// Report Data
// =============================================================================

// DUERPData is the assembled snapshot a generator renders. The worker builds
// it from the company's sites, work units, evaluations and actions.
type DUERPData struct {
	CompanyName   string
	Siret         string
	NafCode       string
	Headcount     int
	GeneratedAt   time.Time
	GeneratedBy   string // display name of the requesting user
	Sites         []DUERPSite
	Participation []domain.ParticipationEntry
}

// DUERPSite groups a site's work units for rendering.
type DUERPSite struct {
	Name      string
	Address   string
	City      string
	PostCode  string
	WorkUnits []DUERPWorkUnit
}

// DUERPWorkUnit carries a work unit and its evaluated risks.
type DUERPWorkUnit struct {
	Name        string
	Description string
	Headcount   int
	Risks       []DUERPRisk
}

// DUERPRisk is one evaluated risk with its prevention actions.
type DUERPRisk struct {
	Evaluation domain.RiskEvaluation
	Actions    []domain.ActionPlan
}

// TotalRisks counts the evaluations across all sites and work units.
func (d *DUERPData) TotalRisks() int {
	total := 0
	for _, site := range d.Sites {
		for _, unit := range site.WorkUnits {
			total += len(unit.Risks)
		}
	}
	return total
}

// RiskCountByPriority tallies evaluations per priority band.
func (d *DUERPData) RiskCountByPriority() map[domain.RiskPriority]int {
	counts := make(map[domain.RiskPriority]int)
	for _, site := range d.Sites {
		for _, unit := range site.WorkUnits {
			for _, risk := range unit.Risks {
				counts[risk.Evaluation.Priority]++
			}
		}
	}
	return counts
}

// ActionCounts tallies the status distribution of every action in the
// snapshot.
func (d *DUERPData) ActionCounts() domain.ActionCounts {
	var actions []domain.ActionPlan
	for _, site := range d.Sites {
		for _, unit := range site.WorkUnits {
			for _, risk := range unit.Risks {
				actions = append(actions, risk.Actions...)
			}
		}
	}
	return domain.CalculateActionCounts(actions, d.GeneratedAt)
}

// =============================================================================
// Brand Colors
// =============================================================================

// BrandColors defines the color palette for generated documents.
var BrandColors = struct {
	Blue      string // Primary brand color
	Accent    string // Accent color for highlights
	TextDark  string // Primary text
	TextMuted string // Secondary text
	Border    string // Borders and dividers
	White     string // White
}{
	Blue:      "#1D4ED8",
	Accent:    "#D97706",
	TextDark:  "#1F2937",
	TextMuted: "#6B7280",
	Border:    "#E5E7EB",
	White:     "#FFFFFF",
}

// =============================================================================
// Priority Colors
// =============================================================================

// PriorityColors maps risk priority bands to display colors.
var PriorityColors = map[domain.RiskPriority]string{
	domain.PriorityCritical: "#DC2626", // Red-600
	domain.PriorityHigh:     "#F59E0B", // Amber-500
	domain.PriorityModerate: "#3B82F6", // Blue-500
	domain.PriorityLow:      "#6B7280", // Gray-500
}

// PriorityColor returns the color for a priority band.
func PriorityColor(priority domain.RiskPriority) string {
	if color, ok := PriorityColors[priority]; ok {
		return color
	}
	return BrandColors.TextMuted
}

// PriorityLabel returns the French label for a priority band.
func PriorityLabel(priority domain.RiskPriority) string {
	switch priority {
	case domain.PriorityCritical:
		return "Critique"
	case domain.PriorityHigh:
		return "Élevé"
	case domain.PriorityModerate:
		return "Modéré"
	case domain.PriorityLow:
		return "Faible"
	default:
		return string(priority)
	}
}

// ActionStatusLabel returns the French label for an action status.
func ActionStatusLabel(status domain.ActionStatus) string {
	switch status {
	case domain.ActionStatusTodo:
		return "À faire"
	case domain.ActionStatusInProgress:
		return "En cours"
	case domain.ActionStatusDone:
		return "Terminée"
	default:
		return string(status)
	}
}

// ParticipationKindLabel returns the French label for a participation kind.
func ParticipationKindLabel(kind domain.ParticipationKind) string {
	switch kind {
	case domain.ParticipationCSEMeeting:
		return "Réunion CSE"
	case domain.ParticipationInterview:
		return "Entretien"
	case domain.ParticipationSignature:
		return "Signature"
	default:
		return "Autre"
	}
}

// =============================================================================
// Color Conversion Helpers
// =============================================================================

// HexToRGB converts a hex color string to RGB values.
// Input format: "#RRGGBB" or "RRGGBB"
func HexToRGB(hex string) (r, g, b int) {
	if len(hex) > 0 && hex[0] == '#' {
		hex = hex[1:]
	}
	if len(hex) != 6 {
		return 0, 0, 0
	}

	r = hexToDec(hex[0:2])
	g = hexToDec(hex[2:4])
	b = hexToDec(hex[4:6])
	return
}

// hexToDec converts a 2-character hex string to decimal.
func hexToDec(hex string) int {
	val := 0
	for _, c := range hex {
		val *= 16
		switch {
		case c >= '0' && c <= '9':
			val += int(c - '0')
		case c >= 'a' && c <= 'f':
			val += int(c - 'a' + 10)
		case c >= 'A' && c <= 'F':
			val += int(c - 'A' + 10)
		}
	}
	return val
}

// =============================================================================
// Text Formatting Helpers
// =============================================================================

// TruncateText truncates text to a maximum length, adding ellipsis if needed.
func TruncateText(text string, maxLen int) string {
	if len(text) <= maxLen {
		return text
	}
	if maxLen <= 3 {
		return text[:maxLen]
	}
	return text[:maxLen-3] + "..."
}

// FormatDate formats a date for display (French day/month/year order).
func FormatDate(t time.Time) string {
	return t.Format("02/01/2006")
}

// FormatDateTime formats a datetime for display.
func FormatDateTime(t time.Time) string {
	return t.Format("02/01/2006 15:04")
}
