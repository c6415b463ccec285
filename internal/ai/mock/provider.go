// Package mock provides a canned AIProvider for testing and development.
package mock

import (
	"context"
	"log/slog"
	"time"

	"github.com/jbaudry/previsk/internal/ai"
)

// Provider is a mock AI provider for testing and development
type Provider struct {
	logger *slog.Logger

	// Configurable responses for testing
	SuggestRisksResponse   *ai.SuggestionResult
	SuggestRisksError      error
	SuggestActionsResponse *ai.SuggestionResult
	SuggestActionsError    error

	// Call tracking for testing
	SuggestRisksCalls   int
	SuggestActionsCalls int
}

// New creates a new mock AI provider
func New(logger *slog.Logger) *Provider {
	return &Provider{
		logger: logger,
	}
}

// SuggestRisks returns a canned list of common workplace risks.
func (p *Provider) SuggestRisks(ctx context.Context, params ai.SuggestRisksParams) (*ai.SuggestionResult, error) {
	p.SuggestRisksCalls++

	if p.SuggestRisksError != nil {
		return nil, p.SuggestRisksError
	}
	if p.SuggestRisksResponse != nil {
		return p.SuggestRisksResponse, nil
	}

	p.logger.Debug("mock ai: suggest risks", "work_unit", params.WorkUnitName)

	return &ai.SuggestionResult{
		Items: []ai.Item{
			{
				Title:       "Chute de plain-pied",
				Description: "Sols encombrés ou glissants dans la zone de circulation, l'ensemble du personnel est exposé.",
			},
			{
				Title:       "Manutention manuelle de charges",
				Description: "Port répété de charges lourdes sans aide mécanique, risque de troubles musculo-squelettiques.",
			},
			{
				Title:       "Exposition au bruit",
				Description: "Niveau sonore élevé à proximité des équipements, exposition quotidienne prolongée.",
			},
		},
		Usage: mockUsage(),
	}, nil
}

// SuggestActions returns a canned list of prevention actions.
func (p *Provider) SuggestActions(ctx context.Context, params ai.SuggestActionsParams) (*ai.SuggestionResult, error) {
	p.SuggestActionsCalls++

	if p.SuggestActionsError != nil {
		return nil, p.SuggestActionsError
	}
	if p.SuggestActionsResponse != nil {
		return p.SuggestActionsResponse, nil
	}

	p.logger.Debug("mock ai: suggest actions", "risk", params.RiskTitle)

	return &ai.SuggestionResult{
		Items: []ai.Item{
			{
				Title:       "Supprimer la situation dangereuse",
				Description: "Réorganiser le poste pour éliminer l'exposition au risque à la source.",
			},
			{
				Title:       "Mettre en place une protection collective",
				Description: "Installer un dispositif de protection couvrant l'ensemble des salariés exposés.",
			},
			{
				Title:       "Former et informer les salariés",
				Description: "Organiser une sensibilisation au risque et afficher les consignes au poste.",
			},
		},
		Usage: mockUsage(),
	}, nil
}

func mockUsage() ai.UsageInfo {
	return ai.UsageInfo{
		Model:        "mock",
		InputTokens:  100,
		OutputTokens: 150,
		CostCents:    0,
		Duration:     50 * time.Millisecond,
	}
}
