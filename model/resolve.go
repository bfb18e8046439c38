package model

import (
	"fmt"

	"github.com/hupe1980/agentrun/core"
	"github.com/hupe1980/agentrun/settings"
)

// Resolved is a fully validated provider/model/token triple ready for a
// provider call.
type Resolved struct {
	ProviderID string
	ModelID    string
	APIToken   string
}

// Resolve validates credentials for providerID and picks the effective model
// id. Selection precedence: explicit override > stored per-provider setting
// > compiled-in default. Missing or placeholder credentials are reported as
// core.ErrNotConfigured before any provider call is made, never as a
// network failure after the fact.
func Resolve(p settings.Provider, providerID, overrideModel, defaultModel string) (Resolved, error) {
	ms, ok := p.ModelSettings(providerID)
	if !ok || !ms.Configured() {
		return Resolved{}, fmt.Errorf("provider %q: %w", providerID, core.ErrNotConfigured)
	}

	modelID := defaultModel
	if ms.SelectedModel != "" {
		modelID = ms.SelectedModel
	}
	if overrideModel != "" {
		modelID = overrideModel
	}

	return Resolved{ProviderID: providerID, ModelID: modelID, APIToken: ms.APIToken}, nil
}
