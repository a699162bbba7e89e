package store

import (
	"encoding/json"

	"gcms/internal/migrate"
)

// Storage keys. They match the keys earlier releases wrote so existing
// records keep loading.
const (
	WorkspaceKey     = "gcms-storage"
	OpportunitiesKey = "opportunities-storage"
	DocumentsKey     = "documents-storage"
	TemplatesKey     = "templates-storage"
	SessionKey       = "auth-storage"
)

var workspaceChain = migrate.Chain{
	Current: 2,
	Steps: map[int]migrate.Step{
		// v0 records predate the seed templates and were discarded wholesale.
		0: migrate.Reset,
		1: workspaceV1,
	},
}

// workspaceV1 replaces null arrays with empty ones and drops stored pricing
// totals, which v1 accepted from callers.
func workspaceV1(s migrate.State) (migrate.State, error) {
	s = migrate.EachRecord(s, "subcontractors", func(r map[string]any) {
		emptyIfNull(r, "specialties")
		emptyIfNull(r, "pastPerformance")
	})
	s = migrate.EachRecord(s, "templates", func(r map[string]any) {
		emptyIfNull(r, "tags")
	})
	s = migrate.EachRecord(s, "pricingCalculations", func(r map[string]any) {
		delete(r, "totalPrice")
	})
	return s, nil
}

var opportunitiesChain = migrate.Chain{
	Current: 1,
	Steps: map[int]migrate.Step{
		0: func(s migrate.State) (migrate.State, error) {
			return migrate.EachRecord(s, "opportunities", func(r map[string]any) {
				delete(r, "documents")
			}), nil
		},
	},
}

var documentsChain = migrate.Chain{Current: 1, Steps: map[int]migrate.Step{0: migrate.Identity}}

var templatesChain = migrate.Chain{Current: 1, Steps: map[int]migrate.Step{0: migrate.Identity}}

var sessionChain = migrate.Chain{
	Current: 1,
	Steps:   map[int]migrate.Step{0: sessionV0},
}

// sessionV0 signs out a session that claims to be authenticated without a
// token.
func sessionV0(s migrate.State) (migrate.State, error) {
	var authenticated bool
	if raw, ok := s["isAuthenticated"]; ok {
		if err := json.Unmarshal(raw, &authenticated); err != nil {
			return migrate.State{}, nil
		}
	}
	if !authenticated {
		return s, nil
	}
	var token *string
	if raw, ok := s["token"]; ok {
		_ = json.Unmarshal(raw, &token)
	}
	if token == nil || *token == "" {
		return migrate.State{}, nil
	}
	return s, nil
}

func emptyIfNull(r map[string]any, field string) {
	if r[field] == nil {
		r[field] = []any{}
	}
}
