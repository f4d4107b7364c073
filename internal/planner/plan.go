package planner

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Intent is the classified purpose of a query.
type Intent string

const (
	IntentDebug         Intent = "DEBUG"
	IntentArchitecture  Intent = "ARCHITECTURE"
	IntentConfiguration Intent = "CONFIGURATION"
	IntentDefinition    Intent = "DEFINITION"
	IntentCode          Intent = "CODE"
	IntentGeneral       Intent = "GENERAL"
)

// Strategy is a named retrieval policy controlling seed selection and
// expansion.
type Strategy string

const (
	StrategySimilarity    Strategy = "similarity_search"
	StrategyDepGraph      Strategy = "dependency_graph"
	StrategyEntity        Strategy = "entity_centered"
	StrategyMethod        Strategy = "method_focused"
	StrategyErrorTrace    Strategy = "error_trace"
	StrategyConfiguration Strategy = "configuration_chain"
)

// SearchPlan is the full retrieval recipe for one query. It is passed
// explicitly into the retrieval entry point; nothing reads ambient state.
type SearchPlan struct {
	OriginalQuery      string
	Intent             Intent
	SearchStrategy     Strategy
	TargetEntities     []string
	StartingFiles      []string
	TopK               int
	MaxHops            int
	IncludeReverseDeps bool
	TokenBudget        int
	Confidence         float64
}

// Validate enforces the plan invariants.
func (p SearchPlan) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.TopK, validation.Required, validation.Min(1)),
		validation.Field(&p.MaxHops, validation.Min(0)),
		validation.Field(&p.TokenBudget, validation.Required, validation.Min(1)),
		validation.Field(&p.Confidence, validation.Min(0.0), validation.Max(1.0)),
	)
}
