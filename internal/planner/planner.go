package planner

import (
	"regexp"
	"strings"
)

// Planner turns a natural-language query into a SearchPlan. It is
// deterministic and rule-based: no network calls, and it never fails —
// a query with no signal gets a safe low-confidence similarity plan.
type Planner struct{}

func New() *Planner {
	return &Planner{}
}

// intentRule is one entry of the ordered classification table. Rules are
// evaluated top to bottom; the first match wins.
type intentRule struct {
	name       string
	pattern    *regexp.Regexp
	intent     Intent
	confidence float64
}

var intentRules = []intentRule{
	{
		name:       "debug",
		pattern:    regexp.MustCompile(`(?i)\b(error|exception|debug|stack\s*trace|crash|fail(s|ing|ure)?|bug|broken|panic)\b`),
		intent:     IntentDebug,
		confidence: 0.9,
	},
	{
		name:       "architecture",
		pattern:    regexp.MustCompile(`(?i)\b(architecture|architectural|structure|design|overview|layer(s|ing)?|component(s)?|module(s)?|how\s+is\s+.*\borganized)\b`),
		intent:     IntentArchitecture,
		confidence: 0.85,
	},
	{
		name:       "configuration",
		pattern:    regexp.MustCompile(`(?i)\b(config|configuration|settings?|propert(y|ies)|environment\s+variable(s)?|\.ya?ml|\.properties)\b`),
		intent:     IntentConfiguration,
		confidence: 0.85,
	},
	{
		name:       "definition",
		pattern:    regexp.MustCompile(`(?i)\b(what\s+is|what\s+does|define|definition|meaning\s+of|purpose\s+of)\b`),
		intent:     IntentDefinition,
		confidence: 0.75,
	},
	{
		name:       "code",
		pattern:    regexp.MustCompile(`(?i)\b(implement(s|ed|ation)?|method|function|class|where\s+is|show\s+me|source|snippet)\b`),
		intent:     IntentCode,
		confidence: 0.7,
	},
}

// strategyDefaults fixes the retrieval parameters per strategy.
var strategyDefaults = map[Strategy]struct {
	topK        int
	maxHops     int
	reverseDeps bool
	tokenBudget int
}{
	StrategySimilarity:    {topK: 5, maxHops: 1, reverseDeps: false, tokenBudget: 4000},
	StrategyDepGraph:      {topK: 5, maxHops: 2, reverseDeps: true, tokenBudget: 6000},
	StrategyEntity:        {topK: 4, maxHops: 1, reverseDeps: false, tokenBudget: 5000},
	StrategyMethod:        {topK: 6, maxHops: 1, reverseDeps: false, tokenBudget: 4500},
	StrategyErrorTrace:    {topK: 5, maxHops: 2, reverseDeps: true, tokenBudget: 6000},
	StrategyConfiguration: {topK: 4, maxHops: 2, reverseDeps: false, tokenBudget: 5000},
}

// camelEntityRe matches CamelCase identifiers with at least two humps, the
// usual shape of a class name appearing in a question.
var camelEntityRe = regexp.MustCompile(`\b[A-Z][a-z0-9]+(?:[A-Z][a-z0-9]*)+\b`)

// classSuffixes mark single capitalized words that still look like type
// names.
var classSuffixes = []string{"Service", "Manager", "Controller", "Config", "Handler", "Repository", "Factory", "Client", "Builder", "Indexer"}

var methodPhrasingRe = regexp.MustCompile(`(?i)\b(method|function|call(s|ed)?|invoke(s|d)?|return(s|ed)?)\b`)

// CreateSearchPlan classifies the query and assembles the full plan.
func (p *Planner) CreateSearchPlan(query string) SearchPlan {
	intent := IntentGeneral
	confidence := 0.5
	matched := false
	for _, rule := range intentRules {
		if rule.pattern.MatchString(query) {
			intent = rule.intent
			confidence = rule.confidence
			matched = true
			break
		}
	}

	entities := extractEntities(query)
	strategy := selectStrategy(intent, query, entities)

	if !matched && len(entities) == 0 {
		// No signal at all: safe fallback rather than a failure.
		confidence = 0.3
	}

	defaults := strategyDefaults[strategy]
	return SearchPlan{
		OriginalQuery:      query,
		Intent:             intent,
		SearchStrategy:     strategy,
		TargetEntities:     entities,
		StartingFiles:      guessStartingFiles(entities),
		TopK:               defaults.topK,
		MaxHops:            defaults.maxHops,
		IncludeReverseDeps: defaults.reverseDeps,
		TokenBudget:        defaults.tokenBudget,
		Confidence:         confidence,
	}
}

// selectStrategy maps intent and query shape to a retrieval strategy.
// Intent-driven strategies win over entity detection: an architecture
// question about a named class still wants the dependency graph.
func selectStrategy(intent Intent, query string, entities []string) Strategy {
	switch intent {
	case IntentArchitecture:
		return StrategyDepGraph
	case IntentDebug:
		return StrategyErrorTrace
	case IntentConfiguration:
		return StrategyConfiguration
	}
	if len(entities) > 0 {
		return StrategyEntity
	}
	if methodPhrasingRe.MatchString(query) {
		return StrategyMethod
	}
	return StrategySimilarity
}

func extractEntities(query string) []string {
	seen := make(map[string]bool)
	var entities []string
	add := func(e string) {
		if !seen[e] {
			seen[e] = true
			entities = append(entities, e)
		}
	}

	for _, m := range camelEntityRe.FindAllString(query, -1) {
		add(m)
	}

	// Single capitalized words with a class-like suffix.
	for _, word := range strings.Fields(query) {
		word = strings.Trim(word, ".,?!:;()\"'`")
		if word == "" || word[0] < 'A' || word[0] > 'Z' {
			continue
		}
		for _, suffix := range classSuffixes {
			if strings.HasSuffix(word, suffix) && len(word) > len(suffix) {
				add(word)
				break
			}
		}
	}
	return entities
}

// guessStartingFiles maps each entity to likely filenames. The guesses feed
// graph expansion seeds, so a wrong guess costs nothing.
func guessStartingFiles(entities []string) []string {
	var files []string
	for _, e := range entities {
		files = append(files, e+".java", camelToSnake(e)+".go")
	}
	return files
}

func camelToSnake(name string) string {
	var b strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r - 'A' + 'a')
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
