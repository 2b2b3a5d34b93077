package retrieval

import (
	"slices"

	"github.com/clinrag/clinrag/internal/query"
)

// Boost multipliers applied to the base similarity score. Each
// category fires at most once per chunk even when several
// sub-conditions match, and categories compose multiplicatively.
// Provisional defaults, not tuned values.
const (
	chunkTypeBoost  = 1.2
	sectionBoost    = 1.3
	entityBoost     = 1.25
	answerTypeBoost = 1.15
)

// boostFor computes the combined multiplier for a stored chunk payload
// against the enhanced query's strategy, boost parameters, and entity
// filters.
func boostFor(payload map[string]any, eq *query.EnhancedQuery) float64 {
	boost := 1.0
	strategy := query.StrategyFor(eq.Intent)

	if ct, ok := payload["chunk_type"].(string); ok && slices.Contains(strategy.ChunkTypes, ct) {
		boost *= chunkTypeBoost
	}
	if bs, ok := payload["boost_section"].(string); ok && slices.Contains(eq.Boost.Sections, bs) {
		boost *= sectionBoost
	}
	if entityMatch(payload, eq.Filters) {
		boost *= entityBoost
	}
	if intersects(stringSlice(payload["answer_types"]), eq.Boost.AnswerTypes) {
		boost *= answerTypeBoost
	}
	return boost
}

// entityMatch reports whether any entity filter value appears in the
// chunk's stored entity lists. Both sides are lower-cased at
// construction time.
func entityMatch(payload map[string]any, f query.Filters) bool {
	if f.Empty() {
		return false
	}
	stored := stringSlice(payload["medical_entities"])
	stored = append(stored, stringSlice(payload["drugs"])...)
	stored = append(stored, stringSlice(payload["diseases"])...)
	stored = append(stored, stringSlice(payload["procedures"])...)
	if len(stored) == 0 {
		return false
	}

	for _, values := range [][]string{f.Drugs, f.Diseases, f.Procedures} {
		if intersects(stored, values) {
			return true
		}
	}
	return false
}

// stringSlice coerces a decoded JSON payload value into strings.
func stringSlice(v any) []string {
	switch vals := v.(type) {
	case []string:
		return vals
	case []any:
		out := make([]string, 0, len(vals))
		for _, item := range vals {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func intersects(a, b []string) bool {
	for _, s := range b {
		if slices.Contains(a, s) {
			return true
		}
	}
	return false
}
