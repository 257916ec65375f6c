package catalog

import "relex/internal/relgraph"

// CalibrateConfidence computes the confidence attached to a record or edge.
// Resolved identities score high; anything reached through an opaque alias
// chain or a macro expansion is degraded rather than discarded.
func CalibrateConfidence(category relgraph.Category, identityResolved, viaMacro bool) float64 {
	base := baseConfidence(category)

	if !identityResolved {
		base -= 0.45
	}
	if viaMacro {
		base -= 0.15
	}

	return clamp(base, 0.1, 0.99)
}

func baseConfidence(category relgraph.Category) float64 {
	switch category {
	case relgraph.CategoryConcurrency:
		return 0.9
	case relgraph.CategoryLifecycle:
		return 0.88
	case relgraph.CategoryControlFlow:
		return 0.85
	case relgraph.CategorySemantic:
		return 0.8
	case relgraph.CategoryStructType:
		return 0.85
	case relgraph.CategoryPreprocessor:
		return 0.95
	case relgraph.CategoryVariable:
		return 0.75
	default:
		return 0.6
	}
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
