package analysis

import (
	"math"

	"github.com/ppiankov/commentpulse/internal/model"
)

// Sub-scores are fixed fractions of the overall toxicity.
var categoryFractions = map[string]float64{
	model.CategoryIdentityAttack: 0.3,
	model.CategoryInsult:         0.5,
	model.CategoryObscene:        0.3,
	model.CategorySevereToxicity: 0.2,
	model.CategorySexualExplicit: 0.1,
	model.CategoryThreat:         0.2,
	model.CategoryToxicity:       1.0,
}

// categoryBoost is the floor for a category named by a matched keyword.
const categoryBoost = 0.6

// potentiallyToxicThreshold separates the two comment tags.
const potentiallyToxicThreshold = 0.3

// buildToxicity derives the full seven-key breakdown from an overall score.
func buildToxicity(overall, confidence float64, boosted map[string]bool) model.ToxicityScore {
	cats := make(model.ToxicityCategories, len(model.CategoryKeys))
	for _, key := range model.CategoryKeys {
		v := overall * categoryFractions[key]
		if boosted[key] {
			v = math.Max(v, categoryBoost)
		}
		cats[key] = clamp(v, 0, 1)
	}

	return model.ToxicityScore{
		Overall:    clamp(overall, 0, 1),
		Categories: cats,
		Confidence: clamp(confidence, 0, 1),
	}
}

// tagsFor returns the comment tags for a toxicity score.
func tagsFor(overall float64) []string {
	if overall > potentiallyToxicThreshold {
		return []string{model.TagPotentiallyToxic}
	}
	return []string{model.TagGeneral}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// finiteOr replaces NaN and infinities with def.
func finiteOr(v, def float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return def
	}
	return v
}
