package scoring

import (
	"github.com/poiesic/prodmatch/core"
	"github.com/poiesic/prodmatch/fuzz"
)

const (
	// boostThreshold is the minimum query similarity before a training
	// example boosts its order code.
	boostThreshold = 0.70

	// boostFloor and boostCeil bound the boost; similarity in
	// [boostThreshold, 1.0] maps linearly onto [boostFloor, boostCeil].
	boostFloor = 0.3
	boostCeil  = 0.8
)

// trainingBoost maps an input query against every training example and
// returns, per order code, the strongest boost earned by a closely matching
// historical query. Codes below the similarity threshold are absent.
func trainingBoost(query string, examples []core.TrainingExample) map[string]float64 {
	queryClean := core.Normalize(query)
	boosts := make(map[string]float64)

	for i := range examples {
		trainingQuery := core.Normalize(examples[i].CustomerQuery)
		similarity := fuzz.MaxRatio(queryClean, trainingQuery) / 100.0
		if similarity < boostThreshold {
			continue
		}

		boost := boostFloor + (similarity-boostThreshold)*((boostCeil-boostFloor)/(1.0-boostThreshold))
		code := examples[i].OrderCode
		if boost > boosts[code] {
			boosts[code] = boost
		}
	}

	return boosts
}
