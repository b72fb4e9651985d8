// Package scoring provides the probability models consulted for each
// assessment. Models are opaque: they map a models.FeatureVector to the
// probability of a favorable outcome.
package scoring

import (
	"context"

	"github.com/Dan9191/loan-assessment/internal/models"
)

// Scorer returns the probability of approval for a feature vector.
// Implementations must be deterministic and free of side effects.
type Scorer interface {
	Score(ctx context.Context, features models.FeatureVector) (float64, error)
}

// Func adapts a plain function to the Scorer interface.
type Func func(ctx context.Context, features models.FeatureVector) (float64, error)

// Score calls f.
func (f Func) Score(ctx context.Context, features models.FeatureVector) (float64, error) {
	return f(ctx, features)
}

// Constant returns a Scorer that always yields p.
func Constant(p float64) Scorer {
	return Func(func(context.Context, models.FeatureVector) (float64, error) {
		return p, nil
	})
}
