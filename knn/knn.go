package knn

import (
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/semafind/semaknn/batch"
	"github.com/semafind/semaknn/distance"
	"github.com/semafind/semaknn/models"
)

// ---------------------------

type model struct {
	// Number of neighbours to consider
	K int
	// Number of parallel workers, 0 means one per CPU
	Workers int
	// ---------------------------
	train  models.Matrix
	fitted bool
}

func (m *model) checkPrediction(prediction models.Matrix) error {
	if !m.fitted {
		return ErrNotFitted
	}
	if err := prediction.Validate(); err != nil {
		return fmt.Errorf("%w: %w", distance.ErrInvalidArgument, err)
	}
	return nil
}

func (m *model) fit(train models.Matrix, targetCount int) error {
	if m.K <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidK, m.K)
	}
	if err := train.Validate(); err != nil {
		return err
	}
	if targetCount != train.Rows {
		return fmt.Errorf("%w: %d targets for %d rows", ErrLabelCount, targetCount, train.Rows)
	}
	m.train = models.Matrix{Rows: train.Rows, Cols: train.Cols, Data: slices.Clone(train.Data)}
	m.fitted = true
	return nil
}

// neighbours runs the batch driver and reports the k nearest training rows of
// every prediction row.
func (m *model) neighbours(ctx context.Context, prediction models.Matrix, fn func(row int, nearest []models.DistEntry)) error {
	return batch.Run(ctx, m.train, prediction, m.Workers, func(row int, dists models.DistVector) error {
		fn(row, Nearest(dists, m.K))
		return nil
	})
}

// ---------------------------

type Prediction struct {
	Label      string             `json:"label"`
	Neighbours []models.DistEntry `json:"neighbours"`
}

// Classifier assigns the majority label of the k nearest training rows.
type Classifier struct {
	model
	// Weighted votes by inverse euclidean distance instead of by count
	Weighted bool
	labels   []string
}

func NewClassifier(k, workers int) *Classifier {
	return &Classifier{model: model{K: k, Workers: workers}}
}

// Fit stores copies of the training matrix and labels, later changes by the
// caller do not affect the model.
func (c *Classifier) Fit(train models.Matrix, labels []string) error {
	if err := c.fit(train, len(labels)); err != nil {
		return err
	}
	c.labels = slices.Clone(labels)
	return nil
}

// Predict classifies every row of the prediction matrix. Ties between labels
// go to the label with the smaller summed distance, then the smaller label.
// When weighted, any neighbour at distance zero outvotes all others.
func (c *Classifier) Predict(ctx context.Context, prediction models.Matrix) ([]Prediction, error) {
	if err := c.checkPrediction(prediction); err != nil {
		return nil, err
	}
	results := make([]Prediction, prediction.Rows)
	err := c.neighbours(ctx, prediction, func(row int, nearest []models.DistEntry) {
		results[row] = Prediction{Label: c.vote(nearest), Neighbours: nearest}
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

type tally struct {
	count int
	sum   float64
}

func (c *Classifier) vote(nearest []models.DistEntry) string {
	if c.Weighted {
		return c.weightedVote(nearest)
	}
	tallies := make(map[string]*tally, len(nearest))
	for _, e := range nearest {
		label := c.labels[e.SourceIndex]
		t, ok := tallies[label]
		if !ok {
			t = &tally{}
			tallies[label] = t
		}
		t.count++
		t.sum += float64(e.Distance)
	}
	var best string
	var bestTally *tally
	for label, t := range tallies {
		switch {
		case bestTally == nil,
			t.count > bestTally.count,
			t.count == bestTally.count && t.sum < bestTally.sum,
			t.count == bestTally.count && t.sum == bestTally.sum && label < best:
			best, bestTally = label, t
		}
	}
	return best
}

// weightedVote sums the inverse euclidean distance per label. Exact matches
// have infinite weight so only they are counted when present.
func (c *Classifier) weightedVote(nearest []models.DistEntry) string {
	exact := false
	for _, e := range nearest {
		if e.Distance == 0 {
			exact = true
			break
		}
	}
	scores := make(map[string]float64, len(nearest))
	for _, e := range nearest {
		label := c.labels[e.SourceIndex]
		switch {
		case exact && e.Distance == 0:
			scores[label]++
		case !exact:
			// The entries hold squared distances
			scores[label] += 1 / math.Sqrt(float64(e.Distance))
		}
	}
	var best string
	bestScore := -1.0
	for label, score := range scores {
		if score > bestScore || score == bestScore && label < best {
			best, bestScore = label, score
		}
	}
	return best
}

// ---------------------------

// Regressor predicts the mean target of the k nearest training rows.
type Regressor struct {
	model
	targets []float64
}

func NewRegressor(k, workers int) *Regressor {
	return &Regressor{model: model{K: k, Workers: workers}}
}

// Fit stores copies of the training matrix and targets.
func (r *Regressor) Fit(train models.Matrix, targets []float64) error {
	if err := r.fit(train, len(targets)); err != nil {
		return err
	}
	r.targets = slices.Clone(targets)
	return nil
}

func (r *Regressor) Predict(ctx context.Context, prediction models.Matrix) ([]float64, error) {
	if err := r.checkPrediction(prediction); err != nil {
		return nil, err
	}
	results := make([]float64, prediction.Rows)
	err := r.neighbours(ctx, prediction, func(row int, nearest []models.DistEntry) {
		var sum float64
		for _, e := range nearest {
			sum += r.targets[e.SourceIndex]
		}
		results[row] = sum / float64(len(nearest))
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}
