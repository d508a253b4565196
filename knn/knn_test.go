package knn_test

import (
	"context"
	"math/rand"
	"sort"
	"testing"

	"github.com/semafind/semaknn/distance"
	"github.com/semafind/semaknn/knn"
	"github.com/semafind/semaknn/models"
	"github.com/stretchr/testify/require"
)

func mustMatrix(t *testing.T, rows [][]float64) models.Matrix {
	m, err := models.MatrixFromRows(rows)
	require.NoError(t, err)
	return m
}

func TestNearest(t *testing.T) {
	dists := models.DistVector{
		{Distance: 5, SourceIndex: 0},
		{Distance: 1, SourceIndex: 1},
		{Distance: 3, SourceIndex: 2},
		{Distance: 1, SourceIndex: 3},
		{Distance: 0, SourceIndex: 4},
	}
	before := dists.Clone()
	tests := []struct {
		name string
		k    int
		want []uint32
	}{
		{"zero", 0, nil},
		{"negative", -2, nil},
		{"one", 1, []uint32{4}},
		{"ties by index", 3, []uint32{4, 1, 3}},
		{"all", 5, []uint32{4, 1, 3, 2, 0}},
		{"more than available", 10, []uint32{4, 1, 3, 2, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := knn.Nearest(dists, tt.k)
			var ids []uint32
			for _, e := range got {
				ids = append(ids, e.SourceIndex)
			}
			require.Equal(t, tt.want, ids)
			require.Equal(t, before, dists)
		})
	}
}

func TestNearest_MatchesFullSort(t *testing.T) {
	dists := make(models.DistVector, 500)
	for i := range dists {
		// Few distinct values so that ties are common
		dists[i] = models.DistEntry{Distance: float32(rand.Intn(20)), SourceIndex: uint32(i)}
	}
	sorted := dists.Clone()
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Distance < sorted[j].Distance })
	for _, k := range []int{1, 7, 50, 499} {
		require.Equal(t, []models.DistEntry(sorted[:k]), knn.Nearest(dists, k))
	}
}

// ---------------------------

func twoClusters(t *testing.T) (models.Matrix, []string) {
	train := mustMatrix(t, [][]float64{
		{0, 0}, {0, 1}, {1, 0},
		{10, 10}, {10, 11}, {11, 10},
	})
	return train, []string{"a", "a", "a", "b", "b", "b"}
}

func TestClassifier_Predict(t *testing.T) {
	train, labels := twoClusters(t)
	clf := knn.NewClassifier(3, 2)
	require.NoError(t, clf.Fit(train, labels))
	prediction := mustMatrix(t, [][]float64{{0.5, 0.5}, {10.5, 10.2}, {2, 1}})
	results, err := clf.Predict(context.Background(), prediction)
	require.NoError(t, err)
	require.Len(t, results, 3)
	require.Equal(t, "a", results[0].Label)
	require.Equal(t, "b", results[1].Label)
	require.Equal(t, "a", results[2].Label)
	require.Len(t, results[0].Neighbours, 3)
}

func TestClassifier_TieBreak(t *testing.T) {
	train := mustMatrix(t, [][]float64{{0}, {3}, {-1}, {5}})
	// Query at 1: distances 1 (a), 4 (b), 4 (b), 16 (a)
	clf := knn.NewClassifier(2, 1)
	require.NoError(t, clf.Fit(train, []string{"a", "b", "b", "a"}))
	// k=2 picks index 0 (a, 1) and index 1 (b, 4), equal counts, a is closer
	results, err := clf.Predict(context.Background(), mustMatrix(t, [][]float64{{1}}))
	require.NoError(t, err)
	require.Equal(t, "a", results[0].Label)
	// Equal counts and equal sums fall back to the smaller label
	clf = knn.NewClassifier(2, 1)
	require.NoError(t, clf.Fit(mustMatrix(t, [][]float64{{-1}, {1}}), []string{"z", "y"}))
	results, err = clf.Predict(context.Background(), mustMatrix(t, [][]float64{{0}}))
	require.NoError(t, err)
	require.Equal(t, "y", results[0].Label)
}

func TestClassifier_Weighted(t *testing.T) {
	// Query at 0: euclidean distances 0.5 (a), 2 (b), 2.5 (b)
	train := mustMatrix(t, [][]float64{{0.5}, {2}, {2.5}, {40}})
	labels := []string{"a", "b", "b", "a"}
	prediction := mustMatrix(t, [][]float64{{0}})
	tests := []struct {
		name     string
		weighted bool
		want     string
	}{
		{"majority", false, "b"},
		// a scores 1/0.5 = 2, b scores 1/2 + 1/2.5 = 0.9
		{"inverse distance", true, "a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clf := knn.NewClassifier(3, 1)
			clf.Weighted = tt.weighted
			require.NoError(t, clf.Fit(train, labels))
			results, err := clf.Predict(context.Background(), prediction)
			require.NoError(t, err)
			require.Equal(t, tt.want, results[0].Label)
		})
	}
}

func TestClassifier_WeightedExactMatch(t *testing.T) {
	train := mustMatrix(t, [][]float64{{0}, {0.001}, {0.002}})
	clf := knn.NewClassifier(3, 1)
	clf.Weighted = true
	require.NoError(t, clf.Fit(train, []string{"a", "b", "b"}))
	results, err := clf.Predict(context.Background(), mustMatrix(t, [][]float64{{0}}))
	require.NoError(t, err)
	require.Equal(t, "a", results[0].Label)
}

func TestClassifier_FitCopiesInputs(t *testing.T) {
	train, labels := twoClusters(t)
	clf := knn.NewClassifier(3, 1)
	require.NoError(t, clf.Fit(train, labels))
	for i := range train.Data {
		train.Data[i] = 100
	}
	for i := range labels {
		labels[i] = "c"
	}
	results, err := clf.Predict(context.Background(), mustMatrix(t, [][]float64{{0.5, 0.5}}))
	require.NoError(t, err)
	require.Equal(t, "a", results[0].Label)
	require.Equal(t, float32(0.5), results[0].Neighbours[0].Distance)
}

func TestClassifier_Errors(t *testing.T) {
	train, labels := twoClusters(t)
	clf := knn.NewClassifier(3, 0)
	_, err := clf.Predict(context.Background(), train)
	require.ErrorIs(t, err, knn.ErrNotFitted)
	require.ErrorIs(t, clf.Fit(train, labels[:2]), knn.ErrLabelCount)
	require.ErrorIs(t, knn.NewClassifier(0, 0).Fit(train, labels), knn.ErrInvalidK)
	// ---------------------------
	require.NoError(t, clf.Fit(train, labels))
	_, err = clf.Predict(context.Background(), mustMatrix(t, [][]float64{{1, 2, 3}}))
	require.ErrorIs(t, err, distance.ErrInvalidArgument)
	_, err = clf.Predict(context.Background(), models.Matrix{Rows: -1, Cols: 2})
	require.ErrorIs(t, err, distance.ErrInvalidArgument)
}

func TestRegressor_Predict(t *testing.T) {
	train := mustMatrix(t, [][]float64{{0}, {1}, {2}, {10}})
	reg := knn.NewRegressor(2, 0)
	require.NoError(t, reg.Fit(train, []float64{1, 3, 5, 100}))
	results, err := reg.Predict(context.Background(), mustMatrix(t, [][]float64{{0.4}, {9}}))
	require.NoError(t, err)
	require.InDelta(t, 2.0, results[0], 1e-9)
	require.InDelta(t, 52.5, results[1], 1e-9)
}

func TestRegressor_FitCopiesInputs(t *testing.T) {
	train := mustMatrix(t, [][]float64{{0}, {1}, {2}})
	targets := []float64{1, 3, 5}
	reg := knn.NewRegressor(1, 0)
	require.NoError(t, reg.Fit(train, targets))
	targets[0] = 1000
	train.Data[0] = 50
	results, err := reg.Predict(context.Background(), mustMatrix(t, [][]float64{{0.1}}))
	require.NoError(t, err)
	require.InDelta(t, 1.0, results[0], 1e-9)
}
