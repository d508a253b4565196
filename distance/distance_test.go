package distance_test

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/semafind/semaknn/distance"
	"github.com/semafind/semaknn/models"
	"github.com/stretchr/testify/require"
)

func mustMatrix(t testing.TB, rows [][]float64) models.Matrix {
	m, err := models.MatrixFromRows(rows)
	require.NoError(t, err)
	return m
}

func randMatrix(rows, cols int) models.Matrix {
	m := models.NewMatrix(rows, cols)
	for i := range m.Data {
		m.Data[i] = rand.NormFloat64() * 10
	}
	return m
}

// ---------------------------

func TestComputeDistances_Scenarios(t *testing.T) {
	tests := []struct {
		name       string
		train      [][]float64
		prediction [][]float64
		row        int
		want       models.DistVector
	}{
		{
			name:       "pythagoras",
			train:      [][]float64{{0, 0}, {3, 4}},
			prediction: [][]float64{{0, 0}},
			row:        0,
			want:       models.DistVector{{Distance: 0, SourceIndex: 0}, {Distance: 25, SourceIndex: 1}},
		},
		{
			name:       "single column",
			train:      [][]float64{{1}, {2}, {3}},
			prediction: [][]float64{{5}},
			row:        0,
			want:       models.DistVector{{Distance: 16, SourceIndex: 0}, {Distance: 9, SourceIndex: 1}, {Distance: 4, SourceIndex: 2}},
		},
		{
			name:       "second prediction row",
			train:      [][]float64{{1, 2, 3}, {-1, 2, 3}},
			prediction: [][]float64{{100, 100, 100}, {4, 5, 6}},
			row:        1,
			want:       models.DistVector{{Distance: 27, SourceIndex: 0}, {Distance: 43, SourceIndex: 1}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			train := mustMatrix(t, tt.train)
			prediction := mustMatrix(t, tt.prediction)
			out := models.NewDistVector(train.Rows)
			err := distance.ComputeDistances(out, train.Rows, train.Cols, tt.row, train, prediction)
			require.NoError(t, err)
			require.Equal(t, tt.want, out)
		})
	}
}

func TestComputeDistances_ShortOutput(t *testing.T) {
	train := mustMatrix(t, [][]float64{{1}, {2}, {3}})
	prediction := mustMatrix(t, [][]float64{{5}})
	out := models.NewDistVector(2)
	err := distance.ComputeDistances(out, 3, 1, 0, train, prediction)
	require.ErrorIs(t, err, distance.ErrInvalidArgument)
	require.Equal(t, models.NewDistVector(2), out)
}

func TestComputeDistances_InvalidArguments(t *testing.T) {
	train := mustMatrix(t, [][]float64{{1, 2}, {3, 4}})
	prediction := mustMatrix(t, [][]float64{{5, 6}})
	dirty := models.NewDistVector(2)
	dirty[1].Distance = 1
	tests := []struct {
		name          string
		out           models.DistVector
		trainRowCount int
		columnCount   int
		row           int
		train         models.Matrix
		prediction    models.Matrix
		errContains   string
	}{
		{"zero rows", models.NewDistVector(0), 0, 2, 0, train, prediction, "train row count"},
		{"negative rows", models.NewDistVector(2), -1, 2, 0, train, prediction, "train row count"},
		{"zero columns", models.NewDistVector(2), 2, 0, 0, train, prediction, "column count"},
		{"long output", models.NewDistVector(3), 2, 2, 0, train, prediction, "output length"},
		{"column mismatch train", models.NewDistVector(2), 2, 1, 0, train, mustMatrix(t, [][]float64{{5}}), "train matrix has"},
		{"column mismatch prediction", models.NewDistVector(2), 2, 2, 0, train, mustMatrix(t, [][]float64{{5}}), "prediction matrix has"},
		{"too many train rows", models.NewDistVector(3), 3, 2, 0, train, prediction, "too small"},
		{"row out of range", models.NewDistVector(2), 2, 2, 1, train, prediction, "out of range"},
		{"negative row", models.NewDistVector(2), 2, 2, -1, train, prediction, "out of range"},
		{"truncated prediction", models.NewDistVector(2), 2, 2, 0, train, models.Matrix{Rows: 1, Cols: 2, Data: []float64{1}}, "does not contain row"},
		{"not zeroed", dirty, 2, 2, 0, train, prediction, "not zeroed"},
		{"train size overflows", models.NewDistVector(4), 4, 1 << 62, 3, models.Matrix{Rows: 4, Cols: 1 << 62, Data: []float64{1}}, models.Matrix{Rows: 4, Cols: 1 << 62, Data: []float64{1}}, "too small"},
		{"prediction row overflows", models.NewDistVector(2), 2, 2, math.MaxInt - 1, train, models.Matrix{Rows: math.MaxInt, Cols: 2, Data: []float64{5, 6}}, "does not contain row"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := tt.out.Clone()
			var err error
			require.NotPanics(t, func() {
				err = distance.ComputeDistances(tt.out, tt.trainRowCount, tt.columnCount, tt.row, tt.train, tt.prediction)
			})
			require.ErrorIs(t, err, distance.ErrInvalidArgument)
			require.ErrorContains(t, err, tt.errContains)
			require.Equal(t, before, tt.out)
		})
	}
}

// ---------------------------

func TestComputeDistances_ZeroDistance(t *testing.T) {
	train := randMatrix(50, 8)
	// Copy a few training rows bit for bit into the prediction matrix
	prediction := models.NewMatrix(3, 8)
	picks := []int{0, 17, 49}
	for i, p := range picks {
		copy(prediction.Row(i), train.Row(p))
	}
	for i, p := range picks {
		out := models.NewDistVector(train.Rows)
		require.NoError(t, distance.ComputeDistancesFor(out, train, prediction, i))
		require.Equal(t, float32(0), out[p].Distance)
	}
}

func TestComputeDistances_Symmetry(t *testing.T) {
	for i := 0; i < 20; i++ {
		a := randMatrix(1, 16)
		b := randMatrix(1, 16)
		ab := models.NewDistVector(1)
		ba := models.NewDistVector(1)
		require.NoError(t, distance.ComputeDistancesFor(ab, b, a, 0))
		require.NoError(t, distance.ComputeDistancesFor(ba, a, b, 0))
		require.Equal(t, ab[0].Distance, ba[0].Distance)
	}
}

func TestComputeDistances_NonNegativeAndIndexed(t *testing.T) {
	train := randMatrix(200, 12)
	prediction := randMatrix(5, 12)
	out := models.NewDistVector(train.Rows)
	for row := 0; row < prediction.Rows; row++ {
		out.Reset()
		require.NoError(t, distance.ComputeDistancesFor(out, train, prediction, row))
		for i, e := range out {
			require.GreaterOrEqual(t, e.Distance, float32(0))
			require.Equal(t, uint32(i), e.SourceIndex)
		}
	}
}

func TestComputeDistances_EqualColumnAddsNothing(t *testing.T) {
	train := randMatrix(30, 4)
	prediction := randMatrix(1, 4)
	// Append a fifth column holding the same value in both matrices
	wideTrain := models.NewMatrix(train.Rows, 5)
	for i := 0; i < train.Rows; i++ {
		copy(wideTrain.Row(i), train.Row(i))
		wideTrain.Row(i)[4] = 42
	}
	widePrediction := models.NewMatrix(1, 5)
	copy(widePrediction.Row(0), prediction.Row(0))
	widePrediction.Row(0)[4] = 42
	// ---------------------------
	narrow := models.NewDistVector(train.Rows)
	wide := models.NewDistVector(train.Rows)
	require.NoError(t, distance.ComputeDistancesFor(narrow, train, prediction, 0))
	require.NoError(t, distance.ComputeDistancesFor(wide, wideTrain, widePrediction, 0))
	require.Equal(t, narrow, wide)
}

func TestComputeDistances_Deterministic(t *testing.T) {
	train := randMatrix(100, 32)
	prediction := randMatrix(2, 32)
	first := models.NewDistVector(train.Rows)
	second := models.NewDistVector(train.Rows)
	require.NoError(t, distance.ComputeDistancesFor(first, train, prediction, 1))
	require.NoError(t, distance.ComputeDistancesFor(second, train, prediction, 1))
	require.Equal(t, first, second)
}

func TestComputeDistances_LargerTrainMatrix(t *testing.T) {
	// Only the first trainRowCount rows are read
	train := mustMatrix(t, [][]float64{{1}, {2}, {3}})
	prediction := mustMatrix(t, [][]float64{{0}})
	out := models.NewDistVector(2)
	require.NoError(t, distance.ComputeDistances(out, 2, 1, 0, train, prediction))
	require.Equal(t, models.DistVector{{Distance: 1, SourceIndex: 0}, {Distance: 4, SourceIndex: 1}}, out)
}

// ---------------------------

var benchSizes = []struct{ rows, cols int }{
	{1000, 16},
	{10000, 128},
}

func BenchmarkComputeDistances(b *testing.B) {
	for _, size := range benchSizes {
		train := randMatrix(size.rows, size.cols)
		prediction := randMatrix(1, size.cols)
		out := models.NewDistVector(size.rows)
		b.Run(fmt.Sprintf("%dx%d", size.rows, size.cols), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				out.Reset()
				if err := distance.ComputeDistancesFor(out, train, prediction, 0); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
