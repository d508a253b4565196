package distance

import (
	"fmt"
	"math"

	"github.com/semafind/semaknn/models"
)

// TrainRowLimit is the largest training row count whose indices fit into the
// uint32 source index of a distance entry.
const TrainRowLimit = math.MaxUint32 + 1

func invalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

func checkPreconditions(out models.DistVector, trainRowCount, columnCount, predictionRowIndex int, train, prediction models.Matrix) error {
	if trainRowCount <= 0 {
		return invalidArgument("train row count must be positive, got %d", trainRowCount)
	}
	if uint64(trainRowCount) > TrainRowLimit {
		return invalidArgument("train row count %d exceeds limit %d", trainRowCount, uint64(TrainRowLimit))
	}
	if columnCount <= 0 {
		return invalidArgument("column count must be positive, got %d", columnCount)
	}
	if len(out) != trainRowCount {
		return invalidArgument("output length %d does not match train row count %d", len(out), trainRowCount)
	}
	if train.Cols != columnCount {
		return invalidArgument("train matrix has %d columns, expected %d", train.Cols, columnCount)
	}
	if train.Rows < trainRowCount || columnCount > len(train.Data)/trainRowCount {
		return invalidArgument("train matrix %dx%d with %d values is too small for %d rows", train.Rows, train.Cols, len(train.Data), trainRowCount)
	}
	if prediction.Cols != columnCount {
		return invalidArgument("prediction matrix has %d columns, expected %d", prediction.Cols, columnCount)
	}
	if predictionRowIndex < 0 || predictionRowIndex >= prediction.Rows {
		return invalidArgument("prediction row index %d out of range [0, %d)", predictionRowIndex, prediction.Rows)
	}
	// Divide rather than multiply so huge counts cannot wrap around.
	if predictionRowIndex >= len(prediction.Data)/columnCount {
		return invalidArgument("prediction matrix with %d values does not contain row %d", len(prediction.Data), predictionRowIndex)
	}
	for i := range out {
		if out[i].Distance != 0 {
			return invalidArgument("output entry %d is not zeroed", i)
		}
	}
	return nil
}

// ComputeDistances writes the squared euclidean distance between the
// prediction row and every training row into out. Entry i is tagged with
// source index i. The distances are accumulated over the columns in order, out
// must be zeroed beforehand. Nothing is written if a precondition fails, the
// returned error then wraps ErrInvalidArgument.
func ComputeDistances(out models.DistVector, trainRowCount, columnCount, predictionRowIndex int, train, prediction models.Matrix) error {
	if err := checkPreconditions(out, trainRowCount, columnCount, predictionRowIndex, train, prediction); err != nil {
		return err
	}
	// ---------------------------
	p := prediction.Data[predictionRowIndex*columnCount : (predictionRowIndex+1)*columnCount]
	for i := 0; i < trainRowCount; i++ {
		t := train.Data[i*columnCount : (i+1)*columnCount]
		e := &out[i]
		e.SourceIndex = uint32(i)
		for j := range p {
			diff := p[j] - t[j]
			// The difference is squared in double precision and then
			// accumulated into the single precision entry one column at a time.
			e.Distance = float32(float64(e.Distance) + diff*diff)
		}
	}
	return nil
}

// ComputeDistancesFor is ComputeDistances with the counts taken from the
// training matrix.
func ComputeDistancesFor(out models.DistVector, train, prediction models.Matrix, predictionRowIndex int) error {
	return ComputeDistances(out, train.Rows, train.Cols, predictionRowIndex, train, prediction)
}
