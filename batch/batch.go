/*
Package batch runs the distance kernel for every row of a prediction matrix.

Rows are fanned out to a pool of workers through the utils pipeline. Each
distance vector is borrowed from a small free list, filled by a worker, handed
to the sink and only then returned to the free list. This keeps allocation
bounded by the number of workers instead of the number of prediction rows.
*/
package batch

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/semafind/semaknn/distance"
	"github.com/semafind/semaknn/models"
	"github.com/semafind/semaknn/utils"
)

// SinkFunc receives the distances of one prediction row. The vector is only
// valid for the duration of the call, use Clone to keep it.
type SinkFunc func(row int, dists models.DistVector) error

type rowResult struct {
	row   int
	dists models.DistVector
}

func checkMatrices(train, prediction models.Matrix) error {
	if err := train.Validate(); err != nil {
		return fmt.Errorf("%w: train matrix: %w", distance.ErrInvalidArgument, err)
	}
	if err := prediction.Validate(); err != nil {
		return fmt.Errorf("%w: prediction matrix: %w", distance.ErrInvalidArgument, err)
	}
	if train.Rows == 0 || train.Cols == 0 {
		return fmt.Errorf("%w: empty train matrix", distance.ErrInvalidArgument)
	}
	if prediction.Rows > 0 && prediction.Cols != train.Cols {
		return fmt.Errorf("%w: prediction matrix has %d columns, train matrix has %d", distance.ErrInvalidArgument, prediction.Cols, train.Cols)
	}
	return nil
}

// Run computes the distances from every prediction row to all training rows
// using the given number of workers, 0 or less means one per CPU. The sink is
// called from a single goroutine, in no particular row order. The first error
// from the kernel, the sink or the context aborts the whole batch.
func Run(ctx context.Context, train, prediction models.Matrix, workers int, sink SinkFunc) error {
	if err := checkMatrices(train, prediction); err != nil {
		return err
	}
	if prediction.Rows == 0 {
		return nil
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > prediction.Rows {
		workers = prediction.Rows
	}
	// ---------------------------
	startTime := time.Now()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	// ---------------------------
	// Two buffers per worker lets a worker compute the next row while the sink
	// is still consuming the previous one.
	freeList := make(chan models.DistVector, 2*workers)
	for i := 0; i < cap(freeList); i++ {
		freeList <- models.NewDistVector(train.Rows)
	}
	computeRow := func(row int) (rowResult, error) {
		var dists models.DistVector
		select {
		case dists = <-freeList:
		case <-ctx.Done():
			return rowResult{}, ctx.Err()
		}
		dists.Reset()
		if err := distance.ComputeDistancesFor(dists, train, prediction, row); err != nil {
			freeList <- dists
			return rowResult{}, fmt.Errorf("prediction row %d: %w", row, err)
		}
		return rowResult{row: row, dists: dists}, nil
	}
	// ---------------------------
	rowC := utils.ProduceRange(ctx, prediction.Rows)
	outCs := make([]<-chan rowResult, workers)
	errCs := make([]<-chan error, 0, workers+1)
	for i := 0; i < workers; i++ {
		outC, errC := utils.TransformWithContext(ctx, rowC, computeRow)
		outCs[i] = outC
		errCs = append(errCs, errC)
	}
	resultC := utils.MergeWithContext(ctx, outCs...)
	sinkErrC := utils.SinkWithContext(ctx, resultC, func(r rowResult) error {
		err := sink(r.row, r.dists)
		freeList <- r.dists
		return err
	})
	errCs = append(errCs, sinkErrC)
	// ---------------------------
	if err := <-utils.MergeErrorsWithContext(ctx, errCs...); err != nil {
		return err
	}
	log.Debug().Str("component", "batch").
		Int("trainRows", train.Rows).
		Int("predictionRows", prediction.Rows).
		Int("columns", train.Cols).
		Int("workers", workers).
		Dur("duration", time.Since(startTime)).Msg("computed distances")
	return nil
}

// ComputeAll returns one freshly allocated distance vector per prediction
// row, indexed by prediction row.
func ComputeAll(ctx context.Context, train, prediction models.Matrix, workers int) ([]models.DistVector, error) {
	if err := checkMatrices(train, prediction); err != nil {
		return nil, err
	}
	results := make([]models.DistVector, prediction.Rows)
	err := Run(ctx, train, prediction, workers, func(row int, dists models.DistVector) error {
		results[row] = dists.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}
