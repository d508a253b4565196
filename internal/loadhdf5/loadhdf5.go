package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/semafind/semaknn/batch"
	"github.com/semafind/semaknn/dataset"
	"github.com/semafind/semaknn/diskstore"
	"github.com/semafind/semaknn/knn"
	"github.com/semafind/semaknn/models"
	"gonum.org/v1/hdf5"
)

// readMatrix loads a two dimensional float32 dataset, e.g. the train or test
// sets of an ann-benchmarks file.
func readMatrix(f *hdf5.File, name string) (models.Matrix, error) {
	dset, err := f.OpenDataset(name)
	if err != nil {
		return models.Matrix{}, fmt.Errorf("could not open dataset %s: %w", name, err)
	}
	defer dset.Close()
	// ---------------------------
	dspace := dset.Space()
	dims, _, err := dspace.SimpleExtentDims()
	if err != nil {
		return models.Matrix{}, fmt.Errorf("could not read dims of %s: %w", name, err)
	}
	if len(dims) != 2 {
		return models.Matrix{}, fmt.Errorf("dataset %s has %d dimensions, expected 2", name, len(dims))
	}
	dataBuf := make([]float32, dspace.SimpleExtentNPoints())
	if err := dset.Read(&dataBuf); err != nil {
		return models.Matrix{}, fmt.Errorf("could not read dataset %s: %w", name, err)
	}
	log.Debug().Str("dataset", name).Uint("dims[0]", dims[0]).Uint("dims[1]", dims[1]).Msg("readMatrix")
	// ---------------------------
	m := models.NewMatrix(int(dims[0]), int(dims[1]))
	for i, v := range dataBuf {
		m.Data[i] = float64(v)
	}
	return m, nil
}

func readNeighbours(f *hdf5.File) ([]int32, int, error) {
	dset, err := f.OpenDataset("neighbors")
	if err != nil {
		return nil, 0, fmt.Errorf("could not open neighbors: %w", err)
	}
	defer dset.Close()
	dspace := dset.Space()
	dims, _, err := dspace.SimpleExtentDims()
	if err != nil || len(dims) != 2 {
		return nil, 0, fmt.Errorf("invalid neighbors shape: %w", err)
	}
	buf := make([]int32, dspace.SimpleExtentNPoints())
	if err := dset.Read(&buf); err != nil {
		return nil, 0, fmt.Errorf("could not read neighbors: %w", err)
	}
	return buf, int(dims[1]), nil
}

// ---------------------------

func main() {
	fname := flag.String("file", "data/fashion-mnist-784-euclidean.hdf5", "ann-benchmarks hdf5 file")
	k := flag.Int("k", 10, "number of neighbours for recall")
	workers := flag.Int("workers", 0, "distance workers, 0 means one per CPU")
	limit := flag.Int("limit", 1000, "maximum number of test rows, 0 for all")
	storePath := flag.String("store", "", "optionally store the train set into this dataset store")
	debug := flag.Bool("debug", false, "debug logging")
	flag.Parse()
	// ---------------------------
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	// ---------------------------
	f, err := hdf5.OpenFile(*fname, hdf5.F_ACC_RDONLY)
	if err != nil {
		log.Fatal().Err(err).Str("file", *fname).Msg("could not open file")
	}
	train, err := readMatrix(f, "train")
	if err != nil {
		log.Fatal().Err(err).Msg("loadHDF5")
	}
	test, err := readMatrix(f, "test")
	if err != nil {
		log.Fatal().Err(err).Msg("loadHDF5")
	}
	groundTruth, gtWidth, err := readNeighbours(f)
	if err != nil {
		log.Fatal().Err(err).Msg("loadHDF5")
	}
	f.Close()
	if *k > gtWidth {
		log.Fatal().Int("k", *k).Int("groundTruth", gtWidth).Msg("k exceeds ground truth width")
	}
	if *limit > 0 && *limit < test.Rows {
		test = models.Matrix{Rows: *limit, Cols: test.Cols, Data: test.Data[:*limit*test.Cols]}
	}
	// ---------------------------
	if *storePath != "" {
		diskStore, err := diskstore.Open(*storePath)
		if err != nil {
			log.Fatal().Err(err).Msg("could not open store")
		}
		store, err := dataset.NewStore(diskStore)
		if err != nil {
			log.Fatal().Err(err).Msg("could not create store")
		}
		ds, err := dataset.New("train", train, nil)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid train set")
		}
		if err := store.Put(ds); err != nil {
			log.Fatal().Err(err).Msg("could not store train set")
		}
		if err := diskStore.Close(); err != nil {
			log.Error().Err(err).Msg("store did not close gracefully")
		}
	}
	// ---------------------------
	bar := progressbar.Default(int64(test.Rows), "distances")
	hits := 0
	startTime := time.Now()
	err = batch.Run(context.Background(), train, test, *workers, func(row int, dists models.DistVector) error {
		truth := make(map[int32]struct{}, *k)
		for _, id := range groundTruth[row*gtWidth : row*gtWidth+*k] {
			truth[id] = struct{}{}
		}
		for _, e := range knn.Nearest(dists, *k) {
			if _, ok := truth[int32(e.SourceIndex)]; ok {
				hits++
			}
		}
		return bar.Add(1)
	})
	if err != nil {
		log.Fatal().Err(err).Msg("batch failed")
	}
	duration := time.Since(startTime)
	// ---------------------------
	log.Info().Int("trainRows", train.Rows).
		Int("testRows", test.Rows).
		Int("cols", train.Cols).
		Dur("duration", duration).
		Float64("rowsPerSecond", float64(test.Rows)/duration.Seconds()).
		Float64("recall", float64(hits)/float64(test.Rows*(*k))).
		Msg("brute force search")
}
