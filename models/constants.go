package models

/* The general trend here is we prefix the type of the constant */

// ---------------------------

// The kernel hard codes squared euclidean distance, the constant is used to
// label results and stored datasets.
const (
	DistanceSquaredEuclidean = "squaredEuclidean"
)

// ---------------------------

const (
	TaskClassification = "classification"
	TaskRegression     = "regression"
)

// ---------------------------

const (
	DefaultK       = 5
	DefaultWorkers = 0 // 0 means runtime.NumCPU()
)
