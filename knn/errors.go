package knn

import "errors"

var ErrNotFitted = errors.New("model is not fitted")
var ErrInvalidK = errors.New("k must be positive")
var ErrLabelCount = errors.New("label count does not match train rows")
