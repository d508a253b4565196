package distance

import "errors"

var ErrInvalidArgument = errors.New("invalid argument")
