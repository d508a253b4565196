package dataset

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/cespare/xxhash"
	"github.com/semafind/semaknn/models"
	"gonum.org/v1/gonum/mat"
)

var ErrNotFound = errors.New("dataset not found")
var ErrCorrupt = errors.New("dataset checksum mismatch")
var ErrInvalidDataset = errors.New("invalid dataset")

// Dataset is a named training or prediction set. Labels are optional, when
// present there is one label per feature row.
type Dataset struct {
	Name     string        `json:"name" msgpack:"name"`
	Features models.Matrix `json:"features" msgpack:"features"`
	Labels   []string      `json:"labels,omitempty" msgpack:"labels"`
	Checksum uint64        `json:"checksum" msgpack:"checksum"`
}

func New(name string, features models.Matrix, labels []string) (Dataset, error) {
	ds := Dataset{Name: name, Features: features, Labels: labels}
	if err := ds.Validate(); err != nil {
		return Dataset{}, err
	}
	ds.Checksum = Checksum(features)
	return ds, nil
}

// FromDense builds a dataset from a gonum matrix.
func FromDense(name string, d *mat.Dense, labels []string) (Dataset, error) {
	return New(name, models.MatrixFromDense(d), labels)
}

func (ds Dataset) Validate() error {
	if ds.Name == "" || len(ds.Name) > 64 {
		return fmt.Errorf("%w: name must be between 1 and 64 characters", ErrInvalidDataset)
	}
	if err := ds.Features.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDataset, err)
	}
	if ds.Labels != nil && len(ds.Labels) != ds.Features.Rows {
		return fmt.Errorf("%w: %d labels for %d rows", ErrInvalidDataset, len(ds.Labels), ds.Features.Rows)
	}
	return nil
}

// Checksum hashes the dimensions and the IEEE-754 bits of every value.
func Checksum(m models.Matrix) uint64 {
	h := xxhash.New()
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(m.Rows))
	h.Write(buf)
	binary.LittleEndian.PutUint64(buf, uint64(m.Cols))
	h.Write(buf)
	for _, v := range m.Data {
		binary.LittleEndian.PutUint64(buf, math.Float64bits(v))
		h.Write(buf)
	}
	return h.Sum64()
}
