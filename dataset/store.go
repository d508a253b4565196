package dataset

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/semafind/semaknn/diskstore"
	"github.com/vmihailenco/msgpack/v5"
)

const datasetBucket = "datasets"

// Store persists datasets in a single bucket keyed by name.
type Store struct {
	ds diskstore.DiskStore
}

func NewStore(ds diskstore.DiskStore) (*Store, error) {
	if err := ds.CreateBucketsIfNotExists([]string{datasetBucket}); err != nil {
		return nil, fmt.Errorf("could not create dataset bucket: %w", err)
	}
	return &Store{ds: ds}, nil
}

// Put inserts or replaces a dataset. The checksum is recomputed.
func (s *Store) Put(d Dataset) error {
	if err := d.Validate(); err != nil {
		return err
	}
	d.Checksum = Checksum(d.Features)
	value, err := msgpack.Marshal(d)
	if err != nil {
		return fmt.Errorf("could not encode dataset %s: %w", d.Name, err)
	}
	err = s.ds.Write(datasetBucket, func(b diskstore.Bucket) error {
		return b.Put([]byte(d.Name), value)
	})
	if err != nil {
		return fmt.Errorf("could not store dataset %s: %w", d.Name, err)
	}
	log.Debug().Str("component", "datasetStore").Str("name", d.Name).
		Int("rows", d.Features.Rows).Int("cols", d.Features.Cols).Msg("stored dataset")
	return nil
}

func (s *Store) Get(name string) (Dataset, error) {
	var d Dataset
	err := s.ds.Read(datasetBucket, func(b diskstore.ReadOnlyBucket) error {
		value := b.Get([]byte(name))
		if value == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		// Unmarshal copies out of the value so it is safe after the transaction
		if err := msgpack.Unmarshal(value, &d); err != nil {
			return fmt.Errorf("could not decode dataset %s: %w", name, err)
		}
		return nil
	})
	if err != nil {
		return Dataset{}, err
	}
	if got := Checksum(d.Features); got != d.Checksum {
		return Dataset{}, fmt.Errorf("%w: %s stored %x computed %x", ErrCorrupt, name, d.Checksum, got)
	}
	return d, nil
}

func (s *Store) Delete(name string) error {
	return s.ds.Write(datasetBucket, func(b diskstore.Bucket) error {
		if b.Get([]byte(name)) == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return b.Delete([]byte(name))
	})
}

// List returns the dataset names in ascending order.
func (s *Store) List() ([]string, error) {
	names := make([]string, 0)
	err := s.ds.Read(datasetBucket, func(b diskstore.ReadOnlyBucket) error {
		return b.ForEach(func(k, v []byte) error {
			names = append(names, string(k))
			return nil
		})
	})
	return names, err
}
