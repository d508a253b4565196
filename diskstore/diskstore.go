package diskstore

import (
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

var ErrBucketNotFound = errors.New("bucket does not exist")

type ReadOnlyBucket interface {
	// Get returns nil if the key does not exist. The returned value is only
	// valid inside the transaction.
	Get([]byte) []byte
	ForEach(func(k, v []byte) error) error
}

// A bucket is like a kvstore, it can be used to store key-value pairs. We call
// it a bucket because usually a single kvstore layer is used to store multiple
// buckets.
type Bucket interface {
	ReadOnlyBucket
	Put([]byte, []byte) error
	Delete([]byte) error
}

// A disk storage layer abstracts multiple buckets.
type DiskStore interface {
	// The path to where the store is located. It may be a file or "memory".
	Path() string
	CreateBucketsIfNotExists(bucketNames []string) error
	Read(bucketName string, f func(ReadOnlyBucket) error) error
	Write(bucketName string, f func(Bucket) error) error
	Close() error
}

// Open returns a bbolt backed store at path. Leave path empty to keep
// everything in memory.
func Open(path string) (DiskStore, error) {
	if path == "" {
		return NewMemDiskStore(), nil
	}
	// ---------------------------
	bboltDB, err := bbolt.Open(path, 0644, &bbolt.Options{Timeout: 1 * time.Minute})
	if err != nil {
		return nil, fmt.Errorf("could not open db %s: %w", path, err)
	}
	return bboltDiskStore{bboltDB: bboltDB}, nil
}
