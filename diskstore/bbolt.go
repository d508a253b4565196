package diskstore

import (
	"fmt"

	"go.etcd.io/bbolt"
)

type bboltBucket struct {
	bb *bbolt.Bucket
}

func (b bboltBucket) Get(k []byte) []byte {
	return b.bb.Get(k)
}

func (b bboltBucket) Put(k, v []byte) error {
	return b.bb.Put(k, v)
}

func (b bboltBucket) Delete(k []byte) error {
	return b.bb.Delete(k)
}

func (b bboltBucket) ForEach(f func(k, v []byte) error) error {
	return b.bb.ForEach(f)
}

// ---------------------------

type bboltDiskStore struct {
	bboltDB *bbolt.DB
}

func (ds bboltDiskStore) Path() string {
	return ds.bboltDB.Path()
}

func (ds bboltDiskStore) CreateBucketsIfNotExists(bucketNames []string) error {
	return ds.bboltDB.Update(func(tx *bbolt.Tx) error {
		for _, name := range bucketNames {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("could not create bucket %s: %w", name, err)
			}
		}
		return nil
	})
}

func (ds bboltDiskStore) Read(bucketName string, f func(ReadOnlyBucket) error) error {
	return ds.bboltDB.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return fmt.Errorf("%w: %s", ErrBucketNotFound, bucketName)
		}
		return f(bboltBucket{bb: b})
	})
}

func (ds bboltDiskStore) Write(bucketName string, f func(Bucket) error) error {
	return ds.bboltDB.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return fmt.Errorf("%w: %s", ErrBucketNotFound, bucketName)
		}
		return f(bboltBucket{bb: b})
	})
}

func (ds bboltDiskStore) Close() error {
	return ds.bboltDB.Close()
}
