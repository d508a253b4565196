package diskstore

import (
	"fmt"
	"sort"
	"sync"
)

type memBucket map[string][]byte

func (b memBucket) Get(k []byte) []byte {
	return b[string(k)]
}

func (b memBucket) Put(k, v []byte) error {
	// The caller may reuse v after the transaction like with bbolt
	b[string(k)] = append([]byte(nil), v...)
	return nil
}

// ForEach iterates in key order to match bbolt.
func (b memBucket) ForEach(f func(k, v []byte) error) error {
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := f([]byte(k), b[k]); err != nil {
			return err
		}
	}
	return nil
}

func (b memBucket) Delete(k []byte) error {
	delete(b, string(k))
	return nil
}

// ---------------------------

type memDiskStore struct {
	buckets map[string]memBucket
	mu      sync.RWMutex
}

func NewMemDiskStore() DiskStore {
	return &memDiskStore{
		buckets: make(map[string]memBucket),
	}
}

func (ds *memDiskStore) Path() string {
	return "memory"
}

func (ds *memDiskStore) CreateBucketsIfNotExists(bucketNames []string) error {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	for _, name := range bucketNames {
		if _, ok := ds.buckets[name]; ok {
			continue
		}
		ds.buckets[name] = make(memBucket)
	}
	return nil
}

func (ds *memDiskStore) Read(bucketName string, f func(ReadOnlyBucket) error) error {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	b, ok := ds.buckets[bucketName]
	if !ok {
		return fmt.Errorf("%w: %s", ErrBucketNotFound, bucketName)
	}
	return f(b)
}

// Write is not transactional, changes made before f returns an error are kept.
func (ds *memDiskStore) Write(bucketName string, f func(Bucket) error) error {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	b, ok := ds.buckets[bucketName]
	if !ok {
		return fmt.Errorf("%w: %s", ErrBucketNotFound, bucketName)
	}
	return f(b)
}

func (ds *memDiskStore) Close() error {
	return nil
}
