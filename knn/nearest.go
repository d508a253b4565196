package knn

import (
	"container/heap"
	"slices"

	"github.com/semafind/semaknn/models"
)

func closer(a, b models.DistEntry) bool {
	if a.Distance != b.Distance {
		return a.Distance < b.Distance
	}
	return a.SourceIndex < b.SourceIndex
}

// farthestFirst is a max heap, the root is the worst of the current k best.
type farthestFirst []models.DistEntry

func (h farthestFirst) Len() int           { return len(h) }
func (h farthestFirst) Less(i, j int) bool { return closer(h[j], h[i]) }
func (h farthestFirst) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *farthestFirst) Push(x any)        { *h = append(*h, x.(models.DistEntry)) }
func (h *farthestFirst) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Nearest returns the k entries with the smallest distance in ascending
// order, ties are broken by the smaller source index. dists is not modified.
func Nearest(dists models.DistVector, k int) []models.DistEntry {
	if k <= 0 || len(dists) == 0 {
		return nil
	}
	if k > len(dists) {
		k = len(dists)
	}
	h := make(farthestFirst, 0, k)
	for _, e := range dists {
		if len(h) < k {
			heap.Push(&h, e)
			continue
		}
		if closer(e, h[0]) {
			h[0] = e
			heap.Fix(&h, 0)
		}
	}
	slices.SortFunc(h, func(a, b models.DistEntry) int {
		if closer(a, b) {
			return -1
		}
		if closer(b, a) {
			return 1
		}
		return 0
	})
	return h
}
