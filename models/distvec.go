package models

// DistEntry is the squared distance between a prediction row and the training
// row at SourceIndex.
type DistEntry struct {
	Distance    float32 `json:"distance" msgpack:"distance"`
	SourceIndex uint32  `json:"sourceIndex" msgpack:"sourceIndex"`
}

// DistVector holds one entry per training row, entry i corresponds to training
// row i after a kernel call.
type DistVector []DistEntry

// NewDistVector allocates a zeroed distance vector ready for the kernel.
func NewDistVector(n int) DistVector {
	return make(DistVector, n)
}

// Reset zeroes the vector so it can be handed to the kernel again.
func (dv DistVector) Reset() {
	for i := range dv {
		dv[i] = DistEntry{}
	}
}

// Clone returns a copy that does not share storage with dv.
func (dv DistVector) Clone() DistVector {
	c := make(DistVector, len(dv))
	copy(c, dv)
	return c
}
