package bboltx

import (
	"encoding/binary"
	"fmt"

	"go.etcd.io/bbolt"
)

// BucketParent is an interface for things that contain buckets, namely
// transactions and other buckets.
type BucketParent interface {
	CreateBucketIfNotExists([]byte) (*bbolt.Bucket, error)
	Bucket([]byte) *bbolt.Bucket
}

var (
	_ BucketParent = (*bbolt.Tx)(nil)
	_ BucketParent = (*bbolt.Bucket)(nil)
)

// CreateBucketIfNotExists creates nested buckets with names given by the
// elements of path.
func CreateBucketIfNotExists(p BucketParent, path ...[]byte) *bbolt.Bucket {
	if len(path) == 0 {
		panic("at least one path element must be provided")
	}

	var (
		b   *bbolt.Bucket
		err error
	)

	for _, n := range path {
		b, err = p.CreateBucketIfNotExists(n)
		Must(err)

		p = b
	}

	return b
}

// Put writes a value to a bucket.
func Put(b *bbolt.Bucket, k, v []byte) {
	Must(b.Put(k, v))
}

// Delete removes a key from a bucket.
func Delete(b *bbolt.Bucket, k []byte) {
	Must(b.Delete(k))
}

// PutUint64 writes n to a bucket as an 8-byte big-endian value.
func PutUint64(b *bbolt.Bucket, k []byte, n uint64) {
	Put(b, k, MarshalUint64(n))
}

// GetUint64 reads an 8-byte big-endian value from a bucket.
//
// It returns 0 if the key is not present.
func GetUint64(b *bbolt.Bucket, k []byte) uint64 {
	return UnmarshalUint64(b.Get(k))
}

// MarshalUint64 marshals a uint64 to its binary representation.
//
// The big-endian encoding sorts in the same order as the numbers themselves,
// so it is suitable for use as a key.
func MarshalUint64(n uint64) []byte {
	data := make([]byte, 8)
	binary.BigEndian.PutUint64(data, n)
	return data
}

// UnmarshalUint64 unmarshals a uint64 from its binary representation.
func UnmarshalUint64(data []byte) uint64 {
	n := len(data)

	switch n {
	case 0:
		return 0
	case 8:
		return binary.BigEndian.Uint64(data)
	default:
		panic(PanicSentinel{
			Cause: fmt.Errorf("data is corrupt, expected 8 bytes, got %d", n),
		})
	}
}
