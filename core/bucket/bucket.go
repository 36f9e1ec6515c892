// Package bucket keeps the most recent time series records up to an optional
// maximum size.
package bucket

import (
	"errors"
	"fmt"
)

var ErrNegativeMaxSize = errors.New("bucket: negative max size")

// Record is one sample. Timestamp is in unix milliseconds.
type Record struct {
	Timestamp int64   `json:"timestamp"`
	Value     float64 `json:"value"`
}

// Bucket is a FIFO buffer of records. When a max size is set, appending past
// it evicts the oldest records. A Bucket is not safe for concurrent use; keep
// it owned by a single thread.
type Bucket struct {
	records []Record
	maxSize int
	bounded bool
}

// New returns an unbounded bucket.
func New() *Bucket {
	return &Bucket{}
}

func NewWithMaxSize(n int) (*Bucket, error) {
	b := New()
	if err := b.SetMaxSize(n); err != nil {
		return nil, err
	}
	return b, nil
}

// Append adds records in order and evicts the oldest ones beyond the max size.
func (b *Bucket) Append(records ...Record) {
	b.records = append(b.records, records...)
	if !b.bounded {
		return
	}
	if extra := len(b.records) - b.maxSize; extra > 0 {
		b.Drop(extra)
	}
}

// SetMaxSize bounds the bucket. The bound applies from the next Append; the
// records already held are kept. A negative n fails and leaves the bucket
// untouched.
func (b *Bucket) SetMaxSize(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: %d", ErrNegativeMaxSize, n)
	}
	b.maxSize = n
	b.bounded = true
	return nil
}

// ClearMaxSize makes the bucket unbounded.
func (b *Bucket) ClearMaxSize() {
	b.maxSize = 0
	b.bounded = false
}

// MaxSize returns the bound and whether there is one.
func (b *Bucket) MaxSize() (int, bool) {
	return b.maxSize, b.bounded
}

func (b *Bucket) Size() int { return len(b.records) }

// Records returns a copy of the held records, oldest first.
func (b *Bucket) Records() []Record {
	out := make([]Record, len(b.records))
	copy(out, b.records)
	return out
}

// Drop removes the n oldest records. n <= 0 does nothing.
func (b *Bucket) Drop(n int) {
	if n <= 0 {
		return
	}
	if n >= len(b.records) {
		b.records = b.records[:0]
		return
	}
	// shift so the backing array does not grow without bound
	m := copy(b.records, b.records[n:])
	clear(b.records[m:])
	b.records = b.records[:m]
}
