package bucket

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const baseTs = int64(1523889000000)

func series(n int) []Record {
	out := make([]Record, n)
	for i := range out {
		out[i] = Record{Timestamp: baseTs + int64(i), Value: float64(i)}
	}
	return out
}

func TestBucket_append_keeps_order(t *testing.T) {
	b := New()
	for _, r := range series(6) {
		b.Append(r)
	}
	require.Equal(t, 6, b.Size())
	require.Equal(t, series(6), b.Records())

	_, bounded := b.MaxSize()
	require.False(t, bounded)
}

func TestBucket_max_size_evicts_oldest(t *testing.T) {
	b := New()
	require.NoError(t, b.SetMaxSize(5))

	b.Append(series(10)...)
	require.Equal(t, 5, b.Size())
	require.Equal(t, series(10)[5:], b.Records())

	b.Append(Record{Timestamp: baseTs + 10, Value: 10})
	got := b.Records()
	require.Len(t, got, 5)
	require.Equal(t, float64(6), got[0].Value)
	require.Equal(t, float64(10), got[4].Value)
}

func TestBucket_negative_max_size(t *testing.T) {
	b := New()
	require.NoError(t, b.SetMaxSize(3))
	b.Append(series(3)...)

	err := b.SetMaxSize(-1)
	require.ErrorIs(t, err, ErrNegativeMaxSize)

	n, bounded := b.MaxSize()
	require.True(t, bounded)
	require.Equal(t, 3, n)
	require.Equal(t, 3, b.Size())

	_, err = NewWithMaxSize(-5)
	require.ErrorIs(t, err, ErrNegativeMaxSize)
}

func TestBucket_shrinking_applies_on_append(t *testing.T) {
	b := New()
	b.Append(series(4)...)
	require.NoError(t, b.SetMaxSize(2))
	require.Equal(t, 4, b.Size())

	b.Append(Record{Timestamp: baseTs + 4, Value: 4})
	require.Equal(t, []Record{{baseTs + 3, 3}, {baseTs + 4, 4}}, b.Records())
}

func TestBucket_zero_max_size(t *testing.T) {
	b, err := NewWithMaxSize(0)
	require.NoError(t, err)
	b.Append(series(3)...)
	require.Zero(t, b.Size())
}

func TestBucket_clear_max_size(t *testing.T) {
	b, err := NewWithMaxSize(2)
	require.NoError(t, err)
	b.ClearMaxSize()
	b.Append(series(5)...)
	require.Equal(t, 5, b.Size())
}

func TestBucket_drop(t *testing.T) {
	b := New()
	b.Append(series(5)...)

	b.Drop(0)
	b.Drop(-1)
	require.Equal(t, 5, b.Size())

	b.Drop(2)
	require.Equal(t, series(5)[2:], b.Records())

	b.Drop(10)
	require.Zero(t, b.Size())
	require.Empty(t, b.Records())
}

func TestBucket_records_is_a_copy(t *testing.T) {
	b := New()
	b.Append(series(2)...)
	got := b.Records()
	got[0].Value = 42
	require.Equal(t, float64(0), b.Records()[0].Value)
}
