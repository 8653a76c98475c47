package linked

import (
	"github.com/l1jgo/entpool/internal/core/directory"
	"github.com/l1jgo/entpool/internal/saveerr"
)

// Bucket is one row of a bucketed index (e.g. sprites per horizontal map
// line). Each row is its own list running from Begin to End.
type Bucket[T any] struct {
	Begin *T
	End   *T
}

// IDPair is the persisted form of a Bucket.
type IDPair struct {
	Begin uint32
	End   uint32
}

// SaveBuckets converts every row, empty rows included, to id pairs.
func SaveBuckets[T any](rows []Bucket[T], dir *directory.Save[T]) ([]IDPair, error) {
	out := make([]IDPair, len(rows))
	for i, row := range rows {
		begin, err := dir.ID(row.Begin)
		if err != nil {
			return nil, err
		}
		end, err := dir.ID(row.End)
		if err != nil {
			return nil, err
		}
		out[i] = IDPair{Begin: begin, End: end}
	}
	return out, nil
}

// LoadBuckets resolves pairs into a fresh row table of length rows. Rows past
// len(pairs) stay empty; more pairs than rows is corruption.
func LoadBuckets[T any](pairs []IDPair, dir *directory.Load[T], rows int) ([]Bucket[T], error) {
	if len(pairs) > rows {
		return nil, saveerr.Corrupted("%d bucket rows, map has %d", len(pairs), rows)
	}
	out := make([]Bucket[T], rows)
	for i, p := range pairs {
		begin, err := dir.Pointer(p.Begin)
		if err != nil {
			return nil, err
		}
		end, err := dir.Pointer(p.End)
		if err != nil {
			return nil, err
		}
		out[i] = Bucket[T]{Begin: begin, End: end}
	}
	return out, nil
}
