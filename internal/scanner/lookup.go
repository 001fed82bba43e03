package scanner

import (
	"context"

	"balancedScope/internal/model"
)

// Status is the outcome of a single pool lookup.
type Status int

const (
	StatusFound Status = iota
	StatusNotFound
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusFound:
		return "found"
	case StatusNotFound:
		return "not_found"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Lookup is the result of querying one pool ID.
type Lookup struct {
	Status Status
	Record model.PoolRecord
	Err    error
}

func Found(record model.PoolRecord) Lookup {
	return Lookup{Status: StatusFound, Record: record}
}

func NotFound() Lookup {
	return Lookup{Status: StatusNotFound}
}

func Failed(err error) Lookup {
	return Lookup{Status: StatusFailed, Err: err}
}

// QueryFunc fetches the raw stats of one pool.
type QueryFunc func(ctx context.Context, poolID uint64) Lookup
