package persist

import (
	"context"
	"errors"
	"fmt"

	"github.com/cliffjones/polli/internal/talkmap"
)

// #region load-result
// Status is the outcome of loading one depth.
type Status int

const (
	Loaded Status = iota
	Missing
	Unreadable
	Malformed
)

func (s Status) String() string {
	switch s {
	case Loaded:
		return "loaded"
	case Missing:
		return "missing"
	case Unreadable:
		return "unreadable"
	case Malformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// LoadResult is either a loaded map or an empty one with the reason it is empty.
type LoadResult struct {
	Depth  int
	Map    talkmap.Map
	Status Status
	Err    error
}

// OK reports whether the depth's data was loaded.
func (r LoadResult) OK() bool {
	return r.Status == Loaded
}

func loaded(depth int, m talkmap.Map) LoadResult {
	return LoadResult{Depth: depth, Map: m, Status: Loaded}
}

func empty(depth int, status Status, err error) LoadResult {
	return LoadResult{Depth: depth, Map: talkmap.Map{}, Status: status, Err: err}
}

// #endregion load-result

// #region provider
// Provider loads and saves one talk map per context depth.
type Provider interface {
	// Load never fails; problems are reported through the result's Status.
	Load(ctx context.Context, depth int) LoadResult
	Save(ctx context.Context, depth int, m talkmap.Map) error
}

// Repository reads and writes every depth through a Provider.
type Repository struct {
	provider Provider
}

// NewRepository wraps p.
func NewRepository(p Provider) *Repository {
	return &Repository{provider: p}
}

// LoadAll loads depths 0..levels-1. Depths that fail to load come back empty.
func (r *Repository) LoadAll(ctx context.Context, levels int) (talkmap.Maps, []LoadResult) {
	maps := make(talkmap.Maps, levels)
	results := make([]LoadResult, levels)
	for i := 0; i < levels; i++ {
		res := r.provider.Load(ctx, i)
		if res.Map == nil {
			res.Map = talkmap.Map{}
		}
		maps[i] = res.Map
		results[i] = res
	}
	return maps, results
}

// SaveAll writes every depth, continuing past failures.
func (r *Repository) SaveAll(ctx context.Context, maps talkmap.Maps) error {
	var errs []error
	for i, m := range maps {
		if err := r.provider.Save(ctx, i, m); err != nil {
			errs = append(errs, fmt.Errorf("depth %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// #endregion provider

// #region decode
// fromLists converts decoded lists into a Map, dropping empty lists so that
// every stored key keeps at least one response.
func fromLists(raw map[string][]string) talkmap.Map {
	m := make(talkmap.Map, len(raw))
	for k, v := range raw {
		if len(v) == 0 {
			continue
		}
		m[k] = v
	}
	return m
}

// #endregion decode
