package intersection

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/df07/go-light-kernel/pkg/scene"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// ErrNoTree is returned when no child tree is registered for an assembly
var ErrNoTree = errors.New("intersection: no tree registered for assembly")

// TreeRepository maps assembly uids to lazily built, shared child trees.
// Each registered tree is built at most once until it is invalidated; concurrent
// first accesses share a single build.
type TreeRepository[T any] struct {
	mu      sync.Mutex
	entries map[scene.UniqueID]*repositoryEntry[T]
	group   singleflight.Group
	builds  atomic.Int64
}

type repositoryEntry[T any] struct {
	build      func() (T, error)
	generation uint64
	built      bool
	value      T
	err        error
}

// NewTreeRepository creates an empty repository
func NewTreeRepository[T any]() *TreeRepository[T] {
	return &TreeRepository[T]{entries: make(map[scene.UniqueID]*repositoryEntry[T])}
}

// Register sets the builder for uid, discarding any tree previously built for it
func (r *TreeRepository[T]) Register(uid scene.UniqueID, build func() (T, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[uid]; ok {
		e.build = build
		e.reset()
		return
	}
	r.entries[uid] = &repositoryEntry[T]{build: build}
}

func (e *repositoryEntry[T]) reset() {
	var zero T
	e.generation++
	e.built = false
	e.value = zero
	e.err = nil
}

// Acquire returns the tree for uid, building it on first access. A failed build is
// remembered and returned again until the entry is invalidated.
func (r *TreeRepository[T]) Acquire(uid scene.UniqueID) (T, error) {
	var zero T

	r.mu.Lock()
	e, ok := r.entries[uid]
	if !ok {
		r.mu.Unlock()
		return zero, errors.Wrapf(ErrNoTree, "uid %d", uid)
	}
	if e.built {
		value, err := e.value, e.err
		r.mu.Unlock()
		return value, err
	}
	generation, build := e.generation, e.build
	r.mu.Unlock()

	key := strconv.FormatUint(uint64(uid), 10) + "/" + strconv.FormatUint(generation, 10)
	v, err, _ := r.group.Do(key, func() (interface{}, error) {
		r.mu.Lock()
		if current, ok := r.entries[uid]; ok && current == e && current.generation == generation && current.built {
			value, err := current.value, current.err
			r.mu.Unlock()
			return value, err
		}
		r.mu.Unlock()

		value, err := build()
		r.builds.Add(1)

		r.mu.Lock()
		// The entry may have been deleted or invalidated while building
		if current, ok := r.entries[uid]; ok && current == e && current.generation == generation {
			current.built = true
			current.value = value
			current.err = err
		}
		r.mu.Unlock()

		return value, err
	})

	value, _ := v.(T)
	return value, err
}

// Invalidate drops the tree built for uid; the next Acquire rebuilds it
func (r *TreeRepository[T]) Invalidate(uid scene.UniqueID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[uid]; ok {
		e.reset()
	}
}

// Delete removes uid and its tree
func (r *TreeRepository[T]) Delete(uid scene.UniqueID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, uid)
}

// Contains reports whether a builder is registered for uid
func (r *TreeRepository[T]) Contains(uid scene.UniqueID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[uid]
	return ok
}

// Len returns the number of registered trees
func (r *TreeRepository[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// BuildCount returns the number of builds run since the repository was created
func (r *TreeRepository[T]) BuildCount() int {
	return int(r.builds.Load())
}

// Keys returns the registered uids in increasing order
func (r *TreeRepository[T]) Keys() []scene.UniqueID {
	r.mu.Lock()
	keys := make([]scene.UniqueID, 0, len(r.entries))
	for uid := range r.entries {
		keys = append(keys, uid)
	}
	r.mu.Unlock()

	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Built returns the trees that are currently built without error, ordered by uid
func (r *TreeRepository[T]) Built() []T {
	var result []T
	for _, uid := range r.Keys() {
		r.mu.Lock()
		if e, ok := r.entries[uid]; ok && e.built && e.err == nil {
			result = append(result, e.value)
		}
		r.mu.Unlock()
	}
	return result
}

// BuildAll builds every registered tree using up to workers goroutines and returns the first build error
func (r *TreeRepository[T]) BuildAll(ctx context.Context, workers int) error {
	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for _, uid := range r.Keys() {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			_, err := r.Acquire(uid)
			if errors.Is(err, ErrNoTree) {
				return nil
			}
			return err
		})
	}
	return g.Wait()
}
