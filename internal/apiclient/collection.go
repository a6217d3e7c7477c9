package apiclient

import (
	"context"
	"sync"
)

// Collection keeps a client-side copy of one entity collection. The copy is
// fetched on first use and refetched in full after every mutation.
//
// Reloads are numbered in issue order. A reload result is applied only when
// no later-issued reload has already been applied, so overlapping reloads
// never roll the copy back to older data.
type Collection[T any] struct {
	client *Client
	entity string

	mu       sync.Mutex
	items    []T
	loaded   bool
	inflight int
	issued   uint64
	applied  uint64
}

func NewCollection[T any](client *Client, entity string) *Collection[T] {
	return &Collection[T]{client: client, entity: entity}
}

// Items returns the collection, fetching it if it was never loaded.
func (c *Collection[T]) Items(ctx context.Context) ([]T, error) {
	c.mu.Lock()
	loaded := c.loaded
	c.mu.Unlock()
	if !loaded {
		if err := c.Reload(ctx); err != nil {
			return nil, err
		}
	}
	return c.Snapshot(), nil
}

// Snapshot returns a copy of the current items without fetching.
func (c *Collection[T]) Snapshot() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

// Loading reports whether a reload is in flight.
func (c *Collection[T]) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight > 0
}

// Reload fetches the full collection. A result overtaken by a later reload is dropped.
func (c *Collection[T]) Reload(ctx context.Context) error {
	c.mu.Lock()
	c.issued++
	seq := c.issued
	c.inflight++
	c.mu.Unlock()

	var rows []T
	err := c.client.List(ctx, c.entity, nil, &rows)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inflight--
	if err != nil {
		return err
	}
	if seq > c.applied {
		if rows == nil {
			rows = []T{}
		}
		c.items = rows
		c.applied = seq
		c.loaded = true
	}
	return nil
}

// Create posts body, then reloads. The reload runs even if the create failed.
func (c *Collection[T]) Create(ctx context.Context, body any) (string, error) {
	id, err := c.client.Create(ctx, c.entity, body)
	return id, c.after(ctx, err)
}

func (c *Collection[T]) Update(ctx context.Context, id string, body any) error {
	return c.after(ctx, c.client.Update(ctx, c.entity, id, body))
}

func (c *Collection[T]) Delete(ctx context.Context, id string) error {
	return c.after(ctx, c.client.Delete(ctx, c.entity, id))
}

func (c *Collection[T]) after(ctx context.Context, opErr error) error {
	reloadErr := c.Reload(ctx)
	if opErr != nil {
		return opErr
	}
	return reloadErr
}
