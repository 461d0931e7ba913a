package convert

import (
	"context"
	"sync"

	"github.com/zeebo/blake3"

	"fabula/internal/pack"
)

// imageTransform converts one image payload, returning the new bytes
// and the tag that matches them.
type imageTransform func(*pack.ImageAsset) ([]byte, pack.ImageType, error)

// audioTransform converts one audio payload.
type audioTransform func(*pack.AudioAsset) ([]byte, pack.AudioType, error)

// processImages runs the transform over every node image on the worker
// pool. Nodes sharing byte-identical payloads share one conversion via
// the single-flight cache.
func (c *Converter) processImages(ctx context.Context, p *pack.Pack, transform imageTransform) error {
	hasAny := false
	for _, node := range p.Nodes {
		if node.Image != nil {
			hasAny = true
			break
		}
	}
	if !hasAny {
		return nil
	}

	cache := newFlightCache[pack.ImageType]()
	return c.forEachNode(ctx, p, func(node *pack.StageNode) error {
		if node.Image == nil {
			return nil
		}
		data, typ, err := cache.do(blake3.Sum256(node.Image.Data), func() ([]byte, pack.ImageType, error) {
			return transform(node.Image)
		})
		if err != nil {
			return err
		}
		node.Image.Data = data
		node.Image.Type = typ
		return nil
	})
}

// processAudio is the audio counterpart of processImages; the two
// passes never share a cache.
func (c *Converter) processAudio(ctx context.Context, p *pack.Pack, transform audioTransform) error {
	hasAny := false
	for _, node := range p.Nodes {
		if node.Audio != nil {
			hasAny = true
			break
		}
	}
	if !hasAny {
		return nil
	}

	cache := newFlightCache[pack.AudioType]()
	return c.forEachNode(ctx, p, func(node *pack.StageNode) error {
		if node.Audio == nil {
			return nil
		}
		data, typ, err := cache.do(blake3.Sum256(node.Audio.Data), func() ([]byte, pack.AudioType, error) {
			return transform(node.Audio)
		})
		if err != nil {
			return err
		}
		node.Audio.Data = data
		node.Audio.Type = typ
		return nil
	})
}

// forEachNode fans nodes out over the worker pool. The first error
// cancels the remaining work and is returned.
func (c *Converter) forEachNode(ctx context.Context, p *pack.Pack, fn func(*pack.StageNode) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan *pack.StageNode)
	var wg sync.WaitGroup

	var errOnce sync.Once
	var firstErr error
	fail := func(err error) {
		errOnce.Do(func() {
			firstErr = err
			cancel()
		})
	}

	workers := min(c.workers, len(p.Nodes))
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for node := range jobs {
				if ctx.Err() != nil {
					continue
				}
				if err := fn(node); err != nil {
					fail(err)
				}
			}
		}()
	}

feed:
	for _, node := range p.Nodes {
		select {
		case jobs <- node:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	return ctx.Err()
}

// flightCache is a single-flight content-hash cache: concurrent
// callers with the same key block on one in-flight computation instead
// of duplicating it.
type flightCache[T any] struct {
	mu      sync.Mutex
	entries map[[32]byte]*flightEntry[T]
}

type flightEntry[T any] struct {
	ready chan struct{}
	data  []byte
	typ   T
	err   error
}

func newFlightCache[T any]() *flightCache[T] {
	return &flightCache[T]{entries: make(map[[32]byte]*flightEntry[T])}
}

func (c *flightCache[T]) do(key [32]byte, fn func() ([]byte, T, error)) ([]byte, T, error) {
	c.mu.Lock()
	if entry, ok := c.entries[key]; ok {
		c.mu.Unlock()
		<-entry.ready
		return entry.data, entry.typ, entry.err
	}
	entry := &flightEntry[T]{ready: make(chan struct{})}
	c.entries[key] = entry
	c.mu.Unlock()

	entry.data, entry.typ, entry.err = fn()
	close(entry.ready)
	return entry.data, entry.typ, entry.err
}
