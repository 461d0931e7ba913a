package device

import "context"

// Pending is the result of an operation running on its own goroutine.
type Pending[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// Done is closed once the operation finishes.
func (p *Pending[T]) Done() <-chan struct{} { return p.done }

// Wait blocks until the operation finishes and returns its result.
func (p *Pending[T]) Wait() (T, error) {
	<-p.done
	return p.value, p.err
}

func begin[T any](fn func() (T, error)) *Pending[T] {
	p := &Pending[T]{done: make(chan struct{})}
	go func() {
		defer close(p.done)
		p.value, p.err = fn()
	}()
	return p
}

// InfoAsync runs Info without blocking the caller.
func (d *Driver) InfoAsync() *Pending[*Info] {
	return begin(d.Info)
}

// ListPacksAsync runs ListPacks without blocking the caller.
func (d *Driver) ListPacksAsync() *Pending[[]PackInfo] {
	return begin(d.ListPacks)
}

// ReorderPacksAsync runs ReorderPacks without blocking the caller.
func (d *Driver) ReorderPacksAsync(uuids []string) *Pending[struct{}] {
	return begin(func() (struct{}, error) {
		return struct{}{}, d.ReorderPacks(uuids)
	})
}

// DeletePackAsync runs DeletePack without blocking the caller.
func (d *Driver) DeletePackAsync(id string) *Pending[struct{}] {
	return begin(func() (struct{}, error) {
		return struct{}{}, d.DeletePack(id)
	})
}

// UploadPackAsync runs UploadPack without blocking the caller.
func (d *Driver) UploadPackAsync(ctx context.Context, id, srcDir string) *Pending[struct{}] {
	return begin(func() (struct{}, error) {
		return struct{}{}, d.UploadPack(ctx, id, srcDir)
	})
}

// DownloadPackAsync runs DownloadPack without blocking the caller.
func (d *Driver) DownloadPackAsync(ctx context.Context, id, destDir string) *Pending[string] {
	return begin(func() (string, error) {
		return d.DownloadPack(ctx, id, destDir)
	})
}
