package pipeline

import "context"

// Iterator provides pull-based sequential access to a stream of values.
type Iterator[T any] interface {
	// Next returns the next value, or (zero, false, nil) once exhausted.
	Next(ctx context.Context) (T, bool, error)
	// Close releases the source. It may be called more than once.
	Close() error
}

// Pipeline is a lazy stream definition. Nothing is pulled until Iter,
// Collect or ForEach runs it.
type Pipeline[T any] struct {
	open func(ctx context.Context) Iterator[T]
}

// Iter opens the pipeline. The caller must Close the returned Iterator.
func (p *Pipeline[T]) Iter(ctx context.Context) Iterator[T] {
	return p.open(ctx)
}

// FromFunc builds a pipeline whose iterator is created by open on each run.
func FromFunc[T any](open func(ctx context.Context) Iterator[T]) *Pipeline[T] {
	return &Pipeline[T]{open: open}
}

// FromSlice streams items in order.
func FromSlice[T any](items []T) *Pipeline[T] {
	return FromFunc(func(context.Context) Iterator[T] {
		i := 0
		return &iter[T]{next: func(context.Context) (v T, ok bool, err error) {
			if i >= len(items) {
				return v, false, nil
			}
			i++
			return items[i-1], true, nil
		}}
	})
}

// FromChannel streams ch until it is closed or the pull context ends.
// closer, if non-nil, runs once when the iterator is closed; use it to stop
// the producer.
func FromChannel[T any](ch <-chan T, closer func() error) *Pipeline[T] {
	return FromFunc(func(context.Context) Iterator[T] {
		return &iter[T]{
			next: func(ctx context.Context) (v T, ok bool, err error) {
				select {
				case v, ok = <-ch:
					return v, ok, nil
				case <-ctx.Done():
					return v, false, ctx.Err()
				}
			},
			close: closer,
		}
	})
}

// ForEach pulls every value into fn and stops at the first error.
func ForEach[T any](ctx context.Context, p *Pipeline[T], fn func(context.Context, T) error) error {
	it := p.open(ctx)
	defer it.Close()
	for {
		v, ok, err := it.Next(ctx)
		if err != nil || !ok {
			return err
		}
		if err := fn(ctx, v); err != nil {
			return err
		}
	}
}

// Collect runs p to the end and returns what it produced, including the
// values read before an error.
func Collect[T any](ctx context.Context, p *Pipeline[T]) ([]T, error) {
	var out []T
	err := ForEach(ctx, p, func(_ context.Context, v T) error {
		out = append(out, v)
		return nil
	})
	return out, err
}

// iter adapts a pair of functions to Iterator. close runs at most once.
type iter[T any] struct {
	next   func(context.Context) (T, bool, error)
	close  func() error
	closed bool
}

func (it *iter[T]) Next(ctx context.Context) (T, bool, error) { return it.next(ctx) }

func (it *iter[T]) Close() error {
	if it.closed || it.close == nil {
		return nil
	}
	it.closed = true
	return it.close()
}

// stage derives a pipeline from p. next pulls from the opened source.
func stage[I, O any](p *Pipeline[I], next func(ctx context.Context, src Iterator[I]) (O, bool, error)) *Pipeline[O] {
	return FromFunc(func(ctx context.Context) Iterator[O] {
		src := p.open(ctx)
		return &iter[O]{
			next:  func(ctx context.Context) (O, bool, error) { return next(ctx, src) },
			close: src.Close,
		}
	})
}
