package pipeline

import "context"

// Map transforms each value. An error from fn ends the stream.
func Map[I, O any](p *Pipeline[I], fn func(context.Context, I) (O, error)) *Pipeline[O] {
	return stage(p, func(ctx context.Context, src Iterator[I]) (out O, ok bool, err error) {
		v, ok, err := src.Next(ctx)
		if err != nil || !ok {
			return out, ok, err
		}
		if out, err = fn(ctx, v); err != nil {
			return out, false, err
		}
		return out, true, nil
	})
}

// Filter keeps the values keep accepts.
func Filter[T any](p *Pipeline[T], keep func(T) bool) *Pipeline[T] {
	return stage(p, func(ctx context.Context, src Iterator[T]) (T, bool, error) {
		for {
			v, ok, err := src.Next(ctx)
			if err != nil || !ok || keep(v) {
				return v, ok, err
			}
		}
	})
}

// Tap runs fn on each value before passing it on. An error from fn ends the
// stream.
func Tap[T any](p *Pipeline[T], fn func(context.Context, T) error) *Pipeline[T] {
	return stage(p, func(ctx context.Context, src Iterator[T]) (T, bool, error) {
		v, ok, err := src.Next(ctx)
		if err != nil || !ok {
			return v, ok, err
		}
		if err := fn(ctx, v); err != nil {
			var zero T
			return zero, false, err
		}
		return v, true, nil
	})
}

// OnFirst runs fn with the first value only.
func OnFirst[T any](p *Pipeline[T], fn func(context.Context, T)) *Pipeline[T] {
	return FromFunc(func(ctx context.Context) Iterator[T] {
		seen := false
		return stage(p, func(ctx context.Context, src Iterator[T]) (T, bool, error) {
			v, ok, err := src.Next(ctx)
			if ok && !seen {
				seen = true
				fn(ctx, v)
			}
			return v, ok, err
		}).open(ctx)
	})
}
