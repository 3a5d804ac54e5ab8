// Package pipeline provides composable, pull-based stream operators.
//
// Pipelines are lazy: no work happens until values are pulled via Iter,
// Collect or ForEach. Each stage pulls from the previous one on demand, which
// gives backpressure without explicit flow control.
//
// Generation deltas and audio levels both flow through pipelines:
//
//	deltas := pipeline.FromChannel(chunks, cancel)
//	deltas = pipeline.OnFirst(deltas, recordFirstToken)
//	deltas = pipeline.Filter(deltas, nonEmpty)
//	err := pipeline.ForEach(ctx, deltas, accumulate)
//
// # Operators
//
//   - Map: transform each value
//   - Filter: keep values matching a predicate
//   - Tap: side effect per value, may abort the stream with an error
//   - OnFirst: side effect on the first value only
//   - Throttle: drop values arriving faster than an interval
package pipeline
