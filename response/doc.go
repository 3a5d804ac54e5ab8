// Package response accumulates a streamed generation result.
//
// An [Accumulator] owns the single live [State]. [Accumulator.Start] issues
// a new request id; deltas, completion and failure must carry that id and
// are dropped otherwise, so a superseded stream that is still draining can
// never touch the response shown to the user.
package response
