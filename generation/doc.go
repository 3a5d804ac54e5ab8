// Package generation issues completion and streaming requests against a
// language model with bounded retry and per-attempt timeouts.
//
// Only timeouts and connection failures are retried. Rate limits, rejected
// credentials and every other provider error surface on the first attempt.
//
//	client := generation.NewClient(adapter, cfg)
//	stream, err := client.Stream(ctx, generation.Request{Input: text})
//	defer stream.Close()
//	for {
//	    delta, ok, err := stream.Next(ctx)
//	    ...
//	}
package generation
