// Package sse pushes live state to browser clients over Server-Sent Events.
//
// A Hub fans encoded events out to connected clients. Each client
// subscribes to topic patterns ("capture.*", "response.*", "*"), and the
// latest status, transcript and response events are retained so a client
// that connects mid-session starts from the current state. A Publisher
// bridges the capture controller, transcript aggregator and response
// accumulator to the hub and throttles the audio level feed.
//
//	hub := sse.NewHub()
//	go hub.Run()
//	pub := sse.NewPublisher(hub)
//	pub.Attach(controller, aggregator, accumulator)
//	go pub.Run(ctx)
//	router.GET("/api/events", func(c *gin.Context) {
//	    sse.ServeSSE(hub, c.Writer, c.Request, uuid.NewString())
//	})
package sse
