package sse

// Broadcaster accepts events for delivery to subscribed clients.
type Broadcaster interface {
	// Publish encodes ev and queues it for every client subscribed to its
	// type. It reports an error only when ev cannot be encoded.
	Publish(ev Event) error
}
