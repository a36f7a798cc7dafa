// Package client is the consumer side of the quiz API: an HTTP client, a
// normalized in-memory store that tracks each remote operation separately,
// and a listener that keeps the store in sync with the server's change feed.
package client
