// Package idempotency stores the first response produced for an idempotency key
// so that a retried request is answered without running the operation again.
//
// A request first reserves its key. The reservation is a pending record that
// keeps concurrent requests with the same key out until it is completed with the
// final response or released.
package idempotency

import (
	"context"
	"time"
)

// Response is a recorded HTTP response. Pending marks a reservation whose
// request is still being processed.
type Response struct {
	Status      int    `json:"status"`
	ContentType string `json:"contentType"`
	Body        []byte `json:"body"`
	Pending     bool   `json:"pending,omitempty"`
}

// PendingResponse is stored by Reserve.
func PendingResponse() *Response {
	return &Response{Pending: true}
}

type Store interface {
	// Get returns the record stored for key, or nil if there is none.
	Get(ctx context.Context, key string) (*Response, error)
	// Reserve atomically stores a pending record under key if the key is free and
	// returns nil. Otherwise the record already stored is returned, pending or not.
	Reserve(ctx context.Context, key string, ttl time.Duration) (*Response, error)
	// Complete replaces the record of key with the final response.
	Complete(ctx context.Context, key string, resp *Response, ttl time.Duration) error
	// Release drops the record of key so that the request can run again.
	Release(ctx context.Context, key string) error
	Health(ctx context.Context, checkLiveness bool) (int, string, error)
	Close() error
}
