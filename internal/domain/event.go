package domain

import (
	"context"
	"time"
)

// RawEvent is a message read from the request topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	// Commit acknowledges the message. It is nil for sources without offsets.
	Commit func(ctx context.Context) error
}
