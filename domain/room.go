package domain

import "time"

// Room is a named channel partitioning messages and subscriptions.
// Its ID is the partition key for the fan-out pipeline.
type Room struct {
	ID          string
	Name        string
	Description *string
	CreatedAt   time.Time
}
