// Package domain contains core concepts of the chat system.
// This file defines Message events and related rules.
// Messages are immutable and validated by the domain.
package domain

import "time"

// Message represents an immutable chat event. Once persisted it is never
// mutated; fan-out delivers copies by value to each subscriber.
type Message struct {
	ID        string
	RoomID    string
	UserID    string
	Body      string
	CreatedAt time.Time
	User      *User
}

// User is the author reference embedded in a delivered message.
type User struct {
	ID        string
	Username  string
	Email     string
	Avatar    *string
	CreatedAt time.Time
}
