package types

import "github.com/google/uuid"

// NewMessageID generates a UUIDv4 message id, as spec.md recommends and as
// the teacher's envelope package does with uuid.New().String().
func NewMessageID() string {
	return uuid.New().String()
}
