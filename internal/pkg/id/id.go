package id

import (
	"crypto/rand"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// New generates a new ULID string. ULIDs sort lexicographically by creation
// time, so order ids double as a chronological sort key within a user's orders.
func New() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}

// NewRequestID returns a random UUID used when no upstream request id exists.
func NewRequestID() string {
	return uuid.NewString()
}
