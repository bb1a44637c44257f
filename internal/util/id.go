package util

import "github.com/google/uuid"

// NewID returns a random UUID string, matching the uuid primary keys of the catalog tables.
func NewID() string {
	return uuid.NewString()
}
