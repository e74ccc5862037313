package logging

import (
	"github.com/google/uuid"
)

// GenerateRequestID returns a new random request id
func GenerateRequestID() string {
	return uuid.New().String()
}

// GenerateShortRequestID returns the first block of a random uuid
func GenerateShortRequestID() string {
	return uuid.New().String()[:8]
}
