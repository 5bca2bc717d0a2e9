package common

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NewJobID generates a timestamp-keyed job directory name.
// Format: job_<unix seconds>. Two submissions in the same second share a key;
// the workspace layer suffixes the directory name so job directories stay
// unique.
func NewJobID(now time.Time) string {
	return fmt.Sprintf("job_%d", now.Unix())
}

// NewBatchID generates a timestamp-keyed batch directory name.
// Format: batch_<unix seconds>
func NewBatchID(now time.Time) string {
	return fmt.Sprintf("batch_%d", now.Unix())
}

// NewClientID generates a unique WebSocket client ID with the "client_" prefix
func NewClientID() string {
	return "client_" + uuid.New().String()
}

// NewEventID generates a unique event ID with the "evt_" prefix
func NewEventID() string {
	return "evt_" + uuid.New().String()
}
