package feedback

import (
	"context"
	"encoding/json"
	"time"
)

// Record is one learner comment together with the session state it was
// written against.
type Record struct {
	Comment   string          `json:"comment"`
	State     json.RawMessage `json:"state"`
	Name      string          `json:"name"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Relay appends feedback records under a path.
type Relay interface {
	Append(ctx context.Context, path string, rec Record) error
	List(ctx context.Context, path string) ([]Record, error)
}
