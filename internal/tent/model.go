package tent

import (
	"errors"
	"time"
)

// Statuses set by the lifecycle itself. Update accepts any caller-supplied
// status string verbatim, so persisted statuses are not limited to these.
const (
	StatusAwaitingPartner = "awaiting_partner"
	StatusActive          = "active"
)

var (
	ErrNotFound     = errors.New("tent not found")
	ErrInvalidInput = errors.New("invalid input")
)

// Tent is a two-party escrow session over one traded item.
type Tent struct {
	ID           string            `json:"id"`
	Initiator    string            `json:"initiator"`
	Counterparty string            `json:"counterparty,omitempty"`
	AssetRef     string            `json:"assetRef,omitempty"`
	Price        float64           `json:"price"`
	Status       string            `json:"status"`
	Metadata     map[string]string `json:"metadata"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}

// Clone returns a deep copy so callers cannot alias stored metadata.
func (t *Tent) Clone() *Tent {
	c := *t
	c.Metadata = make(map[string]string, len(t.Metadata))
	for k, v := range t.Metadata {
		c.Metadata[k] = v
	}
	return &c
}
