package flags

import (
	"errors"
	"time"

	"github.com/aman-zulfiqar/drift-toolkit/internal/constants"
)

var (
	ErrNotFound    = errors.New("flag not found")
	ErrNoteTooLong = errors.New("flag note too long")
)

// Flag is an operator toggle stored in Redis.
type Flag struct {
	Key         string    `json:"key"`
	Value       bool      `json:"value"`
	Note        string    `json:"note,omitempty"`
	Description string    `json:"description,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// descriptions documents the flags the binaries read. Any other valid key can
// still be stored.
var descriptions = map[string]string{
	constants.FlagSwapPaused: "hold the dSOL→SOL swap loop before its next iteration",
}

// Describe returns the description of a flag read by the toolkit, or "".
func Describe(key string) string {
	return descriptions[key]
}
