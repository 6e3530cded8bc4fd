package store

import (
	"fmt"

	"github.com/maplanning/lead-scout/internal/model"
)

// UnavailableError reports that a backend could not serve an operation.
type UnavailableError struct {
	Backend string
	Op      string
	Err     error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("store %s: %s: %v", e.Backend, e.Op, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// Kind classifies the error for the warnings side-channel.
func (e *UnavailableError) Kind() model.Kind { return model.KindStoreUnavailable }
