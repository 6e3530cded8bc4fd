package source

import (
	"fmt"

	"github.com/maplanning/lead-scout/internal/model"
)

// UnavailableError reports a source that could not be fetched or parsed.
type UnavailableError struct {
	Source string
	Err    error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("source %s unavailable: %v", e.Source, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// Kind returns model.KindSourceUnavailable.
func (e *UnavailableError) Kind() model.Kind { return model.KindSourceUnavailable }

// Warning converts the error for the run's warning list.
func (e *UnavailableError) Warning() model.Warning {
	return model.Warning{
		Kind:    model.KindSourceUnavailable,
		Source:  e.Source,
		Message: fmt.Sprintf("%v; using synthetic fallback data", e.Err),
	}
}
