package alarm

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Source names the producer of a position sample.
type Source string

const (
	// SourceForeground is the periodic poll loop.
	SourceForeground Source = "foreground"
	// SourceBackground is the OS-driven background delivery.
	SourceBackground Source = "background"
	// SourceRemote is a sample pushed over the network API.
	SourceRemote Source = "remote"
)

// Position is an already-resolved location sample.
type Position struct {
	// Latitude in signed decimal degrees.
	Latitude float64 `validate:"gte=-90,lte=90"`
	// Longitude in signed decimal degrees.
	Longitude float64 `validate:"gte=-180,lte=180"`
	// Timestamp is when the fix was taken.
	Timestamp time.Time `validate:"-"`
	// Source tells which producer delivered the sample.
	Source Source `validate:"-"`
}

// ErrInvalidPosition is returned for coordinates outside the valid ranges.
var ErrInvalidPosition = errors.New("invalid position")

// Validate checks that the coordinates are in range. NaN fails every
// range tag, so it is rejected too.
func (p *Position) Validate() error {
	if err := validate.Struct(p); err != nil {
		var fieldErrors validator.ValidationErrors
		if errors.As(err, &fieldErrors) && len(fieldErrors) > 0 {
			first := fieldErrors[0]

			return fmt.Errorf("%w: %s %v out of range", ErrInvalidPosition, strings.ToLower(first.Field()), first.Value())
		}

		return fmt.Errorf("%w: %w", ErrInvalidPosition, err)
	}

	return nil
}

// ParseSource maps a wire name to a Source. Empty input means remote.
func ParseSource(s string) (Source, bool) {
	switch Source(s) {
	case SourceForeground, SourceBackground, SourceRemote:
		return Source(s), true
	case "":
		return SourceRemote, true
	default:
		return "", false
	}
}
