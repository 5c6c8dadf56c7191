package alarm

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrDuplicateID is returned when a checkpoint id is already in use.
	ErrDuplicateID = errors.New("duplicate checkpoint id")
	// ErrInvalidCheckpoint is returned when coordinates, radius or label are malformed.
	ErrInvalidCheckpoint = errors.New("invalid checkpoint")
)

// validate is shared because validator caches struct metadata per instance.
//
//nolint:gochecknoglobals // validator.Validate is safe for concurrent use and expensive to build.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Checkpoint is a circular geofence. It is immutable once created.
type Checkpoint struct {
	// ID is an opaque unique token.
	ID string `validate:"required" yaml:"id"`
	// Latitude of the center in signed decimal degrees.
	Latitude float64 `validate:"gte=-90,lte=90" yaml:"latitude"`
	// Longitude of the center in signed decimal degrees.
	Longitude float64 `validate:"gte=-180,lte=180" yaml:"longitude"`
	// RadiusMeters is the trigger radius around the center.
	RadiusMeters float64 `validate:"gt=0" yaml:"radius_meters"`
	// Label is the free-text name shown to the user.
	Label string `validate:"required" yaml:"label"`
	// CreatedAt records when the checkpoint entered the store.
	CreatedAt time.Time `validate:"-" yaml:"created_at"`
}

// CheckpointInput carries user-supplied fields for a new checkpoint.
// An empty ID asks the engine to generate one.
type CheckpointInput struct {
	ID           string
	Latitude     float64
	Longitude    float64
	RadiusMeters float64
	Label        string
}

// Normalize trims free-text fields in place.
func (in *CheckpointInput) Normalize() {
	in.ID = strings.TrimSpace(in.ID)
	in.Label = strings.TrimSpace(in.Label)
}

// Validate checks coordinate ranges, a finite positive radius and a non-empty label.
// Failures wrap ErrInvalidCheckpoint.
func (c *Checkpoint) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrors validator.ValidationErrors
		if errors.As(err, &fieldErrors) && len(fieldErrors) > 0 {
			first := fieldErrors[0]

			return fmt.Errorf("%w: %s failed %q", ErrInvalidCheckpoint, first.Field(), first.Tag())
		}

		return fmt.Errorf("%w: %w", ErrInvalidCheckpoint, err)
	}

	if math.IsInf(c.RadiusMeters, 0) {
		return fmt.Errorf("%w: radius must be finite", ErrInvalidCheckpoint)
	}

	if strings.TrimSpace(c.Label) == "" {
		return fmt.Errorf("%w: label is blank", ErrInvalidCheckpoint)
	}

	return nil
}

// Contains reports whether the point lies inside or on the checkpoint circle,
// given the distance from the center in meters.
func (c *Checkpoint) Contains(distanceMeters float64) bool {
	return distanceMeters <= c.RadiusMeters
}
