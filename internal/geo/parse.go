package geo

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidCoordinate is returned when a string is neither decimal degrees nor DMS.
var ErrInvalidCoordinate = errors.New("invalid coordinate")

// dmsPattern matches values like 28° 36' 50.5" N or 77 12 32 E.
var dmsPattern = regexp.MustCompile(`^(\d+)[°\s]+(\d+)[′'\s]+([\d.]+)[″"\s]*([NSEWnsew])$`)

const (
	minutesPerDegree = 60
	secondsPerDegree = 3600
)

// ParseCoordinate converts a decimal ("28.61") or degrees-minutes-seconds
// ("28° 36' 50\" N") string into signed decimal degrees.
// South and west hemispheres produce negative values.
func ParseCoordinate(input string) (float64, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return 0, fmt.Errorf("%w: empty value", ErrInvalidCoordinate)
	}

	if value, err := strconv.ParseFloat(input, 64); err == nil {
		return value, nil
	}

	match := dmsPattern.FindStringSubmatch(input)
	if match == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCoordinate, input)
	}

	// The pattern guarantees numeric groups, so parse errors are impossible
	// except for malformed seconds like "1.2.3".
	degrees, _ := strconv.ParseFloat(match[1], 64)
	minutes, _ := strconv.ParseFloat(match[2], 64)

	seconds, err := strconv.ParseFloat(match[3], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: seconds in %q", ErrInvalidCoordinate, input)
	}

	value := degrees + minutes/minutesPerDegree + seconds/secondsPerDegree

	switch strings.ToUpper(match[4]) {
	case "S", "W":
		value = -value
	}

	return value, nil
}

// ParsePoint splits a "latitude,longitude" pair and parses both halves with
// ParseCoordinate.
func ParsePoint(input string) (latitude, longitude float64, err error) {
	first, second, ok := strings.Cut(input, ",")
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q is not a latitude,longitude pair", ErrInvalidCoordinate, input)
	}

	if latitude, err = ParseCoordinate(first); err != nil {
		return 0, 0, fmt.Errorf("latitude: %w", err)
	}

	if longitude, err = ParseCoordinate(second); err != nil {
		return 0, 0, fmt.Errorf("longitude: %w", err)
	}

	return latitude, longitude, nil
}
