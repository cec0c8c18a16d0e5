package roster

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// WrapperField names the object field that holds the day array in the
// wrapped response shape.
const WrapperField = "schedule"

var (
	// ErrMissingField marks a required field that is absent or null.
	ErrMissingField = errors.New("missing required field")
	// ErrDuplicateKey marks a repeated day key or duty key.
	ErrDuplicateKey = errors.New("duplicate key")
)

// Shape names one accepted response layout.
type Shape string

const (
	ShapeArray   Shape = "array"
	ShapeWrapped Shape = "wrapped"
)

// ShapeError records why one shape could not be decoded.
type ShapeError struct {
	Shape Shape
	Err   error
}

func (e ShapeError) Error() string {
	return fmt.Sprintf("%s: %v", e.Shape, e.Err)
}

func (e ShapeError) Unwrap() error {
	return e.Err
}

// DecodeError is returned when no accepted shape matched. It keeps one
// ShapeError per attempt, in attempt order.
type DecodeError struct {
	Attempts []ShapeError
}

func (e *DecodeError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, a.Error())
	}
	return "decode schedule: " + strings.Join(parts, "; ")
}

func (e *DecodeError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		errs = append(errs, a)
	}
	return errs
}

// Cause returns the failure recorded for shape, or nil.
func (e *DecodeError) Cause(shape Shape) error {
	for _, a := range e.Attempts {
		if a.Shape == shape {
			return a.Err
		}
	}
	return nil
}

type decodeAttempt struct {
	shape  Shape
	decode func([]byte) ([]Day, error)
}

var decodeAttempts = []decodeAttempt{
	{shape: ShapeArray, decode: decodeArray},
	{shape: ShapeWrapped, decode: decodeWrapped},
}

// Decode turns a response body into a Snapshot stamped with fetchedAt. The
// bare array shape is tried first, then the wrapped object shape.
func Decode(raw []byte, fetchedAt time.Time) (Snapshot, error) {
	failures := make([]ShapeError, 0, len(decodeAttempts))
	for _, attempt := range decodeAttempts {
		days, err := attempt.decode(raw)
		if err == nil {
			return NewSnapshot(days, fetchedAt), nil
		}
		failures = append(failures, ShapeError{Shape: attempt.shape, Err: err})
	}
	return Snapshot{}, &DecodeError{Attempts: failures}
}

func decodeArray(raw []byte) ([]Day, error) {
	if isNull(raw) {
		return nil, fmt.Errorf("document is null")
	}
	return decodeDays(raw)
}

func decodeWrapped(raw []byte) ([]Day, error) {
	var obj object
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("expected object: %w", err)
	}
	if obj == nil {
		return nil, fmt.Errorf("document is null")
	}
	inner, ok := obj[WrapperField]
	if !ok || isNull(inner) {
		return nil, fmt.Errorf("%s: %w", WrapperField, ErrMissingField)
	}
	days, err := decodeDays(inner)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", WrapperField, err)
	}
	return days, nil
}

func decodeDays(raw []byte) ([]Day, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("expected array of days: %w", err)
	}
	if len(items) == 0 {
		return nil, nil
	}

	days := make([]Day, 0, len(items))
	seen := make(map[string]int, len(items))
	for i, item := range items {
		day, err := decodeDay(item)
		if err != nil {
			return nil, fmt.Errorf("day[%d]: %w", i, err)
		}
		if first, dup := seen[day.Key]; dup {
			return nil, fmt.Errorf("day[%d]: %q already at day[%d]: %w", i, day.Key, first, ErrDuplicateKey)
		}
		seen[day.Key] = i
		days = append(days, day)
	}
	return days, nil
}

func decodeDay(raw json.RawMessage) (Day, error) {
	obj, err := decodeObject(raw)
	if err != nil {
		return Day{}, err
	}

	var day Day
	if day.Key, err = obj.requiredString("day"); err != nil {
		return Day{}, err
	}
	if day.Date, err = obj.optionalString("date"); err != nil {
		return Day{}, err
	}
	if day.DutyType, err = obj.optionalString("dutyType"); err != nil {
		return Day{}, err
	}
	if day.Flights, err = obj.flights("flights"); err != nil {
		return Day{}, err
	}
	return day, nil
}

func decodeFlight(raw json.RawMessage) (Flight, error) {
	obj, err := decodeObject(raw)
	if err != nil {
		return Flight{}, err
	}

	var f Flight
	required := []struct {
		name string
		dst  *string
	}{
		{"duty", &f.Duty},
		{"origin", &f.Origin},
		{"destination", &f.Destination},
		{"depTime", &f.DepTime},
		{"arrivalTime", &f.ArrivalTime},
	}
	for _, field := range required {
		if *field.dst, err = obj.requiredString(field.name); err != nil {
			return Flight{}, err
		}
	}

	optional := []struct {
		name string
		dst  *string
	}{
		{"checkIn", &f.CheckIn},
		{"checkOut", &f.CheckOut},
		{"aircraft", &f.Aircraft},
		{"cockpitCrew", &f.CockpitCrew},
		{"cabinCrew", &f.CabinCrew},
	}
	for _, field := range optional {
		if *field.dst, err = obj.optionalString(field.name); err != nil {
			return Flight{}, err
		}
	}
	return f, nil
}

// object is a JSON object decoded one level deep so each field can be
// checked for presence and type independently.
type object map[string]json.RawMessage

func decodeObject(raw json.RawMessage) (object, error) {
	if isNull(raw) {
		return nil, fmt.Errorf("expected object, got null")
	}
	var obj object
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("expected object: %w", err)
	}
	return obj, nil
}

func (o object) requiredString(name string) (string, error) {
	raw, ok := o[name]
	if !ok || isNull(raw) {
		return "", fmt.Errorf("%s: %w", name, ErrMissingField)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return s, nil
}

func (o object) optionalString(name string) (string, error) {
	raw, ok := o[name]
	if !ok || isNull(raw) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return s, nil
}

func (o object) flights(name string) ([]Flight, error) {
	raw, ok := o[name]
	if !ok || isNull(raw) {
		return nil, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if len(items) == 0 {
		return nil, nil
	}

	flights := make([]Flight, 0, len(items))
	seen := make(map[string]int, len(items))
	for i, item := range items {
		f, err := decodeFlight(item)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", name, i, err)
		}
		if first, dup := seen[f.Duty]; dup {
			return nil, fmt.Errorf("%s[%d]: duty %q already at %s[%d]: %w", name, i, f.Duty, name, first, ErrDuplicateKey)
		}
		seen[f.Duty] = i
		flights = append(flights, f)
	}
	return flights, nil
}

func isNull(raw []byte) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
