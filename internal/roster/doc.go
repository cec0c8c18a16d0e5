// Package roster defines the schedule snapshot model and its wire codec.
//
// # Overview
//
// A Snapshot is one complete schedule as fetched from the crew API or read
// back from the local cache. It is an ordered list of Days, each keyed by a
// human readable day key ("Wed 08 Oct") and carrying an ordered list of
// Flights keyed by duty identifier.
//
// # Core Types
//
// Flight:
//   - One duty leg: duty key, route, departure and arrival time of day
//   - Optional check-in/out, aircraft and crew text
//   - Equal compares duty, route and times only
//
// Day:
//   - Calendar day joined to dates by Key
//   - Optional ISO date and duty type ("Day Off", "Standby")
//   - Flights is nil when the day has none
//
// Snapshot:
//   - Ordered days plus FetchedAt (UTC, whole seconds)
//   - Never mutated after construction; Clone hands out deep copies
//
// # Wire Shapes
//
// The crew API answers in one of two layouts:
//
//	[ {"day": "Wed 08 Oct", "flights": [...]}, ... ]
//	{"schedule": [ {"day": "Wed 08 Oct", "flights": [...]}, ... ]}
//
// Decode tries the bare array first and the wrapped object second. The first
// shape that decodes wins. When both fail the returned *DecodeError carries
// one ShapeError per attempt:
//
//	var decErr *roster.DecodeError
//	if errors.As(err, &decErr) {
//	    decErr.Cause(roster.ShapeArray)   // why the array shape failed
//	    decErr.Cause(roster.ShapeWrapped) // why the wrapper failed
//	}
//
// # Field Rules
//
//   - day: required string
//   - date, dutyType, flights: optional
//   - duty, origin, destination, depTime, arrivalTime: required strings
//   - checkIn, checkOut, aircraft, cockpitCrew, cabinCrew: optional strings
//
// A missing or null optional field decodes as the empty string. A value of
// the wrong JSON type is an error regardless of whether the field is
// optional. Day keys must be unique within a snapshot and duty keys unique
// within a day. Unknown fields are ignored.
//
// Error messages carry the path of the offending value:
//
//	day[0]: flights[1]: depTime: missing required field
//	schedule: day[2]: "Wed 08 Oct" already at day[1]: duplicate key
//
// # Encoding
//
// Encode writes the array shape; it is also the on-disk cache format.
// EncodeWrapped writes the object shape. Decoding either output with the
// same FetchedAt yields a snapshot equal to the input.
package roster
