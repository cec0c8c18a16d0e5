// Package crewapi provides the HTTP client for the crew schedule endpoint.
//
// # Overview
//
// The crew API exposes a single schedule endpoint. A request is one POST with
// a small JSON body naming the user:
//
//	POST /roster
//	Content-Type: application/json
//
//	{"userId": "12345"}
//
// The response body is returned untouched; decoding lives in package roster
// because the API answers in more than one shape.
//
// # Request Handling
//
// All requests:
//   - Use context for cancellation and timeout control
//   - Set Content-Type and Accept to application/json
//   - Include User-Agent: crewsync/<version>
//   - Carry a fresh X-Request-ID for correlating server logs
//   - Have a 20-second timeout (configurable via WithTimeout)
//
// Fetch issues exactly one request per call and never retries. Retrying is
// the caller's decision, made by calling Fetch again.
//
// # Error Handling
//
// Transport failures and responses with status >= 400 are reported as
// *NetworkError. Use errors.As to inspect the status code:
//
//	var netErr *crewapi.NetworkError
//	if errors.As(err, &netErr) && netErr.StatusCode == http.StatusUnauthorized {
//		...
//	}
//
// Cancelling the context aborts an in-flight request; the resulting error
// wraps context.Canceled or context.DeadlineExceeded.
package crewapi
