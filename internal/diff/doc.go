// Package diff detects changes to the tracked day's flights between two
// schedule snapshots.
//
// # Overview
//
// Comparison is scoped to a single day key, the tracked day. Other days may
// change freely without producing a change record. The result is a list of
// Change values in the current day's flight order, plus a Summary that turns
// the list into notification text.
//
// # Algorithm
//
//  1. Locate the tracked day in the previous snapshot. Absent → no changes.
//  2. Locate it in the current snapshot. Absent, or no flights → no changes.
//  3. Index the previous day's flights by duty key.
//  4. Walk the current day's flights in order:
//     - duty key unknown before → IsNew, both times flagged
//     - departure differs → IsNewDepTime, OldDepTime set
//     - arrival differs → IsNewArrivalTime, OldArrivalTime set
//     - neither differs → no record
//
// Departure and arrival are compared independently, so one record can carry
// both. A previous day that exists but has no flights makes every current
// flight new. Flights removed from the current day are not reported.
//
// # Example
//
//	previous Wed 08 Oct: DY600 04:45-07:45
//	current  Wed 08 Oct: DY600 05:15-07:45, DY633 13:00-13:55
//
//	Compare → [
//	    {Flight: DY600, IsNewDepTime: true, OldDepTime: "04:45"},
//	    {Flight: DY633, IsNew: true, IsNewDepTime: true, IsNewArrivalTime: true},
//	]
//
// # Summaries
//
// Summarize renders a title and one line per change:
//
//	Schedule change on Wed 08 Oct: 2 flights updated
//	DY600 OSL-BGO departs 05:15 (was 04:45)
//	DY633 TRD-OSL added, departs 13:00 arrives 13:55
//
// An empty change list yields an empty Summary; hosts check Empty before
// notifying.
//
// # Purity
//
// Compare and Summarize do no I/O and hold no state. The same pair of
// snapshots always yields the same result, which lets the engine run them
// outside any lock.
package diff
