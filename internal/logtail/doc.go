// Package logtail reads the tail of the crewsync log file for the logs
// command.
//
// Read extracts the last N lines with a ring buffer, so memory stays
// O(N) however large the file has grown. Parse decodes the JSON lines
// written by the logging package into an Entry; lines that are not JSON are
// passed through as plain messages. Tail combines both and filters by level.
//
//	entries, err := logtail.Tail(filepath.Join(cfg.LogDir, logging.LogFileName), 50, zapcore.WarnLevel)
//	for _, e := range entries {
//		fmt.Println(e)
//	}
package logtail
