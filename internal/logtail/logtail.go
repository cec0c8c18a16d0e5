package logtail

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap/zapcore"

	"github.com/five82/crewsync/internal/logging"
)

// Read returns at most maxLines from the end of the file at path. A
// non-positive maxLines returns every line. A missing file yields no lines.
func Read(path string, maxLines int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer func() { _ = file.Close() }()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if maxLines <= 0 {
		var lines []string
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read log: %w", err)
		}
		return lines, nil
	}

	ring := make([]string, maxLines)
	count := 0
	idx := 0
	for scanner.Scan() {
		ring[idx] = scanner.Text()
		idx = (idx + 1) % maxLines
		if count < maxLines {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	lines := make([]string, count)
	if count == maxLines {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%maxLines]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, nil
}

// Entry is one decoded log line. Lines that are not JSON objects keep their
// text in Message with an empty Level.
type Entry struct {
	Timestamp string
	Level     string
	Message   string
	Fields    map[string]any
}

// Parse decodes a JSON log line written by the logging package.
func Parse(line string) Entry {
	var raw map[string]any
	if err := json.Unmarshal([]byte(line), &raw); err != nil || raw == nil {
		return Entry{Message: line}
	}
	e := Entry{Fields: map[string]any{}}
	for k, v := range raw {
		switch k {
		case "timestamp":
			e.Timestamp = fmt.Sprint(v)
		case "level":
			e.Level = fmt.Sprint(v)
		case "msg":
			e.Message = fmt.Sprint(v)
		default:
			e.Fields[k] = v
		}
	}
	return e
}

// Severity maps Level to a zap level. Unstructured lines count as info.
func (e Entry) Severity() zapcore.Level {
	return logging.ParseLevel(e.Level)
}

// String renders the entry as one human readable line with fields sorted
// by key.
func (e Entry) String() string {
	if e.Level == "" && e.Timestamp == "" {
		return e.Message
	}
	var b strings.Builder
	b.WriteString(e.Timestamp)
	b.WriteString(" ")
	b.WriteString(fmt.Sprintf("%-5s", strings.ToUpper(e.Level)))
	b.WriteString(" ")
	b.WriteString(e.Message)

	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString(" ")
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(formatValue(e.Fields[k]))
	}
	return b.String()
}

func formatValue(v any) string {
	switch val := v.(type) {
	case string:
		if strings.ContainsAny(val, " \t\n=") {
			return fmt.Sprintf("%q", val)
		}
		return val
	case float64:
		return fmt.Sprintf("%g", val)
	default:
		raw, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(raw)
	}
}

// Tail reads the last maxLines of path and keeps entries at or above
// minLevel.
func Tail(path string, maxLines int, minLevel zapcore.Level) ([]Entry, error) {
	lines, err := Read(path, maxLines)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		e := Parse(line)
		if e.Severity() < minLevel {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}
