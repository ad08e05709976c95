package logging

// LogEntry represents a structured log record with fields relevant to
// evolutionary runs.
type LogEntry struct {
	// Standard fields
	Time     int64
	Severity Severity
	Message  string
	File     string
	Line     int
	Function string

	// Run-specific fields
	RunID      string // The evolution run this record belongs to
	Generation int    // Generation index, -1 when not applicable

	// General structured data
	Fields map[string]interface{}
}
