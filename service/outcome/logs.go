package outcome

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// InvalidChar is a disallowed character and its rune offset within the line.
// It serializes as the pair [offset, "c"].
type InvalidChar struct {
	Offset int
	Char   rune
}

func (c InvalidChar) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{c.Offset, string(c.Char)})
}

func (c *InvalidChar) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("invalid char: expected [offset, char], got %d elements", len(pair))
	}
	var s string
	if err := json.Unmarshal(pair[0], &c.Offset); err != nil {
		return fmt.Errorf("invalid char offset: %w", err)
	}
	if err := json.Unmarshal(pair[1], &s); err != nil {
		return fmt.Errorf("invalid char value: %w", err)
	}
	if utf8.RuneCountInString(s) != 1 {
		return fmt.Errorf("invalid char value %q: expected a single character", s)
	}
	c.Char, _ = utf8.DecodeRuneInString(s)
	return nil
}

// LogEntry is a log line with the characters that fall outside the allow-list.
type LogEntry struct {
	Message         string        `json:"message"`
	HasInvalidChars bool          `json:"has_invalid_chars"`
	InvalidChars    []InvalidChar `json:"invalid_chars"`
}

// sanitizeLogs scans every line; it never alters or drops text.
func sanitizeLogs(lines []string) []LogEntry {
	entries := make([]LogEntry, 0, len(lines))
	for _, line := range lines {
		entries = append(entries, sanitizeLine(line))
	}
	return entries
}

func sanitizeLine(line string) LogEntry {
	invalid := []InvalidChar{}
	offset := 0
	for _, r := range line {
		if !allowedLogRune(r) {
			invalid = append(invalid, InvalidChar{Offset: offset, Char: r})
		}
		offset++
	}
	return LogEntry{
		Message:         line,
		HasInvalidChars: len(invalid) > 0,
		InvalidChars:    invalid,
	}
}

// allowedLogRune accepts ASCII letters, ASCII digits, space and square
// brackets. Anything else, Unicode look-alikes included, is suspicious.
func allowedLogRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == ' ', r == '[', r == ']':
		return true
	}
	return false
}
