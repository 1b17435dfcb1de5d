// Package ubl generates and checks UBL 2.1 invoice documents. The
// validator is structural: well-formed XML, the Invoice-2 root, the
// mandatory fields and the line items. It is not a schema validation.
package ubl

import "fmt"

// Level classifies a validation message.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Message is one finding of the validator.
type Message struct {
	Level Level  `json:"level"`
	Text  string `json:"text"`
}

// Report is the outcome of a validation run. Valid stays true until
// the first error-level message.
type Report struct {
	Valid    bool      `json:"valid"`
	Messages []Message `json:"messages"`
}

func (r *Report) add(level Level, format string, args ...any) {
	r.Messages = append(r.Messages, Message{Level: level, Text: fmt.Sprintf(format, args...)})
}

func (r *Report) fail(format string, args ...any) {
	r.add(LevelError, format, args...)
	r.Valid = false
}

// Errors returns the error-level messages.
func (r *Report) Errors() []Message {
	var out []Message
	for _, m := range r.Messages {
		if m.Level == LevelError {
			out = append(out, m)
		}
	}
	return out
}
