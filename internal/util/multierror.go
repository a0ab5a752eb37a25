package util

import (
	"strings"
)

// MultiError collects the errors of several independent checks.
type MultiError struct {
	Errors []error
}

// Collect adds err unless it is nil.
func (m *MultiError) Collect(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

// Empty reports whether no error was collected.
func (m *MultiError) Empty() bool {
	return len(m.Errors) == 0
}

// ToError returns nil if no error was collected and the MultiError itself otherwise.
func (m *MultiError) ToError() error {
	if m.Empty() {
		return nil
	}
	return m
}

func (m *MultiError) Error() string {
	messages := make([]string, 0, len(m.Errors))
	for _, err := range m.Errors {
		messages = append(messages, err.Error())
	}
	return strings.Join(messages, "\n")
}
