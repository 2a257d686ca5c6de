// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package terminal

import (
	"fmt"
	"strings"
)

// MockRenderer records output and marks colors as [name]text[reset].
type MockRenderer struct {
	Output []string
	TTY    bool
}

func NewMockRenderer() *MockRenderer {
	return &MockRenderer{TTY: true}
}

func (m *MockRenderer) Printf(format string, a ...any) {
	m.Output = append(m.Output, fmt.Sprintf(format, a...))
}

func (m *MockRenderer) Println(a ...any) {
	m.Output = append(m.Output, fmt.Sprintln(a...))
}

func (m *MockRenderer) Colorize(text, color string) string {
	if !m.TTY {
		return text
	}
	return "[" + color + "]" + text + "[reset]"
}

func (m *MockRenderer) Success() string { return m.Colorize("[OK]", Green) }
func (m *MockRenderer) Warning() string { return m.Colorize("[!]", Yellow) }
func (m *MockRenderer) Error() string   { return m.Colorize("[X]", Red) }

func (m *MockRenderer) IsTTY() bool {
	return m.TTY
}

func (m *MockRenderer) AllOutput() string {
	return strings.Join(m.Output, "")
}
