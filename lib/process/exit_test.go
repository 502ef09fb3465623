// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
)

type codedError struct{ code int }

func (e codedError) Error() string { return fmt.Sprintf("exit %d", e.code) }
func (e codedError) ExitCode() int { return e.code }

func TestReport(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantLine string
	}{
		{"plain error", errors.New("no context configured"), 1, "error: no context configured\n"},
		{"coded error", codedError{code: 3}, 3, "error: exit 3\n"},
		{"wrapped coded error", fmt.Errorf("start: %w", codedError{code: 4}), 4, "error: start: exit 4\n"},
		{"zero code falls back", codedError{code: 0}, 1, "error: exit 0\n"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var output bytes.Buffer
			if code := report(&output, test.err); code != test.wantCode {
				t.Errorf("exit code = %d, want %d", code, test.wantCode)
			}
			if output.String() != test.wantLine {
				t.Errorf("output = %q, want %q", output.String(), test.wantLine)
			}
		})
	}
}
