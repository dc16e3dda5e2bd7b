package main

import (
	"os"
	"strings"
	"testing"
)

// TestRunFunction tests the run() function with different argument scenarios
func TestRunFunction(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		expectError bool
		description string
	}{
		{
			name:        "help command success",
			args:        []string{"gh-formbridge", "--help"},
			expectError: false,
			description: "Help command should not return an error",
		},
		{
			name:        "version command success",
			args:        []string{"gh-formbridge", "version"},
			expectError: false,
			description: "Version command should not return an error",
		},
		{
			name:        "nonexistent command error",
			args:        []string{"gh-formbridge", "nonexistent-command"},
			expectError: true,
			description: "Nonexistent command should return error with unknown command message",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			originalArgs := os.Args
			defer func() { os.Args = originalArgs }()

			os.Args = tt.args

			err := run()

			if tt.expectError && err == nil {
				t.Errorf("%s: expected error but got none", tt.description)
			}

			if !tt.expectError && err != nil {
				t.Errorf("%s: expected no error but got: %v", tt.description, err)
			}

			if tt.name == "nonexistent command error" && err != nil {
				if !strings.Contains(err.Error(), "unknown command") {
					t.Errorf("Expected 'unknown command' error, got: %v", err)
				}
			}
		})
	}
}
