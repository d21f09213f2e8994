package logging

import (
	"errors"
	"log/slog"
	"testing"
)

func TestWithOperation(t *testing.T) {
	logger := slog.Default()
	result := WithOperation(logger, "test_operation")
	if result == nil {
		t.Error("WithOperation returned nil")
	}
}

func TestWithTool(t *testing.T) {
	logger := slog.Default()
	result := WithTool(logger, "test_tool")
	if result == nil {
		t.Error("WithTool returned nil")
	}
}

func TestWithAccount(t *testing.T) {
	logger := slog.Default()
	result := WithAccount(logger, "work")
	if result == nil {
		t.Error("WithAccount returned nil")
	}
}

func TestOperationAttr(t *testing.T) {
	attr := Operation("test_op")
	if attr.Key != KeyOperation {
		t.Errorf("Operation key = %q, want %q", attr.Key, KeyOperation)
	}
	if attr.Value.String() != "test_op" {
		t.Errorf("Operation value = %q, want %q", attr.Value.String(), "test_op")
	}
}

func TestLabelAttr(t *testing.T) {
	attr := Label("Security Alerts 🚨")
	if attr.Key != KeyLabel {
		t.Errorf("Label key = %q, want %q", attr.Key, KeyLabel)
	}
	if attr.Value.String() != "Security Alerts 🚨" {
		t.Errorf("Label value = %q, want %q", attr.Value.String(), "Security Alerts 🚨")
	}
}

func TestSourceAttr(t *testing.T) {
	attr := Source("centroid")
	if attr.Key != KeySource {
		t.Errorf("Source key = %q, want %q", attr.Key, KeySource)
	}
	if attr.Value.String() != "centroid" {
		t.Errorf("Source value = %q, want %q", attr.Value.String(), "centroid")
	}
}

func TestErrAttr(t *testing.T) {
	err := errors.New("boom")
	attr := Err(err)
	if attr.Key != KeyError {
		t.Errorf("Err key = %q, want %q", attr.Key, KeyError)
	}
	if attr.Value.String() != "boom" {
		t.Errorf("Err value = %q, want %q", attr.Value.String(), "boom")
	}
}

func TestErrAttrNil(t *testing.T) {
	attr := Err(nil)
	// Nil errors become an empty group that slog omits from output.
	if attr.Key != "" {
		t.Errorf("Err(nil) key = %q, want empty", attr.Key)
	}
}

func TestAnonymizeSender(t *testing.T) {
	tests := []struct {
		name   string
		sender string
		empty  bool
	}{
		{name: "regular address", sender: "alerts@example.com"},
		{name: "display name form", sender: "Example Alerts <alerts@example.com>"},
		{name: "empty", sender: "", empty: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AnonymizeSender(tt.sender)
			if tt.empty {
				if got != "" {
					t.Errorf("AnonymizeSender(%q) = %q, want empty", tt.sender, got)
				}
				return
			}
			if got == tt.sender {
				t.Errorf("AnonymizeSender(%q) did not anonymize", tt.sender)
			}
			if got != AnonymizeSender(tt.sender) {
				t.Error("AnonymizeSender is not deterministic")
			}
		})
	}
}
