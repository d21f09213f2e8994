package instrumentation

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

const (
	testAccount      = "work"
	testToolClassify = "labeler_classify_inbox"
	testToolDecision = "labeler_record_decision"
)

func TestToolInvocation_NewAndComplete(t *testing.T) {
	ti := NewToolInvocation(testToolClassify)

	if ti.Tool != testToolClassify {
		t.Errorf("Tool = %q, want %q", ti.Tool, testToolClassify)
	}
	if ti.StartTime.IsZero() {
		t.Error("StartTime should not be zero")
	}

	ti.CompleteSuccess()

	if !ti.Success {
		t.Error("Success should be true")
	}
	if ti.Duration < 0 {
		t.Error("Duration should not be negative")
	}
	if ti.Error != "" {
		t.Errorf("Error should be empty, got %q", ti.Error)
	}
}

func TestToolInvocation_CompleteWithError(t *testing.T) {
	ti := NewToolInvocation(testToolDecision)
	err := errors.New("permission denied")

	ti.CompleteWithError(err)

	if ti.Success {
		t.Error("Success should be false")
	}
	if ti.Error != "permission denied" {
		t.Errorf("Error = %q, want %q", ti.Error, "permission denied")
	}
}

func TestToolInvocation_Status(t *testing.T) {
	ti := NewToolInvocation(testToolClassify)

	ti.Complete(true, nil)
	if ti.Status() != StatusSuccess {
		t.Errorf("Status() = %q, want %q", ti.Status(), StatusSuccess)
	}

	ti.Complete(false, errors.New("boom"))
	if ti.Status() != StatusError {
		t.Errorf("Status() = %q, want %q", ti.Status(), StatusError)
	}
}

func TestToolInvocation_LogAttrs(t *testing.T) {
	ti := NewToolInvocation(testToolClassify).
		WithAccount(testAccount).
		WithOperation(OperationList)
	ti.CompleteSuccess()

	attrs := ti.LogAttrs()

	keys := make(map[string]bool)
	for _, a := range attrs {
		keys[a.Key] = true
	}
	for _, want := range []string{"tool", "duration", "success", "account", "operation"} {
		if !keys[want] {
			t.Errorf("LogAttrs() missing key %q", want)
		}
	}
}

func TestToolInvocation_DefaultAccountOmitted(t *testing.T) {
	ti := NewToolInvocation(testToolClassify).WithAccount("default")
	ti.CompleteSuccess()

	for _, a := range ti.LogAttrs() {
		if a.Key == "account" {
			t.Error("default account should be omitted from log attrs")
		}
	}
}

func auditLogOutput(t *testing.T, includePII bool, fn func(al *AuditLogger)) string {
	t.Helper()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	al := NewAuditLoggerWithConfig(logger, AuditLoggingConfig{
		Enabled:    true,
		IncludePII: includePII,
	})
	fn(al)
	return buf.String()
}

func TestAuditLogger_LogLabelDecisionAnonymizesSender(t *testing.T) {
	decision := &LabelDecision{
		MessageID: "msg-1",
		Sender:    "jane@example.com",
		Label:     "Finance",
		Source:    "centroid",
		Approved:  true,
		Applied:   true,
	}

	out := auditLogOutput(t, false, func(al *AuditLogger) {
		al.LogLabelDecision(decision)
	})

	if strings.Contains(out, "jane@example.com") {
		t.Error("sender address must not appear in anonymized audit log")
	}
	if !strings.Contains(out, "label_decision") {
		t.Error("expected label_decision event in log output")
	}
	if !strings.Contains(out, "decision=approved") {
		t.Errorf("expected approved decision in log output, got %s", out)
	}
}

func TestAuditLogger_LogLabelDecisionWithPII(t *testing.T) {
	decision := &LabelDecision{
		MessageID: "msg-1",
		Sender:    "jane@example.com",
		Label:     "Spam",
		Source:    "llm",
		Approved:  false,
	}

	out := auditLogOutput(t, true, func(al *AuditLogger) {
		al.LogLabelDecision(decision)
	})

	if !strings.Contains(out, "jane@example.com") {
		t.Error("expected sender address in PII audit log")
	}
	if !strings.Contains(out, "decision=rejected") {
		t.Errorf("expected rejected decision in log output, got %s", out)
	}
}

func TestAuditLogger_Disabled(t *testing.T) {
	out := auditLogOutput(t, false, func(al *AuditLogger) {
		al.SetEnabled(false)
		al.LogLabelDecision(&LabelDecision{MessageID: "msg-1", Label: "Finance"})
		al.LogToolInvocation(NewToolInvocation(testToolClassify).CompleteSuccess())
	})

	if out != "" {
		t.Errorf("disabled audit logger must not write, got %s", out)
	}
}

func TestAuditLogger_LogToolInvocation(t *testing.T) {
	out := auditLogOutput(t, false, func(al *AuditLogger) {
		al.LogToolInvocation(NewToolInvocation(testToolClassify).CompleteSuccess())
		al.LogToolInvocation(NewToolInvocation(testToolDecision).CompleteWithError(errors.New("boom")))
	})

	if !strings.Contains(out, "tool_executed") {
		t.Error("expected tool_executed event")
	}
	if !strings.Contains(out, "tool_failed") {
		t.Error("expected tool_failed event")
	}
}
