package commands

import (
	"context"
	"errors"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

type testMessage struct{}

func (testMessage) Type() string { return "sitegen.test.message" }

func (testMessage) Validate() error { return nil }

type invalidMessage struct{}

func (invalidMessage) Type() string { return "sitegen.test.invalid" }

func (invalidMessage) Validate() error {
	return validationError()
}

func validationError() error {
	return errors.New("invalid")
}

func TestHandlerExecuteSuccess(t *testing.T) {
	called := false
	h := NewHandler[testMessage](func(ctx context.Context, msg testMessage) error {
		called = true
		return nil
	})

	if err := h.Execute(context.Background(), testMessage{}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !called {
		t.Fatal("expected handler to be invoked")
	}
}

func TestHandlerValidationShortCircuitsExecution(t *testing.T) {
	called := false
	h := NewHandler[invalidMessage](func(ctx context.Context, msg invalidMessage) error {
		called = true
		return nil
	})

	err := h.Execute(context.Background(), invalidMessage{})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !goerrors.IsCategory(err, goerrors.CategoryValidation) {
		t.Fatalf("expected validation category, got %v", err)
	}
	if called {
		t.Fatal("expected handler not to run when validation fails")
	}
}

func TestHandlerContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	h := NewHandler[testMessage](func(ctx context.Context, msg testMessage) error {
		called = true
		return nil
	})

	err := h.Execute(ctx, testMessage{})
	if err == nil {
		t.Fatal("expected context cancellation error")
	}
	if !goerrors.IsCategory(err, goerrors.CategoryCommand) {
		t.Fatalf("expected command category, got %v", err)
	}
	if called {
		t.Fatal("expected handler not to run when context is cancelled")
	}
}

func TestHandlerWrapsExecutionError(t *testing.T) {
	execErr := errors.New("boom")
	h := NewHandler[testMessage](func(ctx context.Context, msg testMessage) error {
		return execErr
	})

	err := h.Execute(context.Background(), testMessage{})
	if err == nil {
		t.Fatal("expected wrapped execution error")
	}
	if !goerrors.IsCategory(err, goerrors.CategoryCommand) {
		t.Fatalf("expected command category, got %v", err)
	}
	if !goerrors.HasCategory(err, goerrors.CategoryCommand) {
		t.Fatalf("expected command category to propagate, got %v", err)
	}
}

func TestHandlerHonoursTimeoutOption(t *testing.T) {
	h := NewHandler[testMessage](func(ctx context.Context, msg testMessage) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(20 * time.Millisecond):
			return nil
		}
	}, WithTimeout[testMessage](10*time.Millisecond))

	err := h.Execute(context.Background(), testMessage{})
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !goerrors.IsCategory(err, goerrors.CategoryCommand) {
		t.Fatalf("expected command category for timeout, got %v", err)
	}
}

func TestHandlerInvokesTelemetryOnSuccess(t *testing.T) {
	var captured TelemetryInfo
	invoked := false

	h := NewHandler[testMessage](func(ctx context.Context, msg testMessage) error {
		return nil
	},
		WithOperation[testMessage]("test.op"),
		WithMessageFields(func(testMessage) map[string]any {
			return map[string]any{"subject": "docs"}
		}),
		WithTelemetry[testMessage](func(_ context.Context, _ testMessage, info TelemetryInfo) {
			invoked = true
			captured = info
		}),
	)

	if err := h.Execute(context.Background(), testMessage{}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !invoked {
		t.Fatal("expected telemetry callback to run")
	}
	if captured.Status != TelemetryStatusSuccess {
		t.Fatalf("expected success status, got %s", captured.Status)
	}
	if captured.Command != "sitegen.test.message" {
		t.Fatalf("expected command type in telemetry, got %q", captured.Command)
	}
	if captured.Operation != "test.op" {
		t.Fatalf("expected operation in telemetry, got %q", captured.Operation)
	}
	if captured.Fields["subject"] != "docs" {
		t.Fatalf("expected message fields to reach telemetry, got %v", captured.Fields)
	}
	if captured.Error != nil {
		t.Fatalf("expected nil telemetry error, got %v", captured.Error)
	}
}

func TestHandlerInvokesTelemetryOnFailure(t *testing.T) {
	execErr := errors.New("boom")
	var captured TelemetryInfo

	h := NewHandler[testMessage](func(ctx context.Context, msg testMessage) error {
		return execErr
	}, WithTelemetry[testMessage](func(_ context.Context, _ testMessage, info TelemetryInfo) {
		captured = info
	}))

	err := h.Execute(context.Background(), testMessage{})
	if err == nil {
		t.Fatal("expected execution error")
	}
	if captured.Status != TelemetryStatusFailed {
		t.Fatalf("expected failed status, got %s", captured.Status)
	}
	if !errors.Is(captured.Error, execErr) {
		t.Fatalf("expected telemetry to carry the raw execution error, got %v", captured.Error)
	}
}
