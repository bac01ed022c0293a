package commands

import (
	"context"
	"time"

	"github.com/goliatone/go-sitegen/internal/logging"
	"github.com/goliatone/go-sitegen/pkg/interfaces"
	command "github.com/goliatone/go-command"
)

// HandlerOption configures a Handler instance.
type HandlerOption[T command.Message] func(*Handler[T])

// Handler wraps command execution with shared runtime concerns (context,
// logging, error tagging, telemetry).
type Handler[T command.Message] struct {
	exec          command.CommandFunc[T]
	logger        interfaces.Logger
	timeout       time.Duration
	operation     string
	messageFields func(T) map[string]any
	telemetry     Telemetry[T]
}

// NewHandler creates a handler that satisfies go-command's Commander interface
// while applying validation, logging, and timeout enforcement.
func NewHandler[T command.Message](fn command.CommandFunc[T], opts ...HandlerOption[T]) *Handler[T] {
	if fn == nil {
		panic("commands: handler function cannot be nil")
	}
	h := &Handler[T]{
		exec:    fn,
		logger:  logging.NoOp(),
		timeout: DefaultCommandTimeout,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Execute conforms to command.Commander[T].Execute and applies validation,
// context management, logging, and error categorisation before delegating to
// the wrapped function.
func (h *Handler[T]) Execute(ctx context.Context, msg T) error {
	if err := command.ValidateMessage(msg); err != nil {
		return wrapValidationError(err)
	}

	ctx = EnsureContext(ctx)
	ctx, cancel := WithCommandTimeout(ctx, h.timeout)
	defer cancel()

	if err := ctx.Err(); err != nil {
		return wrapContextError(err)
	}

	messageType := command.GetMessageType(msg)
	fields := map[string]any{
		"command": messageType,
	}
	if h.operation != "" {
		fields["operation"] = h.operation
	}
	if h.messageFields != nil {
		for key, value := range h.messageFields(msg) {
			if key == "" {
				continue
			}
			fields[key] = value
		}
	}
	logger := logging.WithFields(h.logger, fields)
	logger.Debug("command.execute.start")

	start := time.Now()
	execErr := h.exec(ctx, msg)
	duration := time.Since(start)

	status := TelemetryStatusSuccess
	var resultErr error
	if execErr != nil {
		status = TelemetryStatusFailed
		resultErr = wrapExecuteError(execErr)
	} else if ctxErr := ctx.Err(); ctxErr != nil {
		status = TelemetryStatusContextError
		execErr = ctxErr
		resultErr = wrapContextError(ctxErr)
	}

	info := TelemetryInfo{
		Command:   messageType,
		Operation: h.operation,
		Fields:    fields,
		Duration:  duration,
		Error:     execErr,
		Status:    status,
		Logger:    logger,
	}
	if h.telemetry != nil {
		h.telemetry(ctx, msg, info)
	} else {
		logOutcome(logger, info)
	}
	return resultErr
}

// WithTimeout overrides the default execution timeout.
func WithTimeout[T command.Message](timeout time.Duration) HandlerOption[T] {
	return func(h *Handler[T]) {
		if timeout <= 0 {
			h.timeout = 0
			return
		}
		h.timeout = timeout
	}
}

// WithLogger injects the logger used during execution. Defaults to a no-op logger.
func WithLogger[T command.Message](logger interfaces.Logger) HandlerOption[T] {
	return func(h *Handler[T]) {
		h.logger = EnsureLogger(logger)
	}
}

// WithOperation sets a human-friendly operation name emitted with every log entry.
func WithOperation[T command.Message](operation string) HandlerOption[T] {
	return func(h *Handler[T]) {
		h.operation = operation
	}
}

// WithMessageFields derives structured log fields from the message under
// execution. Derived fields join the command/operation fields on every entry.
func WithMessageFields[T command.Message](fn func(T) map[string]any) HandlerOption[T] {
	return func(h *Handler[T]) {
		h.messageFields = fn
	}
}

// WithTelemetry registers a callback invoked after every execution with the
// outcome. When set, the callback owns outcome reporting; the handler only
// emits its start entry.
func WithTelemetry[T command.Message](telemetry Telemetry[T]) HandlerOption[T] {
	return func(h *Handler[T]) {
		h.telemetry = telemetry
	}
}

func logOutcome(logger interfaces.Logger, info TelemetryInfo) {
	switch info.Status {
	case TelemetryStatusSuccess:
		logger.Info("command.execute.success")
	case TelemetryStatusContextError:
		logger.Error("command.execute.context_error", "error", info.Error)
	default:
		logger.Error("command.execute.failed", "error", info.Error)
	}
}
