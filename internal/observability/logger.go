// Package observability provides structured logging helpers shared by the
// pipelines and the CLI.
package observability

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	// LogFieldTaskID is the field name for task ID.
	LogFieldTaskID = "task_id"
	// LogFieldAlgorithm is the field name for the vectorization algorithm.
	LogFieldAlgorithm = "algorithm"
	// LogFieldStage is the field name for the pipeline stage.
	LogFieldStage = "stage"
	// LogFieldDuration is the field name for duration in milliseconds.
	LogFieldDuration = "duration_ms"
	// LogFieldSentenceCount is the field name for sentence count.
	LogFieldSentenceCount = "sentence_count"
	// LogFieldCardCount is the field name for card count.
	LogFieldCardCount = "card_count"
)

// NewLogger builds the root logger. Dev mode logs human-readable text at
// debug level; prod logs JSON at info level.
func NewLogger(w io.Writer, dev bool) *slog.Logger {
	if dev {
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

// TaskContext carries per-task logging state through a pipeline run.
type TaskContext struct {
	TaskID    string
	Algorithm string
	StartTime time.Time
	Logger    *slog.Logger
}

// NewTaskContext creates a task context with a generated task ID.
func NewTaskContext(logger *slog.Logger, algorithm string) *TaskContext {
	return NewTaskContextWithID(logger, generateTaskID(), algorithm)
}

// NewTaskContextWithID creates a task context with a specific task ID.
func NewTaskContextWithID(logger *slog.Logger, taskID, algorithm string) *TaskContext {
	return &TaskContext{
		TaskID:    taskID,
		Algorithm: algorithm,
		StartTime: time.Now(),
		Logger:    logger,
	}
}

// Info logs an info message.
func (t *TaskContext) Info(msg string, attrs ...slog.Attr) {
	t.Logger.LogAttrs(context.Background(), slog.LevelInfo, msg, t.baseAttrsAppended(attrs...)...)
}

// Debug logs a debug message.
func (t *TaskContext) Debug(msg string, attrs ...slog.Attr) {
	t.Logger.LogAttrs(context.Background(), slog.LevelDebug, msg, t.baseAttrsAppended(attrs...)...)
}

// Warn logs a warning message.
func (t *TaskContext) Warn(msg string, attrs ...slog.Attr) {
	t.Logger.LogAttrs(context.Background(), slog.LevelWarn, msg, t.baseAttrsAppended(attrs...)...)
}

// Error logs an error message with the error.
func (t *TaskContext) Error(msg string, err error, attrs ...slog.Attr) {
	allAttrs := append(attrs, slog.String("error", err.Error()))
	t.Logger.LogAttrs(context.Background(), slog.LevelError, msg, t.baseAttrsAppended(allAttrs...)...)
}

// Duration returns the elapsed time since the task started.
func (t *TaskContext) Duration() time.Duration {
	return time.Since(t.StartTime)
}

// DurationMs returns the elapsed time in milliseconds.
func (t *TaskContext) DurationMs() int64 {
	return t.Duration().Milliseconds()
}

func (t *TaskContext) baseAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String(LogFieldTaskID, t.TaskID),
		slog.String(LogFieldAlgorithm, t.Algorithm),
	}
}

func (t *TaskContext) baseAttrsAppended(attrs ...slog.Attr) []slog.Attr {
	return append(t.baseAttrs(), attrs...)
}

func generateTaskID() string {
	return uuid.New().String()
}

type ctxKey struct{}

// WithTaskContext adds the task context to the context.
func WithTaskContext(ctx context.Context, taskCtx *TaskContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, taskCtx)
}

// FromContext extracts the task context from the context.
func FromContext(ctx context.Context) (*TaskContext, bool) {
	taskCtx, ok := ctx.Value(ctxKey{}).(*TaskContext)
	return taskCtx, ok
}
