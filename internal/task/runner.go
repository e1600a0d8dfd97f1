package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/babelpdf/babelpdf-api/internal/domain"
	"github.com/babelpdf/babelpdf-api/internal/translator"
)

// HistoryAppender records finished tasks in the owner's history.
type HistoryAppender interface {
	AppendHistory(username string, entry domain.HistoryEntry) error
}

// Spec describes one unit of translation work.
type Spec struct {
	TaskID     string
	Owner      string
	SourcePath string
	Filename   string // original upload filename, recorded in history
	OutputDir  string
	Settings   map[string]any
}

// Runner executes translation tasks in the background. Each Launch spawns
// one detached goroutine whose cancel handle is retained in the registry,
// so shutdown can stop in-flight work instead of abandoning it. Failures
// never propagate to the HTTP caller; they surface only through the task's
// polled status.
type Runner struct {
	registry *Registry
	engine   translator.Translator
	history  HistoryAppender
	logger   *slog.Logger
	wg       sync.WaitGroup
}

// NewRunner creates a Runner.
func NewRunner(registry *Registry, engine translator.Translator, history HistoryAppender, logger *slog.Logger) *Runner {
	return &Runner{
		registry: registry,
		engine:   engine,
		history:  history,
		logger:   logger,
	}
}

// Launch starts the task in the background. The task must already exist in
// the registry in the queued state.
func (r *Runner) Launch(spec Spec) {
	ctx, cancel := context.WithCancel(context.Background())
	r.registry.AttachCancel(spec.TaskID, cancel)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer cancel()
		r.run(ctx, spec)
	}()
}

// Wait blocks until all launched tasks have finished. Used on shutdown,
// after CancelAll, and in tests.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// run drives one task to a terminal state.
func (r *Runner) run(ctx context.Context, spec Spec) {
	log := r.logger.With("task_id", spec.TaskID, "username", spec.Owner)

	// A panicking engine must not take the process down; the task fails
	// and stays inspectable.
	defer func() {
		if p := recover(); p != nil {
			log.Error("translation panicked", "panic", p)
			r.markFailed(log, spec.TaskID, fmt.Sprintf("Translation failed: internal error: %v", p))
		}
	}()

	if err := r.registry.Update(spec.TaskID, func(t *domain.Task) {
		t.Status = domain.TaskStatusProcessing
		t.Message = "Translation in progress"
	}); err != nil {
		log.Error("failed to mark task processing", "error", err)
		return
	}

	log.Info("starting translation")

	result, err := r.engine.Translate(ctx, translator.Request{
		SourcePath: spec.SourcePath,
		OutputDir:  spec.OutputDir,
		Settings:   spec.Settings,
	}, func(page, total int) {
		r.reportProgress(log, spec.TaskID, page, total)
	})
	if err != nil {
		log.Error("translation failed", "error", err)
		r.markFailed(log, spec.TaskID, "Translation failed: "+err.Error())
		return
	}

	if err := r.registry.Update(spec.TaskID, func(t *domain.Task) {
		t.Status = domain.TaskStatusCompleted
		t.Progress = 100
		t.Message = "Translation completed"
		t.OutputFiles = &domain.OutputFiles{
			Mono: result.MonoPath,
			Dual: result.DualPath,
		}
	}); err != nil {
		log.Error("failed to mark task completed", "error", err)
		return
	}

	log.Info("translation completed")

	// The task is already completed; a history write failure is logged but
	// does not fail the task.
	snapshot, err := r.registry.Get(spec.TaskID)
	if err != nil {
		log.Error("failed to read completed task for history", "error", err)
		return
	}
	if err := r.history.AppendHistory(spec.Owner, domain.HistoryEntry{
		TaskID:      spec.TaskID,
		Filename:    spec.Filename,
		CreatedAt:   snapshot.CreatedAt,
		CompletedAt: time.Now().UTC(),
		Status:      domain.TaskStatusCompleted,
	}); err != nil {
		log.Error("failed to append history entry", "error", err)
	}
}

// reportProgress maps per-page engine progress onto the task's progress and
// message fields. Progress is held below 100 until completion so only the
// terminal update claims 100.
func (r *Runner) reportProgress(log *slog.Logger, taskID string, page, total int) {
	if total < 1 {
		return
	}
	percent := page * 100 / total
	if percent > 99 {
		percent = 99
	}
	if err := r.registry.Update(taskID, func(t *domain.Task) {
		t.Progress = percent
		t.Message = fmt.Sprintf("Translating... %d%%", percent)
	}); err != nil {
		log.Warn("failed to record progress", "error", err)
	}
}

// markFailed moves a task to the failed state with the given message.
func (r *Runner) markFailed(log *slog.Logger, taskID, message string) {
	if err := r.registry.Update(taskID, func(t *domain.Task) {
		t.Status = domain.TaskStatusFailed
		t.Message = message
	}); err != nil {
		log.Error("failed to mark task failed", "error", err)
	}
}
