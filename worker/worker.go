package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/notewise/textengine/cache"
	"github.com/notewise/textengine/concept"
	"github.com/notewise/textengine/flashcard"
	enginerrors "github.com/notewise/textengine/internal/errors"
	"github.com/notewise/textengine/internal/observability"
	"github.com/notewise/textengine/segment"
	"github.com/notewise/textengine/textrank"
	"github.com/notewise/textengine/vector"
)

// ErrBusy is returned by Submit when the task queue is full.
var ErrBusy error = enginerrors.QueueFull("worker queue full")

// Config configures the worker.
type Config struct {
	// QueueSize bounds pending requests; a submission to a full queue
	// fails fast with ErrBusy instead of blocking the caller.
	QueueSize int
	// EventBuffer sizes the outbound event channel.
	EventBuffer int
}

// DefaultConfig returns the default worker configuration.
func DefaultConfig() Config {
	return Config{
		QueueSize:   8,
		EventBuffer: 64,
	}
}

// Worker runs the summarization and flashcard pipelines off the caller's
// thread. At most one task is active at a time; overflow submissions wait
// in a bounded FIFO queue. All shared state (model handle, result cache)
// is injected, never global.
type Worker struct {
	vectors  *vector.Service
	cache    *cache.Service
	phrases  concept.PhraseProvider
	rankCfg  textrank.Config
	logger   *slog.Logger
	requests chan Request
	events   chan Event

	mu           sync.Mutex
	activeID     string
	cancelActive context.CancelFunc
	// pending tracks queued task ids; cancelled marks queued tasks whose
	// cancellation arrived before their run. Both are bounded by the queue.
	pending   map[string]struct{}
	cancelled map[string]struct{}
}

// New creates a worker. phrases may be nil to run without the grammatical
// helper (the frequency miner is then disabled).
func New(vectors *vector.Service, cacheSvc *cache.Service, phrases concept.PhraseProvider, logger *slog.Logger, cfg Config) *Worker {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultConfig().QueueSize
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = DefaultConfig().EventBuffer
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		vectors:   vectors,
		cache:     cacheSvc,
		phrases:   phrases,
		rankCfg:   textrank.DefaultConfig(),
		logger:    logger,
		requests:  make(chan Request, cfg.QueueSize),
		events:    make(chan Event, cfg.EventBuffer),
		pending:   make(map[string]struct{}),
		cancelled: make(map[string]struct{}),
	}
}

// Events returns the outbound event stream. It is closed when Run returns.
func (w *Worker) Events() <-chan Event { return w.events }

// Submit enqueues a request. Cancellations are handled immediately, out of
// band, so they can interrupt the active task; everything else joins the
// FIFO queue and fails fast with ErrBusy when the queue is full.
func (w *Worker) Submit(req Request) error {
	if cancelReq, ok := req.(CancelRequest); ok {
		w.handleCancel(cancelReq.TaskID)
		return nil
	}
	id := submittedTaskID(req)
	if id != "" {
		w.mu.Lock()
		w.pending[id] = struct{}{}
		w.mu.Unlock()
	}
	select {
	case w.requests <- req:
		return nil
	default:
		if id != "" {
			w.mu.Lock()
			delete(w.pending, id)
			w.mu.Unlock()
		}
		return ErrBusy
	}
}

func submittedTaskID(req Request) string {
	switch r := req.(type) {
	case SummarizeRequest:
		return r.Task.ID
	case GenerateRequest:
		return r.Task.ID
	default:
		return ""
	}
}

// Run consumes requests until ctx is cancelled, then closes the event
// stream. Task-level failures never terminate the loop.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.events)
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-w.requests:
			w.dispatch(ctx, req)
		}
	}
}

func (w *Worker) dispatch(ctx context.Context, req Request) {
	switch r := req.(type) {
	case SummarizeRequest:
		w.runTask(ctx, r.Task.ID, func(taskCtx context.Context) {
			w.runSummarize(taskCtx, r.Task)
		})
	case GenerateRequest:
		w.runTask(ctx, r.Task.ID, func(taskCtx context.Context) {
			w.runGenerate(taskCtx, r.Task)
		})
	case CancelRequest:
		// Submit handles cancellations directly; a queued one is a no-op
		// by the time it gets here.
		w.handleCancel(r.TaskID)
	case PreloadModelRequest:
		w.preloadModel(ctx)
	case ClearCacheRequest:
		w.cache.Clear(ctx)
		w.emit(ctx, CacheClearedEvent{})
	}
}

// runTask frames a pipeline run: active-task bookkeeping, pre-queued
// cancellation, and panic containment.
func (w *Worker) runTask(ctx context.Context, taskID string, run func(context.Context)) {
	w.mu.Lock()
	delete(w.pending, taskID)
	if _, ok := w.cancelled[taskID]; ok {
		delete(w.cancelled, taskID)
		w.mu.Unlock()
		cancelled := enginerrors.Cancelled("task cancelled")
		w.emit(ctx, ErrorEvent{
			TaskID:    taskID,
			Err:       cancelled.Message,
			Code:      string(cancelled.Code),
			Cancelled: true,
		})
		return
	}
	taskCtx, cancel := context.WithCancel(ctx)
	w.activeID = taskID
	w.cancelActive = cancel
	w.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("task panicked", "task_id", taskID, "panic", r)
			iErr := enginerrors.Internal("task panicked", errors.Errorf("%v", r))
			w.emit(ctx, ErrorEvent{
				TaskID: taskID,
				Err:    iErr.Error(),
				Code:   string(iErr.Code),
			})
		}
		w.mu.Lock()
		w.activeID = ""
		w.cancelActive = nil
		w.mu.Unlock()
		cancel()
	}()

	run(taskCtx)
}

func (w *Worker) handleCancel(taskID string) {
	if taskID == "" {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if taskID == w.activeID && w.cancelActive != nil {
		w.cancelActive()
		return
	}
	// Only a queued task can be cancelled ahead of its run; a finished or
	// unknown id is a no-op, so the set stays bounded by the queue.
	if _, queued := w.pending[taskID]; queued {
		w.cancelled[taskID] = struct{}{}
	}
}

func (w *Worker) runSummarize(ctx context.Context, task SummarizeTask) {
	if err := task.validate(); err != nil {
		w.fail(ctx, task.ID, err)
		return
	}

	tc := observability.NewTaskContextWithID(w.logger, task.ID, string(task.Algorithm))
	ctx = observability.WithTaskContext(ctx, tc)

	if payload, ok := w.cache.Get(ctx, task.CacheKey); ok {
		tc.Debug("summary served from cache", slog.String("cache_key", task.CacheKey))
		w.emit(ctx, CompleteEvent{
			TaskID:    task.ID,
			Summary:   string(payload),
			Algorithm: task.Algorithm,
			Duration:  tc.Duration(),
			Cached:    true,
		})
		return
	}

	w.progress(ctx, ProgressEvent{TaskID: task.ID, Progress: 5, Stage: StageInitializing, Message: "preparing task"})

	text := taskText(task.Content, task.Blocks)
	sentences := segment.Sentences(text)
	w.progress(ctx, ProgressEvent{
		TaskID: task.ID, Progress: 15, Stage: StageTokenizing,
		Message: "segmenting sentences", SentenceCount: len(sentences),
	})

	// Degenerate inputs never reach the vectorization or ranking stages.
	if len(sentences) == 0 {
		w.complete(ctx, tc.StartTime, task, "", 0)
		return
	}
	if len(sentences) == 1 {
		w.complete(ctx, tc.StartTime, task, sentences[0].Text, 0)
		return
	}

	scores, err := w.scoreSentences(ctx, task, sentences)
	if err != nil {
		w.fail(ctx, task.ID, err)
		return
	}

	w.progress(ctx, ProgressEvent{TaskID: task.ID, Progress: 90, Stage: StageSelecting, Message: "selecting sentences"})
	summary := textrank.SelectSummary(sentences, scores, task.MaxLength)

	if ctx.Err() != nil {
		w.fail(ctx, task.ID, ctx.Err())
		return
	}

	w.cache.Set(ctx, task.CacheKey, []byte(summary))
	tc.Info("summary complete",
		slog.Int(observability.LogFieldSentenceCount, len(sentences)),
		slog.Int("summary_length", len(summary)),
		slog.Int64(observability.LogFieldDuration, tc.DurationMs()))
	w.complete(ctx, tc.StartTime, task, summary, w.vectors.ModelLoadTime())
}

// scoreSentences produces one score per sentence according to the task's
// algorithm.
func (w *Worker) scoreSentences(ctx context.Context, task SummarizeTask, sentences []segment.Sentence) ([]float64, error) {
	if task.Algorithm == AlgorithmLeadFirst {
		return textrank.LeadScores(len(sentences)), nil
	}

	texts := make([]string, len(sentences))
	for i, s := range sentences {
		texts[i] = s.Text
	}

	if task.Algorithm == AlgorithmNLP {
		var terms []string
		if w.phrases != nil {
			terms = w.phrases.NounPhrases(taskText(task.Content, task.Blocks))
		}
		scores := textrank.FrequencyScores(texts, terms)
		return textrank.ApplyPositionBias(scores, w.rankCfg.PositionWeight), nil
	}

	useEmbeddings := task.Algorithm == AlgorithmBERT
	if useEmbeddings && !w.vectors.ModelReady() {
		w.progress(ctx, ProgressEvent{TaskID: task.ID, Progress: 20, Stage: StageLoadingModel, Message: "loading embedding model"})
	}
	if tc, ok := observability.FromContext(ctx); ok {
		tc.Debug("scoring sentences", slog.String(observability.LogFieldStage, string(StageComputingVectors)))
	}

	w.progress(ctx, ProgressEvent{TaskID: task.ID, Progress: 35, Stage: StageComputingVectors, Message: "computing sentence vectors"})
	batch, err := w.vectors.Vectorize(ctx, texts, useEmbeddings)
	if err != nil {
		return nil, err
	}

	w.progress(ctx, ProgressEvent{TaskID: task.ID, Progress: 55, Stage: StageBuildingGraph, Message: "building similarity graph"})
	graph, err := textrank.BuildGraph(ctx, batch.Vectors(), w.rankCfg)
	if err != nil {
		return nil, err
	}

	w.progress(ctx, ProgressEvent{TaskID: task.ID, Progress: 75, Stage: StageRanking, Message: "ranking sentences"})
	scores, err := textrank.Rank(ctx, graph, len(sentences), w.rankCfg)
	if err != nil {
		return nil, err
	}
	return textrank.ApplyPositionBias(scores, w.rankCfg.PositionWeight), nil
}

func (w *Worker) runGenerate(ctx context.Context, task GenerateTask) {
	if err := task.validate(); err != nil {
		w.fail(ctx, task.ID, err)
		return
	}

	tc := observability.NewTaskContextWithID(w.logger, task.ID, string(task.Algorithm))
	ctx = observability.WithTaskContext(ctx, tc)

	if payload, ok := w.cache.Get(ctx, task.CacheKey); ok {
		var cards []flashcard.Card
		if err := json.Unmarshal(payload, &cards); err == nil {
			tc.Debug("cards served from cache", slog.String("cache_key", task.CacheKey))
			w.emit(ctx, CompleteEvent{
				TaskID:    task.ID,
				Cards:     cards,
				Algorithm: task.Algorithm,
				Duration:  tc.Duration(),
				Cached:    true,
			})
			return
		}
		tc.Warn("cached cards unreadable, recomputing", slog.String("cache_key", task.CacheKey))
	}

	w.progress(ctx, ProgressEvent{TaskID: task.ID, Progress: 5, Stage: StageInitializing, Message: "preparing task"})

	chunks := segment.Chunks(taskText(task.Content, task.Blocks))
	w.progress(ctx, ProgressEvent{TaskID: task.ID, Progress: 15, Stage: StageChunking, Message: "chunking content"})

	if len(chunks) == 0 {
		w.completeCards(ctx, tc.StartTime, task, nil)
		return
	}

	var embed concept.EmbedFunc
	if task.Algorithm == AlgorithmBERT {
		if !w.vectors.ModelReady() {
			w.progress(ctx, ProgressEvent{TaskID: task.ID, Progress: 20, Stage: StageLoadingModel, Message: "loading embedding model"})
		}
		embed = w.vectors.EmbedOne
	}

	w.progress(ctx, ProgressEvent{TaskID: task.ID, Progress: 30, Stage: StageExtractingConcepts, Message: "extracting concepts"})
	extractor := concept.NewExtractor(w.phrases, embed)
	concepts, err := extractor.Extract(ctx, chunks, task.FocusTopics)
	if err != nil {
		w.fail(ctx, task.ID, err)
		return
	}

	w.progress(ctx, ProgressEvent{
		TaskID: task.ID, Progress: 60, Stage: StageGeneratingCards,
		Message: "generating cards", ConceptCount: len(concepts),
	})
	cards := flashcard.NewSynthesizer().Generate(concepts, flashcard.Options{
		MaxCards:        task.MaxCards,
		ForceDifficulty: task.Difficulty,
		Tags:            task.Tags,
	})

	w.progress(ctx, ProgressEvent{
		TaskID: task.ID, Progress: 80, Stage: StageDeduplicating,
		Message: "removing duplicates", CardCount: len(cards),
	})
	var dedupeEmbed flashcard.EmbedFunc
	if task.Algorithm == AlgorithmBERT {
		dedupeEmbed = w.vectors.EmbedOne
	}
	survivors, removed, err := flashcard.NewDeduplicator(dedupeEmbed).Dedupe(ctx, cards)
	if err != nil {
		w.fail(ctx, task.ID, err)
		return
	}

	if ctx.Err() != nil {
		w.fail(ctx, task.ID, ctx.Err())
		return
	}

	tc.Info("cards complete",
		slog.Int("chunks", len(chunks)),
		slog.Int("concepts", len(concepts)),
		slog.Int(observability.LogFieldCardCount, len(survivors)),
		slog.Int("removed", removed),
		slog.Int64(observability.LogFieldDuration, tc.DurationMs()))
	w.completeCards(ctx, tc.StartTime, task, survivors)
}

func (w *Worker) preloadModel(ctx context.Context) {
	if err := w.vectors.EnsureModel(ctx); err != nil {
		// Not fatal: later tasks fall back to TF-IDF silently.
		w.logger.Warn("model preload failed", "error", err)
		return
	}
	w.emit(ctx, ModelReadyEvent{
		ModelName: w.vectors.ModelName(),
		LoadTime:  w.vectors.ModelLoadTime(),
	})
}

func (w *Worker) complete(ctx context.Context, start time.Time, task SummarizeTask, summary string, modelLoad time.Duration) {
	w.emit(ctx, CompleteEvent{
		TaskID:        task.ID,
		Summary:       summary,
		Algorithm:     task.Algorithm,
		Duration:      time.Since(start),
		ModelLoadTime: modelLoad,
	})
}

func (w *Worker) completeCards(ctx context.Context, start time.Time, task GenerateTask, cards []flashcard.Card) {
	if payload, err := json.Marshal(cards); err == nil {
		w.cache.Set(ctx, task.CacheKey, payload)
	}
	w.emit(ctx, CompleteEvent{
		TaskID:        task.ID,
		Cards:         cards,
		Algorithm:     task.Algorithm,
		Duration:      time.Since(start),
		ModelLoadTime: w.vectors.ModelLoadTime(),
	})
}

// fail reports a task-level failure, distinguishing cancellation from
// faults.
func (w *Worker) fail(ctx context.Context, taskID string, err error) {
	if errors.Is(err, context.Canceled) {
		cancelled := enginerrors.Cancelled("task cancelled")
		w.logger.Info("task cancelled", "task_id", taskID)
		w.emit(ctx, ErrorEvent{
			TaskID:    taskID,
			Err:       cancelled.Message,
			Code:      string(cancelled.Code),
			Cancelled: true,
		})
		return
	}
	if errors.Is(err, vector.ErrModelUnavailable) {
		err = enginerrors.ModelUnavailable("embedding model unavailable", err)
	}
	code := enginerrors.CodeOf(err)
	if tc, ok := observability.FromContext(ctx); ok {
		tc.Error("task failed", err, slog.String("code", string(code)))
	} else {
		w.logger.Error("task failed", "task_id", taskID, "error", err, "code", code)
	}
	w.emit(ctx, ErrorEvent{TaskID: taskID, Err: err.Error(), Code: string(code)})
}

// progress emits a checkpoint. Checkpoints are coarse on purpose: one per
// stage, never per sentence.
func (w *Worker) progress(ctx context.Context, ev ProgressEvent) {
	w.emit(ctx, ev)
}

// emit delivers an event without ever blocking the worker forever: if the
// consumer is gone and the buffer is full, the event is dropped once the
// run context ends.
func (w *Worker) emit(ctx context.Context, ev Event) {
	select {
	case w.events <- ev:
	case <-ctx.Done():
		select {
		case w.events <- ev:
		default:
			w.logger.Warn("event dropped", "event", fmt.Sprintf("%T", ev))
		}
	}
}
