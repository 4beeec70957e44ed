package worker

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notewise/textengine/cache"
	"github.com/notewise/textengine/concept"
	enginerrors "github.com/notewise/textengine/internal/errors"
	"github.com/notewise/textengine/vector"
)

const scenarioText = "Dogs are mammals. Cats are mammals too. Mammals are warm-blooded. Warm-blooded animals regulate body temperature."

type workerHarness struct {
	worker *Worker
	cancel context.CancelFunc
	cache  *cache.Service
}

func newHarness(t *testing.T, embedder vector.EmbeddingService) *workerHarness {
	t.Helper()

	cacheSvc := cache.NewService(cache.ServiceConfig{Capacity: 32, TTL: time.Hour}, nil)
	vecSvc := vector.NewService(embedder, "mock-model")
	w := New(vecSvc, cacheSvc, concept.HeuristicProvider{}, nil, DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	go w.Run(ctx)

	t.Cleanup(func() {
		cancel()
		cacheSvc.Close()
	})
	return &workerHarness{worker: w, cancel: cancel, cache: cacheSvc}
}

// waitTerminal collects events until the task's terminal event arrives.
func (h *workerHarness) waitTerminal(t *testing.T, taskID string) (events []Event, terminal Event) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-h.worker.Events():
			require.True(t, ok, "event stream closed before terminal event")
			events = append(events, ev)
			switch e := ev.(type) {
			case CompleteEvent:
				if e.TaskID == taskID {
					return events, ev
				}
			case ErrorEvent:
				if e.TaskID == taskID {
					return events, ev
				}
			}
		case <-deadline:
			t.Fatalf("timed out waiting for terminal event of task %s", taskID)
		}
	}
}

func TestWorker_SummarizeTFIDFScenario(t *testing.T) {
	h := newHarness(t, nil)

	task := SummarizeTask{ID: "t1", Content: scenarioText, Algorithm: AlgorithmTFIDF, MaxLength: 60}
	require.NoError(t, h.worker.Submit(SummarizeRequest{Task: task}))

	events, terminal := h.waitTerminal(t, "t1")
	complete, ok := terminal.(CompleteEvent)
	require.True(t, ok, "expected CompleteEvent, got %T", terminal)

	require.NotEmpty(t, complete.Summary)
	assert.LessOrEqual(t, len(complete.Summary), 60)
	assert.False(t, complete.Cached)
	assert.Equal(t, AlgorithmTFIDF, complete.Algorithm)

	// Summary is a subset of the original sentences in original order.
	originals := []string{
		"Dogs are mammals.",
		"Cats are mammals too.",
		"Mammals are warm-blooded.",
		"Warm-blooded animals regulate body temperature.",
	}
	lastPos := -1
	for _, s := range originals {
		if pos := strings.Index(complete.Summary, s); pos >= 0 {
			assert.Greater(t, pos, lastPos)
			lastPos = pos
		}
	}

	// Progress is non-decreasing and the terminal event comes last.
	lastProgress := -1
	for _, ev := range events[:len(events)-1] {
		p, ok := ev.(ProgressEvent)
		require.True(t, ok, "non-progress event before terminal: %T", ev)
		assert.Equal(t, "t1", p.TaskID)
		assert.GreaterOrEqual(t, p.Progress, lastProgress)
		lastProgress = p.Progress
	}
}

func TestWorker_CacheIdempotence(t *testing.T) {
	h := newHarness(t, nil)

	task := SummarizeTask{ID: "c1", Content: scenarioText, Algorithm: AlgorithmTFIDF, MaxLength: 60, CacheKey: "note:1:summary"}
	require.NoError(t, h.worker.Submit(SummarizeRequest{Task: task}))
	_, first := h.waitTerminal(t, "c1")
	firstComplete := first.(CompleteEvent)
	require.False(t, firstComplete.Cached)

	task.ID = "c2"
	require.NoError(t, h.worker.Submit(SummarizeRequest{Task: task}))
	_, second := h.waitTerminal(t, "c2")
	secondComplete := second.(CompleteEvent)

	assert.True(t, secondComplete.Cached)
	assert.Equal(t, firstComplete.Summary, secondComplete.Summary)
}

func TestWorker_EmptyContentSkipsPipeline(t *testing.T) {
	h := newHarness(t, nil)

	task := SummarizeTask{ID: "e1", Content: "short", Algorithm: AlgorithmTFIDF, MaxLength: 100}
	require.NoError(t, h.worker.Submit(SummarizeRequest{Task: task}))

	_, terminal := h.waitTerminal(t, "e1")
	complete, ok := terminal.(CompleteEvent)
	require.True(t, ok)
	assert.Empty(t, complete.Summary)
}

func TestWorker_SingleSentenceVerbatim(t *testing.T) {
	h := newHarness(t, nil)

	content := "Photosynthesis converts light into chemical energy inside plant cells"
	task := SummarizeTask{ID: "s1", Content: content, Algorithm: AlgorithmTFIDF, MaxLength: 200}
	require.NoError(t, h.worker.Submit(SummarizeRequest{Task: task}))

	_, terminal := h.waitTerminal(t, "s1")
	complete := terminal.(CompleteEvent)
	assert.Equal(t, content, complete.Summary)
}

func TestWorker_LeadFirstAndNLPAlgorithms(t *testing.T) {
	h := newHarness(t, nil)

	for _, alg := range []Algorithm{AlgorithmLeadFirst, AlgorithmNLP} {
		task := SummarizeTask{ID: "alg-" + string(alg), Content: scenarioText, Algorithm: alg, MaxLength: 80}
		require.NoError(t, h.worker.Submit(SummarizeRequest{Task: task}))
		_, terminal := h.waitTerminal(t, task.ID)
		complete, ok := terminal.(CompleteEvent)
		require.True(t, ok)
		assert.NotEmpty(t, complete.Summary)
		assert.LessOrEqual(t, len(complete.Summary), 80)
	}
}

func TestWorker_MalformedTask(t *testing.T) {
	h := newHarness(t, nil)

	require.NoError(t, h.worker.Submit(SummarizeRequest{Task: SummarizeTask{ID: "m1"}}))
	_, terminal := h.waitTerminal(t, "m1")

	errEvent, ok := terminal.(ErrorEvent)
	require.True(t, ok)
	assert.False(t, errEvent.Cancelled)
	assert.Contains(t, errEvent.Err, "content")
	assert.Equal(t, "INVALID_ARGUMENT", errEvent.Code)
}

func TestWorker_GenerateCardsScenario(t *testing.T) {
	h := newHarness(t, nil)

	content := "Photosynthesis is the process by which plants convert light into energy. Plants use sunlight to produce sugar during the day."
	task := GenerateTask{ID: "g1", Content: content, Algorithm: AlgorithmTFIDF, MaxCards: 10}
	require.NoError(t, h.worker.Submit(GenerateRequest{Task: task}))

	_, terminal := h.waitTerminal(t, "g1")
	complete, ok := terminal.(CompleteEvent)
	require.True(t, ok)
	require.NotEmpty(t, complete.Cards)

	var found bool
	for _, card := range complete.Cards {
		if strings.Contains(card.Back, "convert light into energy") {
			found = true
		}
	}
	assert.True(t, found, "expected a definition card for Photosynthesis")
}

func TestWorker_GenerateFromMarkdownBlocks(t *testing.T) {
	h := newHarness(t, nil)

	task := GenerateTask{
		ID: "b1",
		Blocks: []string{
			"# Biology",
			"Photosynthesis is the process by which plants convert light into energy.",
			"Entropy is defined as the measure of disorder in a closed system.",
		},
		Algorithm: AlgorithmTFIDF,
		MaxCards:  10,
	}
	require.NoError(t, h.worker.Submit(GenerateRequest{Task: task}))

	_, terminal := h.waitTerminal(t, "b1")
	complete, ok := terminal.(CompleteEvent)
	require.True(t, ok)
	assert.NotEmpty(t, complete.Cards)
}

func TestWorker_CancelQueuedTask(t *testing.T) {
	embedder := &blockingEmbedder{started: make(chan struct{}, 1)}
	h := newHarness(t, embedder)

	// A bert task blocks in the embedding provider.
	running := SummarizeTask{ID: "run1", Content: scenarioText, Algorithm: AlgorithmBERT, MaxLength: 60}
	require.NoError(t, h.worker.Submit(SummarizeRequest{Task: running}))

	select {
	case <-embedder.started:
	case <-time.After(5 * time.Second):
		t.Fatal("embedder never started")
	}

	// Cancel the active task: it must terminate with a cancelled error
	// and never emit a complete event.
	require.NoError(t, h.worker.Submit(CancelRequest{TaskID: "run1"}))
	events, terminal := h.waitTerminal(t, "run1")

	errEvent, ok := terminal.(ErrorEvent)
	require.True(t, ok, "expected ErrorEvent, got %T", terminal)
	assert.True(t, errEvent.Cancelled)
	assert.Equal(t, string(enginerrors.ErrCodeCancelled), errEvent.Code)
	for _, ev := range events {
		if c, ok := ev.(CompleteEvent); ok {
			assert.NotEqual(t, "run1", c.TaskID)
		}
	}
}

func TestWorker_CancelBeforeDequeue(t *testing.T) {
	embedder := &blockingEmbedder{started: make(chan struct{}, 1)}
	h := newHarness(t, embedder)

	// Occupy the worker so the next task stays queued.
	blocker := SummarizeTask{ID: "hold", Content: scenarioText, Algorithm: AlgorithmBERT, MaxLength: 60}
	require.NoError(t, h.worker.Submit(SummarizeRequest{Task: blocker}))
	select {
	case <-embedder.started:
	case <-time.After(5 * time.Second):
		t.Fatal("embedder never started")
	}

	queued := SummarizeTask{ID: "q1", Content: scenarioText, Algorithm: AlgorithmTFIDF, MaxLength: 60}
	require.NoError(t, h.worker.Submit(SummarizeRequest{Task: queued}))
	require.NoError(t, h.worker.Submit(CancelRequest{TaskID: "q1"}))

	// Release the blocker.
	require.NoError(t, h.worker.Submit(CancelRequest{TaskID: "hold"}))

	_, terminal := h.waitTerminal(t, "q1")
	errEvent, ok := terminal.(ErrorEvent)
	require.True(t, ok)
	assert.True(t, errEvent.Cancelled)
	assert.Equal(t, string(enginerrors.ErrCodeCancelled), errEvent.Code)
}

func TestWorker_CancelUnknownTaskIsNoOp(t *testing.T) {
	// No Run loop: the bookkeeping maps are inspected directly.
	cacheSvc := cache.NewService(cache.ServiceConfig{Capacity: 8, TTL: time.Hour}, nil)
	defer cacheSvc.Close()
	w := New(vector.NewService(nil, ""), cacheSvc, nil, nil, Config{QueueSize: 4})

	// Cancellations for ids that were never queued leave no trace, no
	// matter how many arrive.
	for i := 0; i < 1000; i++ {
		require.NoError(t, w.Submit(CancelRequest{TaskID: fmt.Sprintf("ghost-%d", i)}))
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	assert.Empty(t, w.cancelled)
	assert.Empty(t, w.pending)
}

func TestWorker_SubmitFullQueue(t *testing.T) {
	// No Run loop: requests pile up in the queue.
	cacheSvc := cache.NewService(cache.ServiceConfig{Capacity: 8, TTL: time.Hour}, nil)
	defer cacheSvc.Close()
	w := New(vector.NewService(nil, ""), cacheSvc, nil, nil, Config{QueueSize: 1})

	first := SummarizeRequest{Task: SummarizeTask{ID: "f1", Content: scenarioText}}
	second := SummarizeRequest{Task: SummarizeTask{ID: "f2", Content: scenarioText}}

	require.NoError(t, w.Submit(first))
	err := w.Submit(second)
	assert.ErrorIs(t, err, ErrBusy)
	assert.Equal(t, enginerrors.ErrCodeQueueFull, enginerrors.CodeOf(err))
}

func TestWorker_PreloadModelAndClearCache(t *testing.T) {
	h := newHarness(t, vector.NewMockEmbedder(16))

	require.NoError(t, h.worker.Submit(PreloadModelRequest{}))
	require.NoError(t, h.worker.Submit(ClearCacheRequest{}))

	var sawReady, sawCleared bool
	deadline := time.After(5 * time.Second)
	for !(sawReady && sawCleared) {
		select {
		case ev := <-h.worker.Events():
			switch e := ev.(type) {
			case ModelReadyEvent:
				assert.Equal(t, "mock-model", e.ModelName)
				sawReady = true
			case CacheClearedEvent:
				sawCleared = true
			}
		case <-deadline:
			t.Fatal("timed out waiting for preload/clear events")
		}
	}
}

// blockingEmbedder blocks every call until its context is cancelled.
type blockingEmbedder struct {
	started chan struct{}
}

func (b *blockingEmbedder) Embed(ctx context.Context, _ string) ([]float32, error) {
	select {
	case b.started <- struct{}{}:
	default:
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

func (b *blockingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	_, err := b.Embed(ctx, "")
	return nil, err
}

func (b *blockingEmbedder) Dimensions() int { return 16 }
