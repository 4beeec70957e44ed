// Package worker owns the task lifecycle for the analysis pipelines: a
// single background worker consumes typed requests, runs at most one task
// at a time, reports staged progress, honors cancellation and serves
// repeated tasks from the result cache.
package worker

import (
	"time"

	"github.com/notewise/textengine/flashcard"
)

// Algorithm selects the vectorization and ranking strategy for a task.
type Algorithm string

const (
	// AlgorithmBERT ranks on embedding-model vectors, falling back to
	// TF-IDF when the model is unavailable.
	AlgorithmBERT Algorithm = "bert"
	// AlgorithmTFIDF ranks on local TF-IDF vectors.
	AlgorithmTFIDF Algorithm = "tfidf"
	// AlgorithmLeadFirst scores sentences purely by position.
	AlgorithmLeadFirst Algorithm = "lead-first"
	// AlgorithmNLP scores sentences by key-term frequency.
	AlgorithmNLP Algorithm = "nlp"
)

// Stage identifies a pipeline checkpoint in progress events.
type Stage string

const (
	StageInitializing       Stage = "initializing"
	StageLoadingModel       Stage = "loading_model"
	StageTokenizing         Stage = "tokenizing"
	StageChunking           Stage = "chunking"
	StageComputingVectors   Stage = "computing_embeddings"
	StageBuildingGraph      Stage = "building_graph"
	StageRanking            Stage = "ranking"
	StageSelecting          Stage = "selecting"
	StageExtractingConcepts Stage = "extracting_concepts"
	StageGeneratingCards    Stage = "generating_cards"
	StageDeduplicating      Stage = "deduplicating"
	StageComplete           Stage = "complete"
	StageCancelled          Stage = "cancelled"
)

// Request is the inbound message sum type. Exactly the variants below
// exist; the worker switches over them exhaustively.
type Request interface{ isRequest() }

// SummarizeRequest submits a summarization task.
type SummarizeRequest struct {
	Task SummarizeTask `json:"task"`
}

// GenerateRequest submits a flashcard generation task.
type GenerateRequest struct {
	Task GenerateTask `json:"task"`
}

// CancelRequest cancels the task with the given id. Cancelling an unknown
// or already-finished task is a no-op.
type CancelRequest struct {
	TaskID string `json:"taskId"`
}

// PreloadModelRequest warms the embedding model ahead of the first task.
type PreloadModelRequest struct{}

// ClearCacheRequest empties the result cache.
type ClearCacheRequest struct{}

func (SummarizeRequest) isRequest()    {}
func (GenerateRequest) isRequest()     {}
func (CancelRequest) isRequest()       {}
func (PreloadModelRequest) isRequest() {}
func (ClearCacheRequest) isRequest()   {}

// Event is the outbound message sum type. For a given task id, progress
// values are non-decreasing and the final event is always a CompleteEvent
// or an ErrorEvent.
type Event interface{ isEvent() }

// ProgressEvent reports a coarse pipeline checkpoint.
type ProgressEvent struct {
	TaskID        string `json:"taskId"`
	Progress      int    `json:"progress"` // 0..100
	Stage         Stage  `json:"stage"`
	Message       string `json:"message"`
	SentenceCount int    `json:"sentenceCount,omitempty"`
	ConceptCount  int    `json:"conceptCount,omitempty"`
	CardCount     int    `json:"cardCount,omitempty"`
}

// CompleteEvent carries the task result. Exactly one of Summary and Cards
// is meaningful, depending on the task kind.
type CompleteEvent struct {
	TaskID        string           `json:"taskId"`
	Summary       string           `json:"summary,omitempty"`
	Cards         []flashcard.Card `json:"cards,omitempty"`
	Algorithm     Algorithm        `json:"algorithm"`
	Duration      time.Duration    `json:"durationMs"`
	Cached        bool             `json:"cached"`
	ModelLoadTime time.Duration    `json:"modelLoadTimeMs,omitempty"`
}

// ErrorEvent reports a failed or cancelled task. Cancellation is an
// expected, user-initiated outcome reported through the same channel.
type ErrorEvent struct {
	TaskID    string `json:"taskId"`
	Err       string `json:"error"`
	Code      string `json:"code,omitempty"`
	Cancelled bool   `json:"cancelled,omitempty"`
}

// ModelReadyEvent reports a successful model preload.
type ModelReadyEvent struct {
	ModelName string        `json:"modelName"`
	LoadTime  time.Duration `json:"loadTimeMs"`
}

// CacheClearedEvent acknowledges a ClearCacheRequest.
type CacheClearedEvent struct{}

func (ProgressEvent) isEvent()     {}
func (CompleteEvent) isEvent()     {}
func (ErrorEvent) isEvent()        {}
func (ModelReadyEvent) isEvent()   {}
func (CacheClearedEvent) isEvent() {}
