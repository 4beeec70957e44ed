package worker

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Wire type tags for the JSON envelope protocol. Requests and events travel
// as one JSON object per line: {"type": "...", "data": {...}}.
const (
	TypeSummarize    = "summarize"
	TypeGenerate     = "generate"
	TypeCancel       = "cancel"
	TypePreloadModel = "preload_model"
	TypeClearCache   = "clear_cache"

	TypeProgress     = "progress"
	TypeComplete     = "complete"
	TypeError        = "error"
	TypeModelReady   = "model_ready"
	TypeCacheCleared = "cache_cleared"
)

type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// DecodeRequest parses a wire envelope into a typed request. Unknown type
// tags are an error so protocol drift fails loudly instead of being
// silently dropped.
func DecodeRequest(raw []byte) (Request, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, errors.Wrap(err, "decode request envelope")
	}

	switch env.Type {
	case TypeSummarize:
		var task SummarizeTask
		if err := json.Unmarshal(env.Data, &task); err != nil {
			return nil, errors.Wrap(err, "decode summarize task")
		}
		return SummarizeRequest{Task: task}, nil
	case TypeGenerate:
		var task GenerateTask
		if err := json.Unmarshal(env.Data, &task); err != nil {
			return nil, errors.Wrap(err, "decode generate task")
		}
		return GenerateRequest{Task: task}, nil
	case TypeCancel:
		var req CancelRequest
		if err := json.Unmarshal(env.Data, &req); err != nil {
			return nil, errors.Wrap(err, "decode cancel request")
		}
		return req, nil
	case TypePreloadModel:
		return PreloadModelRequest{}, nil
	case TypeClearCache:
		return ClearCacheRequest{}, nil
	default:
		return nil, errors.Errorf("unknown request type %q", env.Type)
	}
}

// EncodeEvent wraps an event in its wire envelope.
func EncodeEvent(ev Event) ([]byte, error) {
	var tag string
	switch ev.(type) {
	case ProgressEvent:
		tag = TypeProgress
	case CompleteEvent:
		tag = TypeComplete
	case ErrorEvent:
		tag = TypeError
	case ModelReadyEvent:
		tag = TypeModelReady
	case CacheClearedEvent:
		tag = TypeCacheCleared
	default:
		return nil, errors.Errorf("unknown event type %T", ev)
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return nil, errors.Wrapf(err, "encode %s event", tag)
	}
	return json.Marshal(envelope{Type: tag, Data: data})
}
