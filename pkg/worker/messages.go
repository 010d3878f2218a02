// Package worker implements the Inference Worker and Work Queue: a
// goroutine-isolated translation runtime reached only through channel
// messages, so a supervisor can own independently failing peers without
// sharing a call stack with them.
package worker

import "digital.vasic.nmt/pkg/models"

// MessageType names one of the worker protocol messages.
type MessageType string

const (
	MsgWorkerReady            MessageType = "WorkerReady"
	MsgInitRequest            MessageType = "InitRequest"
	MsgInitSuccess            MessageType = "InitSuccess"
	MsgInitError              MessageType = "InitError"
	MsgTranslationRequest     MessageType = "TranslationRequest"
	MsgTranslationResponse    MessageType = "TranslationResponse"
	MsgTranslationError       MessageType = "TranslationError"
	MsgDiscardQueue           MessageType = "DiscardQueue"
	MsgTranslationsDiscarded MessageType = "TranslationsDiscarded"
	MsgCancelOne              MessageType = "CancelOne"
)

// InitRequest carries the resolved model bundle(s) a worker must load
// before it can serve translations. Bundles has length 1
// for a direct pair or 2 for a pivot-via-English pair; more than two is
// an error.
type InitRequest struct {
	Pair    models.Pair
	Bundles []models.ModelBundle
}

// InitSuccess reports the worker is ready to serve the pair it was
// initialized with.
type InitSuccess struct {
	Pair models.Pair
}

// InitError reports the worker could not load its bundle; the engine
// pool tears down every sibling worker for the pair on receipt.
type InitError struct {
	Pair models.Pair
	Err  error
}

// TranslationRequest is one unit of work dispatched to a worker.
// MessageID is the coordinator's monotonic wire-protocol counter; it
// correlates a request to its TranslationResponse/TranslationError on
// the worker's shared Outbox even when several requests from the same
// or different callers are in flight against the same worker at once.
// TranslationID is the caller-facing identity used for CancelOne and
// cache bookkeeping.
type TranslationRequest struct {
	MessageID     uint64
	TranslationID string
	Text          string
	IsHTML        bool
}

// TranslationResponse carries a completed translation. MessageID echoes
// the request it answers.
type TranslationResponse struct {
	MessageID       uint64
	TranslationID   string
	Text            string
	InferenceMillis int64
}

// TranslationError reports a single translation's failure without
// affecting the worker's ability to serve later requests. MessageID
// echoes the request it answers.
type TranslationError struct {
	MessageID     uint64
	TranslationID string
	Err           error
}

// CancelOne asks the worker (or its queue) to drop a single pending
// translation if it has not started running yet.
type CancelOne struct {
	TranslationID string
}

// DiscardQueue asks a worker to drop every translation currently
// enqueued, used when a pair is evicted or the coordinator shuts down.
type DiscardQueue struct{}

// TranslationsDiscarded acknowledges a DiscardQueue. The worker sends it
// with TranslationIDs left empty.
type TranslationsDiscarded struct {
	TranslationIDs []string
}
