package worker

import (
	"fmt"
	"time"

	"digital.vasic.nmt/internal/engineerr"
	"digital.vasic.nmt/internal/events"
	"digital.vasic.nmt/internal/obslog"
	"digital.vasic.nmt/pkg/language"
	"digital.vasic.nmt/pkg/models"
)

// State is one of the Inference Worker's lifecycle states.
type State int

const (
	Booting State = iota
	Ready
	Initialized
	Serving
	Terminated
)

func (s State) String() string {
	switch s {
	case Booting:
		return "Booting"
	case Ready:
		return "Ready"
	case Initialized:
		return "Initialized"
	case Serving:
		return "Serving"
	case Terminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}

// loadedModel is one bundle's worth of init-time state: its aligned
// buffers, selected GEMM precision, and inference knob set.
type loadedModel struct {
	buffers   map[models.FileKind]alignedBuffer
	precision string
	config    InferenceConfig
}

// InferenceFunc performs one direct translation hop against a single
// loaded model. isHTML carries the request's HTML-awareness flag
// through to the runtime, which may tokenize HTML markup differently
// from plain text. The sandbox that would host a real translation
// runtime is out of scope here; this hook is where such a runtime is
// wired in, identically for every worker regardless of pair.
type InferenceFunc func(buffers map[models.FileKind]alignedBuffer, precision string, cfg InferenceConfig, text string, isHTML bool) (string, error)

// Worker is the Inference Worker: a goroutine-isolated runtime reached
// only by its Inbox channel, so a crash or stall in one worker never
// takes down its supervisor or sibling workers.
type Worker struct {
	id     int
	infer  InferenceFunc
	logger obslog.Logger
	bus    *events.Bus
	queue  *Queue
	state  State

	Inbox  chan interface{}
	Outbox chan interface{}

	models []loadedModel
	source language.Code

	stop chan struct{}
}

// New starts a Worker goroutine in the Booting state. It immediately
// transitions to Ready and emits WorkerReady.
func New(id int, infer InferenceFunc, logger obslog.Logger, bus *events.Bus) *Worker {
	w := &Worker{
		id:     id,
		infer:  infer,
		logger: obslog.Or(logger),
		bus:    bus,
		state:  Booting,
		Inbox:  make(chan interface{}, 16),
		Outbox: make(chan interface{}, 16),
		stop:   make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *Worker) run() {
	w.state = Ready
	w.Outbox <- WorkerReady{}

	for {
		select {
		case <-w.stop:
			w.terminate()
			return
		case msg := <-w.Inbox:
			w.handle(msg)
		}
	}
}

// WorkerReady is emitted once, when the runtime finishes booting.
type WorkerReady struct{}

func (w *Worker) handle(msg interface{}) {
	switch m := msg.(type) {
	case InitRequest:
		w.handleInit(m)
	case TranslationRequest:
		w.handleTranslation(m)
	case CancelOne:
		if w.queue != nil {
			w.queue.CancelOne(m.TranslationID)
		}
	case DiscardQueue:
		w.handleDiscard()
	}
}

func (w *Worker) handleInit(req InitRequest) {
	if w.state != Ready {
		w.Outbox <- InitError{Pair: req.Pair, Err: engineerr.New(engineerr.WorkerInitError, "worker.handleInit", "worker not in Ready state")}
		return
	}
	if len(req.Bundles) == 0 || len(req.Bundles) > 2 {
		w.Outbox <- InitError{Pair: req.Pair, Err: engineerr.New(engineerr.WorkerInitError, "worker.handleInit", "worker accepts one or two models")}
		return
	}

	loaded := make([]loadedModel, 0, len(req.Bundles))
	for _, bundle := range req.Bundles {
		if !hasVocabularyFiles(bundle) {
			w.Outbox <- InitError{Pair: req.Pair, Err: engineerr.New(engineerr.WorkerInitError, "worker.handleInit", "no vocabulary files supplied")}
			return
		}
		modelFile, ok := bundle[models.FileModel]
		if !ok {
			w.Outbox <- InitError{Pair: req.Pair, Err: engineerr.New(engineerr.WorkerInitError, "worker.handleInit", "no model file supplied")}
			return
		}
		_, hasQuality := bundle[models.FileQualityModel]
		loaded = append(loaded, loadedModel{
			buffers:   allocateAligned(bundle),
			precision: gemmPrecision(modelFile.Name),
			config:    defaultInferenceConfig(hasQuality),
		})
	}

	w.models = loaded
	w.source = req.Pair.From
	w.queue = NewQueue()

	w.state = Initialized
	w.bus.Publish(events.Event{Type: "worker.init_success", Pair: req.Pair.Key()})
	w.Outbox <- InitSuccess{Pair: req.Pair}
	w.state = Serving
}

func (w *Worker) handleTranslation(req TranslationRequest) {
	if w.state != Serving {
		w.Outbox <- TranslationError{MessageID: req.MessageID, TranslationID: req.TranslationID, Err: engineerr.New(engineerr.TranslationFailure, "worker.handleTranslation", "worker not serving")}
		return
	}

	cleaned := CleanText(req.Text, w.source)

	start := time.Now()
	value, err := w.queue.RunTask(req.TranslationID, func() (interface{}, error) {
		return w.runHops(cleaned.Cleaned, req.IsHTML)
	})
	elapsed := time.Since(start)

	if err != nil {
		w.Outbox <- TranslationError{MessageID: req.MessageID, TranslationID: req.TranslationID, Err: err}
		return
	}

	translated, ok := value.(string)
	if !ok {
		w.Outbox <- TranslationError{MessageID: req.MessageID, TranslationID: req.TranslationID, Err: fmt.Errorf("worker: inference returned non-string result")}
		return
	}

	w.Outbox <- TranslationResponse{
		MessageID:       req.MessageID,
		TranslationID:   req.TranslationID,
		Text:            cleaned.Before + translated + cleaned.After,
		InferenceMillis: elapsed.Milliseconds(),
	}
}

// runHops runs text through every loaded model in order: one hop for a
// direct pair, two for a pivoting pair. A panic in the inference hook is
// recovered and returned as an error.
func (w *Worker) runHops(text string, isHTML bool) (value interface{}, retErr error) {
	defer func() {
		if r := recover(); r != nil {
			value, retErr = nil, fmt.Errorf("worker: inference panicked: %v", r)
		}
	}()
	current := text
	for _, m := range w.models {
		out, err := w.infer(m.buffers, m.precision, m.config, current, isHTML)
		if err != nil {
			return nil, err
		}
		current = out
	}
	return current, nil
}

func (w *Worker) handleDiscard() {
	if w.queue == nil {
		w.Outbox <- TranslationsDiscarded{}
		return
	}
	w.queue.CancelAll()
	w.Outbox <- TranslationsDiscarded{}
}

// Terminate stops the worker; further messages are ignored.
func (w *Worker) Terminate() {
	select {
	case <-w.stop:
	default:
		close(w.stop)
	}
}

func (w *Worker) terminate() {
	if w.queue != nil {
		w.queue.Close()
	}
	w.models = nil
	w.state = Terminated
	close(w.Outbox)
}

// StaticInference is a deterministic pass-through InferenceFunc: it
// returns the cleaned source text unchanged. It exists so the worker
// pipeline is independently testable without a real translation
// runtime; production wiring supplies its own InferenceFunc.
func StaticInference(_ map[models.FileKind]alignedBuffer, _ string, _ InferenceConfig, text string, _ bool) (string, error) {
	return text, nil
}
