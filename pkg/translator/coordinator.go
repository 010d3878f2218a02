// Package translator implements the Translator Coordinator: the public
// API surface that plans, dispatches, and reassembles translations
// across the Model Store, script converter, detector, cache, and engine
// pools.
package translator

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"digital.vasic.nmt/internal/engineerr"
	"digital.vasic.nmt/internal/events"
	"digital.vasic.nmt/internal/obslog"
	"digital.vasic.nmt/pkg/cache"
	"digital.vasic.nmt/pkg/enginepool"
	"digital.vasic.nmt/pkg/language"
	"digital.vasic.nmt/pkg/models"
	"digital.vasic.nmt/pkg/script"
	"digital.vasic.nmt/pkg/worker"
)

// Config carries the coordinator's tunables, already resolved
// from internal/config.Config by the caller.
type Config struct {
	WorkersPerPair        int
	IdleTimeout           time.Duration
	MemoryCheckInterval   time.Duration
	TimeoutResetThreshold time.Duration
	WorkerInitTimeout     time.Duration
	MaxDetectionLength    int
}

// Coordinator is the Translator Coordinator (C8).
type Coordinator struct {
	cfg     Config
	store   *models.Store
	cache   *cache.Manager
	infer   worker.InferenceFunc
	logger  obslog.Logger
	bus     *events.Bus
	nextMsg uint64

	mu          sync.Mutex
	pending     map[string]context.CancelFunc
	shutdownErr error
}

// New wires a Coordinator around a Model Store and an inference hook.
// infer is typically worker.StaticInference in environments with no
// real translation runtime wired in.
func New(cfg Config, store *models.Store, infer worker.InferenceFunc, logger obslog.Logger, bus *events.Bus) *Coordinator {
	logger = obslog.Or(logger)
	c := &Coordinator{
		cfg:     cfg,
		store:   store,
		infer:   infer,
		logger:  logger,
		bus:     bus,
		pending: make(map[string]context.CancelFunc),
	}
	c.cache = cache.New(cache.Options{
		MemoryCheckInterval:   cfg.MemoryCheckInterval,
		IdleTimeout:           cfg.IdleTimeout,
		TimeoutResetThreshold: cfg.TimeoutResetThreshold,
	}, c.buildPool, logger)
	return c
}

// resolveBundles loads either one direct bundle, or two pivot-via-English
// bundles, for pair.
func (c *Coordinator) resolveBundles(ctx context.Context, pair models.Pair) ([]models.ModelBundle, error) {
	if !needsPivot(pair) {
		bundle, err := c.store.GetModel(ctx, pair)
		if err != nil {
			return nil, err
		}
		return []models.ModelBundle{bundle}, nil
	}

	first, err := c.store.GetModel(ctx, models.Pair{From: pair.From, To: language.English})
	if err != nil {
		return nil, err
	}
	second, err := c.store.GetModel(ctx, models.Pair{From: language.English, To: pair.To})
	if err != nil {
		return nil, err
	}
	return []models.ModelBundle{first, second}, nil
}

func (c *Coordinator) buildPool(ctx context.Context, pair models.Pair) (*enginepool.Pool, error) {
	bundles, err := c.resolveBundles(ctx, pair)
	if err != nil {
		return nil, err
	}
	size := c.cfg.WorkersPerPair
	if size < 1 {
		size = 1
	}
	return enginepool.Build(ctx, pair, size, bundles, c.infer, c.cfg.WorkerInitTimeout, c.logger, c.bus)
}

// GetSupportedLanguages returns every code the system accepts, aliases
// included.
func (c *Coordinator) GetSupportedLanguages() []language.Code {
	return language.All()
}

// Detect classifies text to a canonical code, truncated to
// MaxDetectionLength characters first.
func (c *Coordinator) Detect(text string) language.Code {
	runes := []rune(text)
	limit := c.cfg.MaxDetectionLength
	if limit <= 0 {
		limit = 64
	}
	if len(runes) > limit {
		runes = runes[:limit]
	}
	return language.Detect(string(runes))
}

// plan is the resolved translation strategy for an effective pair.
type plan struct {
	preConvert   script.ConvertFunc
	postConvert  script.ConvertFunc
	pureScript   bool
	effective    models.Pair
}

func (c *Coordinator) resolvePair(from, to language.Code) (language.Code, language.Code, error) {
	normFrom, fromOK := resolveSupported(from)
	normTo, toOK := resolveSupported(to)
	if !fromOK {
		return "", "", engineerr.New(engineerr.InvalidLanguage, "coordinator.resolvePair", string(from))
	}
	if !toOK {
		return "", "", engineerr.New(engineerr.InvalidLanguage, "coordinator.resolvePair", string(to))
	}
	return language.Canonicalize(normFrom), language.Canonicalize(normTo), nil
}

// resolveSupported tries code, then its lowercase form, against
// SUPPORTED directly before falling back to BCP-47 normalization: a
// statistical classifier's own codes always match SUPPORTED exactly, so
// the fuzzy tag parser is a last resort, not the primary path.
func resolveSupported(code language.Code) (language.Code, bool) {
	if language.IsSupported(code) {
		return code, true
	}
	lower := language.Code(strings.ToLower(string(code)))
	if language.IsSupported(lower) {
		return lower, true
	}
	if normalized, ok := language.NormalizeTag(string(code)); ok && language.IsSupported(normalized) {
		return normalized, true
	}
	return code, false
}

func (c *Coordinator) buildPlan(from, to language.Code) plan {
	p := plan{effective: models.Pair{From: from, To: to}}

	if language.IsHanVariant(from) {
		p.preConvert = script.ToHans[from]
		p.effective.From = language.ChineseSimplified
	}
	if language.IsHanVariant(to) {
		p.postConvert = script.FromHans[to]
		p.effective.To = language.ChineseSimplified
	}

	if isHanScriptCode(p.effective.From) && isHanScriptCode(p.effective.To) {
		p.pureScript = true
	}
	return p
}

func isHanScriptCode(code language.Code) bool {
	return code == language.ChineseSimplified || language.IsHanVariant(code)
}

// needsPivot reports whether effective is not directly modeled as a
// single hop and must route through English. Pairs
// touching English are always direct; every other pair pivots.
func needsPivot(pair models.Pair) bool {
	return pair.From != language.English && pair.To != language.English
}

// Translate is the full planning pipeline.
func (c *Coordinator) Translate(ctx context.Context, input interface{}, from, to language.Code, isHTML bool) (interface{}, error) {
	texts, isList := normalizeInput(input)

	if from == language.Auto {
		detected := language.English
		if len(texts) > 0 {
			detected = c.Detect(texts[0])
		}
		from = detected
	}

	effFrom, effTo, err := c.resolvePair(from, to)
	if err != nil {
		return nil, err
	}

	if effFrom == effTo {
		return reassemble(texts, isList), nil
	}

	p := c.buildPlan(effFrom, effTo)

	results := make([]string, len(texts))
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			results[i] = ""
			continue
		}

		if p.pureScript {
			results[i] = c.runScriptOnly(p, text)
			continue
		}

		out, err := c.runThroughEngine(ctx, p, text, isHTML)
		if err != nil {
			return nil, err
		}
		results[i] = out
	}

	return reassemble(results, isList), nil
}

func (c *Coordinator) runScriptOnly(p plan, text string) string {
	out := text
	if p.preConvert != nil {
		out = p.preConvert(out)
	}
	if p.postConvert != nil {
		out = p.postConvert(out)
	}
	return out
}

func (c *Coordinator) runThroughEngine(ctx context.Context, p plan, text string, isHTML bool) (string, error) {
	entry, err := c.cache.GetOrCreate(ctx, p.effective)
	if err != nil {
		return "", err
	}

	in := text
	if p.preConvert != nil {
		in = p.preConvert(in)
	}

	translationID := uuid.NewString()
	messageID := atomic.AddUint64(&c.nextMsg, 1)

	reqCtx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.pending[translationID] = cancel
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, translationID)
		c.mu.Unlock()
		cancel()
	}()

	out, err := entry.Pool.Submit(reqCtx, worker.TranslationRequest{
		MessageID:     messageID,
		TranslationID: translationID,
		Text:          in,
		IsHTML:        isHTML,
	})
	if err != nil {
		c.cache.Remove(p.effective)
		return "", err
	}

	c.cache.KeepAlive(p.effective)

	if p.postConvert != nil {
		out = p.postConvert(out)
	}
	return out, nil
}

// Preload builds (or reuses) the pool for from->to and returns a Handle
// bound to it.
func (c *Coordinator) Preload(ctx context.Context, from, to language.Code) (*Handle, error) {
	effFrom, effTo, err := c.resolvePair(from, to)
	if err != nil {
		return nil, err
	}
	p := c.buildPlan(effFrom, effTo)
	if !p.pureScript {
		if _, err := c.cache.GetOrCreate(ctx, p.effective); err != nil {
			return nil, err
		}
	}
	return &Handle{coordinator: c, plan: p}, nil
}

// Handle is the object Preload returns.
type Handle struct {
	coordinator *Coordinator
	plan        plan
}

// Translate runs text (or list) through the handle's pre-resolved plan.
func (h *Handle) Translate(ctx context.Context, input interface{}, isHTML bool) (interface{}, error) {
	texts, isList := normalizeInput(input)
	results := make([]string, len(texts))
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			continue
		}
		if h.plan.pureScript {
			results[i] = h.coordinator.runScriptOnly(h.plan, text)
			continue
		}
		out, err := h.coordinator.runThroughEngine(ctx, h.plan, text, isHTML)
		if err != nil {
			return nil, err
		}
		results[i] = out
	}
	return reassemble(results, isList), nil
}

// DiscardTranslations asks every worker in the handle's pool to drop
// its queued work.
func (h *Handle) DiscardTranslations() {
	if h.plan.pureScript {
		return
	}
	if entry := h.coordinator.cache.Get(h.plan.effective); entry != nil {
		entry.Pool.DiscardQueue()
	}
}

// Shutdown is idempotent: it cancels every pending translation and
// terminates every pool.
func (c *Coordinator) Shutdown() {
	c.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(c.pending))
	for _, cancel := range c.pending {
		cancels = append(cancels, cancel)
	}
	c.pending = make(map[string]context.CancelFunc)
	c.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	c.cache.Shutdown()
}

// Status is a structured snapshot of coordinator state: which pairs are
// currently cached and how many translations are in flight.
type Status struct {
	CachedPairs []string
	Pending     int
}

func (c *Coordinator) Status() Status {
	c.mu.Lock()
	pending := len(c.pending)
	c.mu.Unlock()
	return Status{CachedPairs: c.cache.Keys(), Pending: pending}
}

func normalizeInput(input interface{}) ([]string, bool) {
	switch v := input.(type) {
	case string:
		return []string{v}, false
	case []string:
		return v, true
	default:
		return nil, false
	}
}

func reassemble(texts []string, isList bool) interface{} {
	if !isList {
		if len(texts) == 0 {
			return ""
		}
		return texts[0]
	}
	return texts
}
