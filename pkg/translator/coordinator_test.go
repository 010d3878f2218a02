package translator

import (
	"context"
	"testing"
	"time"

	"digital.vasic.nmt/pkg/language"
	"digital.vasic.nmt/pkg/models"
	"digital.vasic.nmt/pkg/worker"
)

func testConfig() Config {
	return Config{
		WorkersPerPair:        1,
		WorkerInitTimeout:     time.Second,
		MemoryCheckInterval:   time.Hour,
		IdleTimeout:           0,
		TimeoutResetThreshold: time.Minute,
		MaxDetectionLength:    64,
	}
}

func newCoordinatorForTest(t *testing.T, store *models.Store) *Coordinator {
	t.Helper()
	return New(testConfig(), store, worker.StaticInference, nil, nil)
}

func TestTranslate_IdentityShortCircuit(t *testing.T) {
	c := New(testConfig(), nil, worker.StaticInference, nil, nil)
	out, err := c.Translate(context.Background(), "hello", language.English, language.English, false)
	if err != nil {
		t.Fatal(err)
	}
	if out.(string) != "hello" {
		t.Fatalf("got %v", out)
	}
}

func TestTranslate_InvalidLanguage(t *testing.T) {
	c := New(testConfig(), nil, worker.StaticInference, nil, nil)
	_, err := c.Translate(context.Background(), "hi", language.Code("xx"), language.English, false)
	if err == nil {
		t.Fatal("expected InvalidLanguage error")
	}
}

func TestTranslate_EmptyTextBypassesEngine(t *testing.T) {
	c := New(testConfig(), nil, worker.StaticInference, nil, nil)
	out, err := c.Translate(context.Background(), "   ", language.English, language.ChineseSimplified, false)
	if err != nil {
		t.Fatal(err)
	}
	if out.(string) != "" {
		t.Fatalf("got %q, want empty", out)
	}
}

func TestTranslate_PreservesListShape(t *testing.T) {
	c := New(testConfig(), nil, worker.StaticInference, nil, nil)
	out, err := c.Translate(context.Background(), []string{"a", "", "b"}, language.English, language.English, false)
	if err != nil {
		t.Fatal(err)
	}
	list, ok := out.([]string)
	if !ok {
		t.Fatalf("got %T, want []string", out)
	}
	if len(list) != 3 {
		t.Fatalf("got %v", list)
	}
}

func TestTranslate_PureScriptConversion_NoEngineBuilt(t *testing.T) {
	c := New(testConfig(), nil, worker.StaticInference, nil, nil)
	out, err := c.Translate(context.Background(), "简体中文", language.ChineseSimplified, language.ChineseTraditional, false)
	if err != nil {
		t.Fatal(err)
	}
	if out.(string) == "简体中文" {
		t.Fatal("expected script conversion to change the text")
	}
}

func TestTranslate_ComplexScriptConversion_ChainsBothDirections(t *testing.T) {
	c := New(testConfig(), nil, worker.StaticInference, nil, nil)
	out, err := c.Translate(context.Background(), "繁體中文", language.ChineseTraditional, language.ChineseHongKong, false)
	if err != nil {
		t.Fatal(err)
	}
	// TO_HANS[zh-Hant] then FROM_HANS[zh-HK] is a round trip back to
	// Traditional glyphs for characters this converter's table covers.
	if out.(string) == "" {
		t.Fatal("expected non-empty chained conversion result")
	}
}

func TestTranslate_DirectPair_SimpleText(t *testing.T) {
	pair := models.Pair{From: language.English, To: language.ChineseSimplified}
	store := newTestStore(t, pair)
	c := newCoordinatorForTest(t, store)
	defer c.Shutdown()

	out, err := c.Translate(context.Background(), "Hello, world!", language.English, language.ChineseSimplified, false)
	if err != nil {
		t.Fatal(err)
	}
	if out.(string) == "" {
		t.Fatal("expected non-empty translation")
	}
	if len(c.cache.Keys()) != 1 {
		t.Fatalf("got %d cached pools, want 1", len(c.cache.Keys()))
	}
}

func TestTranslate_PivotPair_BuildsTwoModelPool(t *testing.T) {
	jaEn := models.Pair{From: language.Japanese, To: language.English}
	enZh := models.Pair{From: language.English, To: language.ChineseSimplified}
	store := newTestStore(t, jaEn, enZh)
	c := newCoordinatorForTest(t, store)
	defer c.Shutdown()

	out, err := c.Translate(context.Background(), "こんにちは、世界！", language.Japanese, language.ChineseSimplified, false)
	if err != nil {
		t.Fatal(err)
	}
	if out.(string) == "" {
		t.Fatal("expected non-empty translation")
	}
}

func TestPreload_ReusesSameEntry(t *testing.T) {
	pair := models.Pair{From: language.English, To: language.ChineseSimplified}
	store := newTestStore(t, pair)
	c := newCoordinatorForTest(t, store)
	defer c.Shutdown()

	h1, err := c.Preload(context.Background(), language.English, language.ChineseSimplified)
	if err != nil {
		t.Fatal(err)
	}
	h2, err := c.Preload(context.Background(), language.English, language.ChineseSimplified)
	if err != nil {
		t.Fatal(err)
	}
	if h1.plan.effective != h2.plan.effective {
		t.Fatal("expected both handles to target the same effective pair")
	}
	if len(c.cache.Keys()) != 1 {
		t.Fatalf("got %d cached pools, want 1", len(c.cache.Keys()))
	}
}

func TestShutdown_ClearsCacheAndIsIdempotent(t *testing.T) {
	pair := models.Pair{From: language.English, To: language.ChineseSimplified}
	store := newTestStore(t, pair)
	c := newCoordinatorForTest(t, store)

	if _, err := c.Translate(context.Background(), "hi", language.English, language.ChineseSimplified, false); err != nil {
		t.Fatal(err)
	}
	c.Shutdown()
	c.Shutdown()

	if len(c.cache.Keys()) != 0 {
		t.Fatal("expected cache to be empty after Shutdown")
	}
}
