package ocr

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

// fakeEngine returns canned words keyed by image path.
type fakeEngine struct {
	words map[string][]Word
	err   error
}

func (f *fakeEngine) Name() string { return "fake" }

func (f *fakeEngine) Words(_ context.Context, imagePath string) ([]Word, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.words[imagePath], nil
}

func newProcessor(t *testing.T, engine Engine, minConf int) *Processor {
	t.Helper()
	p, err := New(Config{
		Engine:        engine,
		MinConfidence: &minConf,
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func writeImage(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("fake-image-bytes"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRecognize_ConfidenceStrictlyGreater(t *testing.T) {
	// WHAT: A word is accepted iff confidence > threshold AND trimmed text is
	// non-empty. A word at exactly the threshold is rejected.
	// WHY: The strict inequality is the documented acceptance rule.
	dir := t.TempDir()
	img := writeImage(t, dir, "a.png")

	engine := &fakeEngine{words: map[string][]Word{
		img: {
			{Text: "keep", Confidence: 51},
			{Text: "exact", Confidence: 50},
			{Text: "low", Confidence: 10},
			{Text: "   ", Confidence: 99},
			{Text: " trimmed ", Confidence: 80},
		},
	}}
	p := newProcessor(t, engine, 50)

	res := p.Recognize(context.Background(), img)
	if res.Err != "" {
		t.Fatalf("unexpected error: %s", res.Err)
	}
	if res.Text != "keep trimmed" {
		t.Errorf("text = %q, want %q", res.Text, "keep trimmed")
	}
	if res.WordCount != 2 {
		t.Errorf("word count = %d, want 2", res.WordCount)
	}
	if res.CharCount != len("keep trimmed") {
		t.Errorf("char count = %d", res.CharCount)
	}
	if !res.HasText {
		t.Error("expected HasText")
	}
	want := float64(51+80) / 2
	if res.AvgConfidence != want {
		t.Errorf("avg confidence = %v, want %v", res.AvgConfidence, want)
	}
}

func TestRecognize_NoAcceptedWords(t *testing.T) {
	// WHAT: Zero accepted words → mean confidence is exactly 0, no
	// division-by-zero fault, HasText false.
	dir := t.TempDir()
	img := writeImage(t, dir, "b.png")

	engine := &fakeEngine{words: map[string][]Word{
		img: {{Text: "faint", Confidence: 12}},
	}}
	p := newProcessor(t, engine, 50)

	res := p.Recognize(context.Background(), img)
	if res.HasText || res.WordCount != 0 || res.CharCount != 0 {
		t.Errorf("expected empty result, got %+v", res)
	}
	if res.AvgConfidence != 0 {
		t.Errorf("avg confidence = %v, want 0", res.AvgConfidence)
	}
}

func TestRecognize_MissingFile(t *testing.T) {
	p := newProcessor(t, &fakeEngine{}, 50)
	res := p.Recognize(context.Background(), "/nonexistent/x.png")
	if res.Err == "" {
		t.Fatal("expected error string")
	}
	if res.HasText || res.WordCount != 0 || res.AvgConfidence != 0 {
		t.Errorf("error result must be zero-valued, got %+v", res)
	}
}

func TestRecognize_EngineFailure(t *testing.T) {
	// WHAT: An engine exception becomes an error-carrying zero Result.
	// WHY: OCR failures never propagate to the caller.
	dir := t.TempDir()
	img := writeImage(t, dir, "c.png")

	p := newProcessor(t, &fakeEngine{err: errors.New("boom")}, 50)
	res := p.Recognize(context.Background(), img)
	if res.Err == "" {
		t.Fatal("expected error string")
	}
	if res.HasText {
		t.Error("HasText must be false on engine failure")
	}
}

func TestNew_RejectsBadThreshold(t *testing.T) {
	for _, bad := range []int{101, -5} {
		if _, err := New(Config{Engine: &fakeEngine{}, MinConfidence: &bad}); err == nil {
			t.Errorf("expected error for threshold %d", bad)
		}
	}
}

func TestNew_ZeroThresholdHonored(t *testing.T) {
	// WHAT: An explicit zero threshold is kept, not replaced by the
	// default; only nil falls back to 50.
	// WHY: Zero is a valid setting that accepts every positive-confidence
	// word.
	img := writeImage(t, t.TempDir(), "z.png")
	engine := &fakeEngine{words: map[string][]Word{
		img: {
			{Text: "faint", Confidence: 1},
			{Text: "zero", Confidence: 0},
		},
	}}

	p := newProcessor(t, engine, 0)
	if p.MinConfidence() != 0 {
		t.Fatalf("threshold = %d, want 0", p.MinConfidence())
	}
	res := p.Recognize(context.Background(), img)
	// Confidence 0 still fails the strict > comparison.
	if res.Text != "faint" {
		t.Errorf("text = %q, want %q", res.Text, "faint")
	}

	p, err := New(Config{Engine: engine, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	if err != nil {
		t.Fatal(err)
	}
	if p.MinConfidence() != 50 {
		t.Errorf("nil threshold = %d, want default 50", p.MinConfidence())
	}
}

func TestFilterUseful_DeletesRejectedImages(t *testing.T) {
	// WHAT: Results failing the min-words/min-chars gate are dropped and
	// their backing image files deleted.
	// WHY: Images without meaningful text are not worth keeping on disk.
	dir := t.TempDir()
	keep := writeImage(t, dir, "keep.png")
	drop := writeImage(t, dir, "drop.png")

	p := newProcessor(t, &fakeEngine{}, 50)
	results := []Result{
		{ImagePath: keep, Text: "invoice total due", WordCount: 3, CharCount: 17, HasText: true},
		{ImagePath: drop, Text: "Hi", WordCount: 1, CharCount: 2, HasText: true},
	}

	useful := p.FilterUseful(results, 3, 10)
	if len(useful) != 1 || useful[0].ImagePath != keep {
		t.Fatalf("useful = %+v", useful)
	}
	if _, err := os.Stat(drop); !os.IsNotExist(err) {
		t.Error("rejected image was not deleted")
	}
	if _, err := os.Stat(keep); err != nil {
		t.Error("kept image must survive")
	}
}

func TestFilterUseful_Idempotent(t *testing.T) {
	// WHAT: Re-running the filter on its accept set returns the same list
	// and performs no further deletions.
	dir := t.TempDir()
	keep := writeImage(t, dir, "keep.png")

	p := newProcessor(t, &fakeEngine{}, 50)
	results := []Result{
		{ImagePath: keep, Text: "three words here", WordCount: 3, CharCount: 16, HasText: true},
	}

	first := p.FilterUseful(results, 3, 10)
	second := p.FilterUseful(first, 3, 10)
	if len(second) != len(first) {
		t.Fatalf("second pass changed the accept set: %d vs %d", len(second), len(first))
	}
	if _, err := os.Stat(keep); err != nil {
		t.Error("image deleted on idempotent re-run")
	}
}

func TestScenario_LowConfidenceImageFiltered(t *testing.T) {
	// WHAT: Words ["Hi","","there"] at confidences [90,10,20], threshold 50 →
	// only "Hi" accepted (count 1, avg 90, HasText). With min_words=3 the
	// image is deleted by FilterUseful and excluded.
	dir := t.TempDir()
	img := writeImage(t, dir, "sign.png")

	engine := &fakeEngine{words: map[string][]Word{
		img: {
			{Text: "Hi", Confidence: 90},
			{Text: "", Confidence: 10},
			{Text: "there", Confidence: 20},
		},
	}}
	p := newProcessor(t, engine, 50)

	res := p.Recognize(context.Background(), img)
	if res.Text != "Hi" || res.WordCount != 1 || res.AvgConfidence != 90 || !res.HasText {
		t.Fatalf("unexpected result: %+v", res)
	}

	useful := p.FilterUseful([]Result{res}, 3, 10)
	if len(useful) != 0 {
		t.Errorf("expected image excluded, got %+v", useful)
	}
	if _, err := os.Stat(img); !os.IsNotExist(err) {
		t.Error("image file should be deleted")
	}
}

func TestRecognizeAll_PreservesOrder(t *testing.T) {
	dir := t.TempDir()
	a := writeImage(t, dir, "a.png")
	b := writeImage(t, dir, "b.png")

	engine := &fakeEngine{words: map[string][]Word{
		a: {{Text: "first", Confidence: 90}},
		b: {{Text: "second", Confidence: 90}},
	}}
	p := newProcessor(t, engine, 50)

	results := p.RecognizeAll(context.Background(), []string{b, a})
	if len(results) != 2 {
		t.Fatalf("got %d results", len(results))
	}
	if results[0].Text != "second" || results[1].Text != "first" {
		t.Errorf("order not preserved: %q, %q", results[0].Text, results[1].Text)
	}
}
