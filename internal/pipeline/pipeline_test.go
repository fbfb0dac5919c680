package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/dgallion1/docsplit/internal/doctree"
	"github.com/dgallion1/docsplit/internal/parser"
	"github.com/dgallion1/docsplit/internal/sink"
	"github.com/dgallion1/docsplit/internal/walker"
	"github.com/spf13/afero"
)

// memSink keeps written records and can fail a scripted number of times.
type memSink struct {
	files    map[string][]doctree.Record
	order    []string
	failures map[string][]error
	calls    int
}

func newMemSink() *memSink {
	return &memSink{files: map[string][]doctree.Record{}, failures: map[string][]error{}}
}

func (m *memSink) Write(_ context.Context, file string, records []doctree.Record) error {
	m.calls++
	if errs := m.failures[file]; len(errs) > 0 {
		m.failures[file] = errs[1:]
		return errs[0]
	}
	m.files[file] = records
	m.order = append(m.order, file)
	return nil
}

func (m *memSink) Close() error { return nil }

func newTestIndexer(t *testing.T, files map[string]string, s sink.Sink) *Indexer {
	t.Helper()
	fs := afero.NewMemMapFs()
	for name, content := range files {
		if err := fs.MkdirAll(filepath.Dir(name), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := afero.WriteFile(fs, name, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	log := slog.New(slog.DiscardHandler)
	w := walker.New(fs, walker.Options{Parser: parser.DefaultOptions()}, log)
	ix := NewIndexer(w, s, NewParseStats(time.Hour), log)
	ix.backoff = func(int) time.Duration { return 0 }
	return ix
}

func TestIndexer_WritesEachFile(t *testing.T) {
	ms := newMemSink()
	ix := newTestIndexer(t, map[string]string{
		"/docs/a.md":     "# A\nhello\n# B\nworld",
		"/docs/sub/c.md": "# C\nfoo",
	}, ms)

	sum, err := ix.Run(context.Background(), "/docs")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.Files != 2 || sum.FilesWritten != 2 || sum.Records != 3 {
		t.Errorf("unexpected summary %+v", sum)
	}
	if len(ms.files["a.md"]) != 2 || len(ms.files["sub/c.md"]) != 1 {
		t.Errorf("unexpected sink contents %+v", ms.files)
	}
	if ms.order[0] != "a.md" {
		t.Errorf("expected root files first, got %v", ms.order)
	}
	if snap := ix.stats.Snapshot(); snap.Count != 2 || snap.Failed != 0 {
		t.Errorf("expected 2 successful parse samples, got %+v", snap)
	}
}

func TestIndexer_ParseFailureIsReported(t *testing.T) {
	ms := newMemSink()
	ix := newTestIndexer(t, map[string]string{
		"/d/bad.md":  "\xff\xfe",
		"/d/good.md": "# G\nok",
	}, ms)

	sum, err := ix.Run(context.Background(), "/d")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sum.ParseFailures) != 1 || sum.ParseFailures[0].File != "bad.md" {
		t.Errorf("expected bad.md parse failure, got %+v", sum.ParseFailures)
	}
	if _, ok := ms.files["bad.md"]; ok {
		t.Error("failed file must not reach the sink")
	}
	if sum.FilesWritten != 1 {
		t.Errorf("expected 1 written file, got %d", sum.FilesWritten)
	}
	if snap := ix.stats.Snapshot(); snap.Failed != 1 {
		t.Errorf("expected the parse failure in stats, got %+v", snap)
	}
}

func TestIndexer_RetriesRetryableWrites(t *testing.T) {
	ms := newMemSink()
	ms.failures["a.md"] = []error{
		&sink.RetryableError{StatusCode: 503, Err: errors.New("unavailable")},
		&sink.RetryableError{StatusCode: 429, Err: errors.New("slow down")},
	}
	ix := newTestIndexer(t, map[string]string{"/r/a.md": "# A\nx"}, ms)

	sum, err := ix.Run(context.Background(), "/r")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ms.calls != 3 {
		t.Errorf("expected 3 write attempts, got %d", ms.calls)
	}
	if sum.FilesWritten != 1 || len(sum.WriteFailures) != 0 {
		t.Errorf("expected success after retries, got %+v", sum)
	}
}

func TestIndexer_GivesUpAfterMaxRetries(t *testing.T) {
	ms := newMemSink()
	for range MaxRetries {
		ms.failures["a.md"] = append(ms.failures["a.md"], &sink.RetryableError{Err: errors.New("down")})
	}
	ix := newTestIndexer(t, map[string]string{"/r/a.md": "# A\nx", "/r/b.md": "# B\ny"}, ms)

	sum, err := ix.Run(context.Background(), "/r")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sum.WriteFailures) != 1 || sum.WriteFailures[0].File != "a.md" {
		t.Errorf("expected a.md write failure, got %+v", sum.WriteFailures)
	}
	if sum.FilesWritten != 1 {
		t.Errorf("expected b.md still written, got %d files", sum.FilesWritten)
	}
}

func TestIndexer_PermanentErrorNotRetried(t *testing.T) {
	ms := newMemSink()
	ms.failures["a.md"] = []error{errors.New("bad request"), errors.New("unused")}
	ix := newTestIndexer(t, map[string]string{"/r/a.md": "# A\nx"}, ms)

	sum, err := ix.Run(context.Background(), "/r")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ms.calls != 1 {
		t.Errorf("expected a single attempt, got %d", ms.calls)
	}
	if len(sum.WriteFailures) != 1 {
		t.Errorf("expected 1 write failure, got %+v", sum.WriteFailures)
	}
}

func TestIndexer_MissingRoot(t *testing.T) {
	ix := newTestIndexer(t, nil, newMemSink())
	if _, err := ix.Run(context.Background(), "/missing"); err == nil {
		t.Fatal("expected error for missing root")
	}
}

func TestIndexer_CanceledContext(t *testing.T) {
	ix := newTestIndexer(t, map[string]string{"/r/a.md": "# A\nx"}, newMemSink())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := ix.Run(ctx, "/r"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestIndexer_OneRunAtATime(t *testing.T) {
	ms := newMemSink()
	ix := newTestIndexer(t, map[string]string{"/r/a.md": "# A\nx"}, ms)

	ix.mu.Lock()
	if _, err := ix.Run(context.Background(), "/r"); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy while a run holds the indexer, got %v", err)
	}
	if ms.calls != 0 {
		t.Errorf("expected no sink writes from the rejected run, got %d", ms.calls)
	}
	ix.mu.Unlock()

	if _, err := ix.Run(context.Background(), "/r"); err != nil {
		t.Fatalf("expected run to proceed once released, got %v", err)
	}
	if ix.Sink() != sink.Sink(ms) {
		t.Error("expected Sink to return the configured sink")
	}
}

func TestIndexer_SQLiteSink(t *testing.T) {
	s, err := sink.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "idx.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer s.Close()

	ix := newTestIndexer(t, map[string]string{"/r/a.md": "# A\nhello\n## B\nworld\n# C\nfoo"}, s)
	if _, err := ix.Run(context.Background(), "/r"); err != nil {
		t.Fatalf("run: %v", err)
	}
	// Re-running must not duplicate rows.
	if _, err := ix.Run(context.Background(), "/r"); err != nil {
		t.Fatalf("second run: %v", err)
	}

	got, err := s.Records(context.Background(), "a.md")
	if err != nil {
		t.Fatalf("records: %v", err)
	}
	if len(got) != 2 || got[0].Title != "A" || got[1].Title != "C" {
		t.Errorf("expected records A and C, got %+v", got)
	}
}

func TestBackoff_Bounds(t *testing.T) {
	for attempt := range 8 {
		d := Backoff(attempt)
		base := time.Duration(1<<uint(attempt)) * time.Second
		if base > 30*time.Second {
			base = 30 * time.Second
		}
		if d < base || d >= base+base/2 {
			t.Errorf("Backoff(%d) = %v, want in [%v, %v)", attempt, d, base, base+base/2)
		}
	}
}

func TestParseStats_Snapshot(t *testing.T) {
	s := NewParseStats(time.Hour)
	for _, ms := range []int{40, 10, 30, 20} {
		s.Record(time.Duration(ms)*time.Millisecond, ms == 40)
	}
	snap := s.Snapshot()
	if snap.Count != 4 || snap.MinMs != 10 || snap.MaxMs != 40 {
		t.Errorf("unexpected snapshot %+v", snap)
	}
	if snap.Failed != 1 {
		t.Errorf("expected 1 failed sample, got %d", snap.Failed)
	}
	if snap.AvgMs != 25 {
		t.Errorf("expected avg 25, got %v", snap.AvgMs)
	}
	if snap.P50Ms != 25 {
		t.Errorf("expected p50 25, got %v", snap.P50Ms)
	}
}

func TestParseStats_PrunesOldSamples(t *testing.T) {
	s := NewParseStats(time.Minute)
	now := time.Now()
	s.now = func() time.Time { return now }
	s.Record(5*time.Millisecond, true)

	now = now.Add(2 * time.Minute)
	s.Record(7*time.Millisecond, false)

	snap := s.Snapshot()
	if snap.Count != 1 || snap.MinMs != 7 || snap.Failed != 0 {
		t.Errorf("expected only the recent sample, got %+v", snap)
	}
}

func TestParseStats_Empty(t *testing.T) {
	if snap := NewParseStats(0).Snapshot(); snap != (StatsSnapshot{}) {
		t.Errorf("expected zero snapshot, got %+v", snap)
	}
}

func TestPercentile(t *testing.T) {
	values := []int64{10, 20, 30, 40, 50}
	tests := []struct {
		pct  float64
		want float64
	}{
		{0, 10},
		{50, 30},
		{100, 50},
		{25, 20},
	}
	for _, tt := range tests {
		if got := percentile(values, tt.pct); got != tt.want {
			t.Errorf("percentile(%v) = %v, want %v", tt.pct, got, tt.want)
		}
	}
	if got := percentile(nil, 50); got != 0 {
		t.Errorf("expected 0 for empty input, got %v", got)
	}
}
