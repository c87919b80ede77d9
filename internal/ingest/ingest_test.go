package ingest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/joseph-ayodele/phototranslate/constants"
	"github.com/joseph-ayodele/phototranslate/internal/async"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingSubmitter struct {
	mu    sync.Mutex
	paths []string
	fail  map[string]bool
}

func (r *recordingSubmitter) Submit(_ context.Context, path string) (FileResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, filepath.Base(path))
	if r.fail[filepath.Base(path)] {
		return FileResult{}, errors.New("cannot decode")
	}
	return FileResult{Path: path, Status: constants.ScanStatusOCROK, Reused: filepath.Base(path) == "dup.png"}, nil
}

func writeFiles(t *testing.T, root string, names ...string) {
	t.Helper()
	for _, n := range names {
		p := filepath.Join(root, n)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestScanDirectory(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root,
		"a.jpg", "B.PNG", "dup.png", "notes.txt", "broken.webp",
		"sub/c.heic", ".hidden/d.png", ".e.png",
	)
	sub := &recordingSubmitter{fail: map[string]bool{"broken.webp": true}}

	results, stats, err := ScanDirectory(context.Background(), root, true, sub)
	if err != nil {
		t.Fatalf("ScanDirectory: %v", err)
	}
	sort.Strings(sub.paths)
	if diff := cmp.Diff([]string{"B.PNG", "a.jpg", "broken.webp", "c.heic", "dup.png"}, sub.paths); diff != "" {
		t.Errorf("submitted (-want +got):\n%s", diff)
	}
	if stats.Matched != 5 || stats.Succeeded != 4 || stats.Failed != 1 || stats.Reused != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if len(results) != 5 {
		t.Errorf("results = %d, want 5", len(results))
	}
}

func TestScanDirectoryIncludesHidden(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, ".hidden/d.png", ".e.png")
	sub := &recordingSubmitter{}
	if _, stats, err := ScanDirectory(context.Background(), root, false, sub); err != nil || stats.Matched != 2 {
		t.Fatalf("stats = %+v, err = %v", stats, err)
	}
}

func TestScanDirectoryErrors(t *testing.T) {
	if _, _, err := ScanDirectory(context.Background(), " ", true, &recordingSubmitter{}); err == nil {
		t.Error("blank root should fail")
	}
	if _, _, err := ScanDirectory(context.Background(), filepath.Join(t.TempDir(), "nope"), true, &recordingSubmitter{}); err == nil {
		t.Error("missing root should fail")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	root := t.TempDir()
	writeFiles(t, root, "a.png")
	if _, _, err := ScanDirectory(ctx, root, true, &recordingSubmitter{}); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled walk = %v", err)
	}
}

type chanQueue struct{ jobs []async.Job }

func (q *chanQueue) Enqueue(_ context.Context, job async.Job) error {
	q.jobs = append(q.jobs, job)
	return nil
}
func (q *chanQueue) Shutdown(context.Context) {}

func TestQueueSubmitter(t *testing.T) {
	q := &chanQueue{}
	s := QueueSubmitter{Queue: q, Model: constants.OCRModelKorean, Target: "en"}
	r, err := s.Submit(context.Background(), "photo.jpg")
	if err != nil {
		t.Fatal(err)
	}
	if !r.Queued || r.Status != constants.ScanStatusQueued || !filepath.IsAbs(r.Path) {
		t.Errorf("result = %+v", r)
	}
	if len(q.jobs) != 1 || q.jobs[0].Model != constants.OCRModelKorean || q.jobs[0].Target != "en" {
		t.Errorf("jobs = %+v", q.jobs)
	}
}

func TestContentTypeFor(t *testing.T) {
	tests := map[string]string{"a.JPG": "image/jpeg", "b.tif": "image/tiff", "c.heic": "image/heic", "d.png": "image/png", "e": "application/octet-stream"}
	for in, want := range tests {
		if got := contentTypeFor(in); got != want {
			t.Errorf("contentTypeFor(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestWatcherEmitsNewImages(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "existing.png", "skip.txt")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, _, err := StartWatcher(ctx, WatchConfig{Roots: []string{root}, InitialScan: true, Debounce: 20 * time.Millisecond}, quietLogger())
	if err != nil {
		t.Fatalf("StartWatcher: %v", err)
	}

	next := func() string {
		t.Helper()
		select {
		case p := <-events:
			return filepath.Base(p)
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for watcher event")
			return ""
		}
	}
	if got := next(); got != "existing.png" {
		t.Fatalf("initial event = %q", got)
	}

	writeFiles(t, root, "ignored.txt", "new.jpg")
	if got := next(); got != "new.jpg" {
		t.Fatalf("event = %q, want new.jpg", got)
	}

	cancel()
	for range events {
	}
}

func TestStartWatcherRequiresRoots(t *testing.T) {
	if _, _, err := StartWatcher(context.Background(), WatchConfig{}, quietLogger()); err == nil {
		t.Fatal("expected error")
	}
}

func TestForward(t *testing.T) {
	events := make(chan string, 2)
	events <- "/x/a.png"
	events <- "/x/bad.png"
	close(events)
	sub := &recordingSubmitter{fail: map[string]bool{"bad.png": true}}
	Forward(context.Background(), events, sub, quietLogger())
	if diff := cmp.Diff([]string{"a.png", "bad.png"}, sub.paths); diff != "" {
		t.Errorf("forwarded (-want +got):\n%s", diff)
	}
}
