package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/starford/faqs/internal/faqstore"
	"github.com/starford/faqs/internal/testutil"
)

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func startWatcher(t *testing.T) (*faqstore.Store, string, *atomic.Int32) {
	t.Helper()
	store, fs, _ := testutil.TestStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	var calls atomic.Int32
	go func() {
		defer close(done)
		if err := Watch(ctx, store, fs.Root(), testutil.Logger(), func() { calls.Add(1) }); err != nil {
			t.Errorf("Watch: %v", err)
		}
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	time.Sleep(100 * time.Millisecond)
	return store, filepath.Join(fs.Root(), store.Name()), &calls
}

func TestWatch_ExternalEditNotifies(t *testing.T) {
	store, path, calls := startWatcher(t)

	content := []byte(`[{"id":5,"question":"edited","answer":"by hand"}]`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return calls.Load() > 0
	}, "external edit not reported")

	faq, err := store.GetByID(5)
	if err != nil {
		t.Fatalf("GetByID after edit: %v", err)
	}
	if faq.Question != "edited" {
		t.Errorf("question = %q", faq.Question)
	}
}

func TestWatch_OwnWritesIgnored(t *testing.T) {
	store, _, calls := startWatcher(t)

	for i := 0; i < 3; i++ {
		if _, err := store.Insert(faqstore.Draft{Question: "q", Answer: "a"}); err != nil {
			t.Fatal(err)
		}
	}
	time.Sleep(500 * time.Millisecond)
	if n := calls.Load(); n != 0 {
		t.Errorf("callback fired %d times for the store's own writes", n)
	}
}

func TestWatch_CorruptEditNotReported(t *testing.T) {
	_, path, calls := startWatcher(t)

	if err := os.WriteFile(path, []byte("{{{"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(500 * time.Millisecond)
	if n := calls.Load(); n != 0 {
		t.Errorf("callback fired %d times for a corrupt edit", n)
	}

	// Restoring valid contents is picked up.
	if err := os.WriteFile(path, []byte(`[]`), 0o644); err != nil {
		t.Fatal(err)
	}
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return calls.Load() > 0
	}, "restored file not reported")
}

func TestWatch_MissingDir(t *testing.T) {
	store, _, _ := testutil.TestStore(t)
	err := Watch(context.Background(), store, filepath.Join(t.TempDir(), "gone"), testutil.Logger(), nil)
	if err == nil {
		t.Error("expected error watching a missing directory")
	}
}
