package notestore

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/scriptor/internal/compress"
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

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) record(kind, id string) {
	r.mu.Lock()
	r.events = append(r.events, kind+":"+id)
	r.mu.Unlock()
}

func (r *recorder) has(e string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, got := range r.events {
		if got == e {
			return true
		}
	}
	return false
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func startWatch(t *testing.T, s *Store, rec *recorder) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go s.Watch(ctx, rec.record)
	time.Sleep(100 * time.Millisecond)
}

func TestWatcher_ExternalWriteIndexed(t *testing.T) {
	s, vaultDir := testStore(t, compress.None)
	rec := &recorder{}
	startWatch(t, s, rec)

	d := newDoc("external", "from elsewhere")
	_ = os.WriteFile(filepath.Join(vaultDir, d.ID+".note"), serialize(t, d), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := s.Checksum(d.ID)
		return cs != ""
	}, "external file not indexed by watcher")
	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		return rec.has(Created+":"+d.ID) || rec.has(Updated+":"+d.ID)
	}, "expected change callback for external file")
}

func TestWatcher_OwnSaveNotReported(t *testing.T) {
	s, _ := testStore(t, compress.None)
	rec := &recorder{}
	startWatch(t, s, rec)

	d := newDoc("mine", "saved by the store")
	if _, err := s.Create(context.Background(), d); err != nil {
		t.Fatal(err)
	}
	time.Sleep(500 * time.Millisecond)
	if n := rec.count(); n != 0 {
		t.Errorf("own write produced %d callbacks", n)
	}
}

func TestWatcher_DeleteRemovesFromIndex(t *testing.T) {
	s, vaultDir := testStore(t, compress.None)
	d := newDoc("doomed", "x")
	if _, err := s.Create(context.Background(), d); err != nil {
		t.Fatal(err)
	}
	rec := &recorder{}
	startWatch(t, s, rec)

	_ = os.Remove(filepath.Join(vaultDir, d.ID+".note"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := s.Checksum(d.ID)
		return cs == "" && rec.has(Deleted+":"+d.ID)
	}, "deleted file still in index")
}
