// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package rewrite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.astrophena.name/stylebot/cmd/stylebot/internal/backend"
	"go.astrophena.name/stylebot/cmd/stylebot/internal/style"
	"go.astrophena.name/stylebot/internal/store"
	"go.astrophena.name/stylebot/internal/testutil"
)

type fixedSelector struct{ b backend.Backend }

func (s fixedSelector) Select() backend.Backend { return s.b }

type fakeBackend struct {
	gotInstructions atomic.Value
	rewrite         func(text string) (string, error)
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) Rewrite(_ context.Context, text, instructions string) (string, error) {
	f.gotInstructions.Store(instructions)
	return f.rewrite(text)
}

func newPipeline(t *testing.T, s store.Store, sel Selector) *Pipeline {
	t.Helper()
	p, err := New(Opts{Store: s, Selector: sel})
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestNewValidates(t *testing.T) {
	t.Parallel()

	if _, err := New(Opts{Selector: backend.NewSelector(backend.Config{})}); err == nil {
		t.Error("want error without Store")
	}
	if _, err := New(Opts{Store: store.NewMemStore()}); err == nil {
		t.Error("want error without Selector")
	}
}

func TestRewriteOffline(t *testing.T) {
	t.Parallel()

	p := newPipeline(t, store.NewMemStore(), backend.NewSelector(backend.Config{}))
	def := style.Default()

	seen := make(map[string]bool)
	for range 100 {
		got, err := p.RewriteInStyle(t.Context(), "123", "hello")
		if err != nil {
			t.Fatal(err)
		}
		text, tag, ok := strings.Cut(got, "\n\n")
		if !ok {
			t.Fatalf("output %q has no hashtag separator", got)
		}
		testutil.AssertEqual(t, text, "hello")
		testutil.AssertContains(t, def.Hashtags, tag)
		seen[tag] = true
	}
	if len(seen) != len(def.Hashtags) {
		t.Errorf("want every default hashtag to be picked, got %v", seen)
	}
}

func TestRewriteUsesStoredProfile(t *testing.T) {
	t.Parallel()

	s := store.NewMemStore()
	if err := s.Set(t.Context(), "42", map[string]any{"voice_instructions": "Formal."}); err != nil {
		t.Fatal(err)
	}
	fb := &fakeBackend{rewrite: func(text string) (string, error) { return strings.ToUpper(text), nil }}
	p, err := New(Opts{
		Store:    s,
		Selector: fixedSelector{fb},
		Intn:     func(int) int { return 1 },
	})
	if err != nil {
		t.Fatal(err)
	}

	got, err := p.RewriteInStyle(t.Context(), "42", "hi")
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, got, "HI\n\n"+style.Default().Hashtags[1])
	testutil.AssertEqual(t, fb.gotInstructions.Load(), "Formal.")

	// Other chats get the defaults.
	if _, err := p.RewriteInStyle(t.Context(), "7", "hi"); err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, fb.gotInstructions.Load(), style.Default().VoiceInstructions)
}

func TestRewriteCustomDefaults(t *testing.T) {
	t.Parallel()

	p, err := New(Opts{
		Store:    store.NewMemStore(),
		Selector: backend.NewSelector(backend.Config{}),
		Defaults: style.Profile{Hashtags: []string{"#only"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	got, err := p.RewriteInStyle(t.Context(), "1", "text")
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, got, "text\n\n#only")
	testutil.AssertEqual(t, p.Defaults().VoiceInstructions, style.Default().VoiceInstructions)
}

func TestRewriteBackendError(t *testing.T) {
	t.Parallel()

	errBoom := errors.New("boom")
	fb := &fakeBackend{rewrite: func(text string) (string, error) { return "partial", errBoom }}
	p := newPipeline(t, store.NewMemStore(), fixedSelector{fb})

	got, err := p.RewriteInStyle(t.Context(), "1", "text")
	if !errors.Is(err, errBoom) {
		t.Fatalf("want %v, got %v", errBoom, err)
	}
	testutil.AssertEqual(t, got, "")
}

type failingStore struct {
	store.Store
	err error
}

func (s failingStore) Get(context.Context, string) (json.RawMessage, bool, error) {
	return nil, false, s.err
}

func TestRewriteStoreError(t *testing.T) {
	t.Parallel()

	errDisk := errors.New("disk is gone")
	var called atomic.Bool
	fb := &fakeBackend{rewrite: func(text string) (string, error) {
		called.Store(true)
		return text, nil
	}}
	p := newPipeline(t, failingStore{Store: store.NewMemStore(), err: errDisk}, fixedSelector{fb})

	got, err := p.RewriteInStyle(t.Context(), "1", "text")
	if !errors.Is(err, errDisk) {
		t.Fatalf("want %v, got %v", errDisk, err)
	}
	testutil.AssertEqual(t, got, "")
	testutil.AssertEqual(t, called.Load(), false)
}

type switchingSelector struct {
	mu sync.Mutex
	b  backend.Backend
}

func (s *switchingSelector) Select() backend.Backend {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b
}

func TestRewriteSelectsPerCall(t *testing.T) {
	t.Parallel()

	sel := &switchingSelector{b: backend.Offline{}}
	p, err := New(Opts{Store: store.NewMemStore(), Selector: sel, Intn: func(int) int { return 0 }})
	if err != nil {
		t.Fatal(err)
	}

	got, _ := p.RewriteInStyle(t.Context(), "1", "text")
	testutil.AssertEqual(t, got, "text\n\n"+style.Default().Hashtags[0])

	sel.mu.Lock()
	sel.b = &fakeBackend{rewrite: func(string) (string, error) { return "remote", nil }}
	sel.mu.Unlock()

	got, _ = p.RewriteInStyle(t.Context(), "1", "text")
	testutil.AssertEqual(t, got, "remote\n\n"+style.Default().Hashtags[0])
}

func TestRewriteConcurrent(t *testing.T) {
	t.Parallel()

	// A slow backend must not serialize calls from different chats.
	var inFlight, maxInFlight atomic.Int32
	fb := &fakeBackend{rewrite: func(text string) (string, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			m := maxInFlight.Load()
			if n <= m || maxInFlight.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		return text, nil
	}}
	p := newPipeline(t, store.NewMemStore(), fixedSelector{fb})

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := fmt.Sprint(i)
			got, err := p.RewriteInStyle(t.Context(), id, "msg "+id)
			if err != nil {
				t.Error(err)
				return
			}
			if !strings.HasPrefix(got, "msg "+id+"\n\n") {
				t.Errorf("chat %s: unexpected output %q", id, got)
			}
		}()
	}
	wg.Wait()

	if maxInFlight.Load() < 2 {
		t.Errorf("backend calls were serialized: max in flight %d", maxInFlight.Load())
	}
}
