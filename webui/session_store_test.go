package webui

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"spooktrunt/logging"
	"spooktrunt/studio"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestStore(clock *fakeClock, counts *[]int) *SessionStore {
	return NewSessionStore(SessionStoreConfig{
		TTL: time.Hour,
		Factory: func(string) *studio.Studio {
			return studio.New(&fakeText{}, fakeImages{}, logging.NewNop())
		},
		Now: clock.Now,
		OnCountChange: func(n int) {
			if counts != nil {
				*counts = append(*counts, n)
			}
		},
	})
}

func TestSessionStore_CreateAndGet(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	var counts []int
	store := newTestStore(clock, &counts)

	id, st := store.Create()
	if id == "" || st == nil {
		t.Fatal("Create returned an empty session")
	}
	got, err := store.Get(id)
	if err != nil || got != st {
		t.Fatalf("Get() = %p, %v; want the created studio", got, err)
	}
	if _, err := store.Get("nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get(unknown) error = %v", err)
	}
	if len(counts) != 1 || counts[0] != 1 {
		t.Errorf("count callbacks = %v", counts)
	}
}

func TestSessionStore_SlidingExpiry(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	store := newTestStore(clock, nil)
	id, _ := store.Create()

	clock.Advance(50 * time.Minute)
	if _, err := store.Get(id); err != nil {
		t.Fatalf("Get() before TTL error = %v", err)
	}

	// The access above extended the session.
	clock.Advance(50 * time.Minute)
	if _, err := store.Get(id); err != nil {
		t.Fatalf("Get() after sliding error = %v", err)
	}

	clock.Advance(61 * time.Minute)
	if _, err := store.Get(id); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("Get() after TTL error = %v, want ErrSessionExpired", err)
	}
	if store.Count() != 0 {
		t.Error("expired session should be removed on access")
	}
}

func TestSessionStore_RemovalReportsCount(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	var counts []int
	store := newTestStore(clock, &counts)

	expiring, _ := store.Create()
	kept, _ := store.Create()
	clock.Advance(30 * time.Minute)
	if _, err := store.Get(kept); err != nil {
		t.Fatalf("Get(kept) error = %v", err)
	}
	clock.Advance(45 * time.Minute)

	if _, err := store.Get(expiring); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("Get(expiring) error = %v", err)
	}
	if last := counts[len(counts)-1]; last != 1 {
		t.Errorf("count after expiry on access = %d, want 1", last)
	}

	store.Delete(kept)
	if last := counts[len(counts)-1]; last != 0 {
		t.Errorf("count after Delete = %d, want 0", last)
	}

	reported := len(counts)
	store.Delete(kept)
	if len(counts) != reported {
		t.Error("deleting an unknown session should not report a count")
	}
}

func TestSessionStore_Cleanup(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	var counts []int
	store := newTestStore(clock, &counts)

	store.Create()
	clock.Advance(30 * time.Minute)
	fresh, _ := store.Create()
	clock.Advance(45 * time.Minute)

	if removed := store.Cleanup(); removed != 1 {
		t.Errorf("Cleanup() = %d, want 1", removed)
	}
	if _, err := store.Get(fresh); err != nil {
		t.Errorf("fresh session should survive: %v", err)
	}
	if last := counts[len(counts)-1]; last != 1 {
		t.Errorf("last count callback = %d, want 1", last)
	}
	if removed := store.Cleanup(); removed != 0 {
		t.Errorf("second Cleanup() = %d", removed)
	}
}

func TestSessionStore_Resolve(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	store := newTestStore(clock, nil)

	w := httptest.NewRecorder()
	id, st := store.Resolve(w, httptest.NewRequest(http.MethodGet, "/api/state", nil))
	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Value != id {
		t.Fatalf("cookies = %v", cookies)
	}
	if cookies[0].MaxAge != 3600 {
		t.Errorf("MaxAge = %d", cookies[0].MaxAge)
	}

	t.Run("known cookie reuses the session", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/api/state", nil)
		r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: id})
		w := httptest.NewRecorder()
		gotID, gotStudio := store.Resolve(w, r)
		if gotID != id || gotStudio != st {
			t.Error("Resolve should return the existing session")
		}
		if len(w.Result().Cookies()) != 0 {
			t.Error("no cookie should be set for a live session")
		}
	})

	t.Run("stale cookie gets a new session", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/api/state", nil)
		r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "forged"})
		w := httptest.NewRecorder()
		gotID, _ := store.Resolve(w, r)
		if gotID == "forged" || gotID == id {
			t.Errorf("Resolve() id = %q", gotID)
		}
		if len(w.Result().Cookies()) != 1 {
			t.Error("a replacement cookie should be set")
		}
	})
}

func TestSessionStore_RunCleanupStops(t *testing.T) {
	store := newTestStore(&fakeClock{now: time.Now()}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- store.RunCleanup(ctx, time.Millisecond) }()

	time.Sleep(5 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("RunCleanup() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("RunCleanup did not stop")
	}
}
