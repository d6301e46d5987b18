package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"lancehub/globals"
	"lancehub/models"

	"github.com/julienschmidt/httprouter"
)

type fakeReadStore struct {
	unreadCount int64
	countCalls  int
	marked      bool
}

func (f *fakeReadStore) ListNotifications(_ context.Context, _ string, _, _ int64) ([]models.Notification, error) {
	return nil, nil
}

func (f *fakeReadStore) MarkNotificationRead(_ context.Context, _, _ string) (bool, error) {
	return f.marked, nil
}

func (f *fakeReadStore) CountUnreadNotifications(_ context.Context, _ string) (int64, error) {
	f.countCalls++
	return f.unreadCount, nil
}

type fakeUnread struct {
	n     int64
	ok    bool
	err   error
	sets  []int64
	decrs int
}

func (f *fakeUnread) Get(_ context.Context, _ string) (int64, bool, error) {
	return f.n, f.ok, f.err
}

func (f *fakeUnread) Set(_ context.Context, _ string, n int64) error {
	f.sets = append(f.sets, n)
	return nil
}

func (f *fakeUnread) Decr(_ context.Context, _ string) error {
	f.decrs++
	return nil
}

func unreadRequest(userID string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/api/notifications/unread/count", nil)
	return r.WithContext(context.WithValue(r.Context(), globals.UserIDKey, userID))
}

func decodeCount(t *testing.T, rec *httptest.ResponseRecorder) int64 {
	t.Helper()
	var body struct {
		Count int64 `json:"count"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body.Count
}

func TestUnreadCountFromCache(t *testing.T) {
	store := &fakeReadStore{unreadCount: 99}
	cache := &fakeUnread{n: 3, ok: true}
	h := NewHandlers(store, cache)

	rec := httptest.NewRecorder()
	h.UnreadCount(rec, unreadRequest("user1"), nil)

	if got := decodeCount(t, rec); got != 3 {
		t.Fatalf("expected cached count 3, got %d", got)
	}
	if store.countCalls != 0 {
		t.Fatal("store consulted despite a live cache")
	}
}

func TestUnreadCountRebuildsMissingCache(t *testing.T) {
	store := &fakeReadStore{unreadCount: 7}
	cache := &fakeUnread{ok: false}
	h := NewHandlers(store, cache)

	rec := httptest.NewRecorder()
	h.UnreadCount(rec, unreadRequest("user1"), nil)

	if got := decodeCount(t, rec); got != 7 {
		t.Fatalf("expected store count 7, got %d", got)
	}
	if store.countCalls != 1 {
		t.Fatalf("expected one store count, got %d", store.countCalls)
	}
	if len(cache.sets) != 1 || cache.sets[0] != 7 {
		t.Fatalf("expected cache reseeded with 7, got %v", cache.sets)
	}
}

func TestUnreadCountCacheErrorFallsBack(t *testing.T) {
	store := &fakeReadStore{unreadCount: 5}
	cache := &fakeUnread{err: errors.New("redis down")}
	h := NewHandlers(store, cache)

	rec := httptest.NewRecorder()
	h.UnreadCount(rec, unreadRequest("user1"), nil)

	if got := decodeCount(t, rec); got != 5 {
		t.Fatalf("expected store count 5, got %d", got)
	}
}

func TestMarkReadDecrementsOnlyWhenMarked(t *testing.T) {
	store := &fakeReadStore{marked: true}
	cache := &fakeUnread{}
	h := NewHandlers(store, cache)

	ps := httprouter.Params{{Key: "id", Value: "n1"}}
	h.MarkRead(httptest.NewRecorder(), unreadRequest("user1"), ps)
	if cache.decrs != 1 {
		t.Fatalf("expected one decrement, got %d", cache.decrs)
	}

	store.marked = false
	h.MarkRead(httptest.NewRecorder(), unreadRequest("user1"), ps)
	if cache.decrs != 1 {
		t.Fatal("decremented for an already-read notification")
	}
}
