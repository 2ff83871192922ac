package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := DefaultConfig()
	cfg.TTL = time.Hour

	st, err := NewStore(rdb, cfg)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return st, mr
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == "session_id" {
			return c
		}
	}
	return nil
}

func TestSetCreatesRecordAndCookie(t *testing.T) {
	st, mr := newTestStore(t)
	rec := httptest.NewRecorder()

	sid, err := st.Set(context.Background(), rec, "refresh-1", "")
	if err != nil {
		t.Fatalf("Set: %v", err)
	}
	if sid == "" {
		t.Fatal("expected a generated session id")
	}

	if got, _ := mr.Get(keyPrefix + sid); got != "refresh-1" {
		t.Fatalf("stored value = %q, want refresh-1", got)
	}
	if ttl := mr.TTL(keyPrefix + sid); ttl <= 0 || ttl > time.Hour {
		t.Fatalf("unexpected TTL %v", ttl)
	}

	c := sessionCookie(t, rec)
	if c == nil || c.Value != sid {
		t.Fatalf("session cookie not written: %+v", c)
	}
	if !c.HttpOnly {
		t.Fatal("session cookie must be HttpOnly")
	}
}

func TestIsValidMatchesOnlyCurrentToken(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()

	sid, err := st.Set(ctx, httptest.NewRecorder(), "refresh-1", "")
	if err != nil {
		t.Fatalf("Set: %v", err)
	}

	ok, err := st.IsValid(ctx, sid, "refresh-1")
	if err != nil || !ok {
		t.Fatalf("IsValid(current) = %v, %v; want true", ok, err)
	}
	ok, err = st.IsValid(ctx, sid, "refresh-other")
	if err != nil || ok {
		t.Fatalf("IsValid(stale) = %v, %v; want false", ok, err)
	}
	ok, err = st.IsValid(ctx, "no-such-session", "refresh-1")
	if err != nil || ok {
		t.Fatalf("IsValid(missing) = %v, %v; want false", ok, err)
	}
	ok, err = st.IsValid(ctx, "", "")
	if err != nil || ok {
		t.Fatalf("IsValid(empty) = %v, %v; want false", ok, err)
	}
}

func TestSetOverwritesPreviousToken(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()

	sid, _ := st.Set(ctx, httptest.NewRecorder(), "refresh-1", "")
	if _, err := st.Set(ctx, httptest.NewRecorder(), "refresh-2", sid); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	// Rotation overwrites, never appends: the old value is immediately dead.
	if ok, _ := st.IsValid(ctx, sid, "refresh-1"); ok {
		t.Fatal("superseded refresh token still validates")
	}
	if ok, _ := st.IsValid(ctx, sid, "refresh-2"); !ok {
		t.Fatal("current refresh token does not validate")
	}
}

func TestDeleteRemovesRecordAndExpiresCookie(t *testing.T) {
	st, mr := newTestStore(t)
	ctx := context.Background()

	sid, _ := st.Set(ctx, httptest.NewRecorder(), "refresh-1", "")

	rec := httptest.NewRecorder()
	if err := st.Delete(ctx, rec, sid); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if mr.Exists(keyPrefix + sid) {
		t.Fatal("record still present after delete")
	}
	c := sessionCookie(t, rec)
	if c == nil || c.MaxAge != -1 {
		t.Fatalf("cookie not expired: %+v", c)
	}

	// Idempotent: deleting again is a no-op.
	if err := st.Delete(ctx, httptest.NewRecorder(), sid); err != nil {
		t.Fatalf("second Delete: %v", err)
	}
}

func TestRecordExpiresWithTTL(t *testing.T) {
	st, mr := newTestStore(t)
	ctx := context.Background()

	sid, _ := st.Set(ctx, httptest.NewRecorder(), "refresh-1", "")
	mr.FastForward(2 * time.Hour)

	if ok, _ := st.IsValid(ctx, sid, "refresh-1"); ok {
		t.Fatal("record survived its TTL")
	}
}

func TestSessionIDFromRequest(t *testing.T) {
	st, _ := newTestStore(t)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := st.SessionID(r); got != "" {
		t.Fatalf("SessionID(no cookie) = %q, want empty", got)
	}

	r.AddCookie(&http.Cookie{Name: "session_id", Value: "abc"})
	if got := st.SessionID(r); got != "abc" {
		t.Fatalf("SessionID = %q, want abc", got)
	}
}
