package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"pulse/internal/auth"
	"pulse/internal/auth/session"
	"pulse/internal/auth/token"
	"pulse/internal/user"
)

type fixture struct {
	handler *Handler
	mux     *http.ServeMux
	store   *user.MemoryStore
	users   *user.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	codec, err := token.NewCodec(token.Config{
		AccessSecret:  bytes.Repeat([]byte{'a'}, 32),
		RefreshSecret: bytes.Repeat([]byte{'r'}, 32),
		AccessTTL:     time.Minute,
		RefreshTTL:    24 * time.Hour,
		Issuer:        "pulse-test",
	})
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	sessions, err := session.NewStore(rdb, session.DefaultConfig())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	store := user.NewMemoryStore()
	users, err := user.NewService(nil, store)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	h, err := NewHandler(nil, users, codec, sessions, auth.NewCookies(auth.DefaultCookieConfig()))
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}

	mux := http.NewServeMux()
	h.Register(mux)

	return &fixture{handler: h, mux: mux, store: store, users: users}
}

func (f *fixture) do(method, path, body string, who auth.Identity) *httptest.ResponseRecorder {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	r = r.WithContext(auth.WithIdentity(r.Context(), who))

	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, r)
	return rec
}

func TestCreateStartUserThenSignIn(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPut, "/initialize/createStartUser",
		`{"username":"root","password":"bootstrap-pass"}`, auth.Guest())
	if rec.Code != http.StatusCreated {
		t.Fatalf("createStartUser status = %d body = %s", rec.Code, rec.Body)
	}

	// Repeat bootstrap is refused once an admin exists.
	rec = f.do(http.MethodPut, "/initialize/createStartUser",
		`{"username":"root2","password":"bootstrap-pass"}`, auth.Guest())
	if rec.Code != http.StatusForbidden {
		t.Fatalf("second bootstrap status = %d", rec.Code)
	}

	rec = f.do(http.MethodPost, "/auth/signIn",
		`{"username":"root","password":"bootstrap-pass"}`, auth.Guest())
	if rec.Code != http.StatusOK {
		t.Fatalf("signIn status = %d body = %s", rec.Code, rec.Body)
	}

	got := map[string]bool{}
	for _, ck := range rec.Result().Cookies() {
		got[ck.Name] = ck.Value != ""
	}
	for _, name := range []string{"access_token", "refresh_token", "session_id"} {
		if !got[name] {
			t.Fatalf("signIn did not set cookie %q (have %v)", name, got)
		}
	}

	var view userBigView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("signIn body: %v", err)
	}
	if view.Username != "root" || view.Role != int(auth.RoleAdmin) {
		t.Fatalf("signIn view = %+v", view)
	}
}

func TestSignInRejectsBadCredentialsAndAuthenticated(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/auth/signIn",
		`{"username":"ghost","password":"whatever-pass"}`, auth.Guest())
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unknown user status = %d", rec.Code)
	}

	signedIn := auth.Identity{ID: 1, Role: auth.RoleUser, State: auth.StateActive, Authenticated: true}
	rec = f.do(http.MethodPost, "/auth/signIn",
		`{"username":"ghost","password":"whatever-pass"}`, signedIn)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("already-authenticated signIn status = %d", rec.Code)
	}
}

func TestSignOutClearsCookiesIdempotently(t *testing.T) {
	f := newFixture(t)

	who := auth.Identity{ID: 1, Role: auth.RoleUser, State: auth.StateActive, Authenticated: true}
	rec := f.do(http.MethodPost, "/auth/signOut", "", who)
	if rec.Code != http.StatusOK {
		t.Fatalf("signOut status = %d", rec.Code)
	}
	for _, ck := range rec.Result().Cookies() {
		if ck.MaxAge != -1 {
			t.Fatalf("cookie %q not expired (MaxAge=%d)", ck.Name, ck.MaxAge)
		}
	}

	// Signing out without any session is still a 200.
	rec = f.do(http.MethodPost, "/auth/signOut", "", auth.Guest())
	if rec.Code != http.StatusOK {
		t.Fatalf("anonymous signOut status = %d", rec.Code)
	}
}

func TestUserEndpointsShapeAndGate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	admin, err := f.users.CreateStart(ctx, auth.Guest(), "root", "bootstrap-pass")
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	adminID := auth.Identity{ID: admin.ID, Username: "root", Role: auth.RoleAdmin, State: auth.StateActive, Authenticated: true}

	alice, err := f.store.Create(ctx, user.User{Username: "alice", Role: auth.RoleUser, State: auth.StateActive})
	if err != nil {
		t.Fatalf("seed alice: %v", err)
	}
	aliceID := auth.Identity{ID: alice.ID, Username: "alice", Role: auth.RoleUser, State: auth.StateActive, Authenticated: true}

	// Guests get 403 from every account route.
	if rec := f.do(http.MethodGet, "/user/current", "", auth.Guest()); rec.Code != http.StatusForbidden {
		t.Fatalf("guest /user/current status = %d", rec.Code)
	}

	// Admins see the big view, users the small one.
	rec := f.do(http.MethodGet, "/user/current", "", adminID)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"role"`) {
		t.Fatalf("admin view = %d %s", rec.Code, rec.Body)
	}
	rec = f.do(http.MethodGet, "/user/current", "", aliceID)
	if rec.Code != http.StatusOK || strings.Contains(rec.Body.String(), `"role"`) {
		t.Fatalf("user view = %d %s", rec.Code, rec.Body)
	}

	// Lookup by id.
	rec = f.do(http.MethodGet, "/user/1", "", aliceID)
	if rec.Code != http.StatusOK {
		t.Fatalf("/user/1 status = %d", rec.Code)
	}
	if rec := f.do(http.MethodGet, "/user/999", "", aliceID); rec.Code != http.StatusNotFound {
		t.Fatalf("missing user status = %d", rec.Code)
	}
	if rec := f.do(http.MethodGet, "/user/zero", "", aliceID); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id status = %d", rec.Code)
	}

	// Self-promotion is refused; admin promotion works.
	body := `{"id":` + itoa(alice.ID) + `,"role":3}`
	if rec := f.do(http.MethodPost, "/user/update", body, aliceID); rec.Code != http.StatusForbidden {
		t.Fatalf("self-promotion status = %d", rec.Code)
	}
	if rec := f.do(http.MethodPost, "/user/update", body, adminID); rec.Code != http.StatusOK {
		t.Fatalf("admin promotion status = %d body = %s", rec.Code, rec.Body)
	}

	// Delete: admin yes, self no.
	if rec := f.do(http.MethodDelete, "/user/delete", `{"id":`+itoa(admin.ID)+`}`, adminID); rec.Code != http.StatusForbidden {
		t.Fatalf("self delete status = %d", rec.Code)
	}
	if rec := f.do(http.MethodDelete, "/user/delete", `{"id":`+itoa(alice.ID)+`}`, adminID); rec.Code != http.StatusOK {
		t.Fatalf("admin delete status = %d", rec.Code)
	}
}

func TestInfoRoutes(t *testing.T) {
	mux := http.NewServeMux()
	NewInfoHandler(nil, "1.2.3", map[string]Pinger{"memory": pingOK{}}).Register(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/info/version", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "1.2.3") {
		t.Fatalf("/info/version = %d %s", rec.Code, rec.Body)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("/healthz = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("/readyz = %d %s", rec.Code, rec.Body)
	}
}

type pingOK struct{}

func (pingOK) Ping(context.Context) error { return nil }

func itoa(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}
