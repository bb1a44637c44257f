package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"svnglobal/pkg/storage"
	"svnglobal/pkg/store"
	"svnglobal/services/api/internal/app"
	"svnglobal/services/api/internal/authclient"
)

// fakeHostedAuth imitates the hosted auth REST API.
type fakeHostedAuth struct {
	mu        sync.Mutex
	next      int
	passwords map[string]string
	ids       map[string]string
	tokens    map[string]string
	userCalls atomic.Int32
}

func newFakeHostedAuth(t *testing.T) (*fakeHostedAuth, *httptest.Server) {
	t.Helper()
	f := &fakeHostedAuth{
		passwords: make(map[string]string),
		ids:       make(map[string]string),
		tokens:    make(map[string]string),
	}
	srv := httptest.NewServer(http.HandlerFunc(f.serveHTTP))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeHostedAuth) serveHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	switch r.URL.Path {
	case "/signup":
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if _, exists := f.ids[creds.Email]; exists {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_ = json.NewEncoder(w).Encode(map[string]string{"msg": "User already registered"})
			return
		}
		f.next++
		f.ids[creds.Email] = fmt.Sprintf("user-%d", f.next)
		f.passwords[creds.Email] = creds.Password
		f.writeSession(w, creds.Email)
	case "/token":
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if _, ok := f.ids[creds.Email]; !ok || f.passwords[creds.Email] != creds.Password {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant", "error_description": "Invalid login credentials"})
			return
		}
		f.writeSession(w, creds.Email)
	case "/user":
		f.userCalls.Add(1)
		email, ok := f.tokens[strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")]
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]any{"code": 401, "msg": "invalid JWT"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"id": f.ids[email], "email": email})
	case "/logout":
		delete(f.tokens, strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
		w.WriteHeader(http.StatusNoContent)
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeHostedAuth) writeSession(w http.ResponseWriter, email string) {
	token := fmt.Sprintf("tok-%s-%d", f.ids[email], len(f.tokens))
	f.tokens[token] = email
	_ = json.NewEncoder(w).Encode(map[string]any{
		"access_token":  token,
		"refresh_token": "refresh-" + token,
		"expires_in":    3600,
		"user":          map[string]string{"id": f.ids[email], "email": email},
	})
}

type testEnv struct {
	url     string
	store   *store.MemoryStore
	images  *storage.MemoryStore
	auth    *fakeHostedAuth
	redis   *miniredis.Miniredis
	appConf app.Config
}

type envOption func(*app.Config, *Config)

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	auth, authSrv := newFakeHostedAuth(t)
	env := &testEnv{
		store:  store.NewMemoryStore(),
		images: storage.NewMemoryStore(storage.BucketProductImages),
		auth:   auth,
		redis:  miniredis.RunT(t),
	}
	revoker := store.NewRedisTokenRevoker(env.redis.Addr(), "")
	t.Cleanup(func() { _ = revoker.Close() })
	appCfg := app.Config{
		Store:   env.store,
		Auth:    authclient.NewClient(authSrv.URL, "anon-key"),
		Revoker: revoker,
		Images:  env.images,
		Reports: storage.NewMemoryStore(storage.BucketTestReports),
	}
	srvCfg := Config{
		RedisAddr:      env.redis.Addr(),
		AllowedOrigins: []string{"http://localhost:8080"},
	}
	for _, opt := range opts {
		opt(&appCfg, &srvCfg)
	}
	a, err := app.New(appCfg)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	srvCfg.App = a
	s, err := New(srvCfg)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	srv := httptest.NewServer(s.Router())
	t.Cleanup(srv.Close)
	env.url = srv.URL
	env.appConf = appCfg
	return env
}

type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) (int, apiResponse) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, e.url+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	var out apiResponse
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, path, raw, err)
		}
	}
	return resp.StatusCode, out
}

func decodeData[T any](t *testing.T, resp apiResponse) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(resp.Data, &v); err != nil {
		t.Fatalf("decode data %s: %v", resp.Data, err)
	}
	return v
}

// signUp registers an account and returns its access token.
func (e *testEnv) signUp(t *testing.T, email string) string {
	t.Helper()
	status, resp := e.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{"email": email, "password": "pw-123456"})
	if status != http.StatusCreated {
		t.Fatalf("signup %s: status %d %+v", email, status, resp)
	}
	var sess struct {
		AccessToken string `json:"accessToken"`
	}
	if err := json.Unmarshal(resp.Data, &sess); err != nil || sess.AccessToken == "" {
		t.Fatalf("signup %s: missing token in %s", email, resp.Data)
	}
	return sess.AccessToken
}
