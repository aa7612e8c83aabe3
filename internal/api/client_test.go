package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sorynturda/link-sharing/internal/backendtest"
	"github.com/sorynturda/link-sharing/internal/session"
)

type fixture struct {
	backend *backendtest.Backend
	server  *httptest.Server
	holder  *session.Holder
	client  *Client
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	backend := backendtest.New()
	server := httptest.NewServer(backend)
	t.Cleanup(server.Close)
	backend.SetPublicURL(server.URL)

	holder := session.NewHolder(session.NewMemoryStore(""))
	client := New(Options{BaseURL: server.URL}, holder)
	return &fixture{backend: backend, server: server, holder: holder, client: client}
}

func (f *fixture) login(t *testing.T, username, role string) int64 {
	t.Helper()

	user, err := f.backend.CreateUser(username, username+"@example.com", "secret", role)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	resp, err := f.client.Login(context.Background(), LoginRequest{Username: username, Password: "secret"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := f.holder.Set(resp.Token); err != nil {
		t.Fatalf("store token: %v", err)
	}
	return user.UserID
}

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	reg, err := f.client.Register(ctx, RegisterRequest{Username: "alice", Email: "alice@example.com", Password: "pw"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if reg.Token == "" || reg.Username != "alice" || reg.Role != "user" {
		t.Fatalf("unexpected register response: %+v", reg)
	}

	_, err = f.client.Register(ctx, RegisterRequest{Username: "alice", Email: "other@example.com", Password: "pw"})
	if !errors.Is(err, ErrRequest) {
		t.Fatalf("expected request error for duplicate, got %v", err)
	}
	if Message(err) != "Username already exists" {
		t.Fatalf("unexpected message: %q", Message(err))
	}

	login, err := f.client.Login(ctx, LoginRequest{Username: "alice", Password: "pw"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	claims, ok := session.DecodeClaims(login.Token)
	if !ok || claims.Subject != "alice" || claims.UserID != 1 {
		t.Fatalf("unexpected claims %+v ok=%v", claims, ok)
	}

	_, err = f.client.Login(ctx, LoginRequest{Username: "alice", Password: "wrong"})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestLoginWithoutTokenIsDecodeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"username":"alice"}`)
	}))
	defer server.Close()

	client := New(Options{BaseURL: server.URL}, nil)
	_, err := client.Login(context.Background(), LoginRequest{Username: "alice", Password: "x"})
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestLoginPathIsConfigurable(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = io.WriteString(w, `{"token":"abc.eyJzdWIiOiJhbGljZSJ9.sig"}`)
	}))
	defer server.Close()

	client := New(Options{BaseURL: server.URL + "/", LoginPath: "api/auth/login"}, nil)
	resp, err := client.Login(context.Background(), LoginRequest{Username: "alice", Password: "x"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if gotPath != "/api/auth/login" {
		t.Fatalf("unexpected path: %q", gotPath)
	}
	if resp.Token != "abc.eyJzdWIiOiJhbGljZSJ9.sig" {
		t.Fatalf("unexpected token: %q", resp.Token)
	}
}

func TestBearerHeaderAndRequestID(t *testing.T) {
	var auth, requestID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		requestID = r.Header.Get("X-Request-ID")
		_, _ = io.WriteString(w, "ok")
	}))
	defer server.Close()

	client := New(Options{BaseURL: server.URL}, session.NewHolder(session.NewMemoryStore("a.b.c")))
	if err := client.Verify(context.Background()); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if auth != "Bearer a.b.c" {
		t.Fatalf("unexpected authorization header: %q", auth)
	}
	if requestID == "" {
		t.Fatalf("expected request id header")
	}
}

func TestMissingTokenFailsWithoutRequest(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	client := New(Options{BaseURL: server.URL}, session.NewHolder(session.NewMemoryStore("")))
	_, err := client.ListFiles(context.Background(), 1)
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if called {
		t.Fatalf("request should not have been sent")
	}
}

func TestNetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := New(Options{BaseURL: url}, session.NewHolder(session.NewMemoryStore("a.b.c")))
	err := client.Verify(context.Background())
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
}

func TestCancelledContext(t *testing.T) {
	f := newFixture(t)
	f.login(t, "alice", "user")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.client.ListFiles(ctx, 1)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled in chain, got %v", err)
	}
}

func TestErrorMessageExtraction(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
		kind   error
	}{
		{name: "json message", status: 404, body: `{"message":"File not found with id: 9"}`, want: "File not found with id: 9", kind: ErrRequest},
		{name: "json error", status: 403, body: `{"error":"Forbidden"}`, want: "Forbidden", kind: ErrUnauthorized},
		{name: "plain text", status: 500, body: "Failed to register user: boom", want: "Failed to register user: boom", kind: ErrRequest},
		{name: "html", status: 502, body: "<html>bad gateway</html>", want: "bad gateway", kind: ErrRequest},
		{name: "empty", status: 401, body: "", want: "unauthorized", kind: ErrUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer server.Close()

			client := New(Options{BaseURL: server.URL}, session.NewHolder(session.NewMemoryStore("a.b.c")))
			err := client.Verify(context.Background())
			if !errors.Is(err, tt.kind) {
				t.Fatalf("expected %v, got %v", tt.kind, err)
			}
			if got := Message(err); got != tt.want {
				t.Fatalf("message = %q, want %q", got, tt.want)
			}
			var apiErr *Error
			if !errors.As(err, &apiErr) || apiErr.Status != tt.status {
				t.Fatalf("unexpected error value: %#v", err)
			}
		})
	}
}

func TestMalformedListResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"not":"a list"`)
	}))
	defer server.Close()

	client := New(Options{BaseURL: server.URL}, session.NewHolder(session.NewMemoryStore("a.b.c")))
	_, err := client.ListFiles(context.Background(), 1)
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestFileLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := f.login(t, "alice", "user")

	uploaded, err := f.client.Upload(ctx, userID, "/home/alice/notes.txt", strings.NewReader("hello"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if uploaded.FileName != "notes.txt" || uploaded.FileSize != 5 || uploaded.UserID != userID {
		t.Fatalf("unexpected upload response: %+v", uploaded)
	}

	files, err := f.client.ListFiles(ctx, userID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(files) != 1 || files[0].FileID != uploaded.FileID {
		t.Fatalf("unexpected files: %+v", files)
	}

	dl, err := f.client.Download(ctx, userID, uploaded.FileID)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	body, err := io.ReadAll(dl.Body)
	_ = dl.Body.Close()
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if string(body) != "hello" || dl.FileName != "notes.txt" || dl.Size != 5 {
		t.Fatalf("unexpected download: name=%q size=%d body=%q", dl.FileName, dl.Size, body)
	}

	link, err := f.client.Share(ctx, userID, uploaded.FileID)
	if err != nil {
		t.Fatalf("share: %v", err)
	}
	if !strings.HasPrefix(link.ShareURL, f.server.URL+"/api/files/shared/") {
		t.Fatalf("unexpected share url: %q", link.ShareURL)
	}
	resp, err := http.Get(link.ShareURL)
	if err != nil {
		t.Fatalf("fetch share link: %v", err)
	}
	shared, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if string(shared) != "hello" {
		t.Fatalf("unexpected shared body: %q", shared)
	}

	if err := f.client.Delete(ctx, userID, uploaded.FileID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	err = f.client.Delete(ctx, userID, uploaded.FileID)
	if !errors.Is(err, ErrRequest) {
		t.Fatalf("expected request error deleting twice, got %v", err)
	}
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
}

func TestListUsersRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.login(t, "alice", "user")
	if _, err := f.client.ListUsers(ctx); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected forbidden for non-admin, got %v", err)
	}

	f.login(t, "root", "admin")
	users, err := f.client.ListUsers(ctx)
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if len(users) != 2 || users[0].Username != "alice" || users[1].Role != "admin" {
		t.Fatalf("unexpected users: %+v", users)
	}
}

func TestAttachmentName(t *testing.T) {
	tests := map[string]string{
		`attachment; filename="report.pdf"`:       "report.pdf",
		`attachment; filename="../../etc/passwd"`: "passwd",
		`attachment`:                              "",
		"":                                        "",
	}
	for header, want := range tests {
		if got := attachmentName(header); got != want {
			t.Fatalf("attachmentName(%q) = %q, want %q", header, got, want)
		}
	}
}

type countingReader struct {
	reads atomic.Int64
}

func (r *countingReader) Read(p []byte) (int, error) {
	r.reads.Add(1)
	for i := range p {
		p[i] = 'x'
	}
	return len(p), nil
}

func TestUploadReleasesReaderOnFailure(t *testing.T) {
	client := New(Options{BaseURL: "http://127.0.0.1:1"}, session.NewHolder(session.NewMemoryStore("")))
	r := &countingReader{}

	_, err := client.Upload(context.Background(), 1, "big.bin", r)
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	before := r.reads.Load()
	time.Sleep(50 * time.Millisecond)
	if after := r.reads.Load(); after != before {
		t.Fatalf("reader used after Upload returned: %d reads, then %d", before, after)
	}
}
