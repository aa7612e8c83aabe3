package views

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/sorynturda/link-sharing/internal/api"
	"github.com/sorynturda/link-sharing/internal/backendtest"
	"github.com/sorynturda/link-sharing/internal/session"
	"github.com/sorynturda/link-sharing/types"
)

type memorySink struct {
	mu    sync.Mutex
	files map[string][]byte
}

func (s *memorySink) Save(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.files == nil {
		s.files = map[string][]byte{}
	}
	s.files[name] = data
	return "mem://" + name, nil
}

type recordingPublisher struct {
	events []types.ActivityEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, ev types.ActivityEvent) error {
	p.events = append(p.events, ev)
	return nil
}

type failingCopier struct{}

func (failingCopier) Copy(string) error { return errors.New("no display") }

type recordingCopier struct{ text string }

func (c *recordingCopier) Copy(text string) error {
	c.text = text
	return nil
}

type env struct {
	backend *backendtest.Backend
	client  *api.Client
	holder  *session.Holder
}

func newEnv(t *testing.T) *env {
	t.Helper()
	backend := backendtest.New()
	server := httptest.NewServer(backend)
	t.Cleanup(server.Close)
	backend.SetPublicURL(server.URL)

	holder := session.NewHolder(session.NewMemoryStore(""))
	return &env{backend: backend, client: api.New(api.Options{BaseURL: server.URL}, holder), holder: holder}
}

func (e *env) signIn(t *testing.T, username, role string) int64 {
	t.Helper()
	user, err := e.backend.CreateUser(username, username+"@example.com", "pw", role)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	token, err := e.backend.Token(user.UserID)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if err := e.holder.Set(token); err != nil {
		t.Fatalf("set token: %v", err)
	}
	return user.UserID
}

func TestDashboardUploadThenList(t *testing.T) {
	e := newEnv(t)
	userID := e.signIn(t, "alice", types.RoleUser)
	events := &recordingPublisher{}
	d := NewDashboard(context.Background(), e.client, userID, Options{Events: events, Actor: "alice"})
	defer d.Close()

	ctx := context.Background()
	if err := d.Upload(ctx, "notes.txt", strings.NewReader("hello"), 5); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if a := d.Alert(); a.Kind != AlertSuccess || a.Message != "File uploaded successfully!" {
		t.Fatalf("unexpected alert: %+v", a)
	}
	files := d.Files()
	if len(files) != 1 || files[0].FileName != "notes.txt" {
		t.Fatalf("uploaded file not listed: %+v", files)
	}
	if d.Loading() {
		t.Fatalf("loading should be false after the action")
	}
	if len(events.events) != 1 || events.events[0].Type != types.EventFileUploaded || events.events[0].Actor != "alice" {
		t.Fatalf("unexpected events: %+v", events.events)
	}
}

func TestDashboardUploadTooLarge(t *testing.T) {
	e := newEnv(t)
	userID := e.signIn(t, "alice", types.RoleUser)
	d := NewDashboard(context.Background(), e.client, userID, Options{})

	err := d.Upload(context.Background(), "big.bin", strings.NewReader(""), MaxUploadSize+1)
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	if a := d.Alert(); !a.IsError() || a.Message != "Failed to upload file" {
		t.Fatalf("unexpected alert: %+v", a)
	}
	if len(e.backend.Files(userID)) != 0 {
		t.Fatalf("nothing should have been uploaded")
	}
}

func TestDashboardDeleteMissingKeepsList(t *testing.T) {
	e := newEnv(t)
	userID := e.signIn(t, "alice", types.RoleUser)
	kept := e.backend.PutFile(userID, "a.txt", []byte("a"))
	gone := e.backend.PutFile(userID, "b.txt", []byte("b"))

	d := NewDashboard(context.Background(), e.client, userID, Options{})
	ctx := context.Background()
	if err := d.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if err := d.Delete(ctx, gone.FileID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if a := d.Alert(); a.Message != "File deleted successfully!" {
		t.Fatalf("unexpected alert: %+v", a)
	}

	err := d.Delete(ctx, gone.FileID)
	if !errors.Is(err, api.ErrRequest) {
		t.Fatalf("expected request error, got %v", err)
	}
	if a := d.Alert(); !a.IsError() || a.Message != "Failed to delete file" {
		t.Fatalf("unexpected alert: %+v", a)
	}
	files := d.Files()
	if len(files) != 1 || files[0].FileID != kept.FileID {
		t.Fatalf("list should be untouched: %+v", files)
	}
}

func TestDashboardShareCopiesLink(t *testing.T) {
	e := newEnv(t)
	userID := e.signIn(t, "alice", types.RoleUser)
	f := e.backend.PutFile(userID, "a.txt", []byte("a"))

	copier := &recordingCopier{}
	d := NewDashboard(context.Background(), e.client, userID, Options{Copier: copier})
	url, err := d.Share(context.Background(), f.FileID)
	if err != nil {
		t.Fatalf("share: %v", err)
	}
	if copier.text != url || !strings.Contains(url, "/api/files/shared/") {
		t.Fatalf("unexpected copied text %q for url %q", copier.text, url)
	}
	if a := d.Alert(); a.Message != "Share link copied to clipboard!" {
		t.Fatalf("unexpected alert: %+v", a)
	}
}

func TestDashboardShareFallsBackToReveal(t *testing.T) {
	e := newEnv(t)
	userID := e.signIn(t, "alice", types.RoleUser)
	f := e.backend.PutFile(userID, "a.txt", []byte("a"))

	var revealed string
	d := NewDashboard(context.Background(), e.client, userID, Options{
		Copier: failingCopier{},
		Reveal: func(url string) { revealed = url },
	})
	url, err := d.Share(context.Background(), f.FileID)
	if err != nil {
		t.Fatalf("share: %v", err)
	}
	if revealed != url {
		t.Fatalf("link was not revealed: %q", revealed)
	}
	if a := d.Alert(); a.Kind != AlertSuccess || a.Message != "Share link: "+url {
		t.Fatalf("unexpected alert: %+v", a)
	}

	if _, err := d.Share(context.Background(), 999); err == nil {
		t.Fatalf("sharing a missing file should fail")
	}
	if a := d.Alert(); a.Message != "Failed to generate share link" {
		t.Fatalf("unexpected alert: %+v", a)
	}
}

func TestDashboardDownloadAndExport(t *testing.T) {
	e := newEnv(t)
	userID := e.signIn(t, "alice", types.RoleUser)
	a := e.backend.PutFile(userID, "a.txt", []byte("alpha"))
	e.backend.PutFile(userID, "b.txt", []byte("beta"))

	d := NewDashboard(context.Background(), e.client, userID, Options{})
	ctx := context.Background()
	if err := d.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	sink := &memorySink{}
	location, err := d.Download(ctx, a.FileID, sink)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if location != "mem://a.txt" || !bytes.Equal(sink.files["a.txt"], []byte("alpha")) {
		t.Fatalf("unexpected download: %q %q", location, sink.files["a.txt"])
	}

	if _, err := d.Download(ctx, 999, sink); err == nil {
		t.Fatalf("downloading a missing file should fail")
	}
	if alert := d.Alert(); alert.Message != "Failed to download file" {
		t.Fatalf("unexpected alert: %+v", alert)
	}

	exported := &memorySink{}
	n, err := d.Export(ctx, exported)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if n != 2 || string(exported.files["b.txt"]) != "beta" {
		t.Fatalf("unexpected export: n=%d files=%v", n, exported.files)
	}
	if alert := d.Alert(); alert.Message != "Exported 2 files" {
		t.Fatalf("unexpected alert: %+v", alert)
	}
}

func TestExportKeepsFilesWithSameName(t *testing.T) {
	e := newEnv(t)
	userID := e.signIn(t, "alice", types.RoleUser)
	e.backend.PutFile(userID, "notes.txt", []byte("first"))
	second := e.backend.PutFile(userID, "notes.txt", []byte("second"))
	e.backend.PutFile(userID, "notes-2.txt", []byte("third"))

	d := NewDashboard(context.Background(), e.client, userID, Options{})
	ctx := context.Background()
	if err := d.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	exported := &memorySink{}
	n, err := d.Export(ctx, exported)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if n != 3 || len(exported.files) != 3 {
		t.Fatalf("expected three distinct exports, n=%d files=%v", n, exported.files)
	}
	renamed := withFileID("notes.txt", second.FileID)
	if string(exported.files["notes.txt"]) != "first" || string(exported.files[renamed]) != "second" {
		t.Fatalf("unexpected export: %v", exported.files)
	}
}

func TestWithFileID(t *testing.T) {
	tests := map[string]string{
		"report.pdf":     "report-7.pdf",
		"archive.tar.gz": "archive.tar-7.gz",
		"README":         "README-7",
	}
	for name, want := range tests {
		if got := withFileID(name, 7); got != want {
			t.Fatalf("withFileID(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestDashboardRefreshFailure(t *testing.T) {
	e := newEnv(t)
	userID := e.signIn(t, "alice", types.RoleUser)
	e.holder.Clear()

	d := NewDashboard(context.Background(), e.client, userID, Options{})
	err := d.Refresh(context.Background())
	if !errors.Is(err, api.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if a := d.Alert(); a.Message != "Failed to load files" {
		t.Fatalf("unexpected alert: %+v", a)
	}
}

func TestClosedViewIgnoresResults(t *testing.T) {
	e := newEnv(t)
	userID := e.signIn(t, "alice", types.RoleUser)
	e.backend.PutFile(userID, "a.txt", []byte("a"))

	d := NewDashboard(context.Background(), e.client, userID, Options{})
	d.Close()

	err := d.Refresh(context.Background())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if len(d.Files()) != 0 || d.Alert().Kind != AlertNone || d.Loading() {
		t.Fatalf("closed view must not change state")
	}
}

func TestAdminFiltersUsersAndManagesFiles(t *testing.T) {
	e := newEnv(t)
	e.signIn(t, "root", types.RoleAdmin)
	bob, err := e.backend.CreateUser("bob", "bob@example.com", "pw", types.RoleUser)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	f := e.backend.PutFile(bob.UserID, "report.pdf", []byte("%PDF"))

	a := NewAdmin(context.Background(), e.client, Options{})
	defer a.Close()
	ctx := context.Background()

	if _, err := a.Share(ctx, f.FileID); !errors.Is(err, ErrNoUserSelected) {
		t.Fatalf("expected ErrNoUserSelected, got %v", err)
	}

	if err := a.LoadUsers(ctx); err != nil {
		t.Fatalf("load users: %v", err)
	}
	users := a.Users()
	if len(users) != 1 || users[0].Username != "bob" {
		t.Fatalf("admins should be filtered out: %+v", users)
	}

	if err := a.Select(ctx, bob.UserID); err != nil {
		t.Fatalf("select: %v", err)
	}
	if files := a.Files(); len(files) != 1 || files[0].FileName != "report.pdf" {
		t.Fatalf("unexpected files: %+v", files)
	}

	if err := a.Delete(ctx, f.FileID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(a.Files()) != 0 || len(e.backend.Files(bob.UserID)) != 0 {
		t.Fatalf("file should be gone")
	}
}

func TestAdminSelectFailureEmptiesList(t *testing.T) {
	e := newEnv(t)
	e.signIn(t, "root", types.RoleAdmin)
	bob, _ := e.backend.CreateUser("bob", "bob@example.com", "pw", types.RoleUser)
	e.backend.PutFile(bob.UserID, "a.txt", []byte("a"))

	a := NewAdmin(context.Background(), e.client, Options{})
	ctx := context.Background()
	if err := a.Select(ctx, bob.UserID); err != nil {
		t.Fatalf("select: %v", err)
	}

	e.holder.Clear()
	if err := a.Select(ctx, bob.UserID); err == nil {
		t.Fatalf("expected failure without a token")
	}
	if len(a.Files()) != 0 {
		t.Fatalf("list should be emptied on failure")
	}
	if alert := a.Alert(); alert.Message != "Failed to load user files" {
		t.Fatalf("unexpected alert: %+v", alert)
	}
}

func TestAdminLoadUsersForbiddenForUsers(t *testing.T) {
	e := newEnv(t)
	e.signIn(t, "alice", types.RoleUser)

	a := NewAdmin(context.Background(), e.client, Options{})
	if err := a.LoadUsers(context.Background()); !errors.Is(err, api.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if alert := a.Alert(); alert.Message != "Failed to load users" {
		t.Fatalf("unexpected alert: %+v", alert)
	}
}

func TestFormatSize(t *testing.T) {
	tests := map[int64]string{
		0:             "0 Bytes",
		512:           "512 Bytes",
		1024:          "1 KB",
		1536:          "1.5 KB",
		5 << 20:       "5 MB",
		3 << 30:       "3 GB",
		1234567:       "1.18 MB",
		MaxUploadSize: "20 MB",
	}
	for n, want := range tests {
		if got := FormatSize(n); got != want {
			t.Fatalf("FormatSize(%d) = %q, want %q", n, got, want)
		}
	}
}
