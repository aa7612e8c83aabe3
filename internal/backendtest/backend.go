// Package backendtest is an in-memory implementation of the file-sharing REST
// API. It backs the package tests and the dev-backend command; it keeps no
// state on disk and is not meant to serve real users.
package backendtest

import (
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sorynturda/link-sharing/types"
	"golang.org/x/crypto/bcrypt"
)

const (
	defaultTokenTTL = 24 * time.Hour
	maxFileSize     = 20 << 20
)

var (
	errNotFound  = errors.New("not found")
	errDuplicate = errors.New("already exists")
)

type account struct {
	user         types.User
	passwordHash []byte
}

type storedFile struct {
	meta types.File
	data []byte
}

// Backend holds users and files in memory.
type Backend struct {
	secret    []byte
	tokenTTL  time.Duration
	publicURL string

	mu         sync.Mutex
	users      map[int64]*account
	byName     map[string]int64
	files      map[int64]*storedFile
	byShare    map[string]int64
	nextUserID int64
	nextFileID int64

	router chi.Router
}

// Option customizes a Backend.
type Option func(*Backend)

// WithTokenTTL sets the lifetime of issued tokens.
func WithTokenTTL(ttl time.Duration) Option {
	return func(b *Backend) { b.tokenTTL = ttl }
}

// WithPublicURL sets the base of generated share links.
func WithPublicURL(url string) Option {
	return func(b *Backend) { b.publicURL = strings.TrimRight(url, "/") }
}

// WithSecret sets the HMAC key used to sign tokens.
func WithSecret(secret string) Option {
	return func(b *Backend) { b.secret = []byte(secret) }
}

// New constructs an empty Backend.
func New(opts ...Option) *Backend {
	b := &Backend{
		secret:     []byte("backendtest-secret"),
		tokenTTL:   defaultTokenTTL,
		publicURL:  "http://localhost:8080",
		users:      make(map[int64]*account),
		byName:     make(map[string]int64),
		files:      make(map[int64]*storedFile),
		byShare:    make(map[string]int64),
		nextUserID: 1,
		nextFileID: 1,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.router = b.routes()
	return b
}

// ServeHTTP implements http.Handler.
func (b *Backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.router.ServeHTTP(w, r)
}

// SetPublicURL changes the base of generated share links, typically to the
// address of an httptest.Server wrapping b.
func (b *Backend) SetPublicURL(url string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.publicURL = strings.TrimRight(url, "/")
}

func (b *Backend) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", b.handleRegister)
		r.Post("/authenticate", b.handleLogin)
		r.Post("/login", b.handleLogin)
	})
	r.With(b.requireAuth).Get("/api/test/secured", b.handleSecured)
	r.Route("/api/files", func(r chi.Router) {
		r.Get("/shared/{shareToken}", b.handleShared)
		r.Group(func(r chi.Router) {
			r.Use(b.requireAuth)
			r.Post("/upload", b.handleUpload)
			r.Get("/user/{userID}", b.handleListFiles)
			r.Get("/download/{fileID}", b.handleDownload)
			r.Delete("/{fileID}", b.handleDelete)
			r.Post("/{fileID}/share", b.handleShare)
		})
	})
	r.With(b.requireAuth).Get("/api/users/admin/users", b.handleListUsers)
	return r
}

// CreateUser adds an account directly, bypassing registration. Use it to
// seed admins.
func (b *Backend) CreateUser(username, email, password, role string) (types.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return types.User{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.byName[username]; exists {
		return types.User{}, errDuplicate
	}
	user := types.User{
		UserID:   b.nextUserID,
		Username: username,
		Email:    email,
		Role:     role,
	}
	b.nextUserID++
	b.users[user.UserID] = &account{user: user, passwordHash: hashed}
	b.byName[username] = user.UserID
	return user, nil
}

// Token issues a signed token for an existing user.
func (b *Backend) Token(userID int64) (string, error) {
	b.mu.Lock()
	acc, ok := b.users[userID]
	b.mu.Unlock()
	if !ok {
		return "", errNotFound
	}
	return issueToken(acc.user, b.secret, b.tokenTTL)
}

// Files returns a snapshot of the files owned by userID.
func (b *Backend) Files(userID int64) []types.File {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.filesOf(userID)
}

// PutFile stores a file directly, bypassing the upload endpoint.
func (b *Backend) PutFile(userID int64, name string, data []byte) types.File {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.putFile(userID, name, "application/octet-stream", data)
}

func (b *Backend) putFile(userID int64, name, contentType string, data []byte) types.File {
	meta := types.File{
		FileID:   b.nextFileID,
		FileName: name,
		FileType: contentType,
		FileSize: int64(len(data)),
		FilePath: storagePath(name),
		UserID:   userID,
	}
	b.nextFileID++
	b.files[meta.FileID] = &storedFile{meta: meta, data: data}
	return meta
}

func (b *Backend) filesOf(userID int64) []types.File {
	files := []types.File{}
	for id := int64(1); id < b.nextFileID; id++ {
		if f, ok := b.files[id]; ok && f.meta.UserID == userID {
			files = append(files, f.meta)
		}
	}
	return files
}

func storagePath(name string) string {
	return "uploads/" + time.Now().UTC().Format("20060102150405") + "_" + name
}
