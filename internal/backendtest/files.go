package backendtest

import (
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sorynturda/link-sharing/types"
)

const maxMultipartMemory = 32 << 20

func (b *Backend) handleListFiles(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFromContext(r.Context())
	userID, err := parseID(chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	if !p.isAdmin() && p.userID != userID {
		writeError(w, http.StatusForbidden, "Access Denied")
		return
	}

	writeJSON(w, http.StatusOK, b.Files(userID))
}

func (b *Backend) handleUpload(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFromContext(r.Context())
	r.Body = http.MaxBytesReader(w, r.Body, maxFileSize+(1<<20))
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	userID, err := parseID(r.FormValue("userId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	if !p.isAdmin() && p.userID != userID {
		writeError(w, http.StatusForbidden, "Access Denied")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	if header.Size > maxFileSize {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("File size exceeds maximum limit of %dMB", maxFileSize>>20))
		return
	}
	name := path.Clean("/" + header.Filename)[1:]
	if name == "" || strings.Contains(header.Filename, "..") {
		writeError(w, http.StatusBadRequest, "Invalid file path sequence in filename")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Could not store file "+name)
		return
	}

	contentType := header.Header.Get("Content-Type")
	b.mu.Lock()
	if _, ok := b.users[userID]; !ok {
		b.mu.Unlock()
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	meta := b.putFile(userID, name, contentType, data)
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, meta)
}

func (b *Backend) handleDownload(w http.ResponseWriter, r *http.Request) {
	f, ok := b.accessibleFile(w, r)
	if !ok {
		return
	}
	serveFile(w, f)
}

func (b *Backend) handleDelete(w http.ResponseWriter, r *http.Request) {
	f, ok := b.accessibleFile(w, r)
	if !ok {
		return
	}

	b.mu.Lock()
	delete(b.files, f.meta.FileID)
	if f.meta.ShareToken != "" {
		delete(b.byShare, f.meta.ShareToken)
	}
	b.mu.Unlock()

	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) handleShare(w http.ResponseWriter, r *http.Request) {
	f, ok := b.accessibleFile(w, r)
	if !ok {
		return
	}

	b.mu.Lock()
	stored, exists := b.files[f.meta.FileID]
	if !exists {
		b.mu.Unlock()
		writeError(w, http.StatusNotFound, fmt.Sprintf("File not found with id: %d", f.meta.FileID))
		return
	}
	if stored.meta.ShareToken == "" {
		stored.meta.ShareToken = uuid.NewString()
		b.byShare[stored.meta.ShareToken] = stored.meta.FileID
	}
	stored.meta.ShareEnabled = true
	stored.meta.ShareURL = b.publicURL + "/api/files/shared/" + stored.meta.ShareToken
	link := types.ShareLink{ShareURL: stored.meta.ShareURL}
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, link)
}

func (b *Backend) handleShared(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "shareToken")

	b.mu.Lock()
	id, ok := b.byShare[token]
	var f storedFile
	if ok {
		f = *b.files[id]
	}
	b.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, "Share link not found")
		return
	}
	serveFile(w, f)
}

func (b *Backend) handleListUsers(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFromContext(r.Context())
	if !p.isAdmin() {
		writeError(w, http.StatusForbidden, "Access Denied")
		return
	}

	b.mu.Lock()
	users := make([]types.User, 0, len(b.users))
	for id := int64(1); id < b.nextUserID; id++ {
		if acc, ok := b.users[id]; ok {
			users = append(users, acc.user)
		}
	}
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, users)
}

// accessibleFile resolves {fileID} and the userId query parameter. Admins may
// act on any file; other callers only on their own.
func (b *Backend) accessibleFile(w http.ResponseWriter, r *http.Request) (storedFile, bool) {
	p, _ := principalFromContext(r.Context())
	fileID, err := parseID(chi.URLParam(r, "fileID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid file id")
		return storedFile{}, false
	}
	userID, err := parseID(r.URL.Query().Get("userId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return storedFile{}, false
	}

	b.mu.Lock()
	stored, ok := b.files[fileID]
	var f storedFile
	if ok {
		f = *stored
	}
	b.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("File not found with id: %d", fileID))
		return storedFile{}, false
	}
	if !p.isAdmin() && (f.meta.UserID != userID || p.userID != userID) {
		writeError(w, http.StatusForbidden, "You don't have permission to access this file")
		return storedFile{}, false
	}
	return f, true
}

func serveFile(w http.ResponseWriter, f storedFile) {
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", f.meta.FileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(f.data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(f.data)
}
