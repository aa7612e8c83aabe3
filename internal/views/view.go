// Package views holds the state machines behind the file dashboard and the
// admin console. Both the command line and the web front end drive them.
package views

import (
	"context"
	"io"
	"path"
	"sync"

	"github.com/rs/zerolog"
	"github.com/sorynturda/link-sharing/internal/api"
	"github.com/sorynturda/link-sharing/types"
)

// MaxUploadSize is the largest file the backend accepts.
const MaxUploadSize = 20 << 20

// FileService is the subset of *api.Client used by the dashboard.
type FileService interface {
	ListFiles(ctx context.Context, userID int64) ([]types.File, error)
	Upload(ctx context.Context, userID int64, fileName string, r io.Reader) (types.File, error)
	Download(ctx context.Context, userID, fileID int64) (*api.Download, error)
	Delete(ctx context.Context, userID, fileID int64) error
	Share(ctx context.Context, userID, fileID int64) (types.ShareLink, error)
}

// AdminService adds the user listing needed by the admin console.
type AdminService interface {
	FileService
	ListUsers(ctx context.Context) ([]types.User, error)
}

// Sink receives downloaded files. *storage.Sink satisfies it.
type Sink interface {
	Save(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error)
}

// Copier places a share link on a clipboard.
type Copier interface {
	Copy(text string) error
}

// Publisher announces successful mutations. *mq.Activity satisfies it.
type Publisher interface {
	Publish(ctx context.Context, ev types.ActivityEvent) error
}

type AlertKind int

const (
	AlertNone AlertKind = iota
	AlertError
	AlertSuccess
)

// Alert is the single message a view shows after an action.
type Alert struct {
	Kind    AlertKind
	Message string
}

func (a Alert) IsError() bool { return a.Kind == AlertError }

// Options wires a view to its collaborators. Only Client is required.
type Options struct {
	Copier Copier
	// Reveal shows a share link that could not be copied.
	Reveal func(url string)
	Events Publisher
	Actor  string
	Logger zerolog.Logger
}

// view carries what Dashboard and Admin share: a lifetime, a request lock
// and the list state.
type view struct {
	ctx    context.Context
	cancel context.CancelFunc

	// busy serializes requests issued by one view.
	busy sync.Mutex

	mu      sync.RWMutex
	files   []types.File
	loading bool
	alert   Alert

	opts Options
}

func (v *view) init(parent context.Context, opts Options) {
	if parent == nil {
		parent = context.Background()
	}
	v.ctx, v.cancel = context.WithCancel(parent)
	v.opts = opts
}

// Close cancels in-flight requests. State is frozen afterwards.
func (v *view) Close() {
	v.cancel()
}

func (v *view) closed() bool {
	return v.ctx.Err() != nil
}

// Files returns a copy of the current list.
func (v *view) Files() []types.File {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]types.File(nil), v.files...)
}

func (v *view) Loading() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.loading
}

func (v *view) Alert() Alert {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.alert
}

// begin takes the request lock and derives a context that ends with either
// the caller's ctx or the view. The returned func must be called once.
func (v *view) begin(ctx context.Context) (context.Context, func()) {
	v.busy.Lock()
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(v.ctx, cancel)
	if v.closed() {
		cancel()
	}
	v.update(func() {
		v.loading = true
		v.alert = Alert{}
	})
	return ctx, func() {
		stop()
		cancel()
		v.update(func() { v.loading = false })
		v.busy.Unlock()
	}
}

func (v *view) update(fn func()) {
	if v.closed() {
		return
	}
	v.mu.Lock()
	fn()
	v.mu.Unlock()
}

func (v *view) fail(err error, msg string) error {
	v.opts.Logger.Warn().Err(err).Msg(msg)
	v.update(func() { v.alert = Alert{Kind: AlertError, Message: msg} })
	return err
}

func (v *view) succeed(msg string) {
	v.update(func() { v.alert = Alert{Kind: AlertSuccess, Message: msg} })
}

func (v *view) setFiles(files []types.File) {
	v.update(func() { v.files = files })
}

func (v *view) removeFile(fileID int64) {
	v.update(func() {
		kept := make([]types.File, 0, len(v.files))
		for _, f := range v.files {
			if f.FileID != fileID {
				kept = append(kept, f)
			}
		}
		v.files = kept
	})
}

func (v *view) findFile(fileID int64) (types.File, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	for _, f := range v.files {
		if f.FileID == fileID {
			return f, true
		}
	}
	return types.File{}, false
}

func (v *view) publish(ctx context.Context, ev types.ActivityEvent) {
	if v.opts.Events == nil {
		return
	}
	ev.Actor = v.opts.Actor
	if err := v.opts.Events.Publish(ctx, ev); err != nil {
		v.opts.Logger.Warn().Err(err).Str("event", ev.Type).Msg("publish activity")
	}
}

// share requests a link and tries the clipboard, falling back to Reveal.
func (v *view) share(ctx context.Context, files FileService, userID, fileID int64) (string, error) {
	link, err := files.Share(ctx, userID, fileID)
	if err != nil {
		return "", v.fail(err, "Failed to generate share link")
	}

	copied := false
	if v.opts.Copier != nil {
		if err := v.opts.Copier.Copy(link.ShareURL); err != nil {
			v.opts.Logger.Debug().Err(err).Msg("clipboard copy failed")
		} else {
			copied = true
		}
	}
	if copied {
		v.succeed("Share link copied to clipboard!")
	} else {
		if v.opts.Reveal != nil {
			v.opts.Reveal(link.ShareURL)
		}
		v.succeed("Share link: " + link.ShareURL)
	}

	f, _ := v.findFile(fileID)
	v.publish(ctx, types.ActivityEvent{
		Type:     types.EventFileShared,
		UserID:   userID,
		FileID:   fileID,
		FileName: f.FileName,
		ShareURL: link.ShareURL,
	})
	return link.ShareURL, nil
}

// download streams one file into sink and returns where it landed.
func (v *view) download(ctx context.Context, files FileService, userID, fileID int64, sink Sink) (string, error) {
	dl, err := files.Download(ctx, userID, fileID)
	if err != nil {
		return "", v.fail(err, "Failed to download file")
	}
	defer dl.Body.Close()

	name := dl.FileName
	if name == "" {
		if f, ok := v.findFile(fileID); ok {
			name = f.FileName
		}
	}
	location, err := sink.Save(ctx, name, dl.Body, dl.Size, dl.ContentType)
	if err != nil {
		return "", v.fail(err, "Failed to download file")
	}
	return location, nil
}

// export downloads every listed file into sink. Repeated names get the
// file id appended so no export overwrites another.
func (v *view) export(ctx context.Context, files FileService, userID int64, sink Sink) (int, error) {
	n := 0
	seen := make(map[string]bool)
	for _, f := range v.Files() {
		dl, err := files.Download(ctx, userID, f.FileID)
		if err != nil {
			return n, v.fail(err, "Failed to export files")
		}
		name := dl.FileName
		if name == "" {
			name = f.FileName
		}
		name = path.Base(name)
		for seen[name] {
			name = withFileID(name, f.FileID)
		}
		seen[name] = true
		_, err = sink.Save(ctx, name, dl.Body, dl.Size, dl.ContentType)
		dl.Body.Close()
		if err != nil {
			return n, v.fail(err, "Failed to export files")
		}
		n++
	}
	v.succeed(exportedMessage(n))
	return n, nil
}
