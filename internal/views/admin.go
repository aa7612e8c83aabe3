package views

import (
	"context"
	"errors"

	"github.com/sorynturda/link-sharing/types"
)

// ErrNoUserSelected is returned by file actions before Select.
var ErrNoUserSelected = errors.New("no user selected")

// Admin lists regular users and manages the files of the selected one.
// Role checks here are cosmetic; the backend enforces access.
type Admin struct {
	view
	client   AdminService
	users    []types.User
	selected int64
}

func NewAdmin(ctx context.Context, client AdminService, opts Options) *Admin {
	a := &Admin{client: client}
	a.init(ctx, opts)
	return a
}

// Users returns the loaded users.
func (a *Admin) Users() []types.User {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]types.User(nil), a.users...)
}

// Selected returns the selected user id, zero when none.
func (a *Admin) Selected() int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.selected
}

// LoadUsers fetches every account and keeps those with the user role.
func (a *Admin) LoadUsers(ctx context.Context) error {
	ctx, done := a.begin(ctx)
	defer done()

	all, err := a.client.ListUsers(ctx)
	if err != nil {
		return a.fail(err, "Failed to load users")
	}
	users := make([]types.User, 0, len(all))
	for _, u := range all {
		if u.Role == types.RoleUser {
			users = append(users, u)
		}
	}
	a.update(func() { a.users = users })
	return nil
}

// Select makes userID current and lists their files. The list is emptied
// when that fails.
func (a *Admin) Select(ctx context.Context, userID int64) error {
	ctx, done := a.begin(ctx)
	defer done()

	a.update(func() { a.selected = userID })
	return a.refresh(ctx)
}

func (a *Admin) refresh(ctx context.Context) error {
	files, err := a.client.ListFiles(ctx, a.Selected())
	if err != nil {
		a.setFiles(nil)
		return a.fail(err, "Failed to load user files")
	}
	a.setFiles(files)
	return nil
}

func (a *Admin) Delete(ctx context.Context, fileID int64) error {
	ctx, done := a.begin(ctx)
	defer done()

	userID := a.Selected()
	if userID == 0 {
		return a.fail(ErrNoUserSelected, "Failed to delete file")
	}
	f, _ := a.findFile(fileID)
	if err := a.client.Delete(ctx, userID, fileID); err != nil {
		return a.fail(err, "Failed to delete file")
	}
	a.removeFile(fileID)
	a.succeed("File deleted successfully!")
	a.publish(ctx, types.ActivityEvent{
		Type:     types.EventFileDeleted,
		UserID:   userID,
		FileID:   fileID,
		FileName: f.FileName,
	})
	return a.refresh(ctx)
}

func (a *Admin) Share(ctx context.Context, fileID int64) (string, error) {
	ctx, done := a.begin(ctx)
	defer done()

	userID := a.Selected()
	if userID == 0 {
		return "", a.fail(ErrNoUserSelected, "Failed to generate share link")
	}
	return a.share(ctx, a.client, userID, fileID)
}

func (a *Admin) Download(ctx context.Context, fileID int64, sink Sink) (string, error) {
	ctx, done := a.begin(ctx)
	defer done()

	userID := a.Selected()
	if userID == 0 {
		return "", a.fail(ErrNoUserSelected, "Failed to download file")
	}
	return a.download(ctx, a.client, userID, fileID, sink)
}

// Export saves every file of the selected user into sink.
func (a *Admin) Export(ctx context.Context, sink Sink) (int, error) {
	ctx, done := a.begin(ctx)
	defer done()

	userID := a.Selected()
	if userID == 0 {
		return 0, a.fail(ErrNoUserSelected, "Failed to export files")
	}
	return a.export(ctx, a.client, userID, sink)
}
