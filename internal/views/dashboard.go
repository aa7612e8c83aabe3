package views

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sorynturda/link-sharing/types"
)

// ErrTooLarge is returned by Upload for files above MaxUploadSize.
var ErrTooLarge = errors.New("file exceeds the upload limit")

// Dashboard manages the files owned by the signed-in user.
type Dashboard struct {
	view
	client FileService
	userID int64
}

// NewDashboard creates the view for userID. Cancelling ctx has the same
// effect as Close.
func NewDashboard(ctx context.Context, client FileService, userID int64, opts Options) *Dashboard {
	d := &Dashboard{client: client, userID: userID}
	d.init(ctx, opts)
	return d
}

// Refresh replaces the list with the backend's.
func (d *Dashboard) Refresh(ctx context.Context) error {
	ctx, done := d.begin(ctx)
	defer done()
	return d.refresh(ctx)
}

func (d *Dashboard) refresh(ctx context.Context) error {
	files, err := d.client.ListFiles(ctx, d.userID)
	if err != nil {
		return d.fail(err, "Failed to load files")
	}
	d.setFiles(files)
	return nil
}

// Upload sends r as name. size is checked against MaxUploadSize when it is
// known (>= 0).
func (d *Dashboard) Upload(ctx context.Context, name string, r io.Reader, size int64) error {
	ctx, done := d.begin(ctx)
	defer done()

	if size > MaxUploadSize {
		return d.fail(ErrTooLarge, "Failed to upload file")
	}
	f, err := d.client.Upload(ctx, d.userID, name, r)
	if err != nil {
		return d.fail(err, "Failed to upload file")
	}
	d.succeed("File uploaded successfully!")
	d.publish(ctx, types.ActivityEvent{
		Type:     types.EventFileUploaded,
		UserID:   d.userID,
		FileID:   f.FileID,
		FileName: f.FileName,
	})
	return d.refreshAfter(ctx)
}

// Download saves one file into sink and returns its location.
func (d *Dashboard) Download(ctx context.Context, fileID int64, sink Sink) (string, error) {
	ctx, done := d.begin(ctx)
	defer done()
	return d.download(ctx, d.client, d.userID, fileID, sink)
}

// Delete removes fileID. The list is left untouched on failure.
func (d *Dashboard) Delete(ctx context.Context, fileID int64) error {
	ctx, done := d.begin(ctx)
	defer done()

	f, _ := d.findFile(fileID)
	if err := d.client.Delete(ctx, d.userID, fileID); err != nil {
		return d.fail(err, "Failed to delete file")
	}
	d.removeFile(fileID)
	d.succeed("File deleted successfully!")
	d.publish(ctx, types.ActivityEvent{
		Type:     types.EventFileDeleted,
		UserID:   d.userID,
		FileID:   fileID,
		FileName: f.FileName,
	})
	return d.refreshAfter(ctx)
}

// Share generates a public link for fileID and returns it.
func (d *Dashboard) Share(ctx context.Context, fileID int64) (string, error) {
	ctx, done := d.begin(ctx)
	defer done()
	return d.share(ctx, d.client, d.userID, fileID)
}

// Export saves every listed file into sink.
func (d *Dashboard) Export(ctx context.Context, sink Sink) (int, error) {
	ctx, done := d.begin(ctx)
	defer done()
	return d.export(ctx, d.client, d.userID, sink)
}

// refreshAfter reloads the list after a mutation. A failed reload replaces
// the success alert, as the user is now looking at a stale list.
func (d *Dashboard) refreshAfter(ctx context.Context) error {
	if err := d.refresh(ctx); err != nil {
		return fmt.Errorf("refresh: %w", err)
	}
	return nil
}
