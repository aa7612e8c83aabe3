package api

import (
	"context"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/sorynturda/link-sharing/types"
)

const (
	formFieldFile   = "file"
	formFieldUserID = "userId"
)

// Download is an open file body. Callers must close Body.
type Download struct {
	Body        io.ReadCloser
	FileName    string
	ContentType string
	// Size is -1 when the backend did not announce a length.
	Size int64
}

// ListFiles fetches every file owned by userID in one call.
func (c *Client) ListFiles(ctx context.Context, userID int64) ([]types.File, error) {
	files := []types.File{}
	err := c.doJSON(ctx, request{
		op:     "list files",
		method: http.MethodGet,
		path:   idPath("/api/files/user/%d", userID),
		auth:   true,
	}, &files)
	if err != nil {
		return nil, err
	}
	return files, nil
}

// Upload streams r as a multipart form with the file and owning user id.
func (c *Client) Upload(ctx context.Context, userID int64, fileName string, r io.Reader) (types.File, error) {
	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)

	// r belongs to the caller again once Upload returns.
	done := make(chan struct{})
	go func() {
		defer close(done)
		part, err := form.CreateFormFile(formFieldFile, path.Base(fileName))
		if err != nil {
			_ = pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, r); err != nil {
			_ = pw.CloseWithError(err)
			return
		}
		if err := form.WriteField(formFieldUserID, strconv.FormatInt(userID, 10)); err != nil {
			_ = pw.CloseWithError(err)
			return
		}
		_ = pw.CloseWithError(form.Close())
	}()

	var file types.File
	err := c.doJSON(ctx, request{
		op:          "upload file",
		method:      http.MethodPost,
		path:        "/api/files/upload",
		body:        pr,
		contentType: form.FormDataContentType(),
		auth:        true,
	}, &file)
	_ = pr.Close()
	<-done
	if err != nil {
		return types.File{}, err
	}
	return file, nil
}

// Download opens the binary body of a file.
func (c *Client) Download(ctx context.Context, userID, fileID int64) (*Download, error) {
	resp, err := c.send(ctx, request{
		op:     "download file",
		method: http.MethodGet,
		path:   idPath("/api/files/download/%d", fileID),
		query:  userQuery(userID),
		auth:   true,
	})
	if err != nil {
		return nil, err
	}

	return &Download{
		Body:        resp.Body,
		FileName:    attachmentName(resp.Header.Get("Content-Disposition")),
		ContentType: resp.Header.Get("Content-Type"),
		Size:        resp.ContentLength,
	}, nil
}

// Delete removes a file.
func (c *Client) Delete(ctx context.Context, userID, fileID int64) error {
	return c.doJSON(ctx, request{
		op:     "delete file",
		method: http.MethodDelete,
		path:   idPath("/api/files/%d", fileID),
		query:  userQuery(userID),
		auth:   true,
	}, nil)
}

// Share asks the backend for a public link to a file.
func (c *Client) Share(ctx context.Context, userID, fileID int64) (types.ShareLink, error) {
	var link types.ShareLink
	err := c.doJSON(ctx, request{
		op:          "share file",
		method:      http.MethodPost,
		path:        idPath("/api/files/%d/share", fileID),
		query:       userQuery(userID),
		contentType: "application/json",
		auth:        true,
	}, &link)
	if err != nil {
		return types.ShareLink{}, err
	}
	if strings.TrimSpace(link.ShareURL) == "" {
		return types.ShareLink{}, &Error{Kind: KindDecode, Op: "share file", Message: "missing share url"}
	}
	return link, nil
}

func userQuery(userID int64) url.Values {
	q := url.Values{}
	q.Set(formFieldUserID, strconv.FormatInt(userID, 10))
	return q
}

func attachmentName(disposition string) string {
	if disposition == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return ""
	}
	name := params["filename"]
	if name == "" {
		return ""
	}
	return path.Base(strings.ReplaceAll(name, "\\", "/"))
}
