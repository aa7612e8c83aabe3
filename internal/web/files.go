package web

import (
	"context"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sorynturda/link-sharing/internal/clipboard"
	"github.com/sorynturda/link-sharing/internal/views"
)

const qrSize = 256

func (s *Server) dashboardView(ctx context.Context, rs *requestSession) *views.Dashboard {
	return views.NewDashboard(ctx, rs.client, rs.claims.UserID, views.Options{
		Events: s.events,
		Actor:  rs.claims.Subject,
		Logger: s.logger,
	})
}

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	rs := sessionFromContext(r.Context())
	d := s.dashboardView(r.Context(), rs)
	defer d.Close()

	var alerts []views.Alert
	if err := d.Refresh(r.Context()); err != nil {
		alerts = append(alerts, d.Alert())
	}
	s.render(w, r, rs, http.StatusOK, "dashboard", pageData{
		Title:     "My files",
		Files:     d.Files(),
		Alerts:    alerts,
		MaxUpload: views.FormatSize(views.MaxUploadSize),
	})
}

func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	rs := sessionFromContext(r.Context())
	r.Body = http.MaxBytesReader(w, r.Body, views.MaxUploadSize+1<<20)

	file, header, err := r.FormFile("file")
	if err != nil {
		s.logger.Info().Err(err).Msg("read upload form")
		rs.addFlash(alertError, "Failed to upload file")
		s.redirect(w, r, rs, "/dashboard")
		return
	}
	defer file.Close()

	d := s.dashboardView(r.Context(), rs)
	defer d.Close()
	_ = d.Upload(r.Context(), header.Filename, file, header.Size)
	rs.addAlert(d.Alert())
	s.redirect(w, r, rs, "/dashboard")
}

func (s *Server) download(w http.ResponseWriter, r *http.Request) {
	rs := sessionFromContext(r.Context())
	fileID, ok := idParam(r, "fileID")
	if !ok {
		http.NotFound(w, r)
		return
	}

	d := s.dashboardView(r.Context(), rs)
	defer d.Close()
	sink := &responseSink{w: w}
	if _, err := d.Download(r.Context(), fileID, sink); err != nil && !sink.started {
		rs.addAlert(d.Alert())
		s.redirect(w, r, rs, "/dashboard")
	}
}

func (s *Server) deleteFile(w http.ResponseWriter, r *http.Request) {
	rs := sessionFromContext(r.Context())
	fileID, ok := idParam(r, "fileID")
	if !ok {
		http.NotFound(w, r)
		return
	}

	d := s.dashboardView(r.Context(), rs)
	defer d.Close()
	_ = d.Delete(r.Context(), fileID)
	rs.addAlert(d.Alert())
	s.redirect(w, r, rs, "/dashboard")
}

func (s *Server) shareFile(w http.ResponseWriter, r *http.Request) {
	rs := sessionFromContext(r.Context())
	fileID, ok := idParam(r, "fileID")
	if !ok {
		http.NotFound(w, r)
		return
	}

	d := s.dashboardView(r.Context(), rs)
	defer d.Close()
	link, err := d.Share(r.Context(), fileID)
	if err != nil {
		rs.addAlert(d.Alert())
		s.redirect(w, r, rs, "/dashboard")
		return
	}
	s.render(w, r, rs, http.StatusOK, "share", pageData{
		Title:    "Share link",
		ShareURL: link,
		BackURL:  "/dashboard",
	})
}

func (s *Server) shareQR(w http.ResponseWriter, r *http.Request) {
	link := r.URL.Query().Get("url")
	if u, err := url.Parse(link); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		http.Error(w, "invalid url", http.StatusBadRequest)
		return
	}
	png, err := clipboard.PNG(link, qrSize)
	if err != nil {
		s.logger.Error().Err(err).Msg("render qr code")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	_, _ = w.Write(png)
}

// responseSink streams a download to the browser as an attachment.
type responseSink struct {
	w       http.ResponseWriter
	started bool
}

func (s *responseSink) Save(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if name == "" {
		name = "download"
	}
	h := s.w.Header()
	h.Set("Content-Type", contentType)
	h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	if size >= 0 {
		h.Set("Content-Length", strconv.FormatInt(size, 10))
	}
	s.started = true
	if _, err := io.Copy(s.w, r); err != nil {
		return "", err
	}
	return name, nil
}

func idParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}
