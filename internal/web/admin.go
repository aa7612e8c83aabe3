package web

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/sorynturda/link-sharing/internal/views"
)

func (s *Server) adminView(ctx context.Context, rs *requestSession) *views.Admin {
	return views.NewAdmin(ctx, rs.client, views.Options{
		Events: s.events,
		Actor:  rs.claims.Subject,
		Logger: s.logger,
	})
}

func (s *Server) admin(w http.ResponseWriter, r *http.Request) {
	rs := sessionFromContext(r.Context())
	a := s.adminView(r.Context(), rs)
	defer a.Close()

	var alerts []views.Alert
	if err := a.LoadUsers(r.Context()); err != nil {
		alerts = append(alerts, a.Alert())
	}
	if raw := r.URL.Query().Get("user"); raw != "" {
		userID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || userID < 1 {
			http.Error(w, "invalid user id", http.StatusBadRequest)
			return
		}
		if err := a.Select(r.Context(), userID); err != nil {
			alerts = append(alerts, a.Alert())
		}
	}

	s.render(w, r, rs, http.StatusOK, "admin", pageData{
		Title:    "Admin",
		Users:    a.Users(),
		Selected: a.Selected(),
		Files:    a.Files(),
		Alerts:   alerts,
	})
}

// selectedAdmin parses the route ids and selects the user. It writes the
// response and returns false when that fails.
func (s *Server) selectedAdmin(w http.ResponseWriter, r *http.Request, rs *requestSession) (*views.Admin, int64, bool) {
	userID, ok := idParam(r, "userID")
	if !ok {
		http.NotFound(w, r)
		return nil, 0, false
	}
	fileID, ok := idParam(r, "fileID")
	if !ok {
		http.NotFound(w, r)
		return nil, 0, false
	}
	a := s.adminView(r.Context(), rs)
	if err := a.Select(r.Context(), userID); err != nil {
		a.Close()
		rs.addAlert(a.Alert())
		s.redirect(w, r, rs, adminURL(userID))
		return nil, 0, false
	}
	return a, fileID, true
}

func (s *Server) adminDelete(w http.ResponseWriter, r *http.Request) {
	rs := sessionFromContext(r.Context())
	a, fileID, ok := s.selectedAdmin(w, r, rs)
	if !ok {
		return
	}
	defer a.Close()

	_ = a.Delete(r.Context(), fileID)
	rs.addAlert(a.Alert())
	s.redirect(w, r, rs, adminURL(a.Selected()))
}

func (s *Server) adminShare(w http.ResponseWriter, r *http.Request) {
	rs := sessionFromContext(r.Context())
	a, fileID, ok := s.selectedAdmin(w, r, rs)
	if !ok {
		return
	}
	defer a.Close()

	link, err := a.Share(r.Context(), fileID)
	if err != nil {
		rs.addAlert(a.Alert())
		s.redirect(w, r, rs, adminURL(a.Selected()))
		return
	}
	s.render(w, r, rs, http.StatusOK, "share", pageData{
		Title:    "Share link",
		ShareURL: link,
		BackURL:  adminURL(a.Selected()),
	})
}

func (s *Server) adminDownload(w http.ResponseWriter, r *http.Request) {
	rs := sessionFromContext(r.Context())
	a, fileID, ok := s.selectedAdmin(w, r, rs)
	if !ok {
		return
	}
	defer a.Close()

	sink := &responseSink{w: w}
	if _, err := a.Download(r.Context(), fileID, sink); err != nil && !sink.started {
		rs.addAlert(a.Alert())
		s.redirect(w, r, rs, adminURL(a.Selected()))
	}
}

func adminURL(userID int64) string {
	return fmt.Sprintf("/admin?user=%d", userID)
}
