package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/sorynturda/link-sharing/internal/views"
	"github.com/sorynturda/link-sharing/types"
)

//go:embed templates/*.html
var templateFS embed.FS

type pages map[string]*template.Template

var pageNames = []string{"login", "register", "dashboard", "admin", "share"}

func parsePages() (pages, error) {
	funcs := template.FuncMap{"size": views.FormatSize}
	out := make(pages, len(pageNames))
	for _, name := range pageNames {
		t, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		out[name] = t
	}
	return out, nil
}

type pageData struct {
	Title    string
	Username string
	IsAdmin  bool
	Alerts   []views.Alert

	// login and register
	Form map[string]string

	// dashboard and admin
	Files     []types.File
	Users     []types.User
	Selected  int64
	MaxUpload string

	// share
	ShareURL string
	BackURL  string
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, rs *requestSession, status int, name string, data pageData) {
	if rs != nil {
		data.Alerts = append(rs.flashes(), data.Alerts...)
		data.Username = rs.claims.Subject
		data.IsAdmin = rs.admin
	}

	var buf bytes.Buffer
	if err := s.pages[name].ExecuteTemplate(&buf, "layout", data); err != nil {
		s.logger.Error().Err(err).Str("page", name).Msg("render page")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if rs != nil {
		s.commit(w, r, rs)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
