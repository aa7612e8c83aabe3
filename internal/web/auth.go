package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/sorynturda/link-sharing/internal/api"
	"github.com/sorynturda/link-sharing/internal/session"
	"github.com/sorynturda/link-sharing/internal/views"
	"github.com/sorynturda/link-sharing/types"
)

func (s *Server) loginPage(w http.ResponseWriter, r *http.Request) {
	rs := s.openSession(r)
	s.render(w, r, rs, http.StatusOK, "login", pageData{Title: "Sign in"})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	rs := s.openSession(r)
	username := strings.TrimSpace(r.PostFormValue("username"))
	password := r.PostFormValue("password")
	form := map[string]string{"username": username}

	if username == "" || password == "" {
		s.render(w, r, rs, http.StatusBadRequest, "login", pageData{
			Title:  "Sign in",
			Form:   form,
			Alerts: []views.Alert{{Kind: views.AlertError, Message: "Username and password are required"}},
		})
		return
	}

	resp, err := s.client.Login(r.Context(), api.LoginRequest{Username: username, Password: password})
	if err != nil {
		msg := "Login failed. Please try again."
		if errors.Is(err, api.ErrUnauthorized) {
			msg = "Invalid username or password"
		} else if m := api.Message(err); m != "" {
			msg = m
		}
		s.logger.Info().Err(err).Str("username", username).Msg("login failed")
		s.render(w, r, rs, http.StatusUnauthorized, "login", pageData{
			Title:  "Sign in",
			Form:   form,
			Alerts: []views.Alert{{Kind: views.AlertError, Message: msg}},
		})
		return
	}

	s.signIn(w, r, rs, resp)
}

func (s *Server) registerPage(w http.ResponseWriter, r *http.Request) {
	rs := s.openSession(r)
	s.render(w, r, rs, http.StatusOK, "register", pageData{Title: "Create account"})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	rs := s.openSession(r)
	req := api.RegisterRequest{
		Username: strings.TrimSpace(r.PostFormValue("username")),
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
	}
	form := map[string]string{"username": req.Username, "email": req.Email}

	if req.Username == "" || req.Email == "" || req.Password == "" {
		s.render(w, r, rs, http.StatusBadRequest, "register", pageData{
			Title:  "Create account",
			Form:   form,
			Alerts: []views.Alert{{Kind: views.AlertError, Message: "All fields are required"}},
		})
		return
	}

	resp, err := s.client.Register(r.Context(), req)
	if err != nil {
		msg := api.Message(err)
		if msg == "" {
			msg = "Registration failed. Please try again."
		}
		s.render(w, r, rs, http.StatusBadRequest, "register", pageData{
			Title:  "Create account",
			Form:   form,
			Alerts: []views.Alert{{Kind: views.AlertError, Message: msg}},
		})
		return
	}

	s.signIn(w, r, rs, resp)
}

// signIn stores the token and sends admins to the console, everyone else
// to their files.
func (s *Server) signIn(w http.ResponseWriter, r *http.Request, rs *requestSession, resp types.AuthResponse) {
	if err := rs.holder.Set(resp.Token); err != nil {
		s.logger.Error().Err(err).Msg("store session token")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	s.redirect(w, r, rs, landingPage(resp))
}

func landingPage(resp types.AuthResponse) string {
	role := resp.Role
	if claims, ok := session.DecodeClaims(resp.Token); ok && claims.Role != "" {
		role = claims.Role
	}
	if role == types.RoleAdmin {
		return "/admin"
	}
	return "/dashboard"
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	rs := s.openSession(r)
	if err := rs.holder.Clear(); err != nil {
		s.logger.Error().Err(err).Msg("clear session token")
	}
	rs.addFlash(alertSuccess, "You have been signed out")
	s.redirect(w, r, rs, "/login")
}
