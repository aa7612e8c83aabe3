package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/sorynturda/link-sharing/internal/guard"
	"github.com/sorynturda/link-sharing/types"
)

type contextKey string

const requestSessionKey contextKey = "session"

func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			event := log.Info()
			if status >= 500 {
				event = log.Error()
			} else if status >= 400 {
				event = log.Warn()
			}

			event.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("client_ip", r.RemoteAddr).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("latency", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("http request")
		})
	}
}

// requireSession runs the route guard against the cookie token. Requests
// without a valid session are sent to /login.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rs := s.openSession(r)

		var verifier guard.Verifier
		if s.verify {
			verifier = rs.client
		}
		result := guard.New(rs.holder, verifier, guard.WithLogger(s.logger)).Check(r.Context())
		if result.State != guard.Authenticated {
			if result.Reason != guard.ReasonMissing {
				rs.addFlash(alertError, "Your session has expired, please log in again")
			}
			s.redirect(w, r, rs, "/login")
			return
		}
		rs.claims = result.Claims
		rs.admin = guard.HasRole(result, types.RoleAdmin)

		ctx := context.WithValue(r.Context(), requestSessionKey, rs)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAdmin hides the admin console from non-admin sessions.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rs := sessionFromContext(r.Context())
		if rs == nil || !rs.admin {
			if rs != nil {
				rs.addFlash(alertError, "Admin access required")
				s.redirect(w, r, rs, "/dashboard")
				return
			}
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func sessionFromContext(ctx context.Context) *requestSession {
	rs, _ := ctx.Value(requestSessionKey).(*requestSession)
	return rs
}
