package web

import (
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/sorynturda/link-sharing/internal/api"
	"github.com/sorynturda/link-sharing/internal/session"
	"github.com/sorynturda/link-sharing/internal/views"
	"github.com/sorynturda/link-sharing/types"
)

const tokenKey = "token"

const (
	alertError   = "error"
	alertSuccess = "success"
)

// cookieStore keeps the token in a gorilla session. Changes are written
// when the response is committed by redirect or render.
type cookieStore struct {
	sess *sessions.Session
}

func (c cookieStore) Load() (string, error) {
	token, _ := c.sess.Values[tokenKey].(string)
	return token, nil
}

func (c cookieStore) Save(token string) error {
	c.sess.Values[tokenKey] = token
	return nil
}

func (c cookieStore) Clear() error {
	delete(c.sess.Values, tokenKey)
	return nil
}

// requestSession is the per-request view of the browser session.
type requestSession struct {
	sess   *sessions.Session
	holder *session.Holder
	client *api.Client
	claims types.Claims
	admin  bool
}

func (s *Server) openSession(r *http.Request) *requestSession {
	sess, err := s.sessions.Get(r, s.cookieName)
	if err != nil {
		// A cookie that no longer decodes yields a fresh session.
		s.logger.Debug().Err(err).Msg("discarding session cookie")
	}
	holder := session.NewHolder(cookieStore{sess: sess})
	return &requestSession{
		sess:   sess,
		holder: holder,
		client: s.client.WithTokens(holder),
	}
}

func (rs *requestSession) addFlash(kind, message string) {
	rs.sess.AddFlash(message, kind)
}

func (rs *requestSession) addAlert(alert views.Alert) {
	switch alert.Kind {
	case views.AlertError:
		rs.addFlash(alertError, alert.Message)
	case views.AlertSuccess:
		rs.addFlash(alertSuccess, alert.Message)
	}
}

// flashes drains pending flash messages.
func (rs *requestSession) flashes() []views.Alert {
	var alerts []views.Alert
	for _, kind := range []string{alertError, alertSuccess} {
		for _, f := range rs.sess.Flashes(kind) {
			msg, ok := f.(string)
			if !ok {
				continue
			}
			k := views.AlertSuccess
			if kind == alertError {
				k = views.AlertError
			}
			alerts = append(alerts, views.Alert{Kind: k, Message: msg})
		}
	}
	return alerts
}

func (s *Server) commit(w http.ResponseWriter, r *http.Request, rs *requestSession) {
	if err := rs.sess.Save(r, w); err != nil {
		s.logger.Error().Err(err).Msg("save session")
	}
}

func (s *Server) redirect(w http.ResponseWriter, r *http.Request, rs *requestSession, target string) {
	s.commit(w, r, rs)
	http.Redirect(w, r, target, http.StatusSeeOther)
}
