package web

import (
	"net/http"
	"net/url"
	"strings"

	"shoestore/internal/policy"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	principalKey = "principal"
	flashCookie  = "shoestore_flash"
)

// loadSession resolves the session cookie into a principal when one is present
func (s *Server) loadSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(s.cfg.CookieName)
		if err != nil || id == "" {
			c.Next()
			return
		}

		p, ok, err := s.sessions.GetSession(c.Request.Context(), id, s.cfg.SessionTTL)
		if err != nil {
			s.logger.Warn("Session lookup failed", zap.Error(err))
		}
		if ok {
			c.Set(principalKey, p)
		} else {
			s.clearCookie(c, s.cfg.CookieName)
		}
		c.Next()
	}
}

// requireLogin redirects anonymous visitors to the login page
func (s *Server) requireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := currentUser(c); !ok {
			target := "/account/login?returnUrl=" + url.QueryEscape(c.Request.URL.RequestURI())
			c.Redirect(http.StatusSeeOther, target)
			c.Abort()
			return
		}
		c.Next()
	}
}

func currentUser(c *gin.Context) (policy.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return policy.Principal{}, false
	}
	p, ok := v.(policy.Principal)
	return p, ok
}

func (s *Server) setCookie(c *gin.Context, name, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, maxAge, "/", "", s.cfg.SecureCookies, true)
}

func (s *Server) clearCookie(c *gin.Context, name string) {
	s.setCookie(c, name, "", -1)
}

type flash struct {
	Kind    string
	Message string
}

// setFlash stores a one-shot message shown on the next page render
func (s *Server) setFlash(c *gin.Context, kind, message string) {
	s.setCookie(c, flashCookie, kind+":"+message, 60)
}

func (s *Server) popFlash(c *gin.Context) *flash {
	raw, err := c.Cookie(flashCookie)
	if err != nil || raw == "" {
		return nil
	}
	s.clearCookie(c, flashCookie)

	kind, msg, ok := strings.Cut(raw, ":")
	if !ok {
		return nil
	}
	return &flash{Kind: kind, Message: msg}
}

// safeReturnURL only allows local absolute paths
func safeReturnURL(raw string) string {
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return "/"
	}
	return raw
}
