package authapi

import (
	"net/http"
	"strings"
	"time"
)

// Cookie codec for the refresh token. The refresh token travels only as an
// HTTP-only, path-scoped cookie; handlers never read it from any other
// channel.

func (h *Handler) setRefreshCookie(w http.ResponseWriter, value string, now time.Time, exp time.Time) {
	if h == nil || w == nil {
		return
	}
	maxAge := int(exp.Sub(now) / time.Second)
	if maxAge < 1 {
		maxAge = 1
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.RefreshCookieName,
		Value:    value,
		Path:     h.cfg.CookiePath,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cfg.Production,
		SameSite: h.cookieSameSite(),
	})
}

func (h *Handler) clearRefreshCookie(w http.ResponseWriter) {
	if h == nil || w == nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.RefreshCookieName,
		Value:    "",
		Path:     h.cfg.CookiePath,
		Expires:  time.Unix(0, 0).UTC(),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.Production,
		SameSite: h.cookieSameSite(),
	})
}

func (h *Handler) refreshTokenFromCookie(r *http.Request) (string, bool) {
	if h == nil || r == nil {
		return "", false
	}
	c, err := r.Cookie(h.cfg.RefreshCookieName)
	if err != nil {
		return "", false
	}
	v := strings.TrimSpace(c.Value)
	if v == "" {
		return "", false
	}
	return v, true
}

// cookieSameSite returns None for production (cross-site frontend, requires
// Secure) and Lax for local development over plain HTTP.
func (h *Handler) cookieSameSite() http.SameSite {
	if h.cfg.Production {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}
