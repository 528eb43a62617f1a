package session

import (
	"net/http"
	"strings"
	"time"
)

// TokenChannel abstracts how a session token travels between the server and
// the client. The cookie channel serves browsers, the bearer channel serves
// API clients holding the token themselves.
type TokenChannel interface {
	// Extract pulls a token out of the request, reporting whether one was
	// present.
	Extract(r *http.Request) (string, bool)
	// Apply attaches the token to the response.
	Apply(w http.ResponseWriter, token string, expiresAt time.Time)
	// Clear removes any token the channel previously applied.
	Clear(w http.ResponseWriter)
}

// CookieChannel carries the token in an HttpOnly cookie. When the client is
// served from a different site than the API the cookie must be
// SameSite=None and Secure or browsers will drop it.
type CookieChannel struct {
	Name      string
	CrossSite bool
}

func NewCookieChannel(name string, crossSite bool) *CookieChannel {
	return &CookieChannel{Name: name, CrossSite: crossSite}
}

func (c *CookieChannel) Extract(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(c.Name)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

func (c *CookieChannel) Apply(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, c.build(token, expiresAt, int(time.Until(expiresAt).Seconds())))
}

func (c *CookieChannel) Clear(w http.ResponseWriter) {
	http.SetCookie(w, c.build("", time.Unix(0, 0), -1))
}

func (c *CookieChannel) build(value string, expires time.Time, maxAge int) *http.Cookie {
	cookie := &http.Cookie{
		Name:     c.Name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		MaxAge:   maxAge,
		HttpOnly: true,
	}
	if c.CrossSite {
		cookie.SameSite = http.SameSiteNoneMode
		cookie.Secure = true
	} else {
		cookie.SameSite = http.SameSiteLaxMode
	}
	return cookie
}

// BearerChannel reads the token from the Authorization header. It is
// read-only: API clients store the token themselves, so Apply and Clear do
// nothing.
type BearerChannel struct{}

func NewBearerChannel() *BearerChannel {
	return &BearerChannel{}
}

func (b *BearerChannel) Extract(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

func (b *BearerChannel) Apply(http.ResponseWriter, string, time.Time) {}

func (b *BearerChannel) Clear(http.ResponseWriter) {}

// CompositeChannel tries each channel in order for extraction and fans
// writes out to all of them. The usual arrangement is cookie first, bearer
// second.
type CompositeChannel struct {
	channels []TokenChannel
}

func NewCompositeChannel(channels ...TokenChannel) *CompositeChannel {
	return &CompositeChannel{channels: channels}
}

func (c *CompositeChannel) Extract(r *http.Request) (string, bool) {
	for _, ch := range c.channels {
		if token, ok := ch.Extract(r); ok {
			return token, true
		}
	}
	return "", false
}

func (c *CompositeChannel) Apply(w http.ResponseWriter, token string, expiresAt time.Time) {
	for _, ch := range c.channels {
		ch.Apply(w, token, expiresAt)
	}
}

func (c *CompositeChannel) Clear(w http.ResponseWriter) {
	for _, ch := range c.channels {
		ch.Clear(w)
	}
}
