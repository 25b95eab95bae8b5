package shared

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"strings"
	"time"
)

// CookieConfig describes the auth cookie pair written by the session store
// and read by the gatekeeper.
type CookieConfig struct {
	TokenName string
	RoleName  string
	TTL       time.Duration
	Secure    bool
}

// CookieCodec signs cookie values so the gatekeeper can reject forgeries
// without calling the upstream. The plain value stays readable in front of
// the signature; client code reads it, only the server verifies it.
type CookieCodec struct {
	secret []byte
}

// NewCookieCodec returns a codec keyed with the provided secret.
func NewCookieCodec(secret string) *CookieCodec {
	return &CookieCodec{secret: []byte(secret)}
}

// Encode appends an HMAC signature to value.
func (c *CookieCodec) Encode(value string) string {
	return value + "." + c.sign(value)
}

// Decode verifies the signature and returns the plain value. A malformed or
// tampered cookie yields ok=false; callers treat that as an absent cookie.
func (c *CookieCodec) Decode(raw string) (string, bool) {
	idx := strings.LastIndex(raw, ".")
	if idx <= 0 || idx == len(raw)-1 {
		return "", false
	}
	value, sig := raw[:idx], raw[idx+1:]
	if !hmac.Equal([]byte(sig), []byte(c.sign(value))) {
		return "", false
	}
	return value, true
}

func (c *CookieCodec) sign(value string) string {
	mac := hmac.New(sha256.New, c.secret)
	_, _ = mac.Write([]byte(value))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// ReadAuthCookies extracts the token and role from the request cookie jar.
// Anything that fails signature verification is reported as absent.
func ReadAuthCookies(r *http.Request, codec *CookieCodec, cfg CookieConfig) (string, Role) {
	var token string
	var role Role
	if c, err := r.Cookie(cfg.TokenName); err == nil {
		if value, ok := codec.Decode(c.Value); ok {
			token = value
		}
	}
	if c, err := r.Cookie(cfg.RoleName); err == nil {
		if value, ok := codec.Decode(c.Value); ok {
			role = Role(value)
		}
	}
	return token, role
}

// CookieJar abstracts where the auth cookie pair is written. The session
// store is its sole writer.
type CookieJar interface {
	SetAuth(token string, role Role)
	ClearAuth()
}

// ResponseJar writes the auth cookies onto an HTTP response.
type ResponseJar struct {
	w     http.ResponseWriter
	codec *CookieCodec
	cfg   CookieConfig
}

// NewResponseJar binds a jar to the given response writer.
func NewResponseJar(w http.ResponseWriter, codec *CookieCodec, cfg CookieConfig) *ResponseJar {
	return &ResponseJar{w: w, codec: codec, cfg: cfg}
}

// SetAuth writes the token cookie and the role mirror cookie.
func (j *ResponseJar) SetAuth(token string, role Role) {
	expires := time.Now().Add(j.cfg.TTL)
	http.SetCookie(j.w, &http.Cookie{
		Name:     j.cfg.TokenName,
		Value:    j.codec.Encode(token),
		Path:     "/",
		Expires:  expires,
		Secure:   j.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(j.w, &http.Cookie{
		Name:     j.cfg.RoleName,
		Value:    j.codec.Encode(string(role)),
		Path:     "/",
		Expires:  expires,
		Secure:   j.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearAuth expires both cookies.
func (j *ResponseJar) ClearAuth() {
	for _, name := range []string{j.cfg.TokenName, j.cfg.RoleName} {
		http.SetCookie(j.w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			Secure:   j.cfg.Secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}
