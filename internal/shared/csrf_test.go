package shared_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/brightpath-hq/brightpath/internal/shared"
)

func TestCSRFVerifyRequiresMatchingToken(t *testing.T) {
	manager := shared.NewCSRFManager("csrf-secret", false)

	res := httptest.NewRecorder()
	get := httptest.NewRequest(http.MethodGet, "/login", nil)
	token := manager.EnsureCookie(res, get)
	if token == "" {
		t.Fatal("expected a token")
	}

	post := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(shared.CSRFFormField+"="+token))
	post.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	post.AddCookie(&http.Cookie{Name: shared.CSRFCookieName, Value: token})
	if err := manager.Verify(post); err != nil {
		t.Fatalf("expected valid token, got %v", err)
	}
}

func TestCSRFVerifyFailures(t *testing.T) {
	manager := shared.NewCSRFManager("csrf-secret", false)

	post := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	if err := manager.Verify(post); !errors.Is(err, shared.ErrCSRFTokenMissing) {
		t.Fatalf("expected missing token error, got %v", err)
	}

	post = httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	post.AddCookie(&http.Cookie{Name: shared.CSRFCookieName, Value: "cookie-token"})
	post.Header.Set(shared.CSRFHeaderName, "different-token")
	if err := manager.Verify(post); !errors.Is(err, shared.ErrCSRFTokenMismatch) {
		t.Fatalf("expected mismatch error, got %v", err)
	}
}

func TestNormalizeEmail(t *testing.T) {
	cases := map[string]string{
		"Jane@Example.COM ": "jane@example.com",
		"jane@example.com":  "jane@example.com",
	}
	for input, want := range cases {
		if got := shared.NormalizeEmail(input); got != want {
			t.Fatalf("NormalizeEmail(%q) = %q, want %q", input, got, want)
		}
	}
}
