package perf

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/brightpath-hq/brightpath/internal/gate"
	"github.com/brightpath-hq/brightpath/internal/shared"
)

// The gatekeeper runs on every navigation, so its hot path is decide plus
// one signature verification per cookie.

func BenchmarkGateDecide(b *testing.B) {
	cookies := gate.Cookies{Token: "tok", Role: shared.RoleStudent}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		gate.Decide(cookies, "/dashboard/reports")
	}
}

func BenchmarkCookieDecode(b *testing.B) {
	codec := shared.NewCookieCodec("bench-secret")
	raw := codec.Encode("some-upstream-bearer-token")
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, ok := codec.Decode(raw); !ok {
			b.Fatal("decode failed")
		}
	}
}

func BenchmarkGateMiddlewarePass(b *testing.B) {
	codec := shared.NewCookieCodec("bench-secret")
	cfg := shared.CookieConfig{TokenName: "token", RoleName: "user_role"}
	handler := gate.Middleware{Codec: codec, Cookies: cfg}.Handler(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: codec.Encode("tok")})
	req.AddCookie(&http.Cookie{Name: "user_role", Value: codec.Encode(string(shared.RoleStudent))})

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
}
