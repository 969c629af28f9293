package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
)

type stubTokens struct{ token string }

func (s *stubTokens) Token() string            { return s.token }
func (s *stubTokens) Invalidate(t string) bool { return false }

func callProtected(token, header string) *httptest.ResponseRecorder {
	handler := AdminTokenMiddleware(&stubTokens{token: token})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}),
	)
	req := httptest.NewRequest(http.MethodGet, "/api/posts/", nil)
	if header != "" {
		req.Header.Set(HeaderAdminToken, header)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestAdminTokenMiddlewareAccepts(t *testing.T) {
	rec := callProtected("секрет", "секрет")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("ожидался 204, получен %d", rec.Code)
	}
}

func TestAdminTokenMiddlewareRejectsMismatch(t *testing.T) {
	rec := callProtected("секрет", "не тот")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("ожидался 401, получен %d", rec.Code)
	}
}

func TestAdminTokenMiddlewareRejectsMissingHeader(t *testing.T) {
	rec := callProtected("секрет", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("ожидался 401, получен %d", rec.Code)
	}
}

func TestRequestIDAvailableInHandlers(t *testing.T) {
	var got string
	handler := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = RequestID(r)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/posts/", nil))
	if got == "" {
		t.Fatal("request id должен быть доступен внутри обработчика")
	}
}

func TestAdminTokenMiddlewareRejectsWithoutSession(t *testing.T) {
	rec := callProtected("", "что угодно")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("без сессии ожидался 401, получен %d", rec.Code)
	}
}
