package http

import (
	"crypto/hmac"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"x-command-dashboard/internal/domain"
)

// HeaderAdminToken — заголовок сессии панели.
const HeaderAdminToken = "X-Admin-Token"

// AdminTokenMiddleware пропускает запрос, только если заголовок сессии
// совпадает с текущим токеном. Сравнение постоянное по времени.
func AdminTokenMiddleware(tokens domain.TokenSource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			current := tokens.Token()
			if current == "" {
				WriteError(w, http.StatusUnauthorized, domain.ErrNotAuthenticated)
				return
			}
			got := r.Header.Get(HeaderAdminToken)
			if got == "" || !hmac.Equal([]byte(got), []byte(current)) {
				WriteError(w, http.StatusUnauthorized, domain.ErrUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequestID возвращает request ID из контекста chi.
func RequestID(r *http.Request) string {
	return middleware.GetReqID(r.Context())
}

// ErrorResponse описывает ошибку.
type ErrorResponse struct {
	Error string `json:"error"`
}

// WriteError отправляет JSON с ошибкой.
func WriteError(w http.ResponseWriter, status int, err error) {
	WriteJSON(w, status, ErrorResponse{Error: err.Error()})
}

// WriteJSON отправляет ответ в JSON.
func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
