package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"x-command-dashboard/internal/domain"
)

type stubTokens struct {
	mu          sync.Mutex
	token       string
	invalidated []string
}

func (s *stubTokens) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *stubTokens) Invalidate(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidated = append(s.invalidated, token)
	if s.token != token {
		return false
	}
	s.token = ""
	return true
}

func newTestClient(t *testing.T, handler http.Handler) (*Client, *stubTokens) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	tokens := &stubTokens{token: "secret"}
	client, err := New(srv.URL, tokens)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	return client, tokens
}

func TestListPostsSendsHeaders(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/posts/" {
			t.Errorf("неожиданный путь: %s", r.URL.Path)
		}
		if r.Header.Get("X-Admin-Token") != "secret" {
			t.Errorf("ожидали админ-токен в заголовке")
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Errorf("ожидали идентификатор запроса")
		}
		json.NewEncoder(w).Encode([]domain.Post{{ID: 1, Content: "привет"}})
	}))

	posts, err := client.ListPosts(context.Background(), "")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(posts) != 1 || posts[0].ID != 1 {
		t.Fatalf("неожиданный ответ: %+v", posts)
	}
}

func TestListPostsQuarantineFilter(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("status"); got != "quarantine" {
			t.Errorf("ожидали фильтр quarantine, получили %q", got)
		}
		json.NewEncoder(w).Encode([]domain.Post{})
	}))
	if _, err := client.ListPosts(context.Background(), domain.FilterQuarantine); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
}

func TestUnauthorizedInvalidatesSession(t *testing.T) {
	client, tokens := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"invalid token"}`, http.StatusUnauthorized)
	}))

	_, err := client.ListPosts(context.Background(), "")
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("ожидали ErrUnauthorized, получили %v", err)
	}
	if len(tokens.invalidated) != 1 || tokens.invalidated[0] != "secret" {
		t.Fatalf("должен сбрасываться именно токен запроса: %v", tokens.invalidated)
	}
}

func TestErrorDetailSurfaces(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]string{"detail": "content required"})
	}))

	_, err := client.CreatePost(context.Background(), domain.Post{})
	if err == nil || !bytes.Contains([]byte(err.Error()), []byte("content required")) {
		t.Fatalf("ожидали detail в тексте ошибки, получили %v", err)
	}
}

func TestNotFound(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"Post not found"}`, http.StatusNotFound)
	}))
	if err := client.DeletePost(context.Background(), 42); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("ожидали ErrNotFound, получили %v", err)
	}
}

func TestDeletePostEmptyBody(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/api/posts/7" {
			t.Errorf("неожиданный запрос: %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	if err := client.DeletePost(context.Background(), 7); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
}

func TestUpdatePostSendsNullToClearSchedule(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("не удалось разобрать тело: %v", err)
		}
		if v, ok := body["scheduled_at"]; !ok || v != nil {
			t.Errorf("ожидали явный null в scheduled_at, получили %v", body)
		}
		json.NewEncoder(w).Encode(domain.Post{ID: 7, Status: domain.StatusDraft})
	}))

	patch := map[string]any{"scheduled_at": nil, "status": domain.StatusDraft}
	updated, err := client.UpdatePost(context.Background(), 7, patch)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if updated.Status != domain.StatusDraft {
		t.Fatalf("неожиданный статус: %s", updated.Status)
	}
}

func TestVerifyTokenUsesCandidate(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Admin-Token") != "candidate" {
			t.Errorf("ожидали токен-кандидат, получили %q", r.Header.Get("X-Admin-Token"))
		}
		w.WriteHeader(http.StatusOK)
	}))
	if err := client.VerifyToken(context.Background(), "candidate"); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
}

func TestVerifyTokenRejected(t *testing.T) {
	client, tokens := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"bad token"}`, http.StatusUnauthorized)
	}))
	if err := client.VerifyToken(context.Background(), "bad"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("ожидали ErrUnauthorized, получили %v", err)
	}
	// отказ кандидату не трогает действующую сессию
	if len(tokens.invalidated) != 0 {
		t.Fatalf("текущий токен не должен сбрасываться: %v", tokens.invalidated)
	}
}

func TestBackendUnreachable(t *testing.T) {
	tokens := &stubTokens{token: "secret"}
	client, err := New("http://127.0.0.1:1", tokens)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if _, err := client.ListPosts(context.Background(), ""); !errors.Is(err, domain.ErrBackendUnavailable) {
		t.Fatalf("ожидали ErrBackendUnavailable, получили %v", err)
	}
}

var pngHeader = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}

func TestUploadValidatesBeforeNetwork(t *testing.T) {
	requests := 0
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
	}))

	_, err := client.Upload(context.Background(), "notes.txt", bytes.NewReader([]byte("просто текст")))
	if !errors.Is(err, domain.ErrInvalidMedia) {
		t.Fatalf("ожидали ErrInvalidMedia, получили %v", err)
	}
	if requests != 0 {
		t.Fatalf("невалидный файл не должен уходить в сеть")
	}
}

func TestUploadMultipart(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/upload/" {
			t.Errorf("неожиданный путь: %s", r.URL.Path)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("ожидали поле file: %v", err)
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		defer file.Close()
		if header.Filename != "pic.png" {
			t.Errorf("неожиданное имя файла: %s", header.Filename)
		}
		json.NewEncoder(w).Encode(domain.UploadResult{Filename: "abc.png", URL: "/uploads/abc.png"})
	}))

	result, err := client.Upload(context.Background(), "pic.png", bytes.NewReader(pngHeader))
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if result.URL != "/uploads/abc.png" {
		t.Fatalf("неожиданный ответ: %+v", result)
	}
}
