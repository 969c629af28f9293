package session

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "admin_token")
	s, err := Open(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	return s
}

func TestSetTokenPersists(t *testing.T) {
	s := newStore(t)
	if s.Authenticated() {
		t.Fatalf("новая сессия должна быть пустой")
	}
	if err := s.SetToken("secret-token"); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}

	reopened, err := Open(s.path, zerolog.Nop())
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if reopened.Token() != "secret-token" {
		t.Fatalf("токен должен переживать перезапуск, получили %q", reopened.Token())
	}
}

func TestSetTokenRejectsEmpty(t *testing.T) {
	s := newStore(t)
	if err := s.SetToken("  "); err == nil {
		t.Fatalf("ожидали ошибку для пустого токена")
	}
}

func TestInvalidateClearsOnce(t *testing.T) {
	s := newStore(t)
	if err := s.SetToken("secret"); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}

	const workers = 16
	var wg sync.WaitGroup
	cleared := make(chan bool, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cleared <- s.Invalidate("secret")
		}()
	}
	wg.Wait()
	close(cleared)

	count := 0
	for ok := range cleared {
		if ok {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("параллельные 401 должны сбрасывать токен ровно один раз, получили %d", count)
	}
	if s.Authenticated() {
		t.Fatalf("сессия должна быть снята")
	}
}

func TestInvalidateStaleTokenIsNoop(t *testing.T) {
	s := newStore(t)
	if err := s.SetToken("current"); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if s.Invalidate("old") {
		t.Fatalf("чужой токен не должен сбрасывать сессию")
	}
	if !s.Authenticated() {
		t.Fatalf("сессия не должна пострадать")
	}
	if s.Invalidate("") {
		t.Fatalf("пустой токен не должен сбрасывать сессию")
	}
}

func TestClear(t *testing.T) {
	s := newStore(t)
	if err := s.SetToken("secret"); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if s.Authenticated() {
		t.Fatalf("после выхода сессии быть не должно")
	}
	// повторный выход безвреден
	if err := s.Clear(); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
}
