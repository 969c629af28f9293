// Package session хранит админ-токен панели — единственное персистентное
// состояние клиента.
package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"x-command-dashboard/internal/domain"
	"x-command-dashboard/internal/infra/metrics"
)

// Store — файловое хранилище токена с потокобезопасным сбросом.
type Store struct {
	mu    sync.RWMutex
	path  string
	token string
	log   zerolog.Logger
}

var _ domain.TokenSource = (*Store)(nil)

// Open читает токен из файла path; отсутствие файла — пустая сессия.
func Open(path string, logger zerolog.Logger) (*Store, error) {
	s := &Store{path: path, log: logger}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("read token file: %w", err)
	}
	s.token = strings.TrimSpace(string(raw))
	return s, nil
}

// Token возвращает текущий токен; пустая строка — сессии нет.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Authenticated сообщает, есть ли активная сессия.
func (s *Store) Authenticated() bool {
	return s.Token() != ""
}

// SetToken сохраняет токен в памяти и на диске.
func (s *Store) SetToken(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("empty admin token")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	s.token = token
	return nil
}

// Clear снимает сессию по явному выходу пользователя.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clearLocked()
}

// Invalidate сбрасывает токен после 401, но только если он всё ещё текущий:
// несколько параллельных запросов, получивших 401 по одному токену, очищают
// сессию ровно один раз.
func (s *Store) Invalidate(token string) bool {
	if token == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token != token {
		return false
	}
	if err := s.clearLocked(); err != nil {
		s.log.Error().Err(err).Msg("session: не удалось удалить файл токена")
	}
	metrics.IncUnauthorized()
	s.log.Warn().Msg("session: бэкенд отверг админ-токен, сессия сброшена")
	return true
}

func (s *Store) clearLocked() error {
	s.token = ""
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove token file: %w", err)
	}
	return nil
}
