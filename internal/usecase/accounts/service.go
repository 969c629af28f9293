// Package accounts следит за подключёнными аккаунтами X.
package accounts

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"x-command-dashboard/internal/domain"
	"x-command-dashboard/internal/infra/metrics"
)

// Service опрашивает статус аккаунтов и выполняет подключение и пересбор
// метрик. Список аккаунтов кэшируется между циклами опроса.
type Service struct {
	api    domain.BackendAPI
	tokens domain.TokenSource
	log    zerolog.Logger

	interval time.Duration

	mu       sync.Mutex
	accounts []domain.Account
	loaded   bool
	lastErr  error
}

// NewService создаёт сервис опроса аккаунтов.
func NewService(api domain.BackendAPI, tokens domain.TokenSource, logger zerolog.Logger, interval time.Duration) *Service {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Service{
		api:      api,
		tokens:   tokens,
		log:      logger,
		interval: interval,
	}
}

// Run опрашивает статус аккаунтов, пока жив ctx. Без сессии список
// сбрасывается и сетевых вызовов нет.
func (s *Service) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		s.tick(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Service) tick(ctx context.Context) {
	if s.tokens.Token() == "" {
		s.reset()
		return
	}
	err := s.Refresh(ctx)
	metrics.IncPollCycle("accounts", err)
	if err != nil {
		s.log.Warn().Err(err).Msg("accounts: опрос статуса не удался")
	}
}

// Refresh перечитывает список аккаунтов. Активность аккаунта выводится из
// подключённости: неподключённый аккаунт не может быть активным.
func (s *Service) Refresh(ctx context.Context) error {
	if s.tokens.Token() == "" {
		s.reset()
		return domain.ErrNotAuthenticated
	}
	accounts, err := s.api.AuthStatus(ctx)
	if err != nil {
		s.mu.Lock()
		s.lastErr = err
		s.mu.Unlock()
		return err
	}
	for i := range accounts {
		accounts[i].IsActive = accounts[i].Connected
	}
	s.mu.Lock()
	s.accounts = accounts
	s.loaded = true
	s.lastErr = nil
	s.mu.Unlock()
	return nil
}

func (s *Service) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts = nil
	s.loaded = false
	s.lastErr = nil
}

// Accounts возвращает копию списка аккаунтов и признак его загрузки.
func (s *Service) Accounts() ([]domain.Account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Account, len(s.accounts))
	copy(out, s.accounts)
	return out, s.loaded
}

// Primary возвращает первый активный аккаунт для шапки панели.
func (s *Service) Primary() (domain.Account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, acc := range s.accounts {
		if acc.IsActive {
			return acc, true
		}
	}
	return domain.Account{}, false
}

// Err возвращает последнюю ошибку опроса.
func (s *Service) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Login запускает подключение аккаунта на бэкенде. Подключение идёт в фоне,
// поэтому после запроса список перечитывается сразу и далее обновится опросом.
func (s *Service) Login(ctx context.Context, username, password string) (domain.LoginResult, error) {
	result, err := s.api.Login(ctx, username, password)
	metrics.IncMutation("account_login", err)
	if err != nil {
		return domain.LoginResult{}, err
	}
	if err := s.Refresh(ctx); err != nil {
		s.log.Warn().Err(err).Msg("accounts: перечитывание после подключения не удалось")
	}
	return result, nil
}

// Sync пересобирает метрики по аккаунту.
func (s *Service) Sync(ctx context.Context, username string) (domain.SyncResult, error) {
	result, err := s.api.SyncAccount(ctx, username)
	metrics.IncMutation("account_sync", err)
	if err != nil {
		return domain.SyncResult{}, err
	}
	return result, nil
}
