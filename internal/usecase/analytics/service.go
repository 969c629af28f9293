// Package analytics собирает ряды аналитики с бэкенда и готовит их для графиков.
package analytics

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"x-command-dashboard/internal/domain"
	"x-command-dashboard/internal/infra/metrics"
)

// defaultBestHours показывается, пока бэкенду не хватает данных.
var defaultBestHours = []int{9, 12, 18, 21}

const (
	cacheKeyGrowth    = "analytics:growth"
	cacheKeyFollowers = "analytics:followers"
)

// Service опрашивает аналитические эндпоинты и держит последние снимки.
// Снимки рядов дублируются в TTL-кэш, чтобы после перезапуска панель могла
// показать график до первого удачного опроса.
type Service struct {
	api   domain.BackendAPI
	cache domain.Cache
	log   zerolog.Logger

	growthInterval time.Duration
	slowInterval   time.Duration
	cacheTTL       time.Duration

	mu            sync.Mutex
	growth        []domain.GrowthData
	accountGrowth []domain.AccountGrowth
	bestTimes     domain.BestTimes
	bestKnown     bool
	performance   domain.PerformanceData
	perfKnown     bool
	lastErr       error
}

// NewService создаёт сервис; growthInterval — период опроса рядов роста,
// slowInterval — период опроса лучших часов и сравнения форматов.
func NewService(api domain.BackendAPI, cache domain.Cache, logger zerolog.Logger, growthInterval, slowInterval, cacheTTL time.Duration) *Service {
	if growthInterval <= 0 {
		growthInterval = 5 * time.Minute
	}
	if slowInterval <= 0 {
		slowInterval = time.Hour
	}
	if cacheTTL <= 0 {
		cacheTTL = 24 * time.Hour
	}
	s := &Service{
		api:            api,
		cache:          cache,
		log:            logger,
		growthInterval: growthInterval,
		slowInterval:   slowInterval,
		cacheTTL:       cacheTTL,
	}
	s.warmFromCache()
	return s
}

// Run опрашивает аналитику, пока жив ctx. Периоды независимы: панель может
// наблюдать ряды из разных циклов, это принятая эвентуальная согласованность.
func (s *Service) Run(ctx context.Context) {
	growthTicker := time.NewTicker(s.growthInterval)
	defer growthTicker.Stop()
	slowTicker := time.NewTicker(s.slowInterval)
	defer slowTicker.Stop()

	s.refreshGrowth(ctx)
	s.refreshSlow(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-growthTicker.C:
			s.refreshGrowth(ctx)
		case <-slowTicker.C:
			s.refreshSlow(ctx)
		}
	}
}

func (s *Service) refreshGrowth(ctx context.Context) {
	err := s.RefreshGrowth(ctx)
	metrics.IncPollCycle("growth", err)
	if err != nil {
		s.log.Warn().Err(err).Msg("analytics: опрос рядов роста не удался")
	}
}

func (s *Service) refreshSlow(ctx context.Context) {
	err := s.RefreshBestTimes(ctx)
	metrics.IncPollCycle("best_times", err)
	if err != nil {
		s.log.Warn().Err(err).Msg("analytics: опрос лучших часов не удался")
	}
	if err := s.RefreshPerformance(ctx); err != nil {
		s.log.Warn().Err(err).Msg("analytics: опрос сравнения форматов не удался")
	}
}

// RefreshGrowth перечитывает оба ряда роста. Частичная неудача не затирает
// уже загруженный второй ряд.
func (s *Service) RefreshGrowth(ctx context.Context) error {
	growth, err := s.api.GrowthData(ctx)
	if err != nil {
		s.setErr(err)
		return err
	}
	s.mu.Lock()
	s.growth = growth
	s.lastErr = nil
	s.mu.Unlock()
	s.snapshot(cacheKeyGrowth, growth)

	followers, err := s.api.AccountGrowth(ctx)
	if err != nil {
		s.setErr(err)
		return err
	}
	s.mu.Lock()
	s.accountGrowth = followers
	s.mu.Unlock()
	s.snapshot(cacheKeyFollowers, followers)
	return nil
}

// RefreshBestTimes перечитывает рекомендацию лучших часов.
func (s *Service) RefreshBestTimes(ctx context.Context) error {
	best, err := s.api.BestTimes(ctx)
	if err != nil {
		s.setErr(err)
		return err
	}
	s.mu.Lock()
	s.bestTimes = best
	s.bestKnown = true
	s.mu.Unlock()
	return nil
}

// RefreshPerformance перечитывает сравнение текстовых и медийных постов.
func (s *Service) RefreshPerformance(ctx context.Context) error {
	perf, err := s.api.Performance(ctx)
	if err != nil {
		s.setErr(err)
		return err
	}
	s.mu.Lock()
	s.performance = perf
	s.perfKnown = true
	s.mu.Unlock()
	return nil
}

func (s *Service) setErr(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}

// Merged возвращает объединённый ряд для графика.
func (s *Service) Merged() []domain.MergedGrowthPoint {
	s.mu.Lock()
	growth := s.growth
	followers := s.accountGrowth
	s.mu.Unlock()
	return MergeSeries(growth, followers)
}

// BestTimes возвращает рекомендацию; без данных — слоты по умолчанию.
func (s *Service) BestTimes() domain.BestTimes {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.bestKnown || len(s.bestTimes.BestHours) == 0 {
		return domain.BestTimes{BestHours: append([]int(nil), defaultBestHours...)}
	}
	return s.bestTimes
}

// Performance возвращает сравнение форматов и признак его наличия.
func (s *Service) Performance() (domain.PerformanceData, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.performance, s.perfKnown
}

// Err возвращает последнюю ошибку опроса.
func (s *Service) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Totals — сводные метрики по отправленным оригинальным постам.
type Totals struct {
	Posts         int     `json:"posts"`
	Views         int64   `json:"views"`
	Likes         int64   `json:"likes"`
	Reposts       int64   `json:"reposts"`
	AvgEngagement float64 `json:"avg_engagement"`
}

// ComputeTotals агрегирует метрики коллекции постов. Репосты и посты без
// tweet_id в сводку не входят.
func ComputeTotals(posts []domain.Post) Totals {
	var t Totals
	for _, p := range posts {
		if !p.CountsInAggregates() {
			continue
		}
		t.Posts++
		t.Views += p.ViewsCount
		t.Likes += p.LikesCount
		t.Reposts += p.RepostsCount
	}
	if t.Posts > 0 {
		t.AvgEngagement = float64(t.Likes+t.Reposts) / float64(t.Posts)
	}
	return t
}

func (s *Service) snapshot(key string, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.cache.Set(key, raw, s.cacheTTL); err != nil {
		s.log.Debug().Err(err).Str("key", key).Msg("analytics: снимок не сохранился")
	}
}

// warmFromCache поднимает последние снимки рядов после перезапуска.
func (s *Service) warmFromCache() {
	if raw, err := s.cache.Get(cacheKeyGrowth); err == nil {
		var growth []domain.GrowthData
		if json.Unmarshal(raw, &growth) == nil {
			s.growth = growth
		}
	}
	if raw, err := s.cache.Get(cacheKeyFollowers); err == nil {
		var followers []domain.AccountGrowth
		if json.Unmarshal(raw, &followers) == nil {
			s.accountGrowth = followers
		}
	}
}
