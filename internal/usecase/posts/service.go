// Package posts поддерживает клиентскую копию коллекции постов: периодический
// опрос бэкенда, мутации с последующим перечитыванием и производные выборки.
package posts

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"x-command-dashboard/internal/domain"
	"x-command-dashboard/internal/infra/metrics"
	"x-command-dashboard/internal/timeconv"
)

// State описывает состояние коллекции. "Не загружена" (нет сессии) и
// "загружена, но пуста" — принципиально разные состояния.
type State int

const (
	StateNotLoaded State = iota
	StateLoading
	StateReady
	StateError
)

// String возвращает имя состояния для API панели.
func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	default:
		return "not_loaded"
	}
}

// Collection — опрашиваемая копия коллекции постов.
//
// Оптимистичных вставок нет: мутация дожидается ответа бэкенда и запускает
// перечитывание, до его завершения панель видит прежние данные. Опоздавшие
// ответы опроса отбрасываются по счётчику поколений, чтобы устаревший список
// не затёр более свежий.
type Collection struct {
	api    domain.BackendAPI
	tokens domain.TokenSource
	log    zerolog.Logger

	interval      time.Duration
	statsInterval time.Duration

	seq atomic.Uint64 // поколение запущенных запросов list

	mu         sync.Mutex
	applied    uint64 // поколение последнего применённого ответа
	state      State
	posts      []domain.Post
	lastErr    error
	stats      domain.GlobalStats
	statsKnown bool
}

// NewCollection создаёт коллекцию; interval — период опроса списка,
// statsInterval — период опроса сводки.
func NewCollection(api domain.BackendAPI, tokens domain.TokenSource, logger zerolog.Logger, interval, statsInterval time.Duration) *Collection {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if statsInterval <= 0 {
		statsInterval = time.Minute
	}
	return &Collection{
		api:           api,
		tokens:        tokens,
		log:           logger,
		interval:      interval,
		statsInterval: statsInterval,
	}
}

// Run опрашивает список постов, пока жив ctx. Без сессии сетевых вызовов нет,
// коллекция сбрасывается в "не загружена".
func (c *Collection) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		c.tick(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (c *Collection) tick(ctx context.Context) {
	if c.tokens.Token() == "" {
		c.reset()
		return
	}
	err := c.Refresh(ctx)
	metrics.IncPollCycle("posts", err)
	if err != nil {
		// фоновый опрос не шумит: панель продолжает видеть прежние данные
		c.log.Warn().Err(err).Msg("posts: цикл опроса не удался")
	}
}

// RunStats опрашивает сводку постов.
func (c *Collection) RunStats(ctx context.Context) {
	ticker := time.NewTicker(c.statsInterval)
	defer ticker.Stop()
	for {
		if c.tokens.Token() != "" {
			err := c.RefreshStats(ctx)
			metrics.IncPollCycle("stats", err)
			if err != nil {
				c.log.Warn().Err(err).Msg("posts: опрос сводки не удался")
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Refresh перечитывает коллекцию с бэкенда. Ответ, которого успел обогнать
// более поздний запрос, отбрасывается.
func (c *Collection) Refresh(ctx context.Context) error {
	if c.tokens.Token() == "" {
		c.reset()
		return domain.ErrNotAuthenticated
	}
	seq := c.seq.Add(1)
	c.mu.Lock()
	if c.state == StateNotLoaded {
		c.state = StateLoading
	}
	c.mu.Unlock()

	fetched, err := c.api.ListPosts(ctx, "")

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq <= c.applied {
		metrics.IncStaleDrop("posts")
		return nil
	}
	c.applied = seq
	if err != nil {
		c.lastErr = err
		if c.state != StateReady {
			c.state = StateError
		}
		return err
	}
	c.posts = fetched
	c.state = StateReady
	c.lastErr = nil
	return nil
}

// RefreshStats перечитывает сводку.
func (c *Collection) RefreshStats(ctx context.Context) error {
	stats, err := c.api.PostStats(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.stats = stats
	c.statsKnown = true
	c.mu.Unlock()
	return nil
}

// reset возвращает коллекцию в "не загружена" и отсекает запросы в полёте.
func (c *Collection) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.applied = c.seq.Load()
	c.state = StateNotLoaded
	c.posts = nil
	c.lastErr = nil
	c.stats = domain.GlobalStats{}
	c.statsKnown = false
}

// Posts возвращает копию коллекции.
func (c *Collection) Posts() []domain.Post {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Post, len(c.posts))
	copy(out, c.posts)
	return out
}

// Status возвращает состояние и последнюю ошибку опроса. Непустая ошибка при
// StateReady означает, что фоновый опрос падает, но прежние данные ещё видны.
func (c *Collection) Status() (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.lastErr
}

// Stats возвращает сводку и признак того, что она хоть раз загружалась.
func (c *Collection) Stats() (domain.GlobalStats, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats, c.statsKnown
}

// Drafts возвращает посты, попадающие в список черновиков.
func (c *Collection) Drafts() []domain.Post {
	return c.filter(domain.Post.IsDraftView)
}

// Scheduled возвращает запланированные посты.
func (c *Collection) Scheduled() []domain.Post {
	return c.filter(func(p domain.Post) bool {
		return p.Status == domain.StatusScheduled && p.ScheduledAt != ""
	})
}

func (c *Collection) filter(keep func(domain.Post) bool) []domain.Post {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []domain.Post
	for _, p := range c.posts {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}

// SaveRequest — данные формы поста.
type SaveRequest struct {
	Post domain.Post
	// PostNow — "опубликовать сейчас": транзитный статус immediate в запросе
	// создания, бэкенд переводит пост в processing сам.
	PostNow bool
}

// Save валидирует форму и создаёт либо обновляет пост. Статус выводится из
// правила сохранения: время отправки — scheduled, иначе draft, "сейчас" —
// immediate; комбинация "время отправки + draft" невозможна после сохранения.
func (c *Collection) Save(ctx context.Context, req SaveRequest) (domain.Post, error) {
	if utf8.RuneCountInString(req.Post.Content) > domain.ContentMaxRunes {
		return domain.Post{}, domain.ErrContentTooLong
	}
	if len(req.Post.MediaList()) > domain.MediaMaxPerPost {
		return domain.Post{}, domain.ErrTooManyMedia
	}
	status := domain.ResolveSaveStatus(req.Post.ScheduledAt, req.PostNow)

	if req.Post.ID == 0 {
		post := req.Post
		post.Status = status
		return c.Create(ctx, post)
	}

	patch := map[string]any{
		"content": req.Post.Content,
		"status":  status,
	}
	if req.Post.ScheduledAt != "" {
		patch["scheduled_at"] = req.Post.ScheduledAt
	} else {
		// явный null: черновик без времени отправки должен затирать старое
		patch["scheduled_at"] = nil
	}
	if req.Post.MediaPaths != "" {
		patch["media_paths"] = req.Post.MediaPaths
	}
	if req.Post.ParentID != 0 {
		patch["parent_id"] = req.Post.ParentID
	}
	if req.Post.Username != "" {
		patch["username"] = req.Post.Username
	}
	return c.Update(ctx, req.Post.ID, patch)
}

// Create отправляет новый пост и перечитывает коллекцию.
func (c *Collection) Create(ctx context.Context, post domain.Post) (domain.Post, error) {
	created, err := c.api.CreatePost(ctx, post)
	metrics.IncMutation("create", err)
	if err != nil {
		return domain.Post{}, err
	}
	c.refreshAfterMutation(ctx)
	return created, nil
}

// Update отправляет частичный патч и перечитывает коллекцию.
func (c *Collection) Update(ctx context.Context, id int64, patch map[string]any) (domain.Post, error) {
	updated, err := c.api.UpdatePost(ctx, id, patch)
	metrics.IncMutation("update", err)
	if err != nil {
		return domain.Post{}, err
	}
	c.refreshAfterMutation(ctx)
	return updated, nil
}

// Remove удаляет пост на бэкенде, затем локально помечает его deleted, чтобы
// календарь и черновики скрыли его до прихода свежего списка.
func (c *Collection) Remove(ctx context.Context, id int64) error {
	err := c.api.DeletePost(ctx, id)
	metrics.IncMutation("delete", err)
	if err != nil {
		return err
	}
	c.mu.Lock()
	for i := range c.posts {
		if c.posts[i].ID == id {
			c.posts[i].Status = domain.StatusDeleted
		}
	}
	c.mu.Unlock()
	c.refreshAfterMutation(ctx)
	return nil
}

const mutationRefreshTimeout = 10 * time.Second

// refreshAfterMutation перечитывает коллекцию в отвязанном контексте: клиент
// мог отключиться сразу после удачной мутации, и его отмена не должна
// оставлять коллекцию устаревшей до следующего цикла опроса.
func (c *Collection) refreshAfterMutation(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), mutationRefreshTimeout)
	defer cancel()
	if err := c.Refresh(ctx); err != nil {
		c.log.Warn().Err(err).Msg("posts: перечитывание после мутации не удалось")
	}
}

// Latest возвращает последний отправленный пост для виджета.
func (c *Collection) Latest(ctx context.Context) (domain.Post, error) {
	return c.api.LatestPost(ctx)
}

// Quarantine возвращает карантинные посты; список не кэшируется.
func (c *Collection) Quarantine(ctx context.Context) ([]domain.Post, error) {
	if c.tokens.Token() == "" {
		return nil, domain.ErrNotAuthenticated
	}
	return c.api.ListPosts(ctx, domain.FilterQuarantine)
}

// RestoreQuarantined возвращает пост из карантина в sent с пометкой в логах.
func (c *Collection) RestoreQuarantined(ctx context.Context, id int64) (domain.Post, error) {
	patch := map[string]any{
		"status": domain.StatusSent,
		"logs":   "\n[User] Restored from Quarantine",
	}
	return c.Update(ctx, id, patch)
}

// Thread возвращает цепочку ответов для поста из текущей коллекции.
func (c *Collection) Thread(id int64) []domain.Post {
	return domain.Thread(c.Posts(), id)
}

// CalendarEvent — событие для календаря панели.
type CalendarEvent struct {
	ID     int64         `json:"id"`
	Title  string        `json:"title"`
	Start  string        `json:"start,omitempty"`
	Status domain.Status `json:"status"`
}

const calendarTitleMax = 30

// CalendarEvents строит события календаря: заголовок усекается, время
// отправки нормализуется к UTC-суффиксу, локально удалённые посты скрыты.
func CalendarEvents(list []domain.Post) []CalendarEvent {
	events := make([]CalendarEvent, 0, len(list))
	for _, p := range list {
		if p.Status == domain.StatusDeleted {
			continue
		}
		title := p.Content
		if runes := []rune(title); len(runes) > calendarTitleMax {
			title = string(runes[:calendarTitleMax]) + "..."
		}
		start := p.ScheduledAt
		if start != "" {
			start = timeconv.EnsureUTCSuffix(start)
		}
		events = append(events, CalendarEvent{ID: p.ID, Title: title, Start: start, Status: p.Status})
	}
	return events
}
