package domain

import (
	"context"
	"io"
	"time"
)

// BackendAPI — контракт HTTP API планировщика, который потребляет панель.
type BackendAPI interface {
	ListPosts(ctx context.Context, filter string) ([]Post, error)
	LatestPost(ctx context.Context) (Post, error)
	PostStats(ctx context.Context) (GlobalStats, error)
	CreatePost(ctx context.Context, post Post) (Post, error)
	UpdatePost(ctx context.Context, id int64, patch map[string]any) (Post, error)
	DeletePost(ctx context.Context, id int64) error

	Upload(ctx context.Context, filename string, content io.Reader) (UploadResult, error)

	Login(ctx context.Context, username, password string) (LoginResult, error)
	VerifyToken(ctx context.Context, token string) error
	AuthStatus(ctx context.Context) ([]Account, error)
	SyncAccount(ctx context.Context, username string) (SyncResult, error)

	GrowthData(ctx context.Context) ([]GrowthData, error)
	AccountGrowth(ctx context.Context) ([]AccountGrowth, error)
	BestTimes(ctx context.Context) (BestTimes, error)
	Performance(ctx context.Context) (PerformanceData, error)
}

// TokenSource отдаёт текущий админ-токен и сбрасывает его при 401.
type TokenSource interface {
	// Token возвращает текущий токен; пустая строка — сессии нет.
	Token() string
	// Invalidate сбрасывает токен, если он всё ещё текущий. Возвращает true,
	// если сброс произошёл именно в этом вызове: параллельные 401 по одному
	// токену очищают его ровно один раз.
	Invalidate(token string) bool
}

// Cache — простое TTL-хранилище снимков (Redis либо память).
type Cache interface {
	Set(key string, value []byte, ttl time.Duration) error
	Get(key string) ([]byte, error)
}
