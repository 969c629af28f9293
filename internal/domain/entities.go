package domain

import "strings"

// ContentMaxRunes — лимит X на длину текста поста.
const ContentMaxRunes = 280

// MediaMaxPerPost — максимум вложений в одном посте X.
const MediaMaxPerPost = 4

// Post описывает единицу контента в планировщике.
//
// Временные метки хранятся строками в том виде, в котором их отдаёт бэкенд
// (UTC ISO-8601, суффикс Z не гарантирован). Метрики заполняются только после
// перехода поста в статус sent.
type Post struct {
	ID             int64  `json:"id,omitempty"`
	Content        string `json:"content"`
	MediaPaths     string `json:"media_paths,omitempty"`
	ScheduledAt    string `json:"scheduled_at,omitempty"`
	Status         Status `json:"status,omitempty"`
	CreatedAt      string `json:"created_at,omitempty"`
	UpdatedAt      string `json:"updated_at,omitempty"`
	Logs           string `json:"logs,omitempty"`
	ScreenshotPath string `json:"screenshot_path,omitempty"`
	ParentID       int64  `json:"parent_id,omitempty"`
	TweetID        string `json:"tweet_id,omitempty"`
	ViewsCount     int64  `json:"views_count,omitempty"`
	LikesCount     int64  `json:"likes_count,omitempty"`
	RepostsCount   int64  `json:"reposts_count,omitempty"`
	BookmarksCount int64  `json:"bookmarks_count,omitempty"`
	RepliesCount   int64  `json:"replies_count,omitempty"`
	Username       string `json:"username,omitempty"`
	MediaURL       string `json:"media_url,omitempty"`
	IsRepost       bool   `json:"is_repost,omitempty"`
}

// MediaList возвращает список файлов из media_paths; первый — обложка.
func (p Post) MediaList() []string {
	if p.MediaPaths == "" {
		return nil
	}
	parts := strings.Split(p.MediaPaths, ",")
	var out []string
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// IsDraftView сообщает, показывается ли пост в списке черновиков:
// нет времени отправки либо статус draft, и пост не удалён локально.
func (p Post) IsDraftView() bool {
	if p.Status == StatusDeleted {
		return false
	}
	return p.ScheduledAt == "" || p.Status == StatusDraft
}

// CountsInAggregates сообщает, участвует ли пост в сводных метриках:
// только отправленные оригинальные посты с известным tweet_id.
func (p Post) CountsInAggregates() bool {
	return p.Status == StatusSent && p.TweetID != "" && !p.IsRepost
}

// GrowthData — агрегированные метрики постов за один календарный день.
type GrowthData struct {
	Date       string  `json:"date"`
	Views      int64   `json:"views"`
	Likes      int64   `json:"likes"`
	Reposts    int64   `json:"reposts"`
	Bookmarks  int64   `json:"bookmarks"`
	Replies    int64   `json:"replies"`
	Engagement float64 `json:"engagement"`
	Posts      int64   `json:"posts"`
}

// AccountGrowth — число подписчиков аккаунта на календарный день.
type AccountGrowth struct {
	Date      string `json:"date"`
	Followers int64  `json:"followers"`
}

// MergedGrowthPoint — строка объединённого ряда для графика.
//
// Followers остаётся nil, если в этот день замера не было: нарисованный ноль
// и отсутствие данных — разные вещи, график не должен проваливаться к нулю.
type MergedGrowthPoint struct {
	Date       string  `json:"date"`
	Views      int64   `json:"views"`
	Likes      int64   `json:"likes"`
	Reposts    int64   `json:"reposts"`
	Bookmarks  int64   `json:"bookmarks"`
	Replies    int64   `json:"replies"`
	Engagement float64 `json:"engagement"`
	Posts      int64   `json:"posts"`
	Followers  *int64  `json:"followers,omitempty"`
}

// GlobalStats — сводка по всем постам.
type GlobalStats struct {
	Sent      int64 `json:"sent"`
	Failed    int64 `json:"failed"`
	Scheduled int64 `json:"scheduled"`
	Drafts    int64 `json:"drafts"`
	Views     int64 `json:"views"`
	Likes     int64 `json:"likes"`
	Reposts   int64 `json:"reposts"`
}

// BestTimes — рекомендация лучших часов для публикации.
type BestTimes struct {
	BestHours          []int           `json:"best_hours"`
	HourlyData         map[int]float64 `json:"hourly_data,omitempty"`
	TotalPostsAnalyzed int             `json:"total_posts_analyzed"`
	Reason             string          `json:"reason,omitempty"`
}

// PerformanceStats — метрики эффективности для одной категории постов.
type PerformanceStats struct {
	Count          int64   `json:"count"`
	Views          int64   `json:"views"`
	Engagement     float64 `json:"engagement"`
	AvgEngagement  float64 `json:"avg_engagement"`
	EngagementRate float64 `json:"engagement_rate"`
}

// PerformanceData сравнивает текстовые посты с медийными.
type PerformanceData struct {
	Text  PerformanceStats `json:"text"`
	Media PerformanceStats `json:"media"`
}

// Account — подключённый аккаунт X.
type Account struct {
	Username        string `json:"username"`
	Connected       bool   `json:"connected"`
	LastConnected   string `json:"last_connected,omitempty"`
	IsLegacy        bool   `json:"is_legacy,omitempty"`
	ProfileImageURL string `json:"profile_image_url,omitempty"`
	IsActive        bool   `json:"is_active"`
}

// UploadResult — ответ бэкенда на загрузку файла.
type UploadResult struct {
	Filename string `json:"filename"`
	Filepath string `json:"filepath"`
	URL      string `json:"url"`
}

// LoginResult — ответ на запрос подключения аккаунта.
// Подключение выполняется в фоне, поэтому статус всегда processing.
type LoginResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// SyncResult — итог пересбора метрик по аккаунту.
type SyncResult struct {
	Imported        int    `json:"imported"`
	Log             string `json:"log"`
	DebugScreenshot string `json:"debug_screenshot,omitempty"`
}
