package analytics

import (
	"sort"

	"x-command-dashboard/internal/domain"
	"x-command-dashboard/internal/timeconv"
)

// MergeSeries объединяет ряд метрик постов и ряд подписчиков в один ряд,
// индексированный календарной датой UTC.
//
// Дата, известная только одному источнику, не теряется: недостающие числовые
// поля получают ноль, а Followers остаётся nil — "не замерено" и "ноль
// подписчиков" различимы для графика. Дубликаты даты внутри источника
// перезаписывают друг друга (последний побеждает), источники считаются уже
// дедуплицированными выше по потоку.
func MergeSeries(growth []domain.GrowthData, followers []domain.AccountGrowth) []domain.MergedGrowthPoint {
	rows := make(map[string]*domain.MergedGrowthPoint, len(growth)+len(followers))

	row := func(ts string) *domain.MergedGrowthPoint {
		key, err := timeconv.DateKey(ts)
		if err != nil {
			return nil
		}
		if r, ok := rows[key]; ok {
			return r
		}
		r := &domain.MergedGrowthPoint{Date: key}
		rows[key] = r
		return r
	}

	for _, g := range growth {
		r := row(g.Date)
		if r == nil {
			continue
		}
		r.Views = g.Views
		r.Likes = g.Likes
		r.Reposts = g.Reposts
		r.Bookmarks = g.Bookmarks
		r.Replies = g.Replies
		r.Engagement = g.Engagement
		r.Posts = g.Posts
	}
	for _, f := range followers {
		r := row(f.Date)
		if r == nil {
			continue
		}
		count := f.Followers
		r.Followers = &count
	}

	keys := make([]string, 0, len(rows))
	for key := range rows {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	merged := make([]domain.MergedGrowthPoint, 0, len(keys))
	for _, key := range keys {
		merged = append(merged, *rows[key])
	}
	return merged
}
