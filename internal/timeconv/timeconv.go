// Package timeconv преобразует "наивное" локальное время формы расписания в
// UTC-метки бэкенда и обратно.
package timeconv

import (
	"fmt"
	"strings"
	"time"
)

const (
	// LayoutLocal — формат datetime-пикера: минутная точность, без зоны.
	LayoutLocal = "2006-01-02T15:04"
	// LayoutDate — календарная дата для ключей рядов аналитики.
	LayoutDate = "2006-01-02"
)

// ErrInvalidTimezone возвращается, если указан некорректный часовой пояс.
var ErrInvalidTimezone = fmt.Errorf("invalid timezone")

// Converter переводит время между настенными часами одной зоны и UTC.
type Converter struct {
	loc *time.Location
}

// New создаёт конвертер для зоны loc; nil означает локальную зону процесса.
func New(loc *time.Location) *Converter {
	if loc == nil {
		loc = time.Local
	}
	return &Converter{loc: loc}
}

// NewZone создаёт конвертер по имени зоны IANA. Регистр и пробелы
// нормализуются ("europe/madrid" и "Europe Madrid" принимаются).
func NewZone(name string) (*Converter, error) {
	normalized, err := normalizeTimezone(name)
	if err != nil {
		return nil, err
	}
	loc, err := time.LoadLocation(normalized)
	if err != nil {
		return nil, ErrInvalidTimezone
	}
	return New(loc), nil
}

// Location возвращает зону конвертера.
func (c *Converter) Location() *time.Location {
	return c.loc
}

// LocalToUTC интерпретирует строку пикера как настенное время зоны конвертера
// и возвращает момент в UTC ISO-8601 с миллисекундами и суффиксом Z.
// Пустой вход даёт пустой выход. Несуществующее локальное время на переходе
// летнего времени разрешается обычной календарной арифметикой ParseInLocation.
func (c *Converter) LocalToUTC(local string) (string, error) {
	if local == "" {
		return "", nil
	}
	t, err := time.ParseInLocation(LayoutLocal, local, c.loc)
	if err != nil {
		// некоторые пикеры присылают секунды
		t, err = time.ParseInLocation(LayoutLocal+":05", local, c.loc)
		if err != nil {
			return "", fmt.Errorf("parse local datetime %q: %w", local, err)
		}
	}
	return t.UTC().Format("2006-01-02T15:04:05.000") + "Z", nil
}

// UTCToLocal переводит UTC-метку в строку пикера LayoutLocal, усекая до минут.
// Метка без суффикса Z трактуется как UTC: бэкенд не всегда добавляет суффикс,
// и эта нормализация — осознанная часть контракта, а не случайность парсера.
func (c *Converter) UTCToLocal(utc string) (string, error) {
	if utc == "" {
		return "", nil
	}
	s := EnsureUTCSuffix(utc)
	t, err := parseUTC(s)
	if err != nil {
		return "", err
	}
	return t.In(c.loc).Format(LayoutLocal), nil
}

// EnsureUTCSuffix добавляет суффикс Z, если его нет.
func EnsureUTCSuffix(ts string) string {
	if strings.HasSuffix(ts, "Z") {
		return ts
	}
	return ts + "Z"
}

// DateKey усекает метку времени до календарной даты в UTC. Голая дата
// "YYYY-MM-DD" проходит без изменений.
func DateKey(ts string) (string, error) {
	if len(ts) == len(LayoutDate) {
		if _, err := time.Parse(LayoutDate, ts); err == nil {
			return ts, nil
		}
	}
	t, err := parseUTC(EnsureUTCSuffix(ts))
	if err != nil {
		return "", err
	}
	return t.UTC().Format(LayoutDate), nil
}

func parseUTC(s string) (time.Time, error) {
	layouts := []string{
		time.RFC3339Nano,
		LayoutLocal + "Z07:00",
	}
	var lastErr error
	for _, layout := range layouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, fmt.Errorf("parse utc timestamp %q: %w", s, lastErr)
}

// normalizeTimezone приводит произвольно набранное имя зоны к каноническому
// виду IANA: пробелы превращаются в подчёркивания, сегменты капитализуются.
func normalizeTimezone(raw string) (string, error) {
	candidate := strings.TrimSpace(raw)
	if candidate == "" {
		return "", ErrInvalidTimezone
	}
	candidate = strings.ReplaceAll(candidate, " ", "_")
	if _, err := time.LoadLocation(candidate); err == nil {
		return candidate, nil
	}

	lower := strings.ToLower(candidate)
	parts := strings.Split(lower, "/")
	for i, part := range parts {
		segments := strings.Split(part, "_")
		for j, segment := range segments {
			pieces := strings.Split(segment, "-")
			for k, piece := range pieces {
				if piece == "" {
					continue
				}
				pieces[k] = strings.ToUpper(piece[:1]) + piece[1:]
			}
			segments[j] = strings.Join(pieces, "-")
		}
		parts[i] = strings.Join(segments, "_")
	}
	normalized := strings.Join(parts, "/")
	if _, err := time.LoadLocation(normalized); err == nil {
		return normalized, nil
	}
	return "", ErrInvalidTimezone
}
