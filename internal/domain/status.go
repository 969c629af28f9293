package domain

// Status описывает состояние поста в жизненном цикле планировщика.
type Status string

const (
	StatusDraft      Status = "draft"
	StatusScheduled  Status = "scheduled"
	StatusSent       Status = "sent"
	StatusFailed     Status = "failed"
	StatusProcessing Status = "processing"
	StatusDeleted    Status = "deleted"
	StatusDeletedOnX Status = "deleted_on_x"

	// StatusImmediate — транзитный сигнал "отправить сейчас". В коллекции не
	// хранится: бэкенд принимает его в запросе сохранения и сам переводит пост
	// в processing/sent.
	StatusImmediate Status = "immediate"
)

// FilterQuarantine — значение фильтра списка постов для карантина
// (подозрительные посты, ожидающие ручной проверки).
const FilterQuarantine = "quarantine"

// ResolveSaveStatus применяет правило сохранения: непустое время отправки
// всегда даёт scheduled, "опубликовать сейчас" — immediate, иначе черновик.
// Комбинация "есть время отправки + draft" таким образом невозможна.
func ResolveSaveStatus(scheduledAt string, postNow bool) Status {
	if scheduledAt != "" {
		return StatusScheduled
	}
	if postNow {
		return StatusImmediate
	}
	return StatusDraft
}
