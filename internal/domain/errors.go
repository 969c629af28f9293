package domain

import "errors"

// ErrUnauthorized означает, что бэкенд отверг админ-токен; сессия уже сброшена.
var ErrUnauthorized = errors.New("admin token rejected")

// ErrNotAuthenticated возвращается, когда операция требует сессии, а токена нет.
var ErrNotAuthenticated = errors.New("no admin session")

// ErrNotFound — бэкенд не нашёл запрошенный объект.
var ErrNotFound = errors.New("not found")

// ErrBackendUnavailable — бэкенд недоступен на сетевом уровне.
var ErrBackendUnavailable = errors.New("scheduler backend unreachable")

// ErrContentTooLong — текст поста длиннее лимита X.
var ErrContentTooLong = errors.New("post content exceeds 280 characters")

// ErrInvalidMedia — файл не прошёл проверку типа перед загрузкой.
var ErrInvalidMedia = errors.New("unsupported media type")

// ErrTooManyMedia — в посте больше файлов, чем разрешает X.
var ErrTooManyMedia = errors.New("too many media files")
