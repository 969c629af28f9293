package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/h2non/filetype"

	"x-command-dashboard/internal/domain"
	"x-command-dashboard/internal/infra/metrics"
)

// allowedMedia — форматы, которые принимает X для вложений.
var allowedMedia = map[string]bool{
	"png":  true,
	"jpg":  true,
	"gif":  true,
	"webp": true,
	"mp4":  true,
}

// Upload проверяет тип файла по сигнатуре и отправляет его на бэкенд.
// Файл с неподдерживаемым содержимым отклоняется до единого сетевого вызова.
func (c *Client) Upload(ctx context.Context, filename string, content io.Reader) (domain.UploadResult, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return domain.UploadResult{}, fmt.Errorf("read upload: %w", err)
	}
	if err := ValidateMedia(data); err != nil {
		return domain.UploadResult{}, err
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return domain.UploadResult{}, fmt.Errorf("create multipart: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return domain.UploadResult{}, fmt.Errorf("write multipart: %w", err)
	}
	if err := writer.Close(); err != nil {
		return domain.UploadResult{}, fmt.Errorf("close multipart: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/upload/", &body)
	if err != nil {
		return domain.UploadResult{}, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.ObserveBackendRequest("upload", start, err)
	if err != nil {
		return domain.UploadResult{}, fmt.Errorf("%w: %v", domain.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		c.tokens.Invalidate(req.Header.Get(headerAdminToken))
		return domain.UploadResult{}, domain.ErrUnauthorized
	}
	if resp.StatusCode >= 300 {
		return domain.UploadResult{}, c.decodeError(resp)
	}

	var result domain.UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return domain.UploadResult{}, fmt.Errorf("decode response: %w", err)
	}
	return result, nil
}

// ValidateMedia проверяет сигнатуру содержимого файла.
func ValidateMedia(data []byte) error {
	kind, err := filetype.Match(data)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidMedia, err)
	}
	if !allowedMedia[kind.Extension] {
		return fmt.Errorf("%w: %s", domain.ErrInvalidMedia, kind.Extension)
	}
	return nil
}
