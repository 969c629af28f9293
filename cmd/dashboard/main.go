package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"x-command-dashboard/internal/adapters/backend"
	"x-command-dashboard/internal/domain"
	"x-command-dashboard/internal/infra/cache"
	"x-command-dashboard/internal/infra/config"
	httpinfra "x-command-dashboard/internal/infra/http"
	applog "x-command-dashboard/internal/infra/log"
	"x-command-dashboard/internal/infra/metrics"
	"x-command-dashboard/internal/session"
	"x-command-dashboard/internal/timeconv"
	accountsusecase "x-command-dashboard/internal/usecase/accounts"
	analyticsusecase "x-command-dashboard/internal/usecase/analytics"
	postsusecase "x-command-dashboard/internal/usecase/posts"
)

func main() {
	cfg := config.Load()
	log.Logger = applog.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	converter, err := timeconv.NewZone(cfg.TZ)
	if err != nil {
		log.Fatal().Err(err).Str("tz", cfg.TZ).Msg("dashboard: неизвестный часовой пояс")
	}

	tokens, err := session.Open(cfg.AdminTokenFile, log.With().Str("component", "session").Logger())
	if err != nil {
		log.Fatal().Err(err).Msg("dashboard: не удалось открыть хранилище сессии")
	}

	var snapshots domain.Cache
	if cfg.RedisAddr != "" {
		snapshots = cache.NewRedis(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}))
	} else {
		snapshots = cache.NewMemory()
	}

	api, err := backend.New(cfg.Backend.BaseURL, tokens, backend.WithTimeout(cfg.Backend.Timeout))
	if err != nil {
		log.Fatal().Err(err).Msg("dashboard: не удалось создать клиент бэкенда")
	}

	collection := postsusecase.NewCollection(api, tokens,
		log.With().Str("component", "posts").Logger(), cfg.Poll.Posts, cfg.Poll.Stats)
	analytics := analyticsusecase.NewService(api, snapshots,
		log.With().Str("component", "analytics").Logger(), cfg.Poll.Growth, cfg.Poll.BestTimes, cfg.Cache.SnapshotTTL)
	accounts := accountsusecase.NewService(api, tokens,
		log.With().Str("component", "accounts").Logger(), cfg.Poll.Accounts)

	go collection.Run(ctx)
	go collection.RunStats(ctx)
	go analytics.Run(ctx)
	go accounts.Run(ctx)

	srv := httpinfra.NewServer(log.With().Str("component", "http").Logger())
	r := srv.Router

	r.Post("/api/session", func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var req struct {
			Token string `json:"token"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
			httpinfra.WriteError(w, http.StatusBadRequest, fmt.Errorf("token is required"))
			return
		}
		if err := api.VerifyToken(r.Context(), req.Token); err != nil {
			writeDomainError(w, r, err)
			return
		}
		if err := tokens.SetToken(req.Token); err != nil {
			httpinfra.WriteError(w, http.StatusInternalServerError, err)
			return
		}
		httpinfra.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Delete("/api/session", func(w http.ResponseWriter, r *http.Request) {
		if err := tokens.Clear(); err != nil {
			httpinfra.WriteError(w, http.StatusInternalServerError, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	r.Get("/api/session", func(w http.ResponseWriter, r *http.Request) {
		httpinfra.WriteJSON(w, http.StatusOK, map[string]bool{"authenticated": tokens.Authenticated()})
	})

	r.Group(func(protected chi.Router) {
		protected.Use(httpinfra.AdminTokenMiddleware(tokens))

		protected.Get("/api/posts/", func(w http.ResponseWriter, r *http.Request) {
			state, lastErr := collection.Status()
			resp := map[string]any{
				"state": state.String(),
				"posts": collection.Posts(),
			}
			if lastErr != nil {
				resp["error"] = lastErr.Error()
			}
			httpinfra.WriteJSON(w, http.StatusOK, resp)
		})

		protected.Get("/api/posts/drafts", func(w http.ResponseWriter, r *http.Request) {
			httpinfra.WriteJSON(w, http.StatusOK, collection.Drafts())
		})

		protected.Get("/api/posts/scheduled", func(w http.ResponseWriter, r *http.Request) {
			httpinfra.WriteJSON(w, http.StatusOK, collection.Scheduled())
		})

		protected.Get("/api/posts/latest", func(w http.ResponseWriter, r *http.Request) {
			post, err := collection.Latest(r.Context())
			if err != nil {
				writeDomainError(w, r, err)
				return
			}
			httpinfra.WriteJSON(w, http.StatusOK, post)
		})

		protected.Get("/api/posts/stats", func(w http.ResponseWriter, r *http.Request) {
			stats, known := collection.Stats()
			httpinfra.WriteJSON(w, http.StatusOK, map[string]any{"stats": stats, "loaded": known})
		})

		protected.Get("/api/posts/quarantine", func(w http.ResponseWriter, r *http.Request) {
			posts, err := collection.Quarantine(r.Context())
			if err != nil {
				writeDomainError(w, r, err)
				return
			}
			httpinfra.WriteJSON(w, http.StatusOK, posts)
		})

		protected.Post("/api/posts/{id}/restore", func(w http.ResponseWriter, r *http.Request) {
			id, ok := pathID(w, r)
			if !ok {
				return
			}
			post, err := collection.RestoreQuarantined(r.Context(), id)
			if err != nil {
				writeDomainError(w, r, err)
				return
			}
			httpinfra.WriteJSON(w, http.StatusOK, post)
		})

		protected.Post("/api/posts/", func(w http.ResponseWriter, r *http.Request) {
			req, ok := decodeSaveRequest(converter, w, r)
			if !ok {
				return
			}
			req.Post.ID = 0
			post, err := collection.Save(r.Context(), req)
			if err != nil {
				writeDomainError(w, r, err)
				return
			}
			httpinfra.WriteJSON(w, http.StatusCreated, post)
		})

		protected.Put("/api/posts/{id}", func(w http.ResponseWriter, r *http.Request) {
			id, ok := pathID(w, r)
			if !ok {
				return
			}
			req, ok := decodeSaveRequest(converter, w, r)
			if !ok {
				return
			}
			req.Post.ID = id
			post, err := collection.Save(r.Context(), req)
			if err != nil {
				writeDomainError(w, r, err)
				return
			}
			httpinfra.WriteJSON(w, http.StatusOK, post)
		})

		protected.Delete("/api/posts/{id}", func(w http.ResponseWriter, r *http.Request) {
			id, ok := pathID(w, r)
			if !ok {
				return
			}
			if err := collection.Remove(r.Context(), id); err != nil {
				writeDomainError(w, r, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})

		protected.Get("/api/posts/{id}/thread", func(w http.ResponseWriter, r *http.Request) {
			id, ok := pathID(w, r)
			if !ok {
				return
			}
			httpinfra.WriteJSON(w, http.StatusOK, collection.Thread(id))
		})

		protected.Get("/api/calendar", func(w http.ResponseWriter, r *http.Request) {
			httpinfra.WriteJSON(w, http.StatusOK, postsusecase.CalendarEvents(collection.Posts()))
		})

		protected.Get("/api/analytics/growth", func(w http.ResponseWriter, r *http.Request) {
			httpinfra.WriteJSON(w, http.StatusOK, analytics.Merged())
		})

		protected.Get("/api/analytics/best-times", func(w http.ResponseWriter, r *http.Request) {
			httpinfra.WriteJSON(w, http.StatusOK, analytics.BestTimes())
		})

		protected.Get("/api/analytics/performance", func(w http.ResponseWriter, r *http.Request) {
			perf, known := analytics.Performance()
			httpinfra.WriteJSON(w, http.StatusOK, map[string]any{"performance": perf, "loaded": known})
		})

		protected.Get("/api/analytics/totals", func(w http.ResponseWriter, r *http.Request) {
			httpinfra.WriteJSON(w, http.StatusOK, analyticsusecase.ComputeTotals(collection.Posts()))
		})

		protected.Get("/api/accounts", func(w http.ResponseWriter, r *http.Request) {
			list, loaded := accounts.Accounts()
			httpinfra.WriteJSON(w, http.StatusOK, map[string]any{"accounts": list, "loaded": loaded})
		})

		protected.Post("/api/accounts/login", func(w http.ResponseWriter, r *http.Request) {
			defer r.Body.Close()
			var req struct {
				Username string `json:"username"`
				Password string `json:"password"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" || req.Password == "" {
				httpinfra.WriteError(w, http.StatusBadRequest, fmt.Errorf("username and password are required"))
				return
			}
			result, err := accounts.Login(r.Context(), req.Username, req.Password)
			if err != nil {
				writeDomainError(w, r, err)
				return
			}
			httpinfra.WriteJSON(w, http.StatusOK, result)
		})

		protected.Post("/api/accounts/{username}/sync", func(w http.ResponseWriter, r *http.Request) {
			username := chi.URLParam(r, "username")
			result, err := accounts.Sync(r.Context(), username)
			if err != nil {
				writeDomainError(w, r, err)
				return
			}
			httpinfra.WriteJSON(w, http.StatusOK, result)
		})

		protected.Post("/api/upload", func(w http.ResponseWriter, r *http.Request) {
			if err := r.ParseMultipartForm(cfg.Upload.MaxBytes); err != nil {
				httpinfra.WriteError(w, http.StatusBadRequest, fmt.Errorf("invalid multipart form"))
				return
			}
			files := r.MultipartForm.File["files"]
			if len(files) == 0 {
				httpinfra.WriteError(w, http.StatusBadRequest, fmt.Errorf("no files"))
				return
			}
			if len(files) > cfg.Upload.MaxFiles {
				httpinfra.WriteError(w, http.StatusBadRequest,
					fmt.Errorf("too many files: %d, limit %d", len(files), cfg.Upload.MaxFiles))
				return
			}
			results := make([]domain.UploadResult, 0, len(files))
			for _, fh := range files {
				f, err := fh.Open()
				if err != nil {
					httpinfra.WriteError(w, http.StatusBadRequest, fmt.Errorf("open %s: %w", fh.Filename, err))
					return
				}
				result, err := api.Upload(r.Context(), fh.Filename, f)
				f.Close()
				if err != nil {
					writeDomainError(w, r, err)
					return
				}
				results = append(results, result)
			}
			httpinfra.WriteJSON(w, http.StatusOK, results)
		})
	})

	log.Info().Str("tz", converter.Location().String()).Msg("dashboard: старт")
	go func() {
		if err := srv.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("dashboard: сервер остановлен")
		}
	}()
	<-ctx.Done()
	log.Info().Msg("dashboard: остановка")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

// saveRequest — тело формы поста. Время отправки приходит локальным
// ("2006-01-02T15:04") и переводится в UTC часовым поясом панели.
type saveRequest struct {
	Content       string `json:"content"`
	ScheduledAt   string `json:"scheduled_at"`
	MediaPaths    string `json:"media_paths"`
	ParentID      int64  `json:"parent_id"`
	Username      string `json:"username"`
	PostNow       bool   `json:"post_now"`
	ScheduleInUTC bool   `json:"schedule_in_utc"`
}

func decodeSaveRequest(converter *timeconv.Converter, w http.ResponseWriter, r *http.Request) (postsusecase.SaveRequest, bool) {
	defer r.Body.Close()
	var req saveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpinfra.WriteError(w, http.StatusBadRequest, fmt.Errorf("invalid request body"))
		return postsusecase.SaveRequest{}, false
	}
	scheduledAt := req.ScheduledAt
	if scheduledAt != "" && !req.ScheduleInUTC {
		converted, err := converter.LocalToUTC(scheduledAt)
		if err != nil {
			httpinfra.WriteError(w, http.StatusBadRequest, fmt.Errorf("invalid scheduled_at: %v", err))
			return postsusecase.SaveRequest{}, false
		}
		scheduledAt = converted
	}
	return postsusecase.SaveRequest{
		Post: domain.Post{
			Content:     req.Content,
			ScheduledAt: scheduledAt,
			MediaPaths:  req.MediaPaths,
			ParentID:    req.ParentID,
			Username:    req.Username,
		},
		PostNow: req.PostNow,
	}, true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpinfra.WriteError(w, http.StatusBadRequest, fmt.Errorf("invalid post id"))
		return 0, false
	}
	return id, true
}

func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrUnauthorized), errors.Is(err, domain.ErrNotAuthenticated):
		httpinfra.WriteError(w, http.StatusUnauthorized, err)
	case errors.Is(err, domain.ErrNotFound):
		httpinfra.WriteError(w, http.StatusNotFound, err)
	case errors.Is(err, domain.ErrContentTooLong),
		errors.Is(err, domain.ErrTooManyMedia),
		errors.Is(err, domain.ErrInvalidMedia):
		httpinfra.WriteError(w, http.StatusBadRequest, err)
	case errors.Is(err, domain.ErrBackendUnavailable):
		log.Error().Err(err).Str("request_id", httpinfra.RequestID(r)).Str("path", r.URL.Path).
			Msg("dashboard: бэкенд недоступен")
		httpinfra.WriteError(w, http.StatusBadGateway, err)
	default:
		log.Error().Err(err).Str("request_id", httpinfra.RequestID(r)).Str("path", r.URL.Path).
			Msg("dashboard: необработанная ошибка")
		httpinfra.WriteError(w, http.StatusInternalServerError, err)
	}
}
