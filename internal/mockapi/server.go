// Package mockapi 是一个返回固定数据的 CRM 后端，实现和真实后端相同的 HTTP 接口。
// crmassist mock 用它离线演示面板，测试用它做集成桩。
package mockapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
)

type Options struct {
	// Latency 每次聊天请求前的人为延迟，用来观察等待状态
	Latency time.Duration
	Logger  *slog.Logger
}

type Server struct {
	opts   Options
	logger *slog.Logger

	mu     sync.Mutex
	events []eventRecord
	nextID int
}

func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		opts:   opts,
		logger: logger,
		events: seedEvents(),
		nextID: len(seedEvents()) + 1,
	}
}

// Router 返回挂好所有路由和中间件的 chi 路由器
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()

	r.Use(CORS)
	r.Use(RequestID)
	r.Use(Logger(s.logger))
	r.Use(Recovery(s.logger))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", s.handleChat)
		r.Get("/emails", s.handleEmails)

		r.Route("/calendar/events", func(r chi.Router) {
			r.Get("/", s.handleListEvents)
			r.Post("/", s.handleCreateEvent)
			r.Put("/{id}", s.handleUpdateEvent)
		})

		r.Route("/interactions", func(r chi.Router) {
			r.Get("/", s.handleInteractions)
			r.Get("/frequency", s.handleFrequency)
			r.Get("/methods", s.handleMethods)
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError 按后端约定把错误放在 detail 字段
func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
