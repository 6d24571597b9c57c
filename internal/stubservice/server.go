package stubservice

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"DialogHarness/internal/config"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxBodyBytes = 64 << 10

// Request — тело запроса к диалоговому сервису.
type Request struct {
	Input string `json:"input"`
	ID    string `json:"id"`
}

// Server — локальная замена удалённого диалогового сервиса: принимает POST {"input","id"}
// и отвечает JSON-списком системных актов.
type Server struct {
	cfg       config.StubServiceConfig
	responder *Responder
	srv       *http.Server
	logger    *zap.SugaredLogger
	running   atomic.Bool
	addr      atomic.Value
}

func NewServer(cfg config.StubServiceConfig, responder *Responder, logger *zap.SugaredLogger) *Server {
	if cfg.BindAddr == "" {
		cfg.BindAddr = "127.0.0.1:8080"
	}
	if cfg.Path == "" {
		cfg.Path = "/api/multiwoz"
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	s := &Server{cfg: cfg, responder: responder, logger: logger}
	s.addr.Store(cfg.BindAddr)

	s.srv = &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler возвращает маршрутизатор сервиса; удобно для httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(s.cfg.Path, s.handleTurn)
	return mux
}

// Start открывает слушатель и обслуживает запросы в отдельной горутине.
// Отмена ctx останавливает сервер.
func (s *Server) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return nil
	}
	ln, err := net.Listen("tcp", s.cfg.BindAddr)
	if err != nil {
		s.running.Store(false)
		return err
	}
	s.addr.Store(ln.Addr().String())

	go func() {
		s.logger.Infow("stub service listening", "addr", s.Addr(), "path", s.cfg.Path)
		if err := s.srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) && err != nil {
			s.logger.Errorw("stub service stopped with error", "error", err)
		} else {
			s.logger.Infow("stub service stopped")
		}
	}()

	go func() {
		<-ctx.Done()
		_ = s.Stop(context.WithoutCancel(ctx))
	}()
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeoutCause(ctx, 5*time.Second, errors.New("stub-service shutdown timeout"))
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warnw("graceful shutdown error", "error", err)
		return s.srv.Close()
	}
	return nil
}

// Addr возвращает фактический адрес слушателя (после Start) или настроенный.
func (s *Server) Addr() string { return s.addr.Load().(string) }

// URL возвращает адрес эндпоинта для адаптера.
func (s *Server) URL() string { return "http://" + s.Addr() + s.cfg.Path }

func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed; use POST", http.StatusMethodNotAllowed)
		return
	}
	defer r.Body.Close()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusInternalServerError)
		return
	}
	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		s.logger.Warnw("bad request body", "error", err, "remote", r.RemoteAddr, "raw", string(body))
		http.Error(w, "malformed JSON", http.StatusBadRequest)
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
		s.logger.Warnw("request without conversation id", "assigned", req.ID)
	}

	acts := s.responder.Reply(req.ID, req.Input)
	s.logger.Infow("turn",
		"id", req.ID,
		"input", req.Input,
		"acts", acts,
	)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(acts); err != nil {
		s.logger.Warnw("write response failed", "error", err)
	}
}
