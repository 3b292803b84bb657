package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	v1mware "github.com/deepgram/relay/internal/api/v1/middleware"
	"github.com/deepgram/relay/internal/config"
	"github.com/deepgram/relay/internal/connections"
	assistantModels "github.com/deepgram/relay/internal/services/assistant/models"
	"github.com/deepgram/relay/internal/services/chat"
	"github.com/deepgram/relay/pkg/httpext"
	"github.com/deepgram/relay/pkg/logger"
	"github.com/deepgram/relay/pkg/ratelimit"
)

const (
	// MaxFrameBytes bounds a single inbound frame
	MaxFrameBytes = 1 << 20
	// MaxInFlight bounds concurrent exchanges on one connection
	MaxInFlight = 4
)

// Handler streams run progress for chat requests sent over a WebSocket
type Handler struct {
	chatService chat.Service
	manager     *connections.Manager
	upgrader    websocket.Upgrader
	rateLimit   config.RateLimitConfig
	limiter     *ratelimit.Limiter
	readLimit   int64
}

type Option func(*Handler)

// WithRateLimit charges every request frame against the chat rate limit,
// the same budget POST requests draw from
func WithRateLimit(cfg config.RateLimitConfig, limiter *ratelimit.Limiter) Option {
	return func(h *Handler) {
		h.rateLimit = cfg
		h.limiter = limiter
	}
}

func NewHandler(chatService chat.Service, manager *connections.Manager, allowedOrigins []string, opts ...Option) *Handler {
	h := &Handler{
		chatService: chatService,
		manager:     manager,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(allowedOrigins),
		},
		readLimit: MaxFrameBytes,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// allow reports whether ip may start another exchange. A failing store lets the frame through.
func (h *Handler) allow(ctx context.Context, ip string) bool {
	if !h.rateLimit.Enabled || h.limiter == nil {
		return true
	}

	allowed, err := h.limiter.Allow(ctx, v1mware.ChatLimitKey+":"+ip)
	if err != nil {
		logger.Error(logger.WEBSOCKET, "Rate limit store unavailable: %v", err)
		return true
	}
	return allowed
}

// checkOrigin allows non-browser clients and the configured browser origins
func checkOrigin(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || strings.EqualFold(o, origin) {
				return true
			}
		}
		// Same host is always fine
		if u, err := url.Parse(origin); err == nil && strings.EqualFold(u.Host, r.Host) {
			return true
		}
		return false
	}
}

// session serialises writes to one connection
type session struct {
	conn      *websocket.Conn
	writeWait time.Duration
	mu        sync.Mutex
}

func (s *session) send(frame ResponseFrame) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.conn.SetWriteDeadline(time.Now().Add(s.writeWait)); err != nil {
		return err
	}
	return s.conn.WriteJSON(frame)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.chatService == nil {
		httpext.WriteError(w, chat.ErrClientInitialization)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	timeouts := h.manager.GetTimeouts()
	conn.SetReadLimit(h.readLimit)
	h.manager.AddConnection(conn, r.RemoteAddr)
	ip := v1mware.ClientIP(r)

	ctx, cancel := context.WithCancel(r.Context())
	var inflight sync.WaitGroup
	defer func() {
		cancel()
		inflight.Wait()
		lifetime := h.manager.RemoveConnection(conn)
		conn.Close()
		log.Info().
			Str("remote_addr", r.RemoteAddr).
			Dur("lifetime", lifetime).
			Int("open_connections", h.manager.GetConnectionCount()).
			Msg("WebSocket connection closed")
	}()

	log.Info().
		Str("remote_addr", r.RemoteAddr).
		Int("open_connections", h.manager.GetConnectionCount()).
		Msg("WebSocket connection opened")

	// Set up ping/pong handlers
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(timeouts.PongWait))
	})

	// Start ping ticker in separate goroutine
	go func() {
		ticker := time.NewTicker(timeouts.PingPeriod)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				deadline := time.Now().Add(timeouts.WriteWait)
				if err := conn.WriteControl(websocket.PingMessage, []byte{}, deadline); err != nil {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	sess := &session{conn: conn, writeWait: timeouts.WriteWait}
	slots := make(chan struct{}, MaxInFlight)

	// Message handling loop
	for {
		conn.SetReadDeadline(time.Now().Add(timeouts.PongWait))
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("remote_addr", r.RemoteAddr).Msg("Unexpected WebSocket closure")
			}
			return
		}

		if messageType != websocket.TextMessage {
			_ = sess.send(ResponseFrame{Status: StatusError, Detail: "only text frames are supported"})
			continue
		}

		var frame RequestFrame
		if err := json.Unmarshal(message, &frame); err != nil {
			_ = sess.send(ResponseFrame{Status: StatusError, Detail: "Invalid request format"})
			continue
		}
		if frame.RequestID == "" {
			frame.RequestID = uuid.New().String()
		}
		if err := frame.ChatRequest.Validate(); err != nil {
			_ = sess.send(ResponseFrame{
				RequestID: frame.RequestID,
				Status:    StatusError,
				Detail:    fmt.Sprintf("Invalid request: %v", err),
			})
			continue
		}

		if !h.allow(ctx, ip) {
			logger.Warn(logger.WEBSOCKET, "Rate limit exceeded for %s", ip)
			_ = sess.send(ResponseFrame{RequestID: frame.RequestID, Status: StatusError, Detail: "rate limit exceeded"})
			continue
		}

		select {
		case slots <- struct{}{}:
		default:
			_ = sess.send(ResponseFrame{RequestID: frame.RequestID, Status: StatusError, Detail: "too many requests in flight"})
			continue
		}

		inflight.Add(1)
		go func(frame RequestFrame) {
			defer func() {
				<-slots
				inflight.Done()
			}()
			h.process(ctx, sess, frame)
		}(frame)
	}
}

// process runs one chat exchange and reports each observed run state
func (h *Handler) process(ctx context.Context, sess *session, frame RequestFrame) {
	observe := func(run assistantModels.Run) {
		if err := sess.send(ResponseFrame{RequestID: frame.RequestID, Status: string(run.Status)}); err != nil {
			log.Debug().Err(err).Str("request_id", frame.RequestID).Msg("Failed to send progress frame")
		}
	}

	resp, err := h.chatService.ProcessChat(ctx, frame.ChatRequest, observe)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info(logger.WEBSOCKET, "Request %s abandoned by client", frame.RequestID)
			return
		}
		log.Error().
			Err(err).
			Str("request_id", frame.RequestID).
			Str("assistant_id", frame.AssistantID).
			Msg("Failed to process chat request")
		_, detail := httpext.ErrorDetail(err)
		_ = sess.send(ResponseFrame{RequestID: frame.RequestID, Status: StatusError, Detail: detail})
		return
	}

	if err := sess.send(ResponseFrame{
		RequestID: frame.RequestID,
		Status:    StatusComplete,
		Content:   resp.Response,
		Result:    resp,
	}); err != nil {
		log.Warn().Err(err).Str("request_id", frame.RequestID).Msg("Failed to send result frame")
	}
}
