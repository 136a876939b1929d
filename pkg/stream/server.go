package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"regexp"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	fws "github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/teslashibe/go-avatar/pkg/hub"
	"github.com/teslashibe/go-avatar/pkg/metrics"
	"github.com/teslashibe/go-avatar/pkg/motion"
	"github.com/teslashibe/go-avatar/pkg/protocol"
	"github.com/teslashibe/go-avatar/pkg/source"
	"github.com/teslashibe/go-avatar/pkg/tap"
)

// sessionIDPattern limits client-chosen ids to a single NATS subject token.
var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidSessionID reports whether id may name a session.
func ValidSessionID(id string) bool {
	return sessionIDPattern.MatchString(id)
}

// Options wires the server's collaborators. Zero values get defaults.
type Options struct {
	Source source.Config
	Motion motion.Config

	// OpenSource opens a session's source. Default: source.New with Source.
	OpenSource func(ctx context.Context) (source.Source, error)

	// NewRand returns a session's blink randomness. Default: a seeded PCG.
	NewRand func() motion.RandSource

	Now     func() time.Time
	Tap     tap.Publisher
	Metrics *metrics.Metrics
	Events  *hub.Hub
	Logger  *slog.Logger
}

// Server accepts websocket clients and runs one session per connection.
type Server struct {
	cfg      Config
	opts     Options
	app      *fiber.App
	registry *Registry
	logger   *slog.Logger

	// ctx is cancelled by Shutdown and parents every session.
	ctx    context.Context
	cancel context.CancelFunc
}

// NewServer validates cfg and builds the fiber app with all routes.
func NewServer(cfg Config, opts Options) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.Motion == (motion.Config{}) {
		opts.Motion = motion.DefaultConfig()
	}
	if opts.Source.Kind == "" {
		opts.Source = source.DefaultConfig()
	}
	if err := opts.Motion.Validate(); err != nil {
		return nil, fmt.Errorf("stream: motion: %w", err)
	}

	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Tap == nil {
		opts.Tap = tap.Nop{}
	}
	if opts.NewRand == nil {
		opts.NewRand = func() motion.RandSource { return motion.NewRand(rand.Uint64()) }
	}
	if opts.OpenSource == nil {
		srcCfg, logger := opts.Source, opts.Logger
		opts.OpenSource = func(ctx context.Context) (source.Source, error) {
			return source.New(ctx, srcCfg, logger)
		}
	}
	// The server runs the hub; callers must not.
	if opts.Events == nil {
		opts.Events = hub.New("events", opts.Logger)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:      cfg,
		opts:     opts,
		registry: NewRegistry(),
		logger:   opts.Logger.With("component", "stream"),
		ctx:      ctx,
		cancel:   cancel,
	}

	app := fiber.New(fiber.Config{
		AppName:               cfg.ServiceName,
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: "GET,OPTIONS",
	}))

	s.RegisterRoutes(app)
	s.RegisterAPIRoutes(app.Group("/api"))
	s.app = app

	go opts.Events.Run(ctx)

	return s, nil
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App { return s.app }

// Registry returns the live session registry.
func (s *Server) Registry() *Registry { return s.registry }

// Events returns the lifecycle event hub.
func (s *Server) Events() *hub.Hub { return s.opts.Events }

// RegisterRoutes registers health, metrics and websocket routes.
func (s *Server) RegisterRoutes(app *fiber.App) {
	app.Get("/", s.handleHealth)
	app.Get("/health", s.handleHealth)

	if s.opts.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(s.opts.Metrics.Handler()))
	}

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	// Registered before /ws/:id so "events" is not taken as a session id.
	app.Get("/ws/events", fws.New(func(c *fws.Conn) {
		hub.NewClient(s.opts.Events, c).Serve()
	}))

	app.Get("/ws", websocket.New(s.handleStream))
	app.Get("/ws/:id", websocket.New(s.handleStream))
}

// RegisterAPIRoutes registers session introspection routes.
func (s *Server) RegisterAPIRoutes(api fiber.Router) {
	sessions := api.Group("/sessions")

	sessions.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"sessions": s.registry.Snapshot(),
			"count":    s.registry.Count(),
		})
	})

	sessions.Get("/:id", func(c *fiber.Ctx) error {
		sess := s.registry.Get(c.Params("id"))
		if sess == nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "session not found"})
		}
		return c.JSON(sess.Info())
	})
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":             "healthy",
		"service":            s.cfg.ServiceName,
		"websocket_endpoint": fmt.Sprintf("ws://%s/ws", c.Hostname()),
		"sessions":           s.registry.Count(),
	})
}

// handleStream runs one session for the lifetime of the connection.
func (s *Server) handleStream(c *websocket.Conn) {
	id := c.Params("id")
	if id == "" {
		id = uuid.NewString()
	}
	if !ValidSessionID(id) {
		s.logger.Warn("rejecting session", "reason", "session_id", "remote", c.RemoteAddr().String())
		s.reject(c, "", websocket.ClosePolicyViolation, ErrInvalidSessionID)
		return
	}
	remote := c.RemoteAddr().String()
	logger := s.logger.With("session_id", id)

	if s.cfg.ReadLimit > 0 {
		c.SetReadLimit(s.cfg.ReadLimit)
	}

	encoding := c.Query("encoding", s.cfg.DefaultEncoding)
	codec, err := protocol.CodecFor(encoding)
	if err != nil {
		logger.Warn("rejecting session", "reason", "encoding", "encoding", encoding)
		s.reject(c, id, websocket.CloseUnsupportedData, err)
		return
	}

	src, kind, err := s.openSource(id)
	if err != nil {
		logger.Warn("rejecting session", "reason", "source", "error", err)
		s.reject(c, id, websocket.CloseTryAgainLater, err)
		return
	}

	sess := NewSession(SessionConfig{
		ID:           id,
		Conn:         c,
		Source:       src,
		SourceKind:   kind,
		Controller:   motion.NewController(s.opts.Motion, s.opts.NewRand()),
		Codec:        codec,
		Remote:       remote,
		TickInterval: s.cfg.TickInterval,
		WriteTimeout: s.cfg.WriteTimeout,
		Now:          s.opts.Now,
		Tap:          s.opts.Tap,
		Metrics:      s.opts.Metrics,
		Logger:       s.logger,
	})

	if err := s.registry.Add(sess); err != nil {
		if rerr := src.Release(); rerr != nil {
			logger.Warn("source release failed", "error", rerr)
		}
		logger.Warn("rejecting session", "reason", "duplicate")
		s.reject(c, id, websocket.ClosePolicyViolation, err)
		return
	}

	s.opts.Metrics.RecordSessionStart(kind)
	s.opts.Events.Publish(hub.Event{
		Type:      hub.EventSessionStarted,
		SessionID: id,
		Source:    kind,
		Encoding:  codec.Name(),
		Remote:    remote,
	})
	logger.Info("session started", "source", kind, "encoding", codec.Name(), "remote", remote, "sessions", s.registry.Count())

	var runErr error
	defer func() {
		if err := src.Release(); err != nil {
			logger.Warn("source release failed", "error", err)
		}
		s.registry.Remove(id)
		s.opts.Metrics.RecordSessionEnd(time.Since(sess.Started()))

		ev := hub.Event{Type: hub.EventSessionEnded, SessionID: id, Source: kind, Ticks: sess.Ticks()}
		if runErr != nil {
			ev.Reason = runErr.Error()
		}
		s.opts.Events.Publish(ev)
		logger.Info("session ended", "ticks", sess.Ticks(), "error", runErr, "sessions", s.registry.Count())
	}()

	runErr = sess.Run(s.ctx)
	if runErr != nil && errors.Is(runErr, ErrSessionPanic) {
		c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "internal error"))
	}
}

// openSource opens the configured source, falling back to a synthetic one
// when the camera or broker is unavailable and fallback is enabled.
func (s *Server) openSource(id string) (source.Source, string, error) {
	ctx, cancel := context.WithTimeout(s.ctx, 10*time.Second)
	defer cancel()

	src, err := s.opts.OpenSource(ctx)
	if err == nil {
		return src, string(s.opts.Source.Kind), nil
	}

	reason := fallbackReason(err)
	if !s.opts.Source.FallbackSynthetic || reason == "" {
		return nil, "", err
	}

	s.logger.Warn("falling back to synthetic source", "session_id", id, "reason", reason, "error", err)
	s.opts.Metrics.RecordFallback(reason)
	s.opts.Events.Publish(hub.Event{
		Type:      hub.EventSessionFallback,
		SessionID: id,
		Source:    string(source.KindSynthetic),
		Reason:    reason,
	})
	return source.NewSynthetic(s.opts.Now), string(source.KindSynthetic), nil
}

func fallbackReason(err error) string {
	switch {
	case errors.Is(err, source.ErrDeviceBusy):
		return "device_busy"
	case errors.Is(err, source.ErrCameraUnavailable):
		return "camera_unavailable"
	case errors.Is(err, source.ErrMQTTConnect):
		return "mqtt_unavailable"
	default:
		return ""
	}
}

func (s *Server) reject(c *websocket.Conn, id string, code int, err error) {
	s.opts.Events.Publish(hub.Event{
		Type:      hub.EventSessionRejected,
		SessionID: id,
		Reason:    err.Error(),
	})
	msg := err.Error()
	if len(msg) > 120 {
		msg = msg[:120]
	}
	c.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, msg))
}

// Start serves on cfg.Addr until ctx is cancelled, then shuts down.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening",
			"addr", s.cfg.Addr(),
			"websocket", fmt.Sprintf("ws://%s/ws", s.cfg.Addr()),
			"health", fmt.Sprintf("http://%s/health", s.cfg.Addr()),
		)
		errCh <- s.app.Listen(s.cfg.Addr())
	}()

	select {
	case err := <-errCh:
		s.cancel()
		return err
	case <-ctx.Done():
		return s.Shutdown()
	}
}

// Shutdown stops every session and the HTTP server.
func (s *Server) Shutdown() error {
	s.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.app.ShutdownWithContext(ctx); err != nil {
		return fmt.Errorf("stream: shutdown: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}
