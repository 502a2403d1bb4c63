package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-iec104/internal/acquisition"
	"github.com/nerrad567/gray-logic-iec104/internal/audit"
	"github.com/nerrad567/gray-logic-iec104/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-iec104/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-iec104/internal/infrastructure/mqtt"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// ChannelDirectory lists acquisition channels.
// Satisfied by *acquisition.Service.
type ChannelDirectory interface {
	IDs() []string
	Channel(id string) (*acquisition.Channel, bool)
}

// StatusProvider reports forwarding state. Satisfied by *iec104.App.
type StatusProvider interface {
	Running() bool
	WiredSources() int
}

// ForwardLog lists forward log entries. Satisfied by *audit.SQLiteRepository.
type ForwardLog interface {
	List(ctx context.Context, filter audit.Filter) (*audit.ListResult, error)
}

// Subscriber is the MQTT surface used to relay point messages.
// Satisfied by *mqtt.Client.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	Logger   *logging.Logger
	Channels ChannelDirectory
	Status   StatusProvider

	// ForwardLog is optional; without it /forward-log answers 503.
	ForwardLog ForwardLog

	// MQTT is optional; without it the WebSocket stream carries no events.
	MQTT Subscriber

	Version string
}

// Server is the operator HTTP API server.
type Server struct {
	cfg        config.APIConfig
	logger     *logging.Logger
	channels   ChannelDirectory
	status     StatusProvider
	forwardLog ForwardLog
	mqtt       Subscriber
	version    string

	server    *http.Server
	listener  net.Listener
	hub       *Hub
	cancel    context.CancelFunc
	relayed   string
	closeOnce sync.Once
}

// New creates a new API server. It is not started until Start is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Channels == nil {
		return nil, fmt.Errorf("channel directory is required")
	}
	if deps.Status == nil {
		return nil, fmt.Errorf("status provider is required")
	}

	return &Server{
		cfg:        deps.Config,
		logger:     deps.Logger,
		channels:   deps.Channels,
		status:     deps.Status,
		forwardLog: deps.ForwardLog,
		mqtt:       deps.MQTT,
		version:    deps.Version,
		hub:        NewHub(deps.Config.WebSocket, deps.Logger),
	}, nil
}

// Start binds the listener, begins relaying point messages to WebSocket
// clients and serves HTTP in the background. A bind failure is returned.
func (s *Server) Start(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprint(s.cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	s.listener = ln

	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)
	go s.hub.Run(srvCtx)

	if err := s.relayPoints(); err != nil {
		s.logger.Warn("failed to subscribe to point messages for WebSocket", "error", err)
	}

	s.server = &http.Server{
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	s.logger.Info("API server started", "address", ln.Addr().String())
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close stops relaying and gracefully shuts the server down, waiting up to
// 10 seconds for in-flight requests.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	var err error
	s.closeOnce.Do(func() {
		if s.relayed != "" && s.mqtt != nil {
			if unsubErr := s.mqtt.Unsubscribe(s.relayed); unsubErr != nil {
				s.logger.Warn("failed to unsubscribe point relay", "error", unsubErr)
			}
		}
		if s.cancel != nil {
			s.cancel()
		}

		ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
		defer cancel()

		s.logger.Info("API server shutting down")
		if shutdownErr := s.server.Shutdown(ctx); shutdownErr != nil {
			err = fmt.Errorf("shutting down API server: %w", shutdownErr)
		}
	})
	return err
}
