// Package web serves a live view of a run: frames are streamed over a
// websocket (/ws) and the latest frame is available as JSON (/state).
// Clients may send commands (JSON or YAML) over the websocket.
package web

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/ohler55/ojg/oj"
	"github.com/rs/cors"

	"github.com/mpapenbr/cruisesim/log"
	"github.com/mpapenbr/cruisesim/pkg/scenario"
	"github.com/mpapenbr/cruisesim/pkg/sim"
	"github.com/mpapenbr/cruisesim/pkg/utils/broadcast"
)

const writeWait = 5 * time.Second

type (
	Server struct {
		frames   broadcast.BroadcastServer[sim.Frame]
		latest   atomic.Pointer[sim.Frame]
		commands chan scenario.Command
		every    int64
		upgrader ws.Upgrader
		l        *log.Logger
	}
	Option func(*Server)
)

// WithEvery sends only every n-th frame to websocket clients (default 10).
func WithEvery(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.every = int64(n)
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		s.l = l
	}
}

func NewServer(frames broadcast.BroadcastServer[sim.Frame], opts ...Option) *Server {
	s := &Server{
		frames:   frames,
		commands: make(chan scenario.Command, 16),
		every:    10,
		upgrader: ws.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		l:        log.Default().Named("web"),
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.trackLatest(frames.Subscribe())
	return s
}

// Commands delivers the commands received from websocket clients.
func (s *Server) Commands() <-chan scenario.Command {
	return s.commands
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.serveWs)
	mux.HandleFunc("/state", s.serveState)
	return newCORS().Handler(mux)
}

// Run serves on addr until ctx is done.
func (s *Server) Run(ctx context.Context, addr string) error {
	//nolint:gosec // by design
	server := &http.Server{Addr: addr, Handler: s.Handler()}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), writeWait)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.l.Warn("shutdown", log.ErrorField(err))
		}
	}()
	s.l.Info("starting live view", log.String("addr", addr))
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) trackLatest(ch <-chan sim.Frame) {
	for f := range ch {
		s.latest.Store(&f)
	}
}

func (s *Server) serveState(w http.ResponseWriter, _ *http.Request) {
	f := s.latest.Load()
	if f == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	data, err := oj.Marshal(f)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	//nolint:errcheck // by design
	w.Write(data)
}

func (s *Server) serveWs(w http.ResponseWriter, r *http.Request) {
	// subscribe before the handshake completes so no frame is missed
	sub := s.frames.Subscribe()
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.l.Warn("websocket upgrade failed", log.ErrorField(err))
		s.frames.CancelSubscription(sub)
		return
	}
	defer conn.Close()
	s.l.Debug("client connected", log.String("remote", r.RemoteAddr))

	go s.readLoop(conn, sub)
	for f := range sub {
		if f.Tick%s.every != 0 {
			continue
		}
		data, err := oj.Marshal(&f)
		if err != nil {
			s.l.Error("could not encode frame", log.ErrorField(err))
			continue
		}
		if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			break
		}
		if err := conn.WriteMessage(ws.TextMessage, data); err != nil {
			s.l.Debug("websocket write", log.ErrorField(err))
			break
		}
	}
	s.frames.CancelSubscription(sub)
	s.l.Debug("client disconnected", log.String("remote", r.RemoteAddr))
}

func (s *Server) readLoop(conn *ws.Conn, sub <-chan sim.Frame) {
	defer s.frames.CancelSubscription(sub)
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return
		}
		cmd, err := scenario.ParseCommand(message)
		if err != nil {
			s.l.Warn("invalid command", log.ErrorField(err))
			continue
		}
		select {
		case s.commands <- cmd:
		default:
			s.l.Warn("command dropped", log.String("command", cmd.String()))
		}
	}
}

func newCORS() *cors.Cors {
	return cors.New(cors.Options{
		AllowedMethods: []string{http.MethodHead, http.MethodGet},
		AllowOriginFunc: func(origin string) bool {
			return true
		},
		AllowedHeaders: []string{"*"},
	})
}
