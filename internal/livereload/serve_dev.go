// Package livereload tells connected browsers to reload when the build
// output changes.
package livereload

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/tain335/svpack/internal/logger"
)

type Message struct {
	Type string `json:"type"`
	Data string `json:"data,omitempty"`
}

type ClientConnection struct {
	conn  *websocket.Conn
	mutex sync.Mutex
}

func (c *ClientConnection) send(message Message, timeout time.Duration) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(timeout))
	return c.conn.WriteJSON(message)
}

type Options struct {
	Host string
	Port int
	// Dir is the output directory whose changes trigger a reload.
	Dir      string
	Debounce time.Duration
	Timeout  time.Duration
}

type Server struct {
	options  Options
	upgrader websocket.Upgrader
	log      zerolog.Logger

	clientsMutex sync.Mutex
	clients      map[*ClientConnection]struct{}

	server   *http.Server
	listener net.Listener
	watcher  *Watcher
	wg       sync.WaitGroup
}

func NewServer(opts Options) *Server {
	if opts.Host == "" {
		opts.Host = "localhost"
	}
	if opts.Debounce == 0 {
		opts.Debounce = 100 * time.Millisecond
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Server{
		options: opts,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		log:     logger.Get("livereload"),
		clients: make(map[*ClientConnection]struct{}),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(SocketPath, s.socketHandler)
	mux.HandleFunc(ClientPath, s.clientHandler)
	return mux
}

// Start listens on Host:Port and watches Dir. Port 0 picks a free port,
// readable through Addr afterwards.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", fmt.Sprintf("%s:%d", s.options.Host, s.options.Port))
	if err != nil {
		return fmt.Errorf("livereload listen: %w", err)
	}
	s.listener = listener
	s.server = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}

	if s.options.Dir != "" {
		watcher, err := NewWatcher(s.options.Debounce, s.OnChange)
		if err != nil {
			listener.Close()
			return fmt.Errorf("livereload watcher: %w", err)
		}
		if err := watcher.AddRecursive(s.options.Dir); err != nil {
			watcher.Close()
			listener.Close()
			return fmt.Errorf("livereload watch %s: %w", s.options.Dir, err)
		}
		watcher.Start()
		s.watcher = watcher
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.log.Info().Str("addr", listener.Addr().String()).Msg("live reload enabled")
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error().Err(err).Msg("live reload server stopped")
		}
	}()
	return nil
}

func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// OnChange broadcasts a style refresh when only stylesheets changed and a
// full reload otherwise.
func (s *Server) OnChange(paths []string) {
	if len(paths) == 0 {
		return
	}
	onlyCSS := true
	for _, p := range paths {
		if !strings.EqualFold(filepath.Ext(p), ".css") {
			onlyCSS = false
			break
		}
	}
	rel := paths[0]
	if s.options.Dir != "" {
		if r, err := filepath.Rel(s.options.Dir, paths[0]); err == nil {
			rel = r
		}
	}
	if onlyCSS {
		s.Broadcast(Message{Type: "css", Data: rel})
		return
	}
	s.Broadcast(Message{Type: "reload", Data: rel})
}

// Broadcast sends message to every client and drops the ones that fail.
func (s *Server) Broadcast(message Message) {
	s.clientsMutex.Lock()
	clients := make([]*ClientConnection, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.clientsMutex.Unlock()

	s.log.Debug().Str("type", message.Type).Str("data", message.Data).Int("clients", len(clients)).Msg("broadcast")
	for _, c := range clients {
		if err := c.send(message, s.options.Timeout); err != nil {
			s.removeClient(c)
			c.conn.Close()
		}
	}
}

func (s *Server) ClientCount() int {
	s.clientsMutex.Lock()
	defer s.clientsMutex.Unlock()
	return len(s.clients)
}

func (s *Server) addClient(conn *websocket.Conn) *ClientConnection {
	s.clientsMutex.Lock()
	defer s.clientsMutex.Unlock()
	client := &ClientConnection{conn: conn}
	s.clients[client] = struct{}{}
	return client
}

func (s *Server) removeClient(c *ClientConnection) {
	s.clientsMutex.Lock()
	defer s.clientsMutex.Unlock()
	delete(s.clients, c)
}

func (s *Server) serveClient(client *ClientConnection) {
	defer func() {
		s.removeClient(client)
		client.conn.Close()
	}()
	client.conn.SetReadLimit(1024 * 1024)
	for {
		_ = client.conn.SetReadDeadline(time.Now().Add(s.options.Timeout))
		_, message, err := client.conn.ReadMessage()
		if err != nil {
			return
		}
		if string(message) == "ping" {
			if err := client.send(Message{Type: "pong"}, s.options.Timeout); err != nil {
				return
			}
		}
	}
}

func (s *Server) socketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	client := s.addClient(conn)
	s.serveClient(client)
}

func (s *Server) clientHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/javascript")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(clientScript()))
}

// Close stops watching, disconnects clients and shuts the server down.
func (s *Server) Close() error {
	if s.watcher != nil {
		_ = s.watcher.Close()
	}
	s.clientsMutex.Lock()
	for c := range s.clients {
		c.conn.Close()
	}
	s.clients = make(map[*ClientConnection]struct{})
	s.clientsMutex.Unlock()

	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.server.Shutdown(ctx)
	s.wg.Wait()
	return err
}
