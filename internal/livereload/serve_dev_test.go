package livereload

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dial(t *testing.T, addr string) *websocket.Conn {
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+addr+SocketPath, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, s *Server, n int) {
	require.Eventually(t, func() bool { return s.ClientCount() == n }, 2*time.Second, 10*time.Millisecond)
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var m Message
	require.NoError(t, conn.ReadJSON(&m))
	return m
}

func TestClientScriptServed(t *testing.T) {
	s := NewServer(Options{})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + ClientPath)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/javascript", resp.Header.Get("Content-Type"))
	assert.Contains(t, string(body), SocketPath)

	resp, err = http.Post(ts.URL+ClientPath, "text/plain", strings.NewReader(""))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestBroadcastAndPing(t *testing.T) {
	s := NewServer(Options{})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()
	addr := strings.TrimPrefix(ts.URL, "http://")

	a := dial(t, addr)
	b := dial(t, addr)
	waitForClients(t, s, 2)

	s.Broadcast(Message{Type: "reload", Data: "bundle.js"})
	assert.Equal(t, Message{Type: "reload", Data: "bundle.js"}, readMessage(t, a))
	assert.Equal(t, Message{Type: "reload", Data: "bundle.js"}, readMessage(t, b))

	require.NoError(t, a.WriteMessage(websocket.TextMessage, []byte("ping")))
	assert.Equal(t, Message{Type: "pong"}, readMessage(t, a))

	a.Close()
	waitForClients(t, s, 1)
}

func TestOnChangeKinds(t *testing.T) {
	s := NewServer(Options{Dir: "/srv/build"})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()
	conn := dial(t, strings.TrimPrefix(ts.URL, "http://"))
	waitForClients(t, s, 1)

	s.OnChange([]string{"/srv/build/bundle.css"})
	assert.Equal(t, Message{Type: "css", Data: "bundle.css"}, readMessage(t, conn))

	s.OnChange([]string{"/srv/build/bundle.css", "/srv/build/bundle.js"})
	assert.Equal(t, Message{Type: "reload", Data: "bundle.css"}, readMessage(t, conn))
}

func TestServerWatchesDir(t *testing.T) {
	dir := t.TempDir()
	s := NewServer(Options{Host: "127.0.0.1", Port: 0, Dir: dir, Debounce: 20 * time.Millisecond})
	require.NoError(t, s.Start())
	defer s.Close()

	conn := dial(t, s.Addr())
	waitForClients(t, s, 1)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bundle.js"), []byte("x"), 0644))
	m := readMessage(t, conn)
	assert.Equal(t, "reload", m.Type)
	assert.Equal(t, "bundle.js", m.Data)
}

func TestWatcherDebounces(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "node_modules"), 0755))

	var mutex sync.Mutex
	var batches [][]string
	w, err := NewWatcher(50*time.Millisecond, func(paths []string) {
		mutex.Lock()
		defer mutex.Unlock()
		batches = append(batches, paths)
	})
	require.NoError(t, err)
	w.Skip = func(path string) bool { return filepath.Base(path) == "node_modules" }
	require.NoError(t, w.AddRecursive(dir))
	w.Start()
	defer w.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.js"), []byte("a"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.js"), []byte("b"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "node_modules", "c.js"), []byte("c"), 0644))

	require.Eventually(t, func() bool {
		mutex.Lock()
		defer mutex.Unlock()
		return len(batches) == 1
	}, 2*time.Second, 10*time.Millisecond)

	mutex.Lock()
	defer mutex.Unlock()
	assert.Equal(t, []string{filepath.Join(dir, "a.js"), filepath.Join(dir, "b.js")}, batches[0])
}

func TestLoaderSnippet(t *testing.T) {
	snippet := LoaderSnippet(35729)
	assert.Contains(t, snippet, ":35729/livereload.js")
	assert.Contains(t, snippet, ScriptID)
	assert.Equal(t, "http://localhost:4000/livereload.js", ClientURL("localhost", 4000))
}
