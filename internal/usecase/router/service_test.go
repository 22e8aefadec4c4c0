package router

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/spaceport/internal/domain"
)

func splitAddr(t *testing.T, addr string) (string, int) {
	t.Helper()
	host, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return host, port
}

func closedAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

// testTopology returns the default main + preview layout pointed at the
// given addresses.
func testTopology(t *testing.T, mainAddr, previewAddr string) domain.Topology {
	t.Helper()
	topo := domain.DefaultTopology(false)
	topo.Processes = nil
	for i, addr := range []string{mainAddr, previewAddr} {
		host, port := splitAddr(t, addr)
		topo.Upstreams[i].Host = host
		topo.Upstreams[i].Port = port
	}
	return topo
}

func startRouter(t *testing.T, topo domain.Topology) (*httptest.Server, *Service) {
	t.Helper()
	svc, err := NewService(topo)
	require.NoError(t, err)
	srv := httptest.NewServer(svc)
	t.Cleanup(func() {
		srv.Close()
		svc.Close()
	})
	return srv, svc
}

// echoBackend reports what it received through response headers.
func echoBackend(t *testing.T, name string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Backend", name)
		h.Set("X-Upstream-Path", r.URL.EscapedPath())
		h.Set("X-Upstream-Query", r.URL.RawQuery)
		h.Set("X-Upstream-Host", r.Host)
		h.Set("X-Upstream-Forwarded-For", r.Header.Get("X-Forwarded-For"))
		h.Set("X-Upstream-Forwarded-Host", r.Header.Get("X-Forwarded-Host"))
		h.Set("X-Upstream-Forwarded-Proto", r.Header.Get("X-Forwarded-Proto"))
		h.Set("X-Upstream-Real-IP", r.Header.Get("X-Real-IP"))
		_, _ = io.WriteString(w, name)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func noRedirectClient() *http.Client {
	return &http.Client{
		Timeout: 15 * time.Second,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := noRedirectClient().Get(url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func upstreamSnapshot(svc *Service, name string) domain.UpstreamHealth {
	for _, h := range svc.UpstreamHealth() {
		if h.Name == name {
			return h
		}
	}
	return domain.UpstreamHealth{}
}

func TestService_ForwardsMainUnmodified(t *testing.T) {
	main := echoBackend(t, "main")
	preview := echoBackend(t, "preview")
	srv, _ := startRouter(t, testTopology(t, main.Listener.Addr().String(), preview.Listener.Addr().String()))

	tests := []struct {
		target    string
		wantPath  string
		wantQuery string
	}{
		{target: "/", wantPath: "/"},
		{target: "/?__theme=dark", wantPath: "/", wantQuery: "__theme=dark"},
		{target: "/gradio_api/queue/join?session_hash=abc&fn=3", wantPath: "/gradio_api/queue/join", wantQuery: "session_hash=abc&fn=3"},
		{target: "/file=a%2Fb/c.txt?q=%20x", wantPath: "/file=a%2Fb/c.txt", wantQuery: "q=%20x"},
		{target: "/previewer/x", wantPath: "/previewer/x"},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			resp := get(t, srv.URL+tt.target)

			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, "main", resp.Header.Get("X-Backend"))
			assert.Equal(t, tt.wantPath, resp.Header.Get("X-Upstream-Path"))
			assert.Equal(t, tt.wantQuery, resp.Header.Get("X-Upstream-Query"))
			assert.Equal(t, "spaceport", resp.Header.Get("X-Proxied-By"))
		})
	}
}

func TestService_StripsPreviewPrefix(t *testing.T) {
	main := echoBackend(t, "main")
	preview := echoBackend(t, "preview")
	srv, _ := startRouter(t, testTopology(t, main.Listener.Addr().String(), preview.Listener.Addr().String()))

	tests := []struct {
		target    string
		wantPath  string
		wantQuery string
	}{
		{target: "/preview/", wantPath: "/"},
		{target: "/preview/assets/index.js?v=2", wantPath: "/assets/index.js", wantQuery: "v=2"},
		{target: "/preview/gradio_api/queue/data?session_hash=x", wantPath: "/gradio_api/queue/data", wantQuery: "session_hash=x"},
		{target: "/preview/a%2Fb", wantPath: "/a%2Fb"},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			resp := get(t, srv.URL+tt.target)

			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, "preview", resp.Header.Get("X-Backend"))
			assert.Equal(t, tt.wantPath, resp.Header.Get("X-Upstream-Path"))
			assert.Equal(t, tt.wantQuery, resp.Header.Get("X-Upstream-Query"))
		})
	}
}

func TestService_RedirectsBarePreviewPrefix(t *testing.T) {
	main := echoBackend(t, "main")
	preview := echoBackend(t, "preview")
	srv, _ := startRouter(t, testTopology(t, main.Listener.Addr().String(), preview.Listener.Addr().String()))

	resp := get(t, srv.URL+"/preview?__theme=light")

	assert.Equal(t, http.StatusMovedPermanently, resp.StatusCode)
	assert.Equal(t, "/preview/?__theme=light", resp.Header.Get("Location"))
}

func TestService_ForwardingHeaders(t *testing.T) {
	main := echoBackend(t, "main")
	preview := echoBackend(t, "preview")
	srv, _ := startRouter(t, testTopology(t, main.Listener.Addr().String(), preview.Listener.Addr().String()))

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/preview/", nil)
	require.NoError(t, err)
	req.Host = "builder.hf.space"
	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	req.Header.Set("X-Forwarded-Proto", "https")

	resp, err := noRedirectClient().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "builder.hf.space", resp.Header.Get("X-Upstream-Host"))
	assert.Equal(t, "203.0.113.7, 127.0.0.1", resp.Header.Get("X-Upstream-Forwarded-For"))
	assert.Equal(t, "builder.hf.space", resp.Header.Get("X-Upstream-Forwarded-Host"))
	assert.Equal(t, "http", resp.Header.Get("X-Upstream-Forwarded-Proto"))
	assert.Equal(t, "127.0.0.1", resp.Header.Get("X-Upstream-Real-IP"))
}

func TestService_NoRoute(t *testing.T) {
	preview := echoBackend(t, "preview")
	topo := testTopology(t, closedAddr(t), preview.Listener.Addr().String())
	topo.Routes = topo.Routes[1:]
	srv, svc := startRouter(t, topo)

	resp := get(t, srv.URL+"/config")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	_, ok := svc.Match("/config")
	assert.False(t, ok)
}

func TestNewService_UnknownUpstream(t *testing.T) {
	topo := domain.DefaultTopology(false)
	topo.Routes[1].Upstream = "missing"

	_, err := NewService(topo)
	assert.ErrorIs(t, err, domain.ErrUpstreamNotFound)
}

func TestService_RoutesInMatchOrder(t *testing.T) {
	svc, err := NewService(domain.DefaultTopology(true))
	require.NoError(t, err)
	defer svc.Close()

	routes := svc.Routes()
	require.Len(t, routes, 2)
	assert.Equal(t, domain.PreviewRoute, routes[0].Name)
	assert.Equal(t, domain.MainRoute, routes[1].Name)

	rule, ok := svc.Match("/preview/x")
	require.True(t, ok)
	assert.Equal(t, domain.PreviewUpstream, rule.Upstream)
}

func TestService_PreviewRetriesRefusedConnections(t *testing.T) {
	main := echoBackend(t, "main")
	srv, svc := startRouter(t, testTopology(t, main.Listener.Addr().String(), closedAddr(t)))

	start := time.Now()
	resp := get(t, srv.URL+"/preview/")
	elapsed := time.Since(start)

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Less(t, elapsed, 10*time.Second)

	health := upstreamSnapshot(svc, domain.PreviewUpstream)
	assert.Equal(t, 3, health.Fails, "three attempts before giving up")
	assert.True(t, health.Down)
	assert.Contains(t, health.LastError, "refused")
}

func TestService_MainFailsOnFirstAttempt(t *testing.T) {
	preview := echoBackend(t, "preview")
	srv, svc := startRouter(t, testTopology(t, closedAddr(t), preview.Listener.Addr().String()))

	resp := get(t, srv.URL+"/")

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, 1, upstreamSnapshot(svc, domain.MainUpstream).Fails)
	assert.Zero(t, upstreamSnapshot(svc, domain.PreviewUpstream).Fails)
}

func TestService_PreviewRetriesAcceptedThenDropped(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	var accepted atomic.Int32
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			accepted.Add(1)
			_ = conn.Close()
		}
	}()

	main := echoBackend(t, "main")
	srv, _ := startRouter(t, testTopology(t, main.Listener.Addr().String(), ln.Addr().String()))

	resp := get(t, srv.URL+"/preview/")

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, int32(3), accepted.Load())
}

func TestService_PreviewRetries5xx(t *testing.T) {
	var calls atomic.Int32
	preview := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "starting", http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, "ready")
	}))
	defer preview.Close()
	main := echoBackend(t, "main")
	srv, svc := startRouter(t, testTopology(t, main.Listener.Addr().String(), preview.Listener.Addr().String()))

	resp := get(t, srv.URL+"/preview/")
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ready", string(body))
	assert.Equal(t, int32(3), calls.Load())
	assert.False(t, upstreamSnapshot(svc, domain.PreviewUpstream).Down, "a success clears the failures")
}

func TestService_MainReturns5xxUnmodified(t *testing.T) {
	var calls atomic.Int32
	main := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("X-App-Error", "traceback")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, "internal error")
	}))
	defer main.Close()
	preview := echoBackend(t, "preview")
	srv, _ := startRouter(t, testTopology(t, main.Listener.Addr().String(), preview.Listener.Addr().String()))

	resp := get(t, srv.URL+"/")
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "internal error", string(body))
	assert.Equal(t, "traceback", resp.Header.Get("X-App-Error"))
	assert.Equal(t, int32(1), calls.Load())
}

func TestService_ReadTimeout(t *testing.T) {
	release := make(chan struct{})
	main := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer main.Close()
	defer close(release)

	preview := echoBackend(t, "preview")
	topo := testTopology(t, main.Listener.Addr().String(), preview.Listener.Addr().String())
	topo.Routes[0].Options.ReadTimeout = 100 * time.Millisecond
	srv, _ := startRouter(t, topo)

	resp := get(t, srv.URL+"/")
	assert.Equal(t, http.StatusGatewayTimeout, resp.StatusCode)
}

func TestService_BodyLimit(t *testing.T) {
	main := echoBackend(t, "main")
	preview := echoBackend(t, "preview")
	topo := testTopology(t, main.Listener.Addr().String(), preview.Listener.Addr().String())
	topo.Routes[1].Options.MaxBodySize = 8
	srv, _ := startRouter(t, topo)

	resp, err := noRedirectClient().Post(srv.URL+"/preview/upload", "text/plain", strings.NewReader("far too large"))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestService_SlowRouteDoesNotBlockOther(t *testing.T) {
	release := make(chan struct{})
	var once sync.Once
	unblock := func() { once.Do(func() { close(release) }) }
	defer unblock()

	preview := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
		_, _ = io.WriteString(w, "slow")
	}))
	defer preview.Close()
	main := echoBackend(t, "main")
	srv, _ := startRouter(t, testTopology(t, main.Listener.Addr().String(), preview.Listener.Addr().String()))

	slowDone := make(chan int, 1)
	go func() {
		resp, err := noRedirectClient().Get(srv.URL + "/preview/generate")
		if err != nil {
			slowDone <- 0
			return
		}
		_ = resp.Body.Close()
		slowDone <- resp.StatusCode
	}()

	start := time.Now()
	for i := 0; i < 5; i++ {
		resp := get(t, srv.URL+"/")
		assert.Equal(t, "main", resp.Header.Get("X-Backend"))
	}
	assert.Less(t, time.Since(start), 2*time.Second)

	select {
	case <-slowDone:
		t.Fatal("slow preview request finished before being released")
	default:
	}

	unblock()
	select {
	case status := <-slowDone:
		assert.Equal(t, http.StatusOK, status)
	case <-time.After(5 * time.Second):
		t.Fatal("slow preview request never completed")
	}
}

// upgradeBackend answers "Upgrade: echo" requests by switching protocols and
// echoing every chunk back. A "bye" line makes it hang up.
func upgradeBackend(t *testing.T, closed chan<- struct{}) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Upgrade") != "echo" {
			http.Error(w, "upgrade required", http.StatusUpgradeRequired)
			return
		}
		conn, brw, err := http.NewResponseController(w).Hijack()
		if err != nil {
			return
		}
		defer conn.Close()

		_, _ = brw.WriteString("HTTP/1.1 101 Switching Protocols\r\nUpgrade: echo\r\nConnection: Upgrade\r\n\r\n")
		_ = brw.Flush()

		for {
			line, err := brw.ReadString('\n')
			if err != nil {
				close(closed)
				return
			}
			if line == "bye\n" {
				return
			}
			if _, err := conn.Write([]byte(line)); err != nil {
				close(closed)
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dialUpgrade(t *testing.T, routerURL, path string) (net.Conn, *bufio.Reader) {
	t.Helper()
	conn, err := net.Dial("tcp", strings.TrimPrefix(routerURL, "http://"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	_, err = fmt.Fprintf(conn, "GET %s HTTP/1.1\r\nHost: spaceport\r\nConnection: Upgrade\r\nUpgrade: echo\r\n\r\n", path)
	require.NoError(t, err)

	br := bufio.NewReader(conn)
	resp, err := http.ReadResponse(br, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	assert.Equal(t, "spaceport", resp.Header.Get("X-Proxied-By"))
	return conn, br
}

func TestService_UpgradeRelaysPastReadTimeout(t *testing.T) {
	closed := make(chan struct{})
	main := upgradeBackend(t, closed)
	preview := echoBackend(t, "preview")
	topo := testTopology(t, main.Listener.Addr().String(), preview.Listener.Addr().String())
	topo.Routes[0].Options.ReadTimeout = 300 * time.Millisecond
	srv, _ := startRouter(t, topo)

	conn, br := dialUpgrade(t, srv.URL, "/queue/join")

	// Each gap stays under the read timeout while the whole exchange outlasts it.
	for i := 0; i < 5; i++ {
		time.Sleep(100 * time.Millisecond)
		msg := fmt.Sprintf("ping-%d\n", i)
		_, err := io.WriteString(conn, msg)
		require.NoError(t, err)

		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		line, err := br.ReadString('\n')
		require.NoError(t, err)
		assert.Equal(t, msg, line)
	}

	require.NoError(t, conn.Close())
	select {
	case <-closed:
	case <-time.After(3 * time.Second):
		t.Fatal("backend side not torn down after client close")
	}
}

func TestService_UpgradeTornDownByBackend(t *testing.T) {
	main := upgradeBackend(t, make(chan struct{}))
	preview := echoBackend(t, "preview")
	srv, _ := startRouter(t, testTopology(t, main.Listener.Addr().String(), preview.Listener.Addr().String()))

	conn, br := dialUpgrade(t, srv.URL, "/queue/join")

	_, err := io.WriteString(conn, "bye\n")
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, err = br.ReadByte()
	assert.ErrorIs(t, err, io.EOF)
}

func TestStatusClass(t *testing.T) {
	assert.Equal(t, "1xx", statusClass(http.StatusSwitchingProtocols))
	assert.Equal(t, "2xx", statusClass(http.StatusOK))
	assert.Equal(t, "4xx", statusClass(statusClientClosedRequest))
	assert.Equal(t, "5xx", statusClass(http.StatusGatewayTimeout))
	assert.Equal(t, "other", statusClass(0))
}
