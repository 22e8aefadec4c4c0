//go:build unix

package app

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHelperProcess is not a real test: it is the backend spawned by the
// supervisor in the tests below.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	ln, err := net.Listen("tcp", "127.0.0.1:"+os.Getenv("HELPER_PORT"))
	if err != nil {
		os.Exit(2)
	}
	name := os.Getenv("HELPER_NAME")
	server := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = fmt.Fprintf(w, "%s %s", name, r.URL.RequestURI())
		}),
		ReadHeaderTimeout: time.Second,
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGTERM)
	go func() {
		<-sigs
		_ = server.Close()
	}()
	if after := os.Getenv("HELPER_EXIT_AFTER"); after != "" {
		d, _ := time.ParseDuration(after)
		go func() {
			time.Sleep(d)
			os.Exit(3)
		}()
	}

	_ = server.Serve(ln)
	os.Exit(0)
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}

type ports struct {
	listen, main, preview int
}

func helperConfig(t *testing.T, p ports, mainExtraEnv string) string {
	t.Helper()
	return writeConfig(t, fmt.Sprintf(`
[server]
data_dir = %[1]q

[router]
listen = "127.0.0.1:%[2]d"
shutdown_timeout = "2s"

[logging]
level = "warn"
[logging.process_logs]
enabled = false
forward = false

[[upstreams]]
name = "main_backend"
port = %[3]d

[[upstreams]]
name = "preview_backend"
port = %[4]d

[[processes]]
name = "main"
command = [%[5]q, "-test.run=TestHelperProcess"]
port = %[3]d
env = ["GO_WANT_HELPER_PROCESS=1", "HELPER_PORT=%[3]d", "HELPER_NAME=main"%[6]s]
stop_timeout = "2s"
[processes.readiness]
timeout = "10s"
interval = "20ms"

[[processes]]
name = "preview"
command = [%[5]q, "-test.run=TestHelperProcess"]
port = %[4]d
env = ["GO_WANT_HELPER_PROCESS=1", "HELPER_PORT=%[4]d", "HELPER_NAME=preview"]
stop_timeout = "2s"
[processes.readiness]
timeout = "10s"
interval = "20ms"
`, t.TempDir(), p.listen, p.main, p.preview, os.Args[0], mainExtraEnv))
}

type runResult struct {
	code int
	err  error
}

func startRun(t *testing.T, ctx context.Context, configPath string) <-chan runResult {
	t.Helper()
	done := make(chan runResult, 1)
	go func() {
		code, err := Run(ctx, configPath, ModeServe, "test")
		done <- runResult{code: code, err: err}
	}()
	return done
}

func waitHealthy(t *testing.T, listen int) {
	t.Helper()
	url := "http://127.0.0.1:" + strconv.Itoa(listen) + "/_spaceport/healthz"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 15*time.Second, 50*time.Millisecond)
}

func body(t *testing.T, url string) string {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func listening(port int) bool {
	conn, err := net.DialTimeout("tcp", "127.0.0.1:"+strconv.Itoa(port), 200*time.Millisecond)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

func TestRun_ServesAndShutsDownCleanly(t *testing.T) {
	p := ports{listen: freePort(t), main: freePort(t), preview: freePort(t)}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := startRun(t, ctx, helperConfig(t, p, ""))
	waitHealthy(t, p.listen)

	base := "http://127.0.0.1:" + strconv.Itoa(p.listen)
	assert.Equal(t, "main /app?x=1", body(t, base+"/app?x=1"))
	assert.Equal(t, "preview /page?y=2", body(t, base+"/preview/page?y=2"))

	cancel()
	select {
	case res := <-done:
		require.NoError(t, res.err)
		assert.Equal(t, 0, res.code)
	case <-time.After(15 * time.Second):
		t.Fatal("run did not return after cancel")
	}

	for _, port := range []int{p.listen, p.main, p.preview} {
		assert.False(t, listening(port), "port %d still bound", port)
	}
}

func TestRun_PrimaryExitCodeStopsEverything(t *testing.T) {
	p := ports{listen: freePort(t), main: freePort(t), preview: freePort(t)}

	done := startRun(t, context.Background(), helperConfig(t, p, `, "HELPER_EXIT_AFTER=2s"`))

	select {
	case res := <-done:
		require.NoError(t, res.err)
		assert.Equal(t, 3, res.code)
	case <-time.After(20 * time.Second):
		t.Fatal("run did not return after the primary exited")
	}

	for _, port := range []int{p.listen, p.main, p.preview} {
		assert.False(t, listening(port), "port %d still bound", port)
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	path := writeConfig(t, `
[[routes]]
name = "main"
upstream = "nowhere"
`)
	code, err := Run(context.Background(), path, ModeServe, "test")
	assert.Error(t, err)
	assert.Equal(t, 1, code)
}

func TestRun_StartupFailureExitsOne(t *testing.T) {
	p := ports{listen: freePort(t), main: freePort(t), preview: freePort(t)}

	// Something else owns the router port.
	ln, err := net.Listen("tcp", "127.0.0.1:"+strconv.Itoa(p.listen))
	require.NoError(t, err)
	defer ln.Close()

	code, err := Run(context.Background(), helperConfig(t, p, ""), ModeServe, "test")
	require.Error(t, err)
	assert.ErrorContains(t, err, "startup failed")
	assert.ErrorContains(t, err, "router failed to start")
	assert.Equal(t, 1, code)
	assert.False(t, listening(p.main))
}
