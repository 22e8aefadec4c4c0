//go:build unix

package osprocess

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/bnema/zerowrap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/spaceport/internal/boundaries/out"
	"github.com/bnema/spaceport/internal/domain"
)

func testContext() context.Context {
	return zerowrap.WithCtx(context.Background(), zerowrap.Default())
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func waitExit(t *testing.T, p out.Process) domain.ExitStatus {
	t.Helper()
	select {
	case <-p.Done():
		return p.Exit()
	case <-time.After(10 * time.Second):
		t.Fatal("process did not exit")
		return domain.ExitStatus{}
	}
}

func TestRunner_ExitCodeAndOutput(t *testing.T) {
	var output syncBuffer
	spec := domain.ProcessSpec{
		Name:    "main",
		Command: []string{"sh", "-c", `echo "key=$SPACEPORT_TEST_KEY"; echo oops >&2; exit 3`},
		Env:     map[string]string{"SPACEPORT_TEST_KEY": "value"},
	}

	p, err := NewRunner().Start(testContext(), spec, &output)
	require.NoError(t, err)
	assert.Positive(t, p.PID())

	status := waitExit(t, p)
	assert.Equal(t, 3, status.Code)
	assert.Empty(t, status.Signal)
	assert.False(t, status.Success())
	assert.Contains(t, output.String(), "key=value")
	assert.Contains(t, output.String(), "oops")
}

func TestRunner_SignalMapsToShellCode(t *testing.T) {
	spec := domain.ProcessSpec{Name: "sleeper", Command: []string{"sleep", "30"}}

	p, err := NewRunner().Start(testContext(), spec, nil)
	require.NoError(t, err)

	require.NoError(t, p.Signal(syscall.SIGTERM))
	status := waitExit(t, p)

	assert.Equal(t, 128+int(syscall.SIGTERM), status.Code)
	assert.Equal(t, syscall.SIGTERM.String(), status.Signal)
}

func TestRunner_SignalReachesWholeGroup(t *testing.T) {
	var output syncBuffer
	spec := domain.ProcessSpec{
		Name:    "tree",
		Command: []string{"sh", "-c", `sleep 30 & echo "child=$!"; wait`},
	}

	p, err := NewRunner().Start(testContext(), spec, &output)
	require.NoError(t, err)

	var childPID int
	require.Eventually(t, func() bool {
		line := output.String()
		if _, rest, ok := strings.Cut(line, "child="); ok {
			pid, convErr := strconv.Atoi(strings.TrimSpace(rest))
			childPID = pid
			return convErr == nil
		}
		return false
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, p.Signal(syscall.SIGKILL))
	waitExit(t, p)

	assert.Eventually(t, func() bool {
		return !alive(childPID)
	}, 5*time.Second, 20*time.Millisecond, "grandchild must die with its group")
}

func TestRunner_SignalAfterExit(t *testing.T) {
	p, err := NewRunner().Start(testContext(), domain.ProcessSpec{Name: "true", Command: []string{"true"}}, nil)
	require.NoError(t, err)

	status := waitExit(t, p)
	assert.True(t, status.Success())
	assert.NoError(t, p.Signal(syscall.SIGTERM))
}

func TestRunner_StartErrors(t *testing.T) {
	_, err := NewRunner().Start(testContext(), domain.ProcessSpec{Name: "empty"}, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)

	_, err = NewRunner().Start(testContext(), domain.ProcessSpec{Name: "missing", Command: []string{"/nonexistent/binary"}}, nil)
	assert.Error(t, err)
}

func TestRunner_EnvFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(
		"# backend settings\nMODEL_ID=from-file\nAPI_KEY=\"secret value\"\n"), 0600))

	var output syncBuffer
	spec := domain.ProcessSpec{
		Name:    "main",
		Command: []string{"sh", "-c", `echo "model=$MODEL_ID key=$API_KEY"`},
		Dir:     dir,
		EnvFile: ".env",
		Env:     map[string]string{"MODEL_ID": "from-config"},
	}

	p, err := NewRunner().Start(testContext(), spec, &output)
	require.NoError(t, err)
	require.True(t, waitExit(t, p).Success())
	assert.Contains(t, output.String(), "model=from-config key=secret value")
}

func TestRunner_MissingEnvFileFailsStart(t *testing.T) {
	spec := domain.ProcessSpec{
		Name:    "main",
		Command: []string{"true"},
		EnvFile: filepath.Join(t.TempDir(), "missing.env"),
	}

	_, err := NewRunner().Start(testContext(), spec, nil)
	assert.ErrorContains(t, err, "failed to read env file")
}

func TestMergeEnv(t *testing.T) {
	base := []string{"PATH=/usr/bin", "MODEL_ID=old", "EMPTY="}
	env := mergeEnv(base, map[string]string{"MODEL_ID": "new", "API_KEY": "k"})

	assert.Equal(t, []string{"PATH=/usr/bin", "EMPTY=", "API_KEY=k", "MODEL_ID=new"}, env)
	assert.Equal(t, base, mergeEnv(base, nil))
}

// alive reports whether pid exists and is not a zombie awaiting its reaper.
func alive(pid int) bool {
	if err := syscall.Kill(pid, 0); err != nil {
		return false
	}
	stat, err := os.ReadFile("/proc/" + strconv.Itoa(pid) + "/stat")
	if err != nil {
		return true
	}
	// Format: pid (comm) state ...
	if i := strings.LastIndexByte(string(stat), ')'); i >= 0 && i+2 < len(stat) {
		return stat[i+2] != 'Z'
	}
	return true
}
