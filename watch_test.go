// FILE: lixenwraith/propcfg/watch_test.go
package propcfg

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func fastWatchOptions() WatchOptions {
	return WatchOptions{
		PollInterval:  MinPollInterval,
		Debounce:      50 * time.Millisecond,
		ReloadTimeout: time.Second,
	}
}

// waitForEvent reads events until want arrives or the timeout expires
func waitForEvent(t *testing.T, events <-chan string, want string, timeout time.Duration) {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case event, ok := <-events:
			require.True(t, ok, "events channel closed while waiting for %q", want)
			if event == want {
				return
			}
		case <-deadline:
			t.Fatalf("timeout waiting for event %q", want)
		}
	}
}

func TestWatchPropertiesReload(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := filepath.Join(t.TempDir(), "traffic.toml")
	require.NoError(t, os.WriteFile(path, []byte("maxVehicles = 100\nmode = \"normal\"\n"), 0644))

	schema := NewSchema()
	typ := schema.Namespace("w").Type("Traffic")
	maxVehicles := 0
	mode := ""
	Static(typ, "maxVehicles", &maxVehicles)
	Static(typ, "mode", &mode)

	e := newTestEngine(t, nil, nil)
	e.Properties().Set("unrelated", "kept")

	var reloads atomic.Int32
	w, err := WatchProperties(path, e.Properties(), func(ctx context.Context) error {
		reloads.Add(1)
		return e.ConfigureType(nil, typ)
	}, fastWatchOptions())
	require.NoError(t, err)
	defer w.Stop()

	// initial load happens synchronously
	require.NoError(t, e.ConfigureType(nil, typ))
	assert.Equal(t, 100, maxVehicles)
	assert.Equal(t, "normal", mode)

	// mode disappears from the file, maxVehicles changes
	require.NoError(t, os.WriteFile(path, []byte("maxVehicles = 250\n"), 0644))
	waitForEvent(t, w.Events(), EventReloaded, 3*time.Second)

	assert.Equal(t, 250, maxVehicles)
	assert.EqualValues(t, 1, reloads.Load())

	_, ok := e.Properties().Get("mode")
	assert.False(t, ok, "keys removed from the file are removed from the store")
	v, ok := e.Properties().Get("unrelated")
	require.True(t, ok)
	assert.Equal(t, "kept", v)

	assert.Equal(t, 3, e.History().Len())
}

func TestWatchReloadError(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := filepath.Join(t.TempDir(), "props.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"a": 1}`), 0644))

	errReload := errors.New("reconfigure failed")
	w, err := WatchProperties(path, NewProperties(), func(context.Context) error {
		return errReload
	}, fastWatchOptions())
	require.NoError(t, err)
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte(`{"a": 22}`), 0644))

	deadline := time.After(3 * time.Second)
	for {
		select {
		case event := <-w.Events():
			if event == EventReloadErrorPrefix+errReload.Error() {
				return
			}
		case <-deadline:
			t.Fatal("timeout waiting for reload error event")
		}
	}
}

func TestWatchFileDeleted(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := filepath.Join(t.TempDir(), "gone.yaml")
	require.NoError(t, os.WriteFile(path, []byte("a: 1\n"), 0644))

	props := NewProperties()
	w, err := WatchProperties(path, props, nil, fastWatchOptions())
	require.NoError(t, err)
	defer w.Stop()

	require.NoError(t, os.Remove(path))
	waitForEvent(t, w.Events(), EventFileDeleted, 2*time.Second)

	v, ok := props.Get("a")
	require.True(t, ok, "store keeps the last loaded values")
	assert.Equal(t, 1, v)
}

func TestWatchPermissionChange(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not meaningful on windows")
	}
	defer goleak.VerifyNone(t)

	path := filepath.Join(t.TempDir(), "perm.toml")
	require.NoError(t, os.WriteFile(path, []byte("a = 1\n"), 0644))

	opts := fastWatchOptions()
	opts.VerifyPermissions = true
	w, err := WatchProperties(path, NewProperties(), nil, opts)
	require.NoError(t, err)
	defer w.Stop()

	require.NoError(t, os.Chmod(path, 0666))
	waitForEvent(t, w.Events(), EventPermissionsChanged, 2*time.Second)
}

func TestWatchReloadTimeout(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := filepath.Join(t.TempDir(), "slow.toml")
	require.NoError(t, os.WriteFile(path, []byte("a = 1\n"), 0644))

	opts := fastWatchOptions()
	opts.ReloadTimeout = 50 * time.Millisecond
	w, err := WatchProperties(path, NewProperties(), func(ctx context.Context) error {
		<-ctx.Done()
		time.Sleep(100 * time.Millisecond)
		return nil
	}, opts)
	require.NoError(t, err)
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte("a = 1000\n"), 0644))
	waitForEvent(t, w.Events(), EventReloadTimeout, 3*time.Second)
}

func TestWatchReloadIgnoringContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := filepath.Join(t.TempDir(), "stuck.toml")
	require.NoError(t, os.WriteFile(path, []byte("a = 1\n"), 0644))

	release := make(chan struct{})
	var calls atomic.Int32
	opts := fastWatchOptions()
	opts.ReloadTimeout = 50 * time.Millisecond
	w, err := WatchProperties(path, NewProperties(), func(ctx context.Context) error {
		calls.Add(1)
		<-release
		return nil
	}, opts)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("a = 1000\n"), 0644))
	waitForEvent(t, w.Events(), EventReloadTimeout, 3*time.Second)

	// the stuck reload is not started twice
	require.NoError(t, os.WriteFile(path, []byte("a = 200000\n"), 0644))
	waitForEvent(t, w.Events(), EventReloadSkipped, 3*time.Second)
	assert.Equal(t, int32(1), calls.Load())

	stopped := make(chan struct{})
	go func() {
		w.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked on a reload that ignores its context")
	}

	close(release)
}

func TestWatchStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := filepath.Join(t.TempDir(), "stop.toml")
	require.NoError(t, os.WriteFile(path, []byte("a = 1\n"), 0644))

	w, err := WatchProperties(path, NewProperties(), nil, fastWatchOptions())
	require.NoError(t, err)

	w.Stop()
	w.Stop()

	select {
	case _, ok := <-w.Events():
		assert.False(t, ok, "events channel is closed after Stop")
	case <-time.After(time.Second):
		t.Fatal("events channel not closed")
	}
}

func TestWatchPropertiesErrors(t *testing.T) {
	_, err := WatchProperties("irrelevant.toml", nil, nil, fastWatchOptions())
	assert.Error(t, err)

	_, err = WatchProperties(filepath.Join(t.TempDir(), "missing.toml"), NewProperties(), nil, fastWatchOptions())
	assert.ErrorIs(t, err, ErrPropertiesNotFound)
}
