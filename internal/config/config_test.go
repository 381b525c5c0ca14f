package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func writeConfig(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, Defaults().Tampering, cfg.Tampering)
	assert.Equal(t, "file", cfg.Storage.Backend)
	assert.Equal(t, 7*24*time.Hour, cfg.Results.TTL)
}

func TestLoad_FileThenEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "default.yaml")
	writeConfig(t, path, `
server:
  port: 9090
engine:
  url: http://engine:7000
  timeout: 5s
tampering:
  default_windows:
    first_check_from: "07:00"
    first_check_to: "19:00"
    second_check_from: "19:00"
    second_check_to: "07:00"
  use_sun_position: true
limits:
  max_cameras: 12
`)
	t.Setenv("ENGINE_URL", "http://override:7000")
	t.Setenv("JWT_SIGNING_KEY", "k")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "http://override:7000", cfg.Engine.URL)
	assert.Equal(t, 5*time.Second, cfg.Engine.Timeout)
	assert.Equal(t, "07:00", cfg.Tampering.DefaultWindows.FirstCheckFrom)
	assert.True(t, cfg.Tampering.UseSunPosition)
	assert.Equal(t, "06:00", cfg.Tampering.DayStart, "unset keys keep defaults")
	assert.Equal(t, 12, cfg.Limits.MaxCameras)
	assert.Equal(t, "k", cfg.JWTSigningKey)
}

func TestLoad_RejectsBadWindows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "default.yaml")
	writeConfig(t, path, `
tampering:
  default_windows:
    first_check_from: "25:00"
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "default_windows")
}

func TestLoad_RejectsUnknownStorage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "default.yaml")
	writeConfig(t, path, "storage:\n  backend: s3\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_SFTPRequiresHostVerification(t *testing.T) {
	path := filepath.Join(t.TempDir(), "default.yaml")
	writeConfig(t, path, "storage:\n  backend: sftp\n  sftp:\n    host: files.internal\n    known_hosts: \"\"\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "known_hosts")

	writeConfig(t, path, "storage:\n  backend: sftp\n  sftp:\n    host: files.internal\n    known_hosts: /etc/vms/known_hosts\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/etc/vms/known_hosts", cfg.Storage.SFTP.KnownHosts)
}

func TestResolvePath(t *testing.T) {
	assert.Equal(t, "custom.yaml", ResolvePath("custom.yaml"))
	t.Setenv("VMS_CONFIG", "/etc/vms.yaml")
	assert.Equal(t, "/etc/vms.yaml", ResolvePath(""))
}

func TestWatcher_ReloadIfChanged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "default.yaml")
	writeConfig(t, path, "limits:\n  max_cameras: 1\n")
	initial, err := Load(path)
	require.NoError(t, err)
	initial.JWTSigningKey = "secret"

	w := NewWatcher(path, initial, zerolog.Nop())
	assert.False(t, w.ReloadIfChanged(), "unchanged mtime")

	writeConfig(t, path, "limits:\n  max_cameras: 2\n")
	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))

	assert.True(t, w.ReloadIfChanged())
	assert.Equal(t, 2, w.Current().Limits.MaxCameras)
	assert.Equal(t, "secret", w.Current().JWTSigningKey)
}

func TestWatcher_InvalidReloadKeepsSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "default.yaml")
	writeConfig(t, path, "limits:\n  max_cameras: 3\n")
	initial, err := Load(path)
	require.NoError(t, err)

	w := NewWatcher(path, initial, zerolog.Nop())
	writeConfig(t, path, "tampering:\n  day_start: noon\n")

	assert.False(t, w.Reload())
	assert.Same(t, initial, w.Current())
}

func TestWatcher_RejectedFileIsNotRetriedUntilChanged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "default.yaml")
	writeConfig(t, path, "limits:\n  max_cameras: 3\n")
	initial, err := Load(path)
	require.NoError(t, err)

	w := NewWatcher(path, initial, zerolog.Nop())
	writeConfig(t, path, "tampering:\n  day_start: noon\n")
	broken := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, broken, broken))

	assert.False(t, w.ReloadIfChanged())
	fi, err := os.Stat(path)
	require.NoError(t, err)
	w.mu.Lock()
	recorded := w.modTime
	w.mu.Unlock()
	assert.True(t, recorded.Equal(fi.ModTime()), "rejected file's mtime is remembered")
	assert.False(t, w.ReloadIfChanged(), "unchanged broken file is not parsed again")

	writeConfig(t, path, "limits:\n  max_cameras: 6\n")
	fixed := broken.Add(time.Minute)
	require.NoError(t, os.Chtimes(path, fixed, fixed))

	assert.True(t, w.ReloadIfChanged())
	assert.Equal(t, 6, w.Current().Limits.MaxCameras)
}

func TestWatcher_StartStopsCleanly(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := filepath.Join(t.TempDir(), "default.yaml")
	writeConfig(t, path, "limits:\n  max_cameras: 4\n")
	initial, err := Load(path)
	require.NoError(t, err)

	w := NewWatcher(path, initial, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)

	writeConfig(t, path, "limits:\n  max_cameras: 5\n")
	require.Eventually(t, func() bool {
		return w.Current().Limits.MaxCameras == 5
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	w.Wait()
}
