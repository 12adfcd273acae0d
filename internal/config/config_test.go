package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)
	assert.Equal(t, DefaultAPIURL, cfg.GetAPIURL())
	assert.Equal(t, "dark", cfg.GetTheme())
	assert.False(t, cfg.GetSpeech().InputEnabled)
}

func TestLoadParsesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{"api_url": "http://coach.local:9000", "user_id": "u-42", "theme": "light", "fast_mode": true}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://coach.local:9000", cfg.GetAPIURL())
	assert.Equal(t, "u-42", cfg.UserID)
	assert.Equal(t, "light", cfg.GetTheme())
	assert.True(t, cfg.FastMode)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"api_url": "http://file.local"}`), 0644))

	t.Setenv("CLARITY_API_URL", "http://env.local")
	t.Setenv("CLARITY_USER_ID", "env-user")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://env.local", cfg.GetAPIURL())
	assert.Equal(t, "env-user", cfg.UserID)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	cfg := &UserConfig{APIURL: "http://coach.local", UserID: "u-1", Theme: "light"}
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.APIURL, loaded.APIURL)
	assert.Equal(t, cfg.UserID, loaded.UserID)
}

func TestWatchDeliversReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"theme": "dark"}`), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates, err := Watch(ctx, path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte(`{"theme": "light"}`), 0644))

	select {
	case cfg := <-updates:
		require.NotNil(t, cfg)
		assert.Equal(t, "light", cfg.GetTheme())
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for config reload")
	}

	cancel()
	for range updates {
	}
}
