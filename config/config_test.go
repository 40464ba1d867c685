package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_File(t *testing.T) {
	t.Parallel()

	cfg, err := LoadFile(filepath.Join("testdata", "config.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "sportmonks", cfg.Provider())
	assert.Equal(t, "file-token", cfg.APIs.SportMonks.APIToken)
	assert.Equal(t, 45*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, 5, cfg.HTTP.MaxRetries)
	assert.Equal(t, 2*time.Second, cfg.HTTP.BaseDelay)
	assert.Equal(t, 30*time.Second, cfg.HTTP.MaxDelay)
	assert.InDelta(t, 2.5, cfg.HTTP.RequestsPerSecond, 1e-9)
	// defaults survive partial files
	assert.Equal(t, 4, cfg.HTTP.Concurrency)
	assert.Equal(t, "database/output/team_name_matching.csv", cfg.Paths.TeamMapping)
	require.NoError(t, cfg.Validate())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("SPORTDATA_SPORTMONKS_API_TOKEN", "env-token")
	t.Setenv("SPORT_ANALYTICS_DB_URL", "postgres://legacy")

	cfg, err := Load(filepath.Join("testdata", "config.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "env-token", cfg.APIs.SportMonks.APIToken)
	assert.Equal(t, "postgres://legacy", cfg.Database.URL)
}

func TestLoad_MissingFileFallsBackToEnv(t *testing.T) {
	t.Setenv("SPORTDATA_PROVIDER", "OddsAPI")
	t.Setenv("ODDSAPI_API_KEY", "oa-key")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "oddsapi", cfg.Provider())
	tok, err := cfg.Token("oddsapi")
	require.NoError(t, err)
	assert.Equal(t, "oa-key", tok)
	assert.Equal(t, 8, cfg.HTTP.MaxRetries)
	assert.Equal(t, time.Minute, cfg.HTTP.MaxDelay)
}

func TestLoadEnv_DefaultProvider(t *testing.T) {
	cfg, err := LoadEnv()
	require.NoError(t, err)

	assert.Equal(t, DefaultProvider, cfg.Provider())
}

func TestLoadFile_InvalidProviderName(t *testing.T) {
	t.Parallel()

	_, err := LoadFile(filepath.Join("testdata", "bad_provider.yaml"))
	require.ErrorContains(t, err, "provider name must be a non-empty string")
}

func TestConfig_Token(t *testing.T) {
	t.Parallel()

	cfg := &Config{APIs: APIsConfig{SportMonks: CredentialsConfig{APIToken: "abc"}}}

	tests := []struct {
		name     string
		provider string
		want     string
		wantErr  string
	}{
		{name: "configured", provider: "SportMonks", want: "abc"},
		{name: "empty token", provider: "oddsapi", wantErr: "missing api token"},
		{name: "unknown provider", provider: "betfair", wantErr: "no credentials known"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := cfg.Token(tt.provider)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		HTTP: HTTPConfig{
			Timeout:     time.Second,
			BaseDelay:   10 * time.Second,
			MaxDelay:    time.Second,
			Concurrency: 1,
		},
		Paths: PathsConfig{Providers: "providers_config.yaml"},
	}
	require.ErrorContains(t, cfg.Validate(), "MaxDelay")

	cfg.HTTP.MaxDelay = time.Minute
	require.NoError(t, cfg.Validate())

	_, err := (&Config{}).DatabaseURL()
	require.Error(t, err)
}
