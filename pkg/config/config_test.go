package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("test-version")
	require.NoError(t, err)

	assert.Equal(t, "test-version", cfg.Version)
	assert.Equal(t, "8480", cfg.Port)
	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, "https://api.trakt.tv", cfg.Trakt.BaseURL)
	assert.Equal(t, "https://api.themoviedb.org/3", cfg.TMDB.BaseURL)
	assert.Equal(t, "en-US", cfg.TMDB.Language)
	assert.Equal(t, "migrations", cfg.Database.MigrationsPath)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("TMDB_LANGUAGE", "ru-RU")
	t.Setenv("PGDATABASE", "mediakeep_test")

	cfg, err := Load("dev")
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "ru-RU", cfg.TMDB.Language)
	assert.Equal(t, "mediakeep_test", cfg.Database.Database)
}

func TestConnectionString(t *testing.T) {
	dbCfg := &DatabaseConfig{
		Host:     "db.internal",
		Port:     5433,
		User:     "mediakeep",
		Password: "secret",
		Database: "mediakeep_engine",
		SSLMode:  "require",
	}

	got := dbCfg.ConnectionString()
	assert.Equal(t, "host=db.internal port=5433 user=mediakeep password=secret dbname=mediakeep_engine sslmode=require", got)
}
