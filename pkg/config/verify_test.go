package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTestConfig() *Config {
	cfg := &Config{}
	cfg.Server.Listen = ":8080"
	cfg.Server.Timeout = 30 * time.Second
	cfg.Catalog.UpdateInterval = 30 * time.Minute
	cfg.Catalog.MaxConcurrent = 4
	cfg.Catalog.Extraction.Timeout = 30 * time.Second
	return cfg
}

func TestVerifyAgainstEmbeddedSchema(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		assert.NoError(t, VerifyAgainstEmbeddedSchema(validTestConfig()))
	})

	t.Run("missing listen address", func(t *testing.T) {
		cfg := validTestConfig()
		cfg.Server.Listen = ""
		err := VerifyAgainstEmbeddedSchema(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "server.listen")
	})

	t.Run("missing timeout", func(t *testing.T) {
		cfg := validTestConfig()
		cfg.Server.Timeout = 0
		err := VerifyAgainstEmbeddedSchema(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "server.timeout")
	})

	t.Run("extraction enabled without timeout", func(t *testing.T) {
		cfg := validTestConfig()
		cfg.Catalog.Extraction.Enabled = true
		cfg.Catalog.Extraction.Timeout = 0
		err := VerifyAgainstEmbeddedSchema(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "catalog.extraction.timeout")
	})

	t.Run("extraction enabled without concurrency limit", func(t *testing.T) {
		cfg := validTestConfig()
		cfg.Catalog.Extraction.Enabled = true
		cfg.Catalog.MaxConcurrent = 0
		err := VerifyAgainstEmbeddedSchema(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "catalog.max_concurrent")
	})
}

func TestGenerateSchema(t *testing.T) {
	schema, err := GenerateSchema()
	require.NoError(t, err)
	require.NotNil(t, schema)

	// verify schema can be marshaled to JSON
	data, err := schema.MarshalJSON()
	require.NoError(t, err)
	require.NotEmpty(t, data)

	schemaStr := string(data)
	assert.Contains(t, schemaStr, "Config")
	for _, key := range []string{"server", "database", "catalog", "llm", "prefs"} {
		assert.Contains(t, schemaStr, key)
	}
}
