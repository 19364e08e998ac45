package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel(" WARN "))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("verbose"))
}

func TestNew_JSONConServicio(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Env: "production", Level: "info", Service: "bar-ledger", Out: &buf})

	l.Debug().Msg("oculto")
	l.Info().Str("product_id", "p1").Msg("producto creado")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line), "solo debe haber una línea JSON")
	assert.Equal(t, "bar-ledger", line["service"])
	assert.Equal(t, "p1", line["product_id"])
	assert.Equal(t, "producto creado", line["message"])
}
