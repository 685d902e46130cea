package rohclog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/otus-rohc/rohc/internal/config"
	"github.com/otus-rohc/rohc/pkg/rohc"
)

func TestNewWritesToFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.log")
	cfg := config.LogConfig{Level: "debug", Format: "text"}
	cfg.File.Enabled = true
	cfg.File.Path = path
	trace, err := New(cfg)
	require.NoError(t, err)
	require.NotNil(t, trace)

	trace(rohc.TraceWarn, "compressor", rohc.ProfileRTP, "cid=3 bad CRC")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "cid=3 bad CRC")
	require.Contains(t, string(data), "RTP")
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(config.LogConfig{Level: "verbose"})
	require.Error(t, err)
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	_, err := New(config.LogConfig{Level: "info", Format: "xml"})
	require.Error(t, err)
}

func TestNewRequiresPathWhenFileEnabled(t *testing.T) {
	cfg := config.LogConfig{Level: "info"}
	cfg.File.Enabled = true
	_, err := New(cfg)
	require.Error(t, err)
}
