//nolint:funlen // ok for tests
package log

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_levels(t *testing.T) {
	buf := &bytes.Buffer{}
	l := New(buf, InfoLevel)
	l.Debug("hidden")
	l.Info("visible", String("key", "value"))
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"key":"value"`)

	l.SetLevel(DebugLevel)
	l.Debug("now visible")
	assert.Contains(t, buf.String(), "now visible")
}

func TestWithFilter(t *testing.T) {
	tests := []struct {
		name     string
		rules    string
		logger   string
		wantSeen bool
	}{
		{"debug passes for matching namespace", "info+:* debug+:sim.*", "sim.car", true},
		{"debug blocked elsewhere", "info+:* debug+:sim.*", "runner", false},
		{"empty rules keep logger", "", "runner", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			l, err := New(buf, InfoLevel).WithFilter(tt.rules)
			require.NoError(t, err)
			l.Named(tt.logger).Debug("probe")
			assert.Equal(t, tt.wantSeen, bytes.Contains(buf.Bytes(), []byte("probe")))
		})
	}
}

func TestWithFilter_invalid(t *testing.T) {
	_, err := New(&bytes.Buffer{}, InfoLevel).WithFilter("nonsense:*")
	assert.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "log.yml")
	require.NoError(t, os.WriteFile(file,
		[]byte("filter: \"info+:*\"\ngraylog: \"\"\n"), 0o600))
	cfg, err := LoadConfig(file)
	require.NoError(t, err)
	assert.Equal(t, "info+:*", cfg.Filter)

	_, err = LoadConfig(filepath.Join(dir, "missing.yml"))
	assert.Error(t, err)
}

func TestContext(t *testing.T) {
	l := New(&bytes.Buffer{}, WarnLevel)
	ctx := AddToContext(context.Background(), l)
	assert.Same(t, l, GetFromContext(ctx))
	assert.Same(t, Default(), GetFromContext(context.Background()))
}

func TestApply_filterCoversGelf(t *testing.T) {
	r, err := gelf.NewReader("127.0.0.1:0")
	require.NoError(t, err)

	buf := &bytes.Buffer{}
	l, err := New(buf, InfoLevel).Apply(&Config{
		Filter:  "info+:* debug+:sim.*",
		Graylog: r.Addr(),
	})
	require.NoError(t, err)
	l.Named("runner").Debug("filtered entry")
	l.Named("runner").Info("passed entry")

	msg, err := r.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, msg.Short, "passed entry")
	assert.NotContains(t, buf.String(), "filtered entry")
}
