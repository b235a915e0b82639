package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/merak-travel/merak/internal/conf"
	"github.com/merak-travel/merak/internal/errors"
)

func TestWriteDefault(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	out := &bytes.Buffer{}

	require.NoError(t, WriteDefault(out, path, false))
	assert.Contains(t, out.String(), path)

	v := viper.New()
	v.SetConfigFile(path)
	settings, err := conf.LoadFrom(v)
	require.NoError(t, err)
	assert.Equal(t, conf.DefaultPort, settings.Web.Port)
	assert.Equal(t, conf.DefaultModel, settings.LLM.Model)
}

func TestWriteDefaultRefusesOverwrite(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("debug: true\n"), 0o600))

	err := WriteDefault(&bytes.Buffer{}, path, false)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConflict))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "debug: true\n", string(data))

	require.NoError(t, WriteDefault(&bytes.Buffer{}, path, true))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "web:")
}

func TestInitCommandWithPath(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "merak.yaml")
	out := &bytes.Buffer{}

	cmd := Command(nil)
	cmd.SetOut(out)
	cmd.SetArgs([]string{"init", path})
	require.NoError(t, cmd.ExecuteContext(t.Context()))

	_, err := os.Stat(path)
	require.NoError(t, err)
}
