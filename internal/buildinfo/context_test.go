package buildinfo

import (
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// Test Context methods
func TestContext_Getters(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name                  string
		ctx                   *Context
		version, date, commit string
	}{
		{
			name:    "nil context",
			ctx:     nil,
			version: UnknownValue, date: UnknownValue, commit: UnknownValue,
		},
		{
			name:    "empty fields",
			ctx:     &Context{},
			version: UnknownValue, date: UnknownValue, commit: UnknownValue,
		},
		{
			name:    "all fields",
			ctx:     &Context{Version: "1.2.0", BuildDate: "2026-10-01", Commit: "abc123"},
			version: "1.2.0", date: "2026-10-01", commit: "abc123",
		},
		{
			name:    "version with pre-release tag",
			ctx:     &Context{Version: "1.0.0-beta.1"},
			version: "1.0.0-beta.1", date: UnknownValue, commit: UnknownValue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.version, tt.ctx.GetVersion())
			assert.Equal(t, tt.date, tt.ctx.GetBuildDate())
			assert.Equal(t, tt.commit, tt.ctx.GetCommit())
		})
	}
}

func TestNewContext_KeepsExplicitCommit(t *testing.T) {
	t.Parallel()

	ctx := NewContext("1.0.0", "2026-10-01", "deadbeef")
	assert.Equal(t, "1.0.0", ctx.Version)
	assert.Equal(t, "2026-10-01", ctx.BuildDate)
	assert.Equal(t, "deadbeef", ctx.Commit)
}

func TestContext_ImplementsBuildInfo(t *testing.T) {
	t.Parallel()

	var info BuildInfo = NewContext("1.0.0", "", "x")
	assert.Equal(t, "1.0.0", info.GetVersion())
	assert.Equal(t, UnknownValue, info.GetBuildDate())
}

func TestContext_String(t *testing.T) {
	t.Parallel()

	s := (&Context{Version: "0.3.0", Commit: "abc"}).String()
	assert.True(t, strings.HasPrefix(s, "merak 0.3.0 (commit abc, built unknown"))
	assert.Contains(t, s, runtime.GOOS+"/"+runtime.GOARCH)
}
