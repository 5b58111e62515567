package version

import (
	"runtime/debug"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestString_StartsWithVersion(t *testing.T) {
	require.True(t, strings.Contains(String(), "(commit "))
}

func TestFromBuildInfo(t *testing.T) {
	info := &debug.BuildInfo{
		Main: debug.Module{Version: "v1.2.3"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "abc123"},
			{Key: "vcs.time", Value: "2026-01-02T03:04:05Z"},
		},
	}

	v, c, b := fromBuildInfo(info, "unknown", "unknown", "unknown")
	require.Equal(t, "v1.2.3", v)
	require.Equal(t, "abc123", c)
	require.Equal(t, "2026-01-02T03:04:05Z", b)

	v, c, b = fromBuildInfo(info, "v9.0.0", "fixed", "today")
	require.Equal(t, "v9.0.0", v)
	require.Equal(t, "fixed", c)
	require.Equal(t, "today", b)
}

func TestFromBuildInfo_DevelBuild(t *testing.T) {
	info := &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}}
	v, c, _ := fromBuildInfo(info, "unknown", "unknown", "unknown")
	require.Equal(t, "unknown", v)
	require.Equal(t, "unknown", c)
}
