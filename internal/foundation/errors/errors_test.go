package errors

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuilder(t *testing.T) {
	err := NewError(CategoryConfig, "path outside source root").
		Fatal().
		WithContext("path", "/tmp/x.md").
		Build()

	require.Equal(t, CategoryConfig, err.Category())
	require.Equal(t, SeverityFatal, err.Severity())
	require.Equal(t, "[config] path outside source root", err.Error())

	path, ok := err.Field("path")
	require.True(t, ok)
	require.Equal(t, "/tmp/x.md", path)
}

func TestBuilder_BuildCopiesFields(t *testing.T) {
	b := RenderError("bad page").WithContext("path", "a.md")
	first := b.Build()
	second := b.WithContext("path", "b.md").Build()

	p, _ := first.Field("path")
	require.Equal(t, "a.md", p)
	p, _ = second.Field("path")
	require.Equal(t, "b.md", p)
}

func TestWrappedCause(t *testing.T) {
	cause := stderrors.New("permission denied")
	err := WrapError(cause, CategoryFileSystem, "write output").Build()

	require.ErrorIs(t, err, cause)
	require.Equal(t, "[filesystem] write output: permission denied", err.Error())
	require.Equal(t, SeverityError, err.Severity())
}

func TestDetectionThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("render page.md: %w", TemplateError("layout missing").Build())

	require.True(t, HasCategory(wrapped, CategoryTemplate))
	require.False(t, HasCategory(wrapped, CategoryRender))
	require.Equal(t, CategoryTemplate, CategoryOf(wrapped))
	require.Equal(t, CategoryInternal, CategoryOf(stderrors.New("plain")))
}

func TestWithContext_LeavesOriginalUntouched(t *testing.T) {
	orig := TemplateError("parse").Build()
	annotated := orig.WithContext("name", "default")

	_, ok := orig.Field("name")
	require.False(t, ok)
	require.Equal(t, Fields{"name": "default"}, annotated.Fields())
}

func TestCLIErrorAdapter_ExitCodes(t *testing.T) {
	a := NewCLIErrorAdapter(false, nil)

	cases := []struct {
		err  error
		want int
	}{
		{nil, ExitOK},
		{stderrors.New("boom"), ExitFailure},
		{ValidationError("bad flag").Build(), ExitUsage},
		{ConfigError("bad root").Build(), ExitConfig},
		{RenderError("bad markdown").Build(), ExitBuild},
		{TranscriptError("bad transcript").Build(), ExitBuild},
		{RuntimeError("server died").Build(), ExitRuntime},
		{NewError(CategoryInternal, "bug").Build(), ExitInternal},
		{NewError("unknown", "x").Build(), ExitFailure},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, a.ExitCodeFor(tc.err), "err=%v", tc.err)
	}
}

func TestCLIErrorAdapter_FormatError(t *testing.T) {
	err := WrapError(stderrors.New("no such file"), CategoryFileSystem, "read _site.yaml").Build()

	require.Equal(t, "Error: read _site.yaml: no such file", NewCLIErrorAdapter(false, nil).FormatError(err))
	require.Equal(t, "Error: "+err.Error(), NewCLIErrorAdapter(true, nil).FormatError(err))
	require.Equal(t, "Error: plain", NewCLIErrorAdapter(false, nil).FormatError(stderrors.New("plain")))
}

func TestCLIErrorAdapter_FormatErrorHintsUsageForValidation(t *testing.T) {
	err := ValidationError("unknown transcript mode").Build()
	require.Equal(t, "Error: unknown transcript mode (run with --help for usage)",
		NewCLIErrorAdapter(false, nil).FormatError(err))
}

func TestCLIErrorAdapter_LogError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	err := BuildError("no previous full build").WithContext("scope", "content").Build()
	NewCLIErrorAdapter(false, logger).LogError(err)

	out := buf.String()
	require.Contains(t, out, `msg="no previous full build"`)
	require.Contains(t, out, "category=build")
	require.Contains(t, out, "severity=fatal")
	require.Contains(t, out, "scope=content")
}
