package errors

// ErrorCategory says which part of a build failed.
type ErrorCategory string

const (
	// CategoryConfig covers configuration values and paths outside their configured root.
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"

	CategoryFileSystem ErrorCategory = "filesystem"
	CategoryRender     ErrorCategory = "render"
	CategoryTemplate   ErrorCategory = "template"
	CategoryTranscript ErrorCategory = "transcript"
	CategoryBuild      ErrorCategory = "build"

	// CategoryRuntime is used for the preview server, watchers and the build lock.
	CategoryRuntime  ErrorCategory = "runtime"
	CategoryInternal ErrorCategory = "internal"
)

// Process exit codes returned by the CLI.
const (
	ExitOK       = 0
	ExitFailure  = 1
	ExitUsage    = 2
	ExitConfig   = 7
	ExitInternal = 10
	ExitBuild    = 11
	ExitRuntime  = 12
)

var exitCodes = map[ErrorCategory]int{
	CategoryValidation: ExitUsage,
	CategoryConfig:     ExitConfig,
	CategoryFileSystem: ExitBuild,
	CategoryRender:     ExitBuild,
	CategoryTemplate:   ExitBuild,
	CategoryTranscript: ExitBuild,
	CategoryBuild:      ExitBuild,
	CategoryRuntime:    ExitRuntime,
	CategoryInternal:   ExitInternal,
}

// ExitCode returns the process exit code for a failure of this category.
func (c ErrorCategory) ExitCode() int {
	if code, ok := exitCodes[c]; ok {
		return code
	}
	return ExitFailure
}

// ErrorSeverity decides how far a failure propagates.
type ErrorSeverity string

const (
	// SeverityFatal ends the command.
	SeverityFatal ErrorSeverity = "fatal"
	// SeverityError fails the current build only.
	SeverityError ErrorSeverity = "error"
)
