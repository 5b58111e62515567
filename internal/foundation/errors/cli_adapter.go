package errors

import (
	"log/slog"
	"sort"
)

// CLIErrorAdapter turns a command error into a log record, a message and an exit code.
type CLIErrorAdapter struct {
	verbose bool
	logger  *slog.Logger
}

func NewCLIErrorAdapter(verbose bool, logger *slog.Logger) *CLIErrorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CLIErrorAdapter{verbose: verbose, logger: logger}
}

// ExitCodeFor maps err to a process exit code through its category.
func (a *CLIErrorAdapter) ExitCodeFor(err error) int {
	if err == nil {
		return ExitOK
	}
	ce, ok := AsClassified(err)
	if !ok {
		return ExitFailure
	}
	return ce.category.ExitCode()
}

// usageHint follows validation errors, which are caused by flags or config values.
const usageHint = " (run with --help for usage)"

// FormatError renders err for stderr. Outside verbose mode the category tag is dropped.
func (a *CLIErrorAdapter) FormatError(err error) string {
	if err == nil {
		return ""
	}
	hint := ""
	if HasCategory(err, CategoryValidation) {
		hint = usageHint
	}
	ce, ok := AsClassified(err)
	if !ok || a.verbose {
		return "Error: " + err.Error() + hint
	}
	if ce.cause != nil {
		return "Error: " + ce.message + ": " + ce.cause.Error() + hint
	}
	return "Error: " + ce.message + hint
}

// LogError logs err with its fields as attributes, sorted by key.
func (a *CLIErrorAdapter) LogError(err error) {
	if err == nil {
		return
	}
	ce, ok := AsClassified(err)
	if !ok {
		a.logger.Error("Command failed", slog.String("error", err.Error()))
		return
	}
	keys := make([]string, 0, len(ce.fields))
	for k := range ce.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attrs := make([]any, 0, len(keys)+3)
	attrs = append(attrs,
		slog.String("category", string(ce.category)),
		slog.String("severity", string(ce.severity)))
	for _, k := range keys {
		attrs = append(attrs, slog.Any(k, ce.fields[k]))
	}
	attrs = append(attrs, slog.String("error", err.Error()))
	a.logger.Error(ce.message, attrs...)
}
