package errors

import (
	stderrors "errors"
	"maps"
	"strings"
)

// Fields is the structured context attached to a ClassifiedError and logged with it.
type Fields map[string]any

// ClassifiedError is an error with a category, a severity and log fields.
type ClassifiedError struct {
	category ErrorCategory
	severity ErrorSeverity
	message  string
	cause    error
	fields   Fields
}

func (e *ClassifiedError) Error() string {
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(string(e.category))
	b.WriteString("] ")
	b.WriteString(e.message)
	if e.cause != nil {
		b.WriteString(": ")
		b.WriteString(e.cause.Error())
	}
	return b.String()
}

func (e *ClassifiedError) Unwrap() error { return e.cause }

func (e *ClassifiedError) Category() ErrorCategory { return e.category }
func (e *ClassifiedError) Severity() ErrorSeverity { return e.severity }
func (e *ClassifiedError) Message() string         { return e.message }
func (e *ClassifiedError) Cause() error            { return e.cause }

// Fields returns a copy of the error's context.
func (e *ClassifiedError) Fields() Fields { return maps.Clone(e.fields) }

// Field returns one context value.
func (e *ClassifiedError) Field(key string) (any, bool) {
	v, ok := e.fields[key]
	return v, ok
}

// WithContext returns a copy of e with one more field. e itself is not modified.
func (e *ClassifiedError) WithContext(key string, value any) *ClassifiedError {
	cp := *e
	cp.fields = maps.Clone(e.fields)
	if cp.fields == nil {
		cp.fields = Fields{}
	}
	cp.fields[key] = value
	return &cp
}

// ErrorBuilder assembles a ClassifiedError.
type ErrorBuilder struct {
	err ClassifiedError
}

// NewError starts an error of the given category with SeverityError.
func NewError(category ErrorCategory, message string) *ErrorBuilder {
	return &ErrorBuilder{err: ClassifiedError{
		category: category,
		severity: SeverityError,
		message:  message,
		fields:   Fields{},
	}}
}

// WrapError starts an error that has err as its cause.
func WrapError(err error, category ErrorCategory, message string) *ErrorBuilder {
	b := NewError(category, message)
	b.err.cause = err
	return b
}

func (b *ErrorBuilder) WithContext(key string, value any) *ErrorBuilder {
	b.err.fields[key] = value
	return b
}

func (b *ErrorBuilder) Fatal() *ErrorBuilder {
	b.err.severity = SeverityFatal
	return b
}

func (b *ErrorBuilder) Build() *ClassifiedError {
	out := b.err
	out.fields = maps.Clone(b.err.fields)
	return &out
}

func ConfigError(message string) *ErrorBuilder {
	return NewError(CategoryConfig, message).Fatal()
}

func ValidationError(message string) *ErrorBuilder {
	return NewError(CategoryValidation, message).Fatal()
}

func FileSystemError(message string) *ErrorBuilder {
	return NewError(CategoryFileSystem, message)
}

func RenderError(message string) *ErrorBuilder {
	return NewError(CategoryRender, message)
}

func TemplateError(message string) *ErrorBuilder {
	return NewError(CategoryTemplate, message)
}

func TranscriptError(message string) *ErrorBuilder {
	return NewError(CategoryTranscript, message)
}

// BuildError is for orchestration failures such as a content rebuild before any full build.
func BuildError(message string) *ErrorBuilder {
	return NewError(CategoryBuild, message).Fatal()
}

func RuntimeError(message string) *ErrorBuilder {
	return NewError(CategoryRuntime, message).Fatal()
}

// AsClassified finds the first ClassifiedError in err's chain.
func AsClassified(err error) (*ClassifiedError, bool) {
	var ce *ClassifiedError
	if stderrors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// HasCategory reports whether the first ClassifiedError in err's chain has category c.
func HasCategory(err error, c ErrorCategory) bool {
	ce, ok := AsClassified(err)
	return ok && ce.category == c
}

// CategoryOf returns the category of err, or CategoryInternal for unclassified errors.
func CategoryOf(err error) ErrorCategory {
	if ce, ok := AsClassified(err); ok {
		return ce.category
	}
	return CategoryInternal
}
