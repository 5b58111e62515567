// Package errors provides the classified errors used across refsite.
//
// Every error that leaves a package carries a category naming the failing stage and a
// few fields for structured logging:
//
//	err := errors.TemplateError("layout not registered").
//		WithContext("layout", name).
//		Build()
//
// The CLI adapter maps categories to exit codes.
package errors
