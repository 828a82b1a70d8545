// Package errors provides foundational, type-safe error primitives used across Satsuma.
//
// This package contains classified error types and helpers for per-unit failure
// isolation, including a fluent builder API for constructing ClassifiedError values
// with context.
//
// Key features:
//   - ErrorCategory: Broad error classification (config, template, style, filesystem, ...)
//   - ErrorSeverity: Impact level (fatal, error, warning, info)
//   - ClassifiedError: Structured error with category, severity, and context
//   - ErrorBuilder: Fluent API for creating classified errors
//   - CLIErrorAdapter: exit codes and user-facing formatting
//
// Example usage:
//
//	err := errors.TemplateError("template not found").
//		WithContext("page", pagePath).
//		WithContext("template", name).
//		Build()
package errors
