// Package logging provides structured logging utilities for the labelfewer application.
//
// This package centralizes logging patterns to ensure consistent, structured logging
// throughout the codebase using the standard library's slog package.
//
// # Key Features
//
//   - Structured logging with slog
//   - PII sanitization (sender address anonymization)
//   - Consistent attribute naming across the codebase
//
// # Usage Patterns
//
// Create a logger with standard attributes:
//
//	logger := logging.WithOperation(slog.Default(), "classifier.classify")
//	logger.Info("suggestion produced",
//	    logging.Label(suggestion.Label),
//	    logging.Source(suggestion.Source))
//
// Sanitize sensitive data before logging:
//
//	logger.Info("classifying message",
//	    logging.SenderHash(msg.Sender))
//
// # Security Considerations
//
// Sender addresses are hashed before logging so entries can be correlated
// without exposing PII. Message subjects and snippets are never logged.
package logging
