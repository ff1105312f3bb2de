package domain

import "time"

// File permission constants
const (
	// DirectoryPermissions is the default permission for directories (rwxr-xr-x)
	DirectoryPermissions = 0o755
	// SecureFilePermissions is the permission for sensitive files (rw-------)
	SecureFilePermissions = 0o600
)

// Control loop defaults
const (
	// DefaultMaxIterations is the unconditional hard stop for the loop.
	DefaultMaxIterations = 10
	// DefaultPromptAfter is the failed-iteration count after which an
	// interactive session asks the user how to proceed.
	DefaultPromptAfter = 3
	// DefaultCompressAfter is the iteration count that forces a context
	// compression regardless of terminal attachment.
	DefaultCompressAfter = 5
	// DefaultMaxContextChars triggers compression when the serialized
	// history grows past this size.
	DefaultMaxContextChars = 4000
	// DefaultKeepRecent is how many trailing entries survive compression.
	DefaultKeepRecent = 3
	// MinCompressibleEntries is the transcript length below which
	// compression is a no-op.
	MinCompressibleEntries = 5
	// FailureContextWindow is how many trailing entries are scanned for
	// failure context when building the planning prompt.
	FailureContextWindow = 3
)

// Timeout defaults
const (
	// DefaultHTTPClientTimeout bounds a single non-streaming backend call.
	DefaultHTTPClientTimeout = 60 * time.Second
	// DefaultStreamIdleTimeout bounds the whole streaming plan request.
	DefaultStreamIdleTimeout = 5 * time.Minute
)

// CompressionPlaceholder replaces a model-generated summary when the
// summarization call itself fails; compression must never fail outright.
const CompressionPlaceholder = "Previous session summary unavailable: older entries were dropped to stay within the context budget."
