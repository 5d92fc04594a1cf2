package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates a file type no normaliser handles.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrUnreadable indicates a source file could not be opened or parsed.
	// The loader skips such files with a warning.
	ErrUnreadable = errors.New("unreadable document")

	// ErrCorruptIndex indicates the index artifact is missing, unreadable,
	// or violates its shape invariants.
	ErrCorruptIndex = errors.New("corrupt index")

	// ErrIndexNotLoaded indicates a query was issued before any index was loaded.
	ErrIndexNotLoaded = errors.New("index not loaded")

	// ErrConfiguration indicates the runtime configuration cannot serve the request.
	// Provider construction failures and build/query mismatches wrap this error.
	ErrConfiguration = errors.New("configuration error")

	// ErrDimensionMismatch indicates a query embedding does not match the
	// dimension of the stored embeddings. Always wrapped in ErrConfiguration.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrProvider indicates the embedding backend failed, rejected input,
	// or returned a result that does not line up with the request.
	ErrProvider = errors.New("embedding provider error")

	// ErrEmbeddingUnavailable indicates no embedding provider could be constructed.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrBuildInProgress indicates a build is already running for this builder.
	ErrBuildInProgress = errors.New("build in progress")
)
