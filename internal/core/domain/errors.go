package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist or is not
	// owned by the caller. The two cases are deliberately indistinguishable.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidConfig indicates invalid configuration, such as a chunk
	// overlap that is not smaller than the chunk size. Rejected before any I/O.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrUnsupportedType indicates an unknown source or content type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrEmptyContent indicates a source produced no extractable text.
	ErrEmptyContent = errors.New("no extractable content")

	// Gateway Errors.

	// ErrGateway wraps every failure of an external service call.
	ErrGateway = errors.New("gateway error")

	// ErrLLMUnavailable indicates the generation service is not configured or failed.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured or failed.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrVectorIndexUnavailable indicates the vector index is not configured or failed.
	ErrVectorIndexUnavailable = errors.New("vector index unavailable")

	// ErrRateLimited indicates the API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// Storage Errors.

	// ErrStoreUnavailable indicates the metadata store could not serve a request.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// IsGatewayError reports whether err originated from an external service.
func IsGatewayError(err error) bool {
	return errors.Is(err, ErrGateway) ||
		errors.Is(err, ErrLLMUnavailable) ||
		errors.Is(err, ErrEmbeddingUnavailable) ||
		errors.Is(err, ErrVectorIndexUnavailable) ||
		errors.Is(err, ErrRateLimited)
}
