package domain

import "errors"

var (
	// ErrMissingQuery signals a query request without query text.
	ErrMissingQuery = errors.New("missing query")
	// ErrMissingText signals an embedding request without text.
	ErrMissingText = errors.New("missing text")
	// ErrInvalidBody signals an undecodable request body.
	ErrInvalidBody = errors.New("invalid request body")

	// ErrQueryEmbeddingFailed signals that the query vector could not be computed.
	ErrQueryEmbeddingFailed = errors.New("query embedding failed")
	// ErrEmbeddingFailed signals a failed standalone embedding request.
	ErrEmbeddingFailed = errors.New("embedding failed")

	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrGenerationProviderError signals a generation provider failure.
	ErrGenerationProviderError = errors.New("generation provider error")
	// ErrDocumentStoreError signals a document store failure.
	ErrDocumentStoreError = errors.New("document store error")
	// ErrUnrecognizedPayload signals a collaborator response matching none of the accepted shapes.
	ErrUnrecognizedPayload = errors.New("unrecognized payload shape")
)
