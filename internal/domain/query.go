package domain

// Query is a natural-language question scoped to an optional session.
// Filters are accepted at the boundary and carried along without affecting retrieval.
type Query struct {
	Text      string
	SessionID string
	Filters   map[string]any
}

// Answer is the generated response to a Query.
type Answer struct {
	Text string
}
