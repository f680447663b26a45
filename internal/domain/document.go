package domain

// FallbackDocumentID is the id of the placeholder document used when a session yields no documents.
const FallbackDocumentID = "demo"

// FallbackDocumentText is the placeholder context substituted when no real documents are available.
const FallbackDocumentText = "This is a demo context document. Add documents to your session!"

// Document is a retrieval candidate (request-scoped value object).
type Document struct {
	id   string
	text string
}

// NewDocument creates a Document. Text may be empty; empty documents are never embedded.
func NewDocument(id, text string) Document {
	return Document{id: id, text: text}
}

// FallbackDocument returns the singleton placeholder document.
func FallbackDocument() Document {
	return Document{id: FallbackDocumentID, text: FallbackDocumentText}
}

// WithFallback returns docs unchanged, or the singleton fallback document when docs is empty.
func WithFallback(docs []Document) []Document {
	if len(docs) > 0 {
		return docs
	}
	return []Document{FallbackDocument()}
}

// ID returns the document identifier.
func (d Document) ID() string { return d.id }

// Text returns the normalized document text.
func (d Document) Text() string { return d.text }

// IsEmpty reports whether the document has no text to embed.
func (d Document) IsEmpty() bool { return d.text == "" }
