package docstore

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/kailas-cloud/ragquery/internal/domain"
)

// shape recognizes one accepted response layout and returns its raw items.
type shape struct {
	name    string
	extract func(body []byte) ([]json.RawMessage, bool)
}

// acceptedShapes lists the document list layouts in priority order:
//
//  1. a bare JSON array:            [{...}, ...]
//  2. an object with a data key:    {"data": [{...}, ...]}
//  3. an object with a messages key: {"messages": [{...}, ...]}
//
// The first shape that matches wins, even when its array is empty.
var acceptedShapes = []shape{
	{name: "array", extract: bareArray},
	{name: "data", extract: keyedArray("data")},
	{name: "messages", extract: keyedArray("messages")},
}

func bareArray(body []byte) ([]json.RawMessage, bool) {
	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, false
	}
	return items, true
}

func keyedArray(key string) func([]byte) ([]json.RawMessage, bool) {
	return func(body []byte) ([]json.RawMessage, bool) {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(body, &obj); err != nil {
			return nil, false
		}
		raw, ok := obj[key]
		if !ok {
			return nil, false
		}
		return bareArray(raw)
	}
}

// rawDocument is one item as the store sends it.
type rawDocument struct {
	ID      json.RawMessage `json:"id"`
	Text    json.RawMessage `json:"text"`
	Content json.RawMessage `json:"content"`
}

// DecodeDocuments parses a document store response into documents, trying
// each accepted shape in order. Item text comes from "text", or from
// "content" when "text" is absent or empty. Items that are not objects are
// kept as empty documents so positions are preserved.
func DecodeDocuments(body []byte) ([]domain.Document, string, error) {
	body = bytes.TrimSpace(body)
	for _, s := range acceptedShapes {
		items, ok := s.extract(body)
		if !ok {
			continue
		}
		docs := make([]domain.Document, 0, len(items))
		for _, item := range items {
			docs = append(docs, decodeItem(item))
		}
		return docs, s.name, nil
	}
	return nil, "", fmt.Errorf("decode documents: %w", domain.ErrUnrecognizedPayload)
}

func decodeItem(item json.RawMessage) domain.Document {
	var raw rawDocument
	if err := json.Unmarshal(item, &raw); err != nil {
		return domain.NewDocument("", "")
	}
	text := stringValue(raw.Text)
	if text == "" {
		text = stringValue(raw.Content)
	}
	return domain.NewDocument(idValue(raw.ID), text)
}

// stringValue returns the JSON string, or "" for any other JSON type.
func stringValue(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}

// idValue accepts string and numeric ids; numbers keep their literal form.
func idValue(raw json.RawMessage) string {
	if s := stringValue(raw); s != "" {
		return s
	}
	var n json.Number
	if len(raw) > 0 && json.Unmarshal(raw, &n) == nil {
		return n.String()
	}
	return ""
}
