package query

import (
	"github.com/kailas-cloud/ragquery/internal/domain"
)

// Candidate pairs a document with its vector. A nil Vector marks the
// candidate unavailable.
type Candidate struct {
	Document domain.Document
	Vector   []float32
}

// RankedCandidate is the selected document with its score and input position.
type RankedCandidate struct {
	Document domain.Document
	Score    float64
	Index    int
}

// SelectBest picks the candidate with the highest cosine similarity to query.
// Earlier candidates win ties. Unavailable candidates, zero-norm vectors and
// dimension mismatches are never scored. When nothing is scorable the first
// candidate is returned with found=false.
func SelectBest(query []float32, candidates []Candidate) (best RankedCandidate, found bool) {
	if len(candidates) == 0 {
		return RankedCandidate{}, false
	}

	for i, c := range candidates {
		if c.Vector == nil {
			continue
		}
		score, ok := domain.CosineSimilarity(query, c.Vector)
		if !ok {
			continue
		}
		if !found || score > best.Score {
			best = RankedCandidate{Document: c.Document, Score: score, Index: i}
			found = true
		}
	}

	if !found {
		return RankedCandidate{Document: candidates[0].Document, Index: 0}, false
	}
	return best, true
}
