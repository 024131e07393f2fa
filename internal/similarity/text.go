package similarity

import (
	"context"
	"sort"
	"strings"

	"github.com/credo-ai/credo/internal/domain"
	"github.com/google/uuid"
)

// candidateFetchLimit bounds how many ILIKE candidates are re-scored in
// memory per search.
const candidateFetchLimit = 200

// TextStrategy scores statements by token overlap. It needs no external
// services and works against any backend.
type TextStrategy struct {
	beliefs domain.BeliefStore
}

func NewTextStrategy(beliefs domain.BeliefStore) *TextStrategy {
	return &TextStrategy{beliefs: beliefs}
}

func (t *TextStrategy) Name() string { return "text" }

func (t *TextStrategy) SupportsVectorSearch() bool { return false }

// Score combines Jaccard overlap with a containment term so that a short
// statement embedded verbatim in a longer one still scores high. Identical
// statements score 1 even when tokenization strips everything, keeping the
// reflexivity contract.
func (t *TextStrategy) Score(ctx context.Context, a, b string) float64 {
	if normalizeStatement(a) == normalizeStatement(b) {
		return 1
	}

	ta := tokenize(a)
	tb := tokenize(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	inter := 0
	for tok := range ta {
		if _, ok := tb[tok]; ok {
			inter++
		}
	}
	if inter == 0 {
		return 0
	}

	union := len(ta) + len(tb) - inter
	jaccard := float64(inter) / float64(union)

	smaller := len(ta)
	if len(tb) < smaller {
		smaller = len(tb)
	}
	containment := float64(inter) / float64(smaller)

	score := 0.6*jaccard + 0.4*containment
	if score > 1 {
		score = 1
	}
	return score
}

// Search pulls keyword candidates from the store and re-scores them in
// memory. The longest token of the statement seeds the ILIKE filter; when
// that returns nothing the agent's recent beliefs are scanned instead.
func (t *TextStrategy) Search(ctx context.Context, agentID uuid.UUID, statement string, threshold float32, limit int) ([]domain.BeliefWithScore, error) {
	if limit <= 0 {
		limit = 10
	}

	candidates, err := t.beliefs.SearchByStatement(ctx, agentID, longestToken(statement), candidateFetchLimit)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		candidates, err = t.beliefs.GetByAgent(ctx, agentID, false, candidateFetchLimit, 0)
		if err != nil {
			return nil, err
		}
	}

	var results []domain.BeliefWithScore
	for _, b := range candidates {
		score := t.Score(ctx, statement, b.Statement)
		if float32(score) < threshold {
			continue
		}
		results = append(results, domain.BeliefWithScore{Belief: b, Score: float32(score)})
	}

	sortByScore(results)
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func sortByScore(results []domain.BeliefWithScore) {
	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
}

func normalizeStatement(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func tokenize(s string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, f := range strings.Fields(strings.ToLower(s)) {
		f = strings.Trim(f, ".,;:!?\"'()[]{}")
		if len(f) < 2 || stopwords[f] {
			continue
		}
		tokens[f] = struct{}{}
	}
	return tokens
}

func longestToken(s string) string {
	longest := s
	for tok := range tokenize(s) {
		if longest == s || len(tok) > len(longest) {
			longest = tok
		}
	}
	return longest
}

var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "is": true, "are": true, "was": true,
	"were": true, "be": true, "been": true, "to": true, "of": true, "in": true,
	"on": true, "at": true, "and": true, "or": true, "not": true, "it": true,
	"that": true, "this": true, "with": true, "for": true, "as": true,
	"by": true, "has": true, "have": true, "had": true, "do": true, "does": true,
}
