package index

import (
	"math"

	"docsum/store"
	"docsum/types"
)

// MMR selects up to k candidates by maximal marginal relevance. Each step picks the
// candidate maximising lambda*cos(c, query) - (1-lambda)*max cos(c, s) over the
// already selected s. Equal scores go to the lower Seq. Candidates sharing a Seq are
// considered once.
func MMR(query []float32, candidates []store.Entry, k int, lambda float64) []types.Chunk {
	if k <= 0 || len(candidates) == 0 {
		return nil
	}

	seen := make(map[int]struct{}, len(candidates))
	pool := make([]store.Entry, 0, len(candidates))
	for _, c := range candidates {
		if _, ok := seen[c.Chunk.Seq]; ok {
			continue
		}
		seen[c.Chunk.Seq] = struct{}{}
		pool = append(pool, c)
	}

	relevance := make([]float64, len(pool))
	for i, c := range pool {
		relevance[i] = cosine(query, c.Embedding)
	}
	// redundancy[i] is the max similarity of pool[i] to anything selected so far
	redundancy := make([]float64, len(pool))
	for i := range redundancy {
		redundancy[i] = math.Inf(-1)
	}
	picked := make([]bool, len(pool))

	var selected []types.Chunk
	for len(selected) < k && len(selected) < len(pool) {
		best := -1
		var bestScore float64
		for i, c := range pool {
			if picked[i] {
				continue
			}
			score := lambda * relevance[i]
			if len(selected) > 0 {
				score -= (1 - lambda) * redundancy[i]
			}
			if best < 0 || score > bestScore || (score == bestScore && c.Chunk.Seq < pool[best].Chunk.Seq) {
				best, bestScore = i, score
			}
		}

		picked[best] = true
		selected = append(selected, pool[best].Chunk)
		for i, c := range pool {
			if picked[i] {
				continue
			}
			redundancy[i] = max(redundancy[i], cosine(c.Embedding, pool[best].Embedding))
		}
	}
	return selected
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
