package services

import (
	"math"
	"sort"

	"github.com/custodia-labs/kbindex/internal/core/domain"
)

// cosine returns the cosine similarity of a and b.
// Either vector having zero norm scores 0. Accumulation is in float64.
func cosine(a, b []float32) float64 {
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

// rankByCosine scores query against every row of idx and returns the top k
// in descending score order. Equal scores keep ascending row order.
// k is clamped to the number of rows.
func rankByCosine(idx *domain.Index, query []float32, k int) []domain.RetrievalResult {
	n := idx.Len()
	results := make([]domain.RetrievalResult, n)
	for row := 0; row < n; row++ {
		results[row] = domain.RetrievalResult{
			Metadata: idx.Metadata(row),
			Score:    cosine(query, idx.Vector(row)),
			Row:      row,
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if k < n {
		results = results[:k]
	}
	return results
}
