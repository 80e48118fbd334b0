package vectorstore

import (
	"math"
	"sort"
)

// CosineSimilarity returns the cosine of the angle between a and b, or 0 when the
// vectors differ in length or either is zero.
func CosineSimilarity(a, b []float32) float64 {
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

// rankByVector scores candidates against query, drops those under the threshold and
// returns at most topK documents, best first.
func rankByVector(query []float32, candidates []Document, vectors [][]float32, threshold float64, topK int) []Document {
	var out []Document
	for i, d := range candidates {
		score := CosineSimilarity(query, vectors[i])
		if score < threshold || score <= 0 {
			continue
		}
		d.Score = score
		out = append(out, d)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > topK {
		out = out[:topK]
	}
	return out
}
