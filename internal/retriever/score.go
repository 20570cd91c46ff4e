package retriever

// normalizeLexical maps raw bm25() scores to [0, 1] where 1 is best.
// FTS5 bm25() returns negative numbers, more negative meaning a better
// match, so the polarity flips during normalization.
func normalizeLexical(scores map[int64]float64) map[int64]float64 {
	if len(scores) == 0 {
		return nil
	}

	mn, mx := minMax(scores)
	norm := make(map[int64]float64, len(scores))
	if mn == mx {
		for id := range scores {
			norm[id] = 1.0
		}
		return norm
	}

	rng := mx - mn
	for id, v := range scores {
		norm[id] = (mx - v) / rng
	}
	return norm
}

// normalizeSemantic maps raw cosine similarities to [0, 1] where 1 is best
func normalizeSemantic(scores map[int64]float64) map[int64]float64 {
	if len(scores) == 0 {
		return nil
	}

	mn, mx := minMax(scores)
	norm := make(map[int64]float64, len(scores))
	if mn == mx {
		for id := range scores {
			norm[id] = 1.0
		}
		return norm
	}

	rng := mx - mn
	for id, v := range scores {
		norm[id] = (v - mn) / rng
	}
	return norm
}

func minMax(scores map[int64]float64) (mn, mx float64) {
	first := true
	for _, v := range scores {
		if first {
			mn, mx = v, v
			first = false
			continue
		}
		if v < mn {
			mn = v
		}
		if v > mx {
			mx = v
		}
	}
	return mn, mx
}

// fuseScores combines normalized signal scores for one chunk. When a whole
// signal came back empty the other passes through at full strength, so a
// keyword-only query is not diluted by the semantic weight.
func fuseScores(lexical, semantic map[int64]float64, id int64, keywordWeight, semanticWeight float64) (lex, sem, final float64) {
	lex = lexical[id]
	sem = semantic[id]

	switch {
	case len(semantic) == 0:
		final = lex
	case len(lexical) == 0:
		final = sem
	default:
		final = keywordWeight*lex + semanticWeight*sem
	}
	return lex, sem, final
}
