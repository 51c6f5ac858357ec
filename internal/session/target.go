package session

import "math/rand/v2"

// SelectTarget picks the next target label from pool.
//
// Labels already in found are never offered again until every label of the pool has been
// found; at that point looped is true and the caller must clear its found set. The current
// target is not repeated while another candidate exists. The choice among the remaining
// candidates is uniform. An empty pool yields "".
func SelectTarget(pool []string, found map[string]bool, current string, rng *rand.Rand) (target string, looped bool) {
	if len(pool) == 0 {
		return "", false
	}

	candidates := make([]string, 0, len(pool))
	for _, label := range pool {
		if !found[label] {
			candidates = append(candidates, label)
		}
	}
	if len(candidates) == 0 {
		looped = true
		candidates = append(candidates, pool...)
	}

	if len(candidates) > 1 {
		for i, label := range candidates {
			if label == current {
				candidates = append(candidates[:i], candidates[i+1:]...)
				break
			}
		}
	}

	return candidates[intN(rng, len(candidates))], looped
}

func intN(rng *rand.Rand, n int) int {
	if rng == nil {
		return rand.IntN(n)
	}
	return rng.IntN(n)
}
