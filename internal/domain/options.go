package domain

import "math/rand"

// GenerateOptions builds the multiple-choice set for tracks[index]: the
// correct title plus up to three distractor titles drawn without replacement
// from the other tracks, shuffled. Sessions with fewer than four distinct
// titles get a shorter set.
func GenerateOptions(tracks []Track, index int, rng *rand.Rand) []string {
	if index < 0 || index >= len(tracks) {
		return nil
	}
	correct := tracks[index].Title

	pool := make([]string, 0, len(tracks)-1)
	seen := map[string]bool{correct: true}
	for i, t := range tracks {
		if i == index || seen[t.Title] {
			continue
		}
		seen[t.Title] = true
		pool = append(pool, t.Title)
	}

	shuffle(rng, len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	if len(pool) > OptionCount-1 {
		pool = pool[:OptionCount-1]
	}

	options := append(pool, correct)
	shuffle(rng, len(options), func(i, j int) { options[i], options[j] = options[j], options[i] })
	return options
}

func shuffle(rng *rand.Rand, n int, swap func(i, j int)) {
	if rng == nil {
		rand.Shuffle(n, swap)
		return
	}
	rng.Shuffle(n, swap)
}
