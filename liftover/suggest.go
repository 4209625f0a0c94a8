package liftover

import "github.com/antzucaro/matchr"

// suggestChromosome returns the name in known closest to want by Jaro-
// Winkler similarity, for the one-shot warning emitted on a MissingSequence
// failure. Returns "" if known is empty.
func suggestChromosome(want string, known []string) string {
	best := ""
	bestScore := -1.0
	for _, name := range known {
		score := matchr.JaroWinkler(want, name, true)
		if score > bestScore {
			bestScore = score
			best = name
		}
	}
	return best
}
