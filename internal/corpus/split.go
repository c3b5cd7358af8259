package corpus

import (
	"math"
	"math/rand"

	"github.com/wicaksana/cvner/internal/annotation"
)

// Split shuffles the records with the provided seed and splits them into
// train and dev sets. testSize is the dev fraction, clamped to [0, 1]. The
// same seed and input always produce the same split.
func Split(records []annotation.Record, testSize float64, seed int64) (train, dev []annotation.Record) {
	if testSize < 0 {
		testSize = 0
	}
	if testSize > 1 {
		testSize = 1
	}

	shuffled := make([]annotation.Record, len(records))
	copy(shuffled, records)

	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	devCount := int(math.Round(float64(len(shuffled)) * testSize))
	if devCount > len(shuffled) {
		devCount = len(shuffled)
	}

	cut := len(shuffled) - devCount
	return shuffled[:cut], shuffled[cut:]
}
