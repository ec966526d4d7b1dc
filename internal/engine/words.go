package engine

import (
	"crypto/rand"
	"math/big"
)

// seedWords is the pool a new room draws its opening word from.
var seedWords = []string{
	"APPLE", "BANANA", "CASTLE", "DRAGON", "EAGLE",
	"FOREST", "GARDEN", "HARBOR", "ISLAND", "JUNGLE",
	"KITTEN", "LANTERN", "MEADOW", "NATURE", "ORANGE",
	"PLANET", "QUARTZ", "RIVER", "SUNSET", "TIGER",
	"UMBRELLA", "VIOLET", "WINTER", "YELLOW", "ZEBRA",
	"ANCHOR", "BRIDGE", "CANYON", "DESERT", "EMBER",
	"FALCON", "GLACIER", "HORIZON", "IVORY", "JASMINE",
	"KERNEL", "LAGOON", "MARBLE", "NECTAR", "ORCHID",
}

// RandomSeedWord picks an opening word for a new room.
func RandomSeedWord() string {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(seedWords))))
	if err != nil {
		// crypto/rand failing is effectively unreachable; fall back to a
		// fixed word rather than propagating an error through room creation.
		return seedWords[0]
	}
	return seedWords[n.Int64()]
}
