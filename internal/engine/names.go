package engine

import (
	"math/rand"

	"github.com/talgya/raid-campaign/internal/balance"
)

// nameParts are the stems and endings each culture builds place names from.
var nameParts = map[balance.SettlementType]struct{ stems, endings []string }{
	balance.Viking: {
		stems:   []string{"Kaup", "Hals", "Sigt", "Trond", "Skir", "Ulf", "Arn", "Grim", "Thor", "Jor", "Bjarn", "Ask"},
		endings: []string{"by", "vik", "heim", "stad", "ness", "fjord"},
	},
	balance.Anglo: {
		stems:   []string{"Ash", "Brad", "Wil", "Ched", "Win", "Cant", "Dun", "Glas", "Tam", "Lin", "Hex", "Ald"},
		endings: []string{"ton", "bury", "wick", "ham", "ford", "chester"},
	},
	balance.Frankish: {
		stems:   []string{"Ros", "Char", "Beau", "Mont", "Val", "Ver", "Sen", "Aval", "Cham", "Gis", "Bel", "Lor"},
		endings: []string{"court", "ville", "mont", "lieu", "fort", "champ"},
	},
	balance.Neutral: {
		stems:   []string{"Dor", "Quen", "Wal", "Trus", "Birk", "Sli", "Vol", "Lado", "Dom", "Tru", "Wol", "Kol"},
		endings: []string{"stad", "haven", "mark", "port", "wharf", "gard"},
	},
}

// Prefixes for when a culture's plain names run out.
var namePrefixes = []string{"North ", "South ", "Upper ", "Lower ", "Old ", "New "}

// namer hands out unique place names in the style of each settlement's rulers.
type namer struct {
	rng  *rand.Rand
	used map[string]bool
}

func newNamer(seed int64) *namer {
	return &namer{rng: rand.New(rand.NewSource(seed)), used: make(map[string]bool)}
}

func (n *namer) next(t balance.SettlementType) string {
	parts, ok := nameParts[t]
	if !ok {
		parts = nameParts[balance.Neutral]
	}
	for tries := 0; ; tries++ {
		name := parts.stems[n.rng.Intn(len(parts.stems))] + parts.endings[n.rng.Intn(len(parts.endings))]
		for i := 0; i < tries/32; i++ {
			name = namePrefixes[n.rng.Intn(len(namePrefixes))] + name
		}
		if !n.used[name] {
			n.used[name] = true
			return name
		}
	}
}
