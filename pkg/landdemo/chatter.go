package landdemo

import (
	"strings"

	"github.com/mb-14/gomarkov"
)

// chatterCorpus is deliberately small and flavorful rather than
// comprehensive — enough for the Markov chain to produce varied but
// on-theme NPC lines, same tradeoff the teacher's dialogue generator makes
// for its personality corpora.
var chatterCorpus = []string{
	"The baker hums quietly while kneading another batch of dough.",
	"A stray cat watches the cookie pile with great suspicion.",
	"Someone mutters that the oven has never been this warm before.",
	"The old grandmother smiles and says the secret is more butter.",
	"A traveling merchant offers to trade spices for fresh cookies.",
	"The town crier announces a new record batch of cookies baked today.",
	"A child asks if the cookies will ever stop multiplying.",
	"The baker warns that too many cookies might attract bears.",
	"Someone whispers that the cookies taste better after midnight.",
	"The apprentice drops a tray and blames the overeager oven.",
}

// Chatterer produces short NPC flavor lines from a Markov chain trained on
// chatterCorpus, grounded on the teacher's DialogueGenerator.enhanceWithMarkov
// (pkg/pcg/dialogue.go), generalized from personality-keyed chains down to
// a single chain since this Land has no NPC personality system of its own.
type Chatterer struct {
	chain *gomarkov.Chain
}

// NewChatterer builds and trains a fresh order-2 Markov chain.
func NewChatterer() *Chatterer {
	chain := gomarkov.NewChain(2)
	for _, sentence := range chatterCorpus {
		words := strings.Fields(sentence)
		if len(words) > 2 {
			chain.Add(words)
		}
	}
	return &Chatterer{chain: chain}
}

// Line generates one NPC chatter line, seeded by the opening words of a
// deterministically chosen corpus sentence so the same RNG draw always
// produces the same seed phrase.
func (c *Chatterer) Line(seedSentenceIndex int) string {
	sentence := chatterCorpus[seedSentenceIndex%len(chatterCorpus)]
	words := strings.Fields(sentence)
	seedWords := words[:min(2, len(words))]

	generated, err := c.chain.Generate(seedWords)
	if err != nil || generated == "" {
		return sentence
	}
	return strings.Join(seedWords, " ") + " " + generated
}
