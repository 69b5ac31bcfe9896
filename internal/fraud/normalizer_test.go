package fraud

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeFoldsAccentsAndCase(t *testing.T) {
	n := NewNormalizer(nil)

	got := n.Normalize("Mycket NÖJD, trevlig personal!")
	assert.Equal(t, "mycket nojd trevlig personal", got)
}

func TestNormalizeRemovesStopWords(t *testing.T) {
	n := NewNormalizer(nil)

	got := n.Normalize("Maten var bra och servicen var snabb")
	assert.Equal(t, "maten bra servicen snabb", got)
}

func TestNormalizeIsIdempotent(t *testing.T) {
	n := NewNormalizer(nil)

	inputs := []string{
		"Bra service, trevlig personal, allt var bra, inget att klaga på, rekommenderar starkt.",
		"The food was GREAT!!! Will definitely come back.",
		"   ",
		"",
	}
	for _, in := range inputs {
		once := n.Normalize(in)
		twice := n.Normalize(once)
		assert.Equal(t, once, twice, "normalize should be idempotent for %q", in)
	}
}

func TestNormalizeCustomStopWords(t *testing.T) {
	n := NewNormalizer([]string{"hej"})

	assert.Equal(t, "och att", n.Normalize("hej och att"))
}

func TestTokenLengths(t *testing.T) {
	n := NewNormalizer(nil)

	tokens := n.Tokenize("maten smakade underbart")
	assert.Equal(t, []int{5, 7, 9}, tokenLengths(tokens))
}
