package embed

import (
	"context"
	"math"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/text/unicode/norm"
)

// Local is an offline embedder using the hashing trick: words, adjacent word
// pairs, and character trigrams are hashed into a fixed number of buckets
// with a sign bit, then the vector is L2-normalized. Same text, same vector.
type Local struct {
	dimension int
}

// Feature weights.
const (
	wordWeight    = 1.0
	bigramWeight  = 0.5
	trigramWeight = 0.25
)

// NewLocal creates a hashing embedder with the given dimension.
func NewLocal(dimension int) *Local {
	return &Local{dimension: dimension}
}

func (e *Local) Dimension() int { return e.dimension }

func (e *Local) Model() string { return DefaultLocalModel }

// Embed never fails except on a cancelled context.
func (e *Local) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vec := make([]float64, e.dimension)
	words := Tokenize(text)

	for i, w := range words {
		e.add(vec, "w:"+w, wordWeight)
		if i > 0 {
			e.add(vec, "b:"+words[i-1]+" "+w, bigramWeight)
		}
		for _, tri := range trigrams(w) {
			e.add(vec, "t:"+tri, trigramWeight)
		}
	}
	if len(words) == 0 {
		e.add(vec, "empty", 1)
	}

	var norm2 float64
	for _, v := range vec {
		norm2 += v * v
	}
	out := make([]float32, e.dimension)
	if norm2 == 0 {
		// every feature cancelled out
		out[0] = 1
		return out, nil
	}
	inv := 1 / math.Sqrt(norm2)
	for i, v := range vec {
		out[i] = float32(v * inv)
	}
	return out, nil
}

func (e *Local) add(vec []float64, feature string, weight float64) {
	h := xxhash.Sum64String(feature)
	idx := int(h % uint64(e.dimension))
	if h>>63 == 1 {
		weight = -weight
	}
	vec[idx] += weight
}

// Tokenize lowercases NFKC-normalized text and splits it into runs of letters
// and digits. Single-character tokens are dropped.
func Tokenize(text string) []string {
	text = strings.ToLower(norm.NFKC.String(text))
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	words := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) > 1 {
			words = append(words, f)
		}
	}
	return words
}

func trigrams(word string) []string {
	runes := []rune("^" + word + "$")
	if len(runes) < 3 {
		return nil
	}
	out := make([]string, 0, len(runes)-2)
	for i := 0; i+3 <= len(runes); i++ {
		out = append(out, string(runes[i:i+3]))
	}
	return out
}
