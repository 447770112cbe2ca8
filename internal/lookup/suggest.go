package lookup

import (
	"sort"
	"strings"

	"github.com/orieg/edu-policy-navigator-sub001/internal/models"
)

// Suggester offers "did you mean" spelling suggestions from the vocabulary of
// record names. The vocabulary is built once per corpus snapshot; names are a
// few thousand words at most, so a linear scan per term is fine.
type Suggester struct {
	vocab       []string
	freq        map[string]int
	maxDistance int
}

// NewSuggester builds the vocabulary from every word of every record name.
func NewSuggester(docs []*models.Document, maxDistance int) *Suggester {
	if maxDistance <= 0 {
		maxDistance = 2
	}
	freq := make(map[string]int)
	for _, doc := range docs {
		for _, word := range tokenize(doc.Name()) {
			freq[word]++
		}
	}
	vocab := make([]string, 0, len(freq))
	for word := range freq {
		vocab = append(vocab, word)
	}
	sort.Strings(vocab)
	return &Suggester{vocab: vocab, freq: freq, maxDistance: maxDistance}
}

// Suggest returns up to n vocabulary words within the edit-distance budget of
// term, closest first, more frequent first among equals. A term already in
// the vocabulary needs no suggestion and returns nil.
func (s *Suggester) Suggest(term string, n int) []string {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" || n <= 0 {
		return nil
	}
	if _, ok := s.freq[term]; ok {
		return nil
	}
	type candidate struct {
		word     string
		distance int
	}
	var candidates []candidate
	for _, word := range s.vocab {
		// Length difference lower-bounds the edit distance.
		if diff := len(word) - len(term); diff > s.maxDistance || -diff > s.maxDistance {
			continue
		}
		if d := editDistance(term, word); d <= s.maxDistance {
			candidates = append(candidates, candidate{word: word, distance: d})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].distance != candidates[j].distance {
			return candidates[i].distance < candidates[j].distance
		}
		return s.freq[candidates[i].word] > s.freq[candidates[j].word]
	})
	if len(candidates) > n {
		candidates = candidates[:n]
	}
	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.word
	}
	return out
}

// editDistance is the Levenshtein distance between a and b, two rows at a
// time. Runes, not bytes, so accented district names behave.
func editDistance(a, b string) int {
	if a == b {
		return 0
	}
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// tokenize splits s into lowercase words.
func tokenize(s string) []string {
	return strings.Fields(strings.ToLower(s))
}
