package company

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"dart_deepsearch/pkg/core/dart"
)

// Thresholds for fuzzy name resolution. Scores are 0..100.
const (
	DefaultThreshold = 70
	AutoAcceptScore  = 95
	ambiguityGap     = 10
	maxCandidates    = 5
)

var stockCodePattern = regexp.MustCompile(`^\d{6}$`)

// MatchState classifies a Find result.
type MatchState string

const (
	MatchExact     MatchState = "exact"
	MatchFuzzy     MatchState = "fuzzy"
	MatchAmbiguous MatchState = "ambiguous"
	MatchNotFound  MatchState = "not_found"
)

// Candidate is one scored registry entry.
type Candidate struct {
	CorpCode  string `json:"corp_code"`
	CorpName  string `json:"corp_name"`
	StockCode string `json:"stock_code,omitempty"`
	Score     int    `json:"score"`
}

// Match is the outcome of resolving a user-typed company name.
type Match struct {
	State             MatchState  `json:"state"`
	Query             string      `json:"query"`
	Best              *Candidate  `json:"best,omitempty"`
	Candidates        []Candidate `json:"candidates,omitempty"`
	NeedsConfirmation bool        `json:"needs_confirmation"`
}

// RegistryLoader supplies the corporation master list, normally the
// DART corpCode.xml download.
type RegistryLoader interface {
	CorpCodes(ctx context.Context) ([]dart.CorpCode, error)
}

// Validator resolves company names and stock codes against the DART
// corporation registry. The registry is loaded once and read-only
// afterwards.
type Validator struct {
	loader RegistryLoader

	mu      sync.Mutex
	loaded  bool
	entries []dart.CorpCode
	byStock map[string]int
	byName  map[string]int
}

func NewValidator(loader RegistryLoader) *Validator {
	return &Validator{loader: loader}
}

// NewValidatorFromSnapshot builds a validator from an in-memory
// registry, used by tests and offline runs.
func NewValidatorFromSnapshot(entries []dart.CorpCode) *Validator {
	v := &Validator{}
	v.index(entries)
	return v
}

// Load downloads and indexes the registry. Safe to call more than
// once; only the first call hits the network.
func (v *Validator) Load(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.loaded {
		return nil
	}
	if v.loader == nil {
		return fmt.Errorf("company registry loader not configured")
	}

	entries, err := v.loader.CorpCodes(ctx)
	if err != nil {
		return fmt.Errorf("failed to load company registry: %w", err)
	}
	v.indexLocked(entries)
	fmt.Printf("[Validator] indexed %d companies (%d listed)\n", len(v.entries), len(v.byStock))
	return nil
}

func (v *Validator) index(entries []dart.CorpCode) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.indexLocked(entries)
}

func (v *Validator) indexLocked(entries []dart.CorpCode) {
	v.entries = entries
	v.byStock = make(map[string]int)
	v.byName = make(map[string]int, len(entries))
	for i, entry := range entries {
		code := strings.TrimSpace(entry.StockCode)
		if stockCodePattern.MatchString(code) {
			v.byStock[code] = i
		}
		name := normalizeName(entry.Name)
		if _, exists := v.byName[name]; !exists {
			v.byName[name] = i
		}
	}
	v.loaded = true
}

// ByStockCode resolves a 6-digit ticker directly, bypassing fuzzy
// matching entirely.
func (v *Validator) ByStockCode(code string) (*Candidate, bool) {
	if !stockCodePattern.MatchString(code) {
		return nil, false
	}
	v.mu.Lock()
	idx, ok := v.byStock[code]
	var entry dart.CorpCode
	if ok {
		entry = v.entries[idx]
	}
	v.mu.Unlock()
	if !ok {
		return nil, false
	}
	return &Candidate{CorpCode: entry.Code, CorpName: entry.Name, StockCode: entry.StockCode, Score: 100}, true
}

// Find resolves a user-typed company name. Exact normalized matches
// score 100; otherwise every registry entry is scored by Levenshtein
// similarity and the result is classified against the thresholds:
// best >= 95 auto-accepts, best >= threshold with a close runner-up
// (or below 95) needs user confirmation.
func (v *Validator) Find(query string, threshold int) Match {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	match := Match{State: MatchNotFound, Query: query}

	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return match
	}

	v.mu.Lock()
	entries := v.entries
	exactIdx, exact := v.byName[normalizeName(trimmed)]
	v.mu.Unlock()

	if exact {
		entry := entries[exactIdx]
		best := Candidate{CorpCode: entry.Code, CorpName: entry.Name, StockCode: entry.StockCode, Score: 100}
		match.State = MatchExact
		match.Best = &best
		match.Candidates = []Candidate{best}
		return match
	}

	candidates := v.scoreAll(trimmed, threshold, entries)
	if len(candidates) == 0 {
		return match
	}
	match.Candidates = candidates
	best := candidates[0]
	match.Best = &best

	runnerUp := 0
	if len(candidates) > 1 {
		runnerUp = candidates[1].Score
	}

	if best.Score >= AutoAcceptScore && best.Score-runnerUp >= ambiguityGap {
		match.State = MatchFuzzy
		return match
	}
	match.State = MatchAmbiguous
	match.NeedsConfirmation = true
	return match
}

func (v *Validator) scoreAll(query string, threshold int, entries []dart.CorpCode) []Candidate {
	normalized := normalizeName(query)
	var out []Candidate
	for _, entry := range entries {
		score := similarity(normalized, normalizeName(entry.Name))
		if score < threshold {
			continue
		}
		out = append(out, Candidate{
			CorpCode:  entry.Code,
			CorpName:  entry.Name,
			StockCode: entry.StockCode,
			Score:     score,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		// Listed companies outrank unlisted ones on ties.
		return out[i].StockCode != "" && out[j].StockCode == ""
	})
	if len(out) > maxCandidates {
		out = out[:maxCandidates]
	}
	return out
}

// normalizeName strips whitespace and the 주식회사 decorations that
// users rarely type.
func normalizeName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	for _, decoration := range []string{"주식회사", "(주)", "㈜"} {
		s = strings.ReplaceAll(s, decoration, "")
	}
	return strings.Join(strings.Fields(s), "")
}

// similarity is Levenshtein distance normalized to 0..100 over rune
// counts, so Korean names score the same as ASCII ones.
func similarity(a, b string) int {
	if a == b {
		return 100
	}
	ra, rb := []rune(a), []rune(b)
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	if longest == 0 {
		return 100
	}
	dist := levenshtein(ra, rb)
	return int((1 - float64(dist)/float64(longest)) * 100)
}

func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
