// Package tokens merges the curated token list with tokens the user added
// and persists the latter.
package tokens

import (
	"os"
	"strings"
	"sync"
	"time"

	"github.com/Cogwheel-Validator/soroswap-portal/models"
	"github.com/rs/zerolog"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Str("component", "tokens").Logger()
}

// SetLogger allows setting a custom logger
func SetLogger(l zerolog.Logger) {
	log = l
}

// Lookup is the merged view of every known token
type Lookup struct {
	// Tokens holds curated entries first, then user entries, duplicates included
	Tokens []models.Token
	// ByContract indexes Tokens by contract id, the last entry winning
	ByContract map[string]models.Token
	// ByCode indexes Tokens by upper-cased code, the last entry winning
	ByCode map[string]models.Token
}

// Merge builds a Lookup from the curated list and the user's tokens
func Merge(curated, user []models.Token) Lookup {
	l := Lookup{
		Tokens:     make([]models.Token, 0, len(curated)+len(user)),
		ByContract: make(map[string]models.Token, len(curated)+len(user)),
		ByCode:     make(map[string]models.Token, len(curated)+len(user)),
	}
	l.Tokens = append(l.Tokens, curated...)
	l.Tokens = append(l.Tokens, user...)
	for _, t := range l.Tokens {
		l.ByContract[t.Contract] = t
		if t.Code != "" {
			l.ByCode[strings.ToUpper(t.Code)] = t
		}
	}
	return l
}

// Token returns the token with the given contract id
func (l Lookup) Token(contract string) (models.Token, bool) {
	t, ok := l.ByContract[contract]
	return t, ok
}

// Symbol returns the token with the given code, ignoring case
func (l Lookup) Symbol(code string) (models.Token, bool) {
	t, ok := l.ByCode[strings.ToUpper(code)]
	return t, ok
}

// Memo caches the last Merge and recomputes it only when either input
// slice is a different slice than last time. Contents are not compared.
type Memo struct {
	mu       sync.Mutex
	curated  []models.Token
	user     []models.Token
	lookup   Lookup
	computed bool
}

// Get returns the merged lookup for curated and user
func (m *Memo) Get(curated, user []models.Token) Lookup {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.computed && sameSlice(m.curated, curated) && sameSlice(m.user, user) {
		return m.lookup
	}
	m.curated, m.user = curated, user
	m.lookup = Merge(curated, user)
	m.computed = true
	return m.lookup
}

func sameSlice(a, b []models.Token) bool {
	if len(a) != len(b) {
		return false
	}
	return len(a) == 0 || &a[0] == &b[0]
}
