package tokens

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/Cogwheel-Validator/soroswap-portal/models"
	"github.com/Cogwheel-Validator/soroswap-portal/portal/storage"
)

// StorageKey is where the user's tokens are persisted
const StorageKey = "user-tokens"

// UserTokens is the durable list of tokens the user added by hand
type UserTokens struct {
	store storage.Store
	// serializes read-modify-write within the process
	mu sync.Mutex
}

// NewUserTokens creates a UserTokens backed by store
func NewUserTokens(store storage.Store) *UserTokens {
	return &UserTokens{store: store}
}

// List returns the stored tokens. Missing or malformed data reads as an
// empty list.
func (u *UserTokens) List(ctx context.Context) []models.Token {
	raw, err := u.store.Get(ctx, StorageKey)
	if errors.Is(err, storage.ErrNotFound) {
		return []models.Token{}
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to read user tokens")
		return []models.Token{}
	}

	var list []models.Token
	if err := json.Unmarshal(raw, &list); err != nil {
		log.Error().Err(err).Msg("Failed to parse user tokens, treating as empty")
		return []models.Token{}
	}
	if list == nil {
		list = []models.Token{}
	}
	return list
}

// Add appends token and notifies subscribers. A token without a contract
// is a validation error; a token sharing the contract or the code (any
// case) of a stored one is a duplicate.
func (u *UserTokens) Add(ctx context.Context, token models.Token) error {
	if strings.TrimSpace(token.Contract) == "" {
		return models.NewError(models.KindValidation, "token contract is required")
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	list := u.List(ctx)
	for _, t := range list {
		if t.Contract == token.Contract {
			return models.NewError(models.KindDuplicate, fmt.Sprintf("token with contract %s already added", token.Contract))
		}
		if token.Code != "" && strings.EqualFold(t.Code, token.Code) {
			return models.NewError(models.KindDuplicate, fmt.Sprintf("token with code %s already added", token.Code))
		}
	}
	return u.save(ctx, append(list, token))
}

// Remove deletes the token with the given contract
func (u *UserTokens) Remove(ctx context.Context, contract string) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	list := u.List(ctx)
	kept := make([]models.Token, 0, len(list))
	for _, t := range list {
		if t.Contract != contract {
			kept = append(kept, t)
		}
	}
	if len(kept) == len(list) {
		return models.NewError(models.KindNotFound, fmt.Sprintf("token %s is not in the user list", contract))
	}
	return u.save(ctx, kept)
}

func (u *UserTokens) save(ctx context.Context, list []models.Token) error {
	raw, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("failed to encode user tokens: %w", err)
	}
	if err := u.store.Set(ctx, StorageKey, raw); err != nil {
		return fmt.Errorf("failed to store user tokens: %w", err)
	}
	return nil
}

// Subscribe calls fn after every change to the stored list
func (u *UserTokens) Subscribe(fn func()) func() {
	return u.store.Subscribe(StorageKey, fn)
}

// Reader keeps an up to date copy of the user's tokens for one consumer
type Reader struct {
	tokens      *UserTokens
	mu          sync.RWMutex
	list        []models.Token
	unsubscribe func()
	onChange    func([]models.Token)
}

// NewReader reads the list and re-reads it whenever any writer changes it.
// onChange, when not nil, is called with every new list. Call Close when
// done.
func (u *UserTokens) NewReader(ctx context.Context, onChange func([]models.Token)) *Reader {
	r := &Reader{tokens: u, list: u.List(ctx), onChange: onChange}
	r.unsubscribe = u.Subscribe(r.reload)
	return r
}

func (r *Reader) reload() {
	list := r.tokens.List(context.Background())
	r.mu.Lock()
	r.list = list
	r.mu.Unlock()
	if r.onChange != nil {
		r.onChange(list)
	}
}

// Tokens returns the current list. The slice changes identity on every
// reload, which is what Memo keys on.
func (r *Reader) Tokens() []models.Token {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.list
}

// Close stops following changes
func (r *Reader) Close() {
	r.unsubscribe()
}
