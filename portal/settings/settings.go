package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/Cogwheel-Validator/soroswap-portal/models"
	"github.com/Cogwheel-Validator/soroswap-portal/portal/storage"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Str("component", "settings").Logger()
}

// SetLogger allows setting a custom logger
func SetLogger(l zerolog.Logger) {
	log = l
}

// Storage keys
const (
	SwapSettingsKey = "swap-settings"
	PoolSettingsKey = "pool-settings"
)

// Protocol is a liquidity source the router may use
type Protocol string

const (
	ProtocolSoroswap Protocol = "soroswap"
	ProtocolPhoenix  Protocol = "phoenix"
	ProtocolAqua     Protocol = "aqua"
	ProtocolSDEX     Protocol = "sdex"
)

// AllProtocols lists every known protocol
var AllProtocols = []Protocol{ProtocolSoroswap, ProtocolPhoenix, ProtocolAqua, ProtocolSDEX}

// DefaultMaxHops is the default route length limit
const DefaultMaxHops = 2

// SwapSettings are the trade parameters of the swap screen
type SwapSettings struct {
	Mode           SlippageMode `json:"slippageMode"`
	CustomSlippage string       `json:"customSlippage"`
	MaxHops        int          `json:"maxHops"`
	Protocols      []Protocol   `json:"protocols"`
}

// DefaultSwapSettings returns auto slippage, two hops and every protocol
func DefaultSwapSettings() SwapSettings {
	return SwapSettings{
		Mode:           SlippageAuto,
		CustomSlippage: AutoSlippage,
		MaxHops:        DefaultMaxHops,
		Protocols:      slices.Clone(AllProtocols),
	}
}

// Slippage returns the effective tolerance in percent
func (s SwapSettings) Slippage() decimal.Decimal {
	return parseSlippage(s.Mode, s.CustomSlippage)
}

// SlippageBps returns the effective tolerance in basis points
func (s SwapSettings) SlippageBps() uint32 {
	return uint32(s.Slippage().Mul(decimal.NewFromInt(100)).IntPart())
}

// Validate checks every field
func (s SwapSettings) Validate() error {
	if s.Mode != SlippageAuto && s.Mode != SlippageCustom {
		return models.NewError(models.KindValidation, fmt.Sprintf("unknown slippage mode %q", s.Mode))
	}
	if err := ValidateSlippageInput(s.CustomSlippage); err != nil {
		return err
	}
	if s.MaxHops < 1 {
		return models.NewError(models.KindValidation, "max hops must be at least 1")
	}
	if len(s.Protocols) == 0 {
		return models.NewError(models.KindValidation, "at least one protocol must be enabled")
	}
	for _, p := range s.Protocols {
		if !slices.Contains(AllProtocols, p) {
			return models.NewError(models.KindValidation, fmt.Sprintf("unknown protocol %q", p))
		}
	}
	return nil
}

// PoolSettings are the liquidity screen parameters
type PoolSettings struct {
	Mode           SlippageMode `json:"slippageMode"`
	CustomSlippage string       `json:"customSlippage"`
}

// DefaultPoolSettings returns auto slippage
func DefaultPoolSettings() PoolSettings {
	return PoolSettings{Mode: SlippageAuto, CustomSlippage: AutoSlippage}
}

// Slippage returns the effective tolerance in percent
func (s PoolSettings) Slippage() decimal.Decimal {
	return parseSlippage(s.Mode, s.CustomSlippage)
}

// Validate checks every field
func (s PoolSettings) Validate() error {
	if s.Mode != SlippageAuto && s.Mode != SlippageCustom {
		return models.NewError(models.KindValidation, fmt.Sprintf("unknown slippage mode %q", s.Mode))
	}
	return ValidateSlippageInput(s.CustomSlippage)
}

type validator interface {
	Validate() error
}

// manager stores one settings value of type T under key
type manager[T validator] struct {
	store    storage.Store
	key      string
	defaults func() T
	mu       sync.Mutex
}

func (m *manager[T]) load(ctx context.Context) T {
	raw, err := m.store.Get(ctx, m.key)
	if errors.Is(err, storage.ErrNotFound) {
		return m.defaults()
	}
	if err != nil {
		log.Error().Err(err).Str("key", m.key).Msg("Failed to read settings, using defaults")
		return m.defaults()
	}
	v := m.defaults()
	if err := json.Unmarshal(raw, &v); err != nil {
		log.Error().Err(err).Str("key", m.key).Msg("Failed to parse settings, using defaults")
		return m.defaults()
	}
	if err := v.Validate(); err != nil {
		log.Warn().Err(err).Str("key", m.key).Msg("Stored settings are invalid, using defaults")
		return m.defaults()
	}
	return v
}

func (m *manager[T]) save(ctx context.Context, v T) error {
	if err := v.Validate(); err != nil {
		return err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := m.store.Set(ctx, m.key, raw); err != nil {
		return fmt.Errorf("failed to store settings: %w", err)
	}
	return nil
}

// update applies fn to the current value and stores the result. Nothing
// is stored if the result is invalid.
func (m *manager[T]) update(ctx context.Context, fn func(*T)) (T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := m.load(ctx)
	fn(&v)
	if err := m.save(ctx, v); err != nil {
		return m.load(ctx), err
	}
	return v, nil
}

// SwapManager persists swap settings across sessions
type SwapManager struct {
	m *manager[SwapSettings]
}

// NewSwapManager stores swap settings in store, normally a durable one
func NewSwapManager(store storage.Store) *SwapManager {
	return &SwapManager{m: &manager[SwapSettings]{store: store, key: SwapSettingsKey, defaults: DefaultSwapSettings}}
}

// Get returns the stored settings, or the defaults
func (s *SwapManager) Get(ctx context.Context) SwapSettings {
	return s.m.load(ctx)
}

// Save replaces the stored settings
func (s *SwapManager) Save(ctx context.Context, v SwapSettings) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return s.m.save(ctx, v)
}

// Update modifies the stored settings in place
func (s *SwapManager) Update(ctx context.Context, fn func(*SwapSettings)) (SwapSettings, error) {
	return s.m.update(ctx, fn)
}

// SetCustomSlippage switches to custom mode with input as the tolerance.
// An invalid input leaves the stored settings untouched.
func (s *SwapManager) SetCustomSlippage(ctx context.Context, input string) (SwapSettings, error) {
	if err := ValidateSlippageInput(input); err != nil {
		return s.Get(ctx), err
	}
	return s.Update(ctx, func(v *SwapSettings) {
		v.Mode = SlippageCustom
		v.CustomSlippage = input
	})
}

// Reset restores the defaults
func (s *SwapManager) Reset(ctx context.Context) error {
	return s.Save(ctx, DefaultSwapSettings())
}

// Subscribe calls fn after every change
func (s *SwapManager) Subscribe(fn func()) func() {
	return s.m.store.Subscribe(SwapSettingsKey, fn)
}

// PoolManager keeps pool settings for the current session only
type PoolManager struct {
	m *manager[PoolSettings]
}

// NewPoolManager creates a manager backed by process memory
func NewPoolManager() *PoolManager {
	return &PoolManager{m: &manager[PoolSettings]{store: storage.NewMemoryStore(), key: PoolSettingsKey, defaults: DefaultPoolSettings}}
}

// Get returns the current settings
func (p *PoolManager) Get(ctx context.Context) PoolSettings {
	return p.m.load(ctx)
}

// SetCustomSlippage switches to custom mode with input as the tolerance
func (p *PoolManager) SetCustomSlippage(ctx context.Context, input string) (PoolSettings, error) {
	if err := ValidateSlippageInput(input); err != nil {
		return p.Get(ctx), err
	}
	return p.m.update(ctx, func(v *PoolSettings) {
		v.Mode = SlippageCustom
		v.CustomSlippage = input
	})
}

// SetAuto switches back to the automatic tolerance
func (p *PoolManager) SetAuto(ctx context.Context) (PoolSettings, error) {
	return p.m.update(ctx, func(v *PoolSettings) {
		v.Mode = SlippageAuto
	})
}
