package utils

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Sentinel validation errors.
var (
	ErrInvalidSymbol     = errors.New("invalid symbol")
	ErrInvalidSpread     = errors.New("invalid spread")
	ErrInvalidVolume     = errors.New("invalid volume")
	ErrInvalidNOrders    = errors.New("invalid n_orders")
	ErrInvalidStopLoss   = errors.New("invalid stop loss")
	ErrInvalidLeverage   = errors.New("invalid leverage")
	ErrInvalidPercentage = errors.New("invalid percentage")
	ErrInvalidEmail      = errors.New("invalid email")
	ErrInvalidAPIKey     = errors.New("invalid api key")
	ErrInvalidAPISecret  = errors.New("invalid api secret")
	ErrInvalidPassphrase = errors.New("invalid api passphrase")
	ErrInvalidExchange   = errors.New("invalid exchange")
)

// SupportedExchanges lists the exchange names this build can connect to.
var SupportedExchanges = []string{"bybit", "bitget", "okx", "gate", "htx", "bingx"}

var symbolPattern = regexp.MustCompile(`^[A-Za-z0-9_/-]+$`)

// ValidateSymbol checks that a symbol is a plausible trading pair identifier.
func ValidateSymbol(symbol string) error {
	if len(symbol) < 2 || len(symbol) > 20 {
		return fmt.Errorf("%w: length must be 2-20, got %d", ErrInvalidSymbol, len(symbol))
	}
	if !symbolPattern.MatchString(symbol) {
		return fmt.Errorf("%w: %q contains disallowed characters", ErrInvalidSymbol, symbol)
	}
	return nil
}

// IsValidSymbol reports whether ValidateSymbol would succeed.
func IsValidSymbol(symbol string) bool { return ValidateSymbol(symbol) == nil }

// NormalizeSymbol uppercases a symbol and strips separator characters.
func NormalizeSymbol(symbol string) string {
	s := strings.ToUpper(symbol)
	s = strings.ReplaceAll(s, "-", "")
	s = strings.ReplaceAll(s, "_", "")
	s = strings.ReplaceAll(s, "/", "")
	return s
}

var knownQuotes = []string{"USDT", "USDC", "BTC", "ETH"}

// ExtractBaseCurrency returns the base asset of a BASE+QUOTE symbol.
func ExtractBaseCurrency(symbol string) string {
	norm := NormalizeSymbol(symbol)
	for _, q := range knownQuotes {
		if strings.HasSuffix(norm, q) && len(norm) > len(q) {
			return norm[:len(norm)-len(q)]
		}
	}
	return norm
}

// ExtractQuoteCurrency returns the quote asset of a BASE+QUOTE symbol.
func ExtractQuoteCurrency(symbol string) string {
	norm := NormalizeSymbol(symbol)
	for _, q := range knownQuotes {
		if strings.HasSuffix(norm, q) && len(norm) > len(q) {
			return q
		}
	}
	return ""
}

// ValidateSpread checks a spread percentage is in (0, 100].
func ValidateSpread(spread float64) error {
	if spread <= 0 || spread > 100 {
		return fmt.Errorf("%w: %v must be in (0, 100]", ErrInvalidSpread, spread)
	}
	return nil
}

// ValidateVolume checks a trade volume is in (0, 1e9).
func ValidateVolume(volume float64) error {
	if volume <= 0 || volume >= 1e9 {
		return fmt.Errorf("%w: %v must be in (0, 1e9)", ErrInvalidVolume, volume)
	}
	return nil
}

// ValidateNOrders checks an order-split count is in [1, 100].
func ValidateNOrders(n int) error {
	if n < 1 || n > 100 {
		return fmt.Errorf("%w: %d must be in [1, 100]", ErrInvalidNOrders, n)
	}
	return nil
}

// ValidateStopLoss checks a stop-loss percentage is in (0, 100].
func ValidateStopLoss(sl float64) error {
	if sl <= 0 || sl > 100 {
		return fmt.Errorf("%w: %v must be in (0, 100]", ErrInvalidStopLoss, sl)
	}
	return nil
}

// ValidateLeverage checks a leverage multiplier is in [1, 100].
func ValidateLeverage(leverage int) error {
	if leverage < 1 || leverage > 100 {
		return fmt.Errorf("%w: %d must be in [1, 100]", ErrInvalidLeverage, leverage)
	}
	return nil
}

// ValidatePercentage checks a value is in [0, 100].
func ValidatePercentage(pct float64) error {
	if pct < 0 || pct > 100 {
		return fmt.Errorf("%w: %v must be in [0, 100]", ErrInvalidPercentage, pct)
	}
	return nil
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ValidateEmail checks a basic email shape.
func ValidateEmail(email string) error {
	if email == "" || !emailPattern.MatchString(email) || strings.Count(email, "@") != 1 {
		return fmt.Errorf("%w: %q", ErrInvalidEmail, email)
	}
	return nil
}

// IsValidEmail reports whether ValidateEmail would succeed.
func IsValidEmail(email string) bool { return ValidateEmail(email) == nil }

var apiKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidateAPIKey checks an API key is at least 16 chars of the allowed alphabet.
func ValidateAPIKey(key string) error {
	if len(key) < 16 || !apiKeyPattern.MatchString(key) {
		return fmt.Errorf("%w: must be >=16 chars of [A-Za-z0-9_-]", ErrInvalidAPIKey)
	}
	return nil
}

// IsValidAPIKey reports whether ValidateAPIKey would succeed.
func IsValidAPIKey(key string) bool { return ValidateAPIKey(key) == nil }

// ValidateAPISecret checks an API secret is at least 16 characters.
func ValidateAPISecret(secret string) error {
	if len(secret) < 16 {
		return fmt.Errorf("%w: must be >=16 chars", ErrInvalidAPISecret)
	}
	return nil
}

// ValidateAPIPassphrase checks an optional passphrase (e.g. OKX) is not too long.
func ValidateAPIPassphrase(passphrase string) error {
	if len(passphrase) > 64 {
		return fmt.Errorf("%w: must be <=64 chars", ErrInvalidPassphrase)
	}
	return nil
}

// ValidateExchange checks name is one of SupportedExchanges (case-insensitive).
func ValidateExchange(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty", ErrInvalidExchange)
	}
	norm := NormalizeExchange(name)
	for _, e := range SupportedExchanges {
		if e == norm {
			return nil
		}
	}
	return fmt.Errorf("%w: %q is not supported", ErrInvalidExchange, name)
}

// IsValidExchange reports whether ValidateExchange would succeed.
func IsValidExchange(name string) bool { return ValidateExchange(name) == nil }

// NormalizeExchange lowercases and trims an exchange name.
func NormalizeExchange(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// GetSupportedExchanges returns a copy of SupportedExchanges.
func GetSupportedExchanges() []string {
	out := make([]string, len(SupportedExchanges))
	copy(out, SupportedExchanges)
	return out
}

// PairConfigValidation is the input shape validated by ValidatePairConfig.
type PairConfigValidation struct {
	Symbol      string
	EntrySpread float64
	ExitSpread  float64
	Volume      float64
	NOrders     int
	StopLoss    float64
	ExchangeA   string
	ExchangeB   string
}

// ValidatePairConfig runs all field-level validators plus the cross-field
// invariants (distinct exchanges, entry spread above exit spread).
func ValidatePairConfig(cfg PairConfigValidation) error {
	var errs ValidationErrors

	errs.AddError("symbol", ValidateSymbol(cfg.Symbol))
	errs.AddError("entry_spread", ValidateSpread(cfg.EntrySpread))
	errs.AddError("exit_spread", ValidateSpread(cfg.ExitSpread))
	errs.AddError("volume", ValidateVolume(cfg.Volume))
	errs.AddError("n_orders", ValidateNOrders(cfg.NOrders))

	if cfg.StopLoss != 0 {
		errs.AddError("stop_loss", ValidateStopLoss(cfg.StopLoss))
	}
	if cfg.ExchangeA != "" {
		errs.AddError("exchange_a", ValidateExchange(cfg.ExchangeA))
	}
	if cfg.ExchangeB != "" {
		errs.AddError("exchange_b", ValidateExchange(cfg.ExchangeB))
	}
	if cfg.ExchangeA != "" && cfg.ExchangeB != "" && NormalizeExchange(cfg.ExchangeA) == NormalizeExchange(cfg.ExchangeB) {
		errs.Add("exchanges", "exchange_a and exchange_b must differ")
	}
	if cfg.EntrySpread != 0 && cfg.ExitSpread != 0 && cfg.EntrySpread < cfg.ExitSpread {
		errs.Add("spread", "entry_spread must be >= exit_spread")
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// ValidationErrors accumulates field-level validation failures.
type ValidationErrors []string

// Add appends a field/message pair.
func (e *ValidationErrors) Add(field, message string) {
	*e = append(*e, fmt.Sprintf("%s: %s", field, message))
}

// AddError appends err's message under field, ignoring nil errors.
func (e *ValidationErrors) AddError(field string, err error) {
	if err == nil {
		return
	}
	e.Add(field, err.Error())
}

// HasErrors reports whether any errors were accumulated.
func (e ValidationErrors) HasErrors() bool { return len(e) > 0 }

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	return strings.Join(e, "; ")
}
