package detector

import (
	"fmt"
	"strings"

	"arbot/internal/config"
	"arbot/internal/marketstate"
	"arbot/internal/metrics"
	"arbot/internal/models"
	"arbot/pkg/utils"
	"github.com/shopspring/decimal"
)

// triLeg is one hop of a validated triangular cycle: which symbol, and
// which asset is being acquired by trading it (Base or Quote).
type triLeg struct {
	symbol     string
	base       string
	quote      string
	toBase     bool // true: spend quote, acquire base (a buy). false: spend base, acquire quote (a sell).
}

// triPath is one fully-validated three-leg cycle over a single exchange.
type triPath struct {
	legs       [3]triLeg
	startAsset string
}

// TriangularDetector evaluates configured three-symbol cycles against one
// exchange's top-of-book and emits a Signal when the net cycle return
// clears min_profit_pct.
//
// Resolved design decision (see DESIGN.md): a configured path's direction
// is never declared, only its three symbols. validatePath below derives
// the unique closed traversal through them at startup; a path that does
// not form a cycle over exactly three distinct assets is a fatal config
// error, since guessing a direction could silently buy/sell the wrong side.
type TriangularDetector struct {
	store     *marketstate.Store
	fees      *FeeCache
	exchanges []string
	paths     []triPath
	cfg       config.TriangularDetectorConfig
}

// NewTriangularDetector validates every configured path before returning.
func NewTriangularDetector(store *marketstate.Store, fees *FeeCache, exchanges []string, cfg config.TriangularDetectorConfig) (*TriangularDetector, error) {
	paths := make([]triPath, 0, len(cfg.Paths))
	for _, symbols := range cfg.Paths {
		p, err := validatePath(symbols)
		if err != nil {
			return nil, fmt.Errorf("detector: invalid triangular path %v: %w", symbols, err)
		}
		paths = append(paths, p)
	}
	return &TriangularDetector{store: store, fees: fees, exchanges: exchanges, paths: paths, cfg: cfg}, nil
}

func (d *TriangularDetector) Strategy() models.Strategy { return models.StrategyTriangular }

// validatePath checks that three symbols span exactly three distinct assets,
// each appearing in exactly two of the three symbols, and derives the
// unique closed traversal (the direction each hop must trade).
func validatePath(symbols []string) (triPath, error) {
	if len(symbols) != 3 {
		return triPath{}, fmt.Errorf("path must have exactly 3 symbols, got %d", len(symbols))
	}

	type parsed struct {
		symbol, base, quote string
	}
	legs := make([]parsed, 3)
	assetCount := make(map[string]int)
	for i, sym := range symbols {
		norm := utils.NormalizeSymbol(sym)
		base := utils.ExtractBaseCurrency(norm)
		quote := utils.ExtractQuoteCurrency(norm)
		if base == "" || quote == "" || base == quote {
			return triPath{}, fmt.Errorf("cannot parse base/quote from symbol %q", sym)
		}
		legs[i] = parsed{symbol: sym, base: base, quote: quote}
		assetCount[base]++
		assetCount[quote]++
	}
	if len(assetCount) != 3 {
		return triPath{}, fmt.Errorf("path must span exactly 3 distinct assets, got %d", len(assetCount))
	}
	for asset, count := range assetCount {
		if count != 2 {
			return triPath{}, fmt.Errorf("asset %s appears %d times, expected exactly 2 for a closed cycle", asset, count)
		}
	}

	// Traverse the cycle starting from legs[0]'s quote asset, following
	// whichever remaining symbol shares the current asset.
	start := legs[0].quote
	current := start
	remaining := []parsed{legs[0], legs[1], legs[2]}
	var ordered [3]triLeg

	for i := 0; i < 3; i++ {
		idx := -1
		for j, leg := range remaining {
			if leg.base == current || leg.quote == current {
				idx = j
				break
			}
		}
		if idx == -1 {
			return triPath{}, fmt.Errorf("path does not form a closed cycle through asset %s", current)
		}
		leg := remaining[idx]
		remaining = append(remaining[:idx], remaining[idx+1:]...)

		toBase := current == leg.quote
		var next string
		if toBase {
			next = leg.base
		} else {
			next = leg.quote
		}
		ordered[i] = triLeg{symbol: leg.symbol, base: leg.base, quote: leg.quote, toBase: toBase}
		current = next
	}

	if current != start {
		return triPath{}, fmt.Errorf("cycle does not return to starting asset %s (ended at %s)", start, current)
	}

	return triPath{legs: ordered, startAsset: start}, nil
}

// Detect evaluates every configured path against every configured exchange
// (triangular cycles trade all three legs on one venue).
func (d *TriangularDetector) Detect() []*models.Signal {
	if !d.cfg.Enabled {
		return nil
	}

	var signals []*models.Signal
	for _, exchange := range d.exchanges {
		for _, path := range d.paths {
			sig := d.evaluate(exchange, path)
			if sig != nil {
				signals = append(signals, sig)
			}
		}
	}
	return signals
}

func (d *TriangularDetector) evaluate(exchange string, path triPath) *models.Signal {
	cycleReturn := decimal.NewFromInt(1)
	legs := make([]models.SignalLeg, 0, 3)
	takerFee := d.fees.TakerFee(exchange)
	feeFactor := decimal.NewFromFloat(1 - takerFee)

	for _, leg := range path.legs {
		top, ok := d.store.TopOfBook(leg.symbol, exchange)
		if !ok || top.BestAsk.IsZero() || top.BestBid.IsZero() {
			return nil
		}

		var rate decimal.Decimal
		var side models.Side
		var price decimal.Decimal
		if leg.toBase {
			// Spend quote, acquire base: buy at ask.
			side = models.SideBuy
			price = top.BestAsk
			rate = decimal.NewFromInt(1).Div(top.BestAsk)
		} else {
			// Spend base, acquire quote: sell at bid.
			side = models.SideSell
			price = top.BestBid
			rate = top.BestBid
		}

		cycleReturn = cycleReturn.Mul(rate).Mul(feeFactor)
		legs = append(legs, models.SignalLeg{
			Exchange:    exchange,
			Symbol:      leg.symbol,
			Side:        side,
			TargetPrice: price,
			MaxQty:      decimal.Zero, // sized below once cycleReturn is known
		})
	}

	minReturn := decimal.NewFromFloat(1 + d.cfg.MinProfitPct/100)
	if cycleReturn.LessThan(minReturn) {
		return nil
	}

	profitPct := cycleReturn.Sub(decimal.NewFromInt(1)).Mul(decimal.NewFromInt(100))

	symbol := strings.Join([]string{path.legs[0].symbol, path.legs[1].symbol, path.legs[2].symbol}, "->")
	profitPctF, _ := profitPct.Float64()
	metrics.RecordOpportunity(string(models.StrategyTriangular), symbol, profitPctF)
	sig := models.NewSignal(models.StrategyTriangular, symbol, legs)
	sig.GrossSpreadPct = profitPct
	sig.NetSpreadPct = profitPct
	sig.Metadata["exchange"] = exchange
	sig.Metadata["start_asset"] = path.startAsset
	return sig
}
