// Package marketstate holds the live order book and top-of-book view for
// every (exchange, symbol) pair the bot tracks.
//
// The shape is lifted from the teacher's PriceTracker/PriceShard in
// internal/bot/spread.go: shard by symbol so unrelated symbols never
// contend on the same mutex, and keep a symbol index so a book update
// only has to scan the exchanges quoting that symbol, not every exchange
// ever seen. What changes is the payload: the teacher tracked a single
// float64 bid/ask pair per exchange; a spot order book needs the full
// depth (for VWAP fills and depth-based entry conditions), so each slot
// holds a *models.OrderBook plus a derived TopOfBook.
//
// Contract: many readers, one writer per key. Writers (connectors) call
// Publish; readers (detectors, risk checks, API) call Snapshot or
// TopOfBook and get an immutable copy, never a pointer into live state.
package marketstate

import (
	"sync"
	"time"

	"arbot/internal/models"
)

const fnvOffset32 = uint32(2166136261)
const fnvPrime32 = uint32(16777619)

func fnvHash(s string) uint32 {
	h := fnvOffset32
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime32
	}
	return h
}

// Key identifies one exchange's order book for one symbol.
type Key struct {
	Symbol   string
	Exchange string
}

// Store is the sharded, concurrent-safe market state container.
type Store struct {
	shards    []*shard
	numShards uint32
}

type shard struct {
	mu sync.RWMutex

	books map[Key]*models.OrderBook
	tops  map[Key]models.TopOfBook

	// symbolIndex lets a reader enumerate every exchange quoting a symbol
	// without scanning the whole shard.
	symbolIndex map[string][]string // symbol -> exchanges

	// version is bumped on every Publish so TopOfBook.Version lets a
	// reader detect "nothing changed since I last looked" cheaply.
	version map[Key]uint64
}

// New creates a sharded store. numShards should roughly match the number
// of ingestion workers so shard contention stays negligible.
func New(numShards int) *Store {
	if numShards <= 0 {
		numShards = 16
	}
	s := &Store{
		shards:    make([]*shard, numShards),
		numShards: uint32(numShards),
	}
	for i := range s.shards {
		s.shards[i] = &shard{
			books:       make(map[Key]*models.OrderBook),
			tops:        make(map[Key]models.TopOfBook),
			symbolIndex: make(map[string][]string),
			version:     make(map[Key]uint64),
		}
	}
	return s
}

func (s *Store) shardFor(symbol string) *shard {
	return s.shards[fnvHash(symbol)%s.numShards]
}

// Publish stores a new order book snapshot for (ob.Exchange, ob.Symbol).
// Invalid books (crossed, empty side) are rejected rather than published,
// since a crossed book would poison every downstream spread calculation.
func (s *Store) Publish(ob *models.OrderBook) bool {
	if ob == nil || !ob.Valid() {
		return false
	}

	sh := s.shardFor(ob.Symbol)
	key := Key{Symbol: ob.Symbol, Exchange: ob.Exchange}

	sh.mu.Lock()
	defer sh.mu.Unlock()

	if _, exists := sh.books[key]; !exists {
		sh.symbolIndex[ob.Symbol] = append(sh.symbolIndex[ob.Symbol], ob.Exchange)
	}

	cp := *ob
	cp.Bids = append([]models.PriceLevel(nil), ob.Bids...)
	cp.Asks = append([]models.PriceLevel(nil), ob.Asks...)
	sh.books[key] = &cp

	v := sh.version[key] + 1
	sh.version[key] = v
	sh.tops[key] = models.TopOfBookFrom(&cp, v)

	return true
}

// Snapshot returns a deep copy of the current order book for (symbol,
// exchange), or nil if no book has been published yet.
func (s *Store) Snapshot(symbol, exchange string) *models.OrderBook {
	sh := s.shardFor(symbol)
	key := Key{Symbol: symbol, Exchange: exchange}

	sh.mu.RLock()
	defer sh.mu.RUnlock()

	ob, ok := sh.books[key]
	if !ok {
		return nil
	}
	cp := *ob
	cp.Bids = append([]models.PriceLevel(nil), ob.Bids...)
	cp.Asks = append([]models.PriceLevel(nil), ob.Asks...)
	return &cp
}

// TopOfBook returns the best bid/ask for (symbol, exchange), or the zero
// value and false if no book has been published yet.
func (s *Store) TopOfBook(symbol, exchange string) (models.TopOfBook, bool) {
	sh := s.shardFor(symbol)
	key := Key{Symbol: symbol, Exchange: exchange}

	sh.mu.RLock()
	defer sh.mu.RUnlock()

	top, ok := sh.tops[key]
	return top, ok
}

// ExchangesFor returns the exchanges currently quoting a symbol.
func (s *Store) ExchangesFor(symbol string) []string {
	sh := s.shardFor(symbol)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	out := make([]string, len(sh.symbolIndex[symbol]))
	copy(out, sh.symbolIndex[symbol])
	return out
}

// AllTopOfBook returns every currently published top-of-book for a symbol,
// keyed by exchange. Used by detectors to scan all venues in one call.
func (s *Store) AllTopOfBook(symbol string) map[string]models.TopOfBook {
	sh := s.shardFor(symbol)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	exchanges := sh.symbolIndex[symbol]
	out := make(map[string]models.TopOfBook, len(exchanges))
	for _, ex := range exchanges {
		key := Key{Symbol: symbol, Exchange: ex}
		if top, ok := sh.tops[key]; ok {
			out[ex] = top
		}
	}
	return out
}

// Fresh reports whether (symbol, exchange) has a top-of-book snapshot that
// satisfies the configured staleness thresholds.
func (s *Store) Fresh(symbol, exchange string, staleThreshold, maxLatency time.Duration) bool {
	top, ok := s.TopOfBook(symbol, exchange)
	if !ok {
		return false
	}
	return !top.Stale(time.Now(), staleThreshold, maxLatency)
}

// ShardIndex exposes which shard a symbol routes to, so callers that want
// per-shard worker affinity (e.g. one goroutine per shard feeding detectors)
// can route consistently with this store's own sharding.
func (s *Store) ShardIndex(symbol string) int {
	return int(fnvHash(symbol) % s.numShards)
}
