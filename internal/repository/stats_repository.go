package repository

import (
	"database/sql"
	"time"

	"arbot/internal/models"
)

// StatsRepository aggregates statistics from the trades table.
type StatsRepository struct {
	db *sql.DB
}

// NewStatsRepository creates a new instance of the repository.
func NewStatsRepository(db *sql.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// Trade is one persisted completed arbitrage trade.
type Trade struct {
	ID             int       `json:"id" db:"id"`
	PairID         int       `json:"pair_id" db:"pair_id"`
	Symbol         string    `json:"symbol" db:"symbol"`
	Exchanges      string    `json:"exchanges" db:"exchanges"` // "exchangeA,exchangeB"
	EntryTime      time.Time `json:"entry_time" db:"entry_time"`
	ExitTime       time.Time `json:"exit_time" db:"exit_time"`
	PNL            float64   `json:"pnl" db:"pnl"`
	WasStopLoss    bool      `json:"was_stop_loss" db:"was_stop_loss"`
	WasLiquidation bool      `json:"was_liquidation" db:"was_liquidation"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

const tradeColumns = `id, pair_id, symbol, exchanges, entry_time, exit_time, pnl, was_stop_loss, was_liquidation, created_at`

func scanTrade(scan func(...any) error) (*Trade, error) {
	t := &Trade{}
	if err := scan(
		&t.ID,
		&t.PairID,
		&t.Symbol,
		&t.Exchanges,
		&t.EntryTime,
		&t.ExitTime,
		&t.PNL,
		&t.WasStopLoss,
		&t.WasLiquidation,
		&t.CreatedAt,
	); err != nil {
		return nil, err
	}
	return t, nil
}

// RecordTrade inserts a completed trade into the trades table.
func (r *StatsRepository) RecordTrade(pairID int, symbol string, exchanges [2]string, entryTime, exitTime time.Time, pnl float64, wasStopLoss, wasLiquidation bool) error {
	query := `
		INSERT INTO trades (pair_id, symbol, exchanges, entry_time, exit_time, pnl, was_stop_loss, was_liquidation, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.Exec(query, pairID, symbol, exchanges[0]+","+exchanges[1], entryTime, exitTime, pnl, wasStopLoss, wasLiquidation, time.Now())
	return err
}

func (r *StatsRepository) queryTrades(query string, args ...any) ([]*Trade, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []*Trade
	for rows.Next() {
		t, err := scanTrade(rows.Scan)
		if err != nil {
			return nil, err
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// GetTradesByPairID returns the most recent trades for a pair.
func (r *StatsRepository) GetTradesByPairID(pairID, limit int) ([]*Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades WHERE pair_id = $1 ORDER BY exit_time DESC LIMIT $2`
	return r.queryTrades(query, pairID, limit)
}

// GetTradesInTimeRange returns trades that exited within [from, to].
func (r *StatsRepository) GetTradesInTimeRange(from, to time.Time, limit int) ([]*Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades WHERE exit_time >= $1 AND exit_time <= $2 ORDER BY exit_time DESC LIMIT $3`
	return r.queryTrades(query, from, to, limit)
}

// Count returns the total number of recorded trades.
func (r *StatsRepository) Count() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM trades`).Scan(&count)
	return count, err
}

// GetPNLBySymbol returns the summed PNL for a symbol across all trades.
func (r *StatsRepository) GetPNLBySymbol(symbol string) (float64, error) {
	var pnl float64
	err := r.db.QueryRow(`SELECT COALESCE(SUM(pnl), 0) FROM trades WHERE symbol = $1`, symbol).Scan(&pnl)
	return pnl, err
}

// getTradesStats returns the count and total PNL of trades exiting within
// [from, to]; a zero from/to means all time.
func (r *StatsRepository) getTradesStats(from, to time.Time) (int, float64, error) {
	var count int
	var pnl float64
	if from.IsZero() && to.IsZero() {
		err := r.db.QueryRow(`SELECT COUNT(*), COALESCE(SUM(pnl), 0) FROM trades`).Scan(&count, &pnl)
		return count, pnl, err
	}
	query := `SELECT COUNT(*), COALESCE(SUM(pnl), 0) FROM trades WHERE exit_time >= $1 AND exit_time <= $2`
	err := r.db.QueryRow(query, from, to).Scan(&count, &pnl)
	return count, pnl, err
}

// GetStats aggregates today/week/month/all-time trade counts and PNL, plus
// the top-5 pairs by trade count, profit, and loss.
func (r *StatsRepository) GetStats() (*models.Stats, error) {
	now := time.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	weekStart := dayStart.AddDate(0, 0, -int(now.Weekday()))
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	totalTrades, totalPnl, err := r.getTradesStats(time.Time{}, time.Time{})
	if err != nil {
		return nil, err
	}
	todayTrades, todayPnl, err := r.getTradesStats(dayStart, now)
	if err != nil {
		return nil, err
	}
	weekTrades, weekPnl, err := r.getTradesStats(weekStart, now)
	if err != nil {
		return nil, err
	}
	monthTrades, monthPnl, err := r.getTradesStats(monthStart, now)
	if err != nil {
		return nil, err
	}

	topByTrades, err := r.GetTopPairsByTrades(5)
	if err != nil {
		return nil, err
	}
	topByProfit, err := r.GetTopPairsByProfit(5)
	if err != nil {
		return nil, err
	}
	topByLoss, err := r.GetTopPairsByLoss(5)
	if err != nil {
		return nil, err
	}

	return &models.Stats{
		TotalTrades:      totalTrades,
		TotalPnl:         totalPnl,
		TodayTrades:      todayTrades,
		TodayPnl:         todayPnl,
		WeekTrades:       weekTrades,
		WeekPnl:          weekPnl,
		MonthTrades:      monthTrades,
		MonthPnl:         monthPnl,
		TopPairsByTrades: topByTrades,
		TopPairsByProfit: topByProfit,
		TopPairsByLoss:   topByLoss,
	}, nil
}

// GetTopPairsByTrades returns the symbols with the most trades.
func (r *StatsRepository) GetTopPairsByTrades(limit int) ([]models.PairStat, error) {
	query := `SELECT symbol, COUNT(*) as trade_count FROM trades GROUP BY symbol ORDER BY trade_count DESC LIMIT $1`
	return r.queryPairStats(query, limit)
}

// GetTopPairsByProfit returns the symbols with the largest positive PNL.
func (r *StatsRepository) GetTopPairsByProfit(limit int) ([]models.PairStat, error) {
	query := `SELECT symbol, SUM(pnl) as total_pnl FROM trades GROUP BY symbol HAVING SUM(pnl) > 0 ORDER BY total_pnl DESC LIMIT $1`
	return r.queryPairStats(query, limit)
}

// GetTopPairsByLoss returns the symbols with the largest negative PNL.
func (r *StatsRepository) GetTopPairsByLoss(limit int) ([]models.PairStat, error) {
	query := `SELECT symbol, SUM(pnl) as total_pnl FROM trades GROUP BY symbol HAVING SUM(pnl) < 0 ORDER BY total_pnl ASC LIMIT $1`
	return r.queryPairStats(query, limit)
}

func (r *StatsRepository) queryPairStats(query string, limit int) ([]models.PairStat, error) {
	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.PairStat
	for rows.Next() {
		var stat models.PairStat
		if err := rows.Scan(&stat.Symbol, &stat.Value); err != nil {
			return nil, err
		}
		result = append(result, stat)
	}
	return result, rows.Err()
}

// ResetCounters deletes all trade records.
func (r *StatsRepository) ResetCounters() error {
	_, err := r.db.Exec(`DELETE FROM trades`)
	return err
}

// DeleteOlderThan deletes trades that exited before the given time.
func (r *StatsRepository) DeleteOlderThan(olderThan time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM trades WHERE exit_time < $1`, olderThan)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
