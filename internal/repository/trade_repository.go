package repository

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"arbot/internal/models"
	"github.com/shopspring/decimal"
)

// Ошибки репозитория сделок
var (
	ErrTradeNotFound = errors.New("trade not found")
)

// TradeRepository persists models.TradeRecord — one row per reconciled
// signal execution, orders folded in as a JSON array (teacher's
// OrderRepository persisted one row per order against a futures position;
// a spot signal's legs settle together, so the record-of-execution is the
// TradeRecord, with its Orders slice along for the ride).
type TradeRepository struct {
	db *sql.DB
}

// NewTradeRepository создает новый экземпляр репозитория
func NewTradeRepository(db *sql.DB) *TradeRepository {
	return &TradeRepository{db: db}
}

// Create persists a TradeRecord, assigning it a database ID.
func (r *TradeRepository) Create(record *models.TradeRecord) (int, error) {
	ordersJSON, err := json.Marshal(record.Orders)
	if err != nil {
		return 0, err
	}

	query := `
		INSERT INTO trade_records (signal_id, outcome, orders, realized_pnl, total_fees, is_loss, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	var id int
	err = r.db.QueryRow(
		query,
		record.SignalID,
		record.Outcome,
		ordersJSON,
		record.RealizedPnl.String(),
		record.TotalFees.String(),
		record.IsLoss,
		record.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func scanTradeRecord(scan func(...any) error) (*models.TradeRecord, error) {
	record := &models.TradeRecord{}
	var ordersJSON []byte
	var realizedPnl, totalFees string

	if err := scan(&record.SignalID, &record.Outcome, &ordersJSON, &realizedPnl, &totalFees, &record.IsLoss, &record.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(ordersJSON, &record.Orders); err != nil {
		return nil, err
	}

	pnl, err := decimal.NewFromString(realizedPnl)
	if err != nil {
		return nil, err
	}
	fees, err := decimal.NewFromString(totalFees)
	if err != nil {
		return nil, err
	}
	record.RealizedPnl = pnl
	record.TotalFees = fees
	return record, nil
}

// GetBySignalID returns the TradeRecord for a given signal, if one exists.
func (r *TradeRepository) GetBySignalID(signalID string) (*models.TradeRecord, error) {
	query := `
		SELECT signal_id, outcome, orders, realized_pnl, total_fees, is_loss, created_at
		FROM trade_records
		WHERE signal_id = $1`

	row := r.db.QueryRow(query, signalID)
	record, err := scanTradeRecord(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTradeNotFound
		}
		return nil, err
	}
	return record, nil
}

// GetRecent returns the most recently created trade records, newest first.
func (r *TradeRepository) GetRecent(limit int) ([]*models.TradeRecord, error) {
	query := `
		SELECT signal_id, outcome, orders, realized_pnl, total_fees, is_loss, created_at
		FROM trade_records
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.TradeRecord
	for rows.Next() {
		record, err := scanTradeRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// GetByOutcome returns trade records matching a specific reconciliation outcome.
func (r *TradeRepository) GetByOutcome(outcome models.TradeOutcome, limit int) ([]*models.TradeRecord, error) {
	query := `
		SELECT signal_id, outcome, orders, realized_pnl, total_fees, is_loss, created_at
		FROM trade_records
		WHERE outcome = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.db.Query(query, outcome, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.TradeRecord
	for rows.Next() {
		record, err := scanTradeRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// GetInTimeRange returns trade records created within [from, to].
func (r *TradeRepository) GetInTimeRange(from, to time.Time) ([]*models.TradeRecord, error) {
	query := `
		SELECT signal_id, outcome, orders, realized_pnl, total_fees, is_loss, created_at
		FROM trade_records
		WHERE created_at >= $1 AND created_at <= $2
		ORDER BY created_at DESC`

	rows, err := r.db.Query(query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.TradeRecord
	for rows.Next() {
		record, err := scanTradeRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// DeleteOlderThan удаляет записи старше указанной даты.
func (r *TradeRepository) DeleteOlderThan(timestamp time.Time) (int64, error) {
	query := `DELETE FROM trade_records WHERE created_at < $1`

	result, err := r.db.Exec(query, timestamp)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Count возвращает общее количество записей.
func (r *TradeRepository) Count() (int, error) {
	query := `SELECT COUNT(*) FROM trade_records`

	var count int
	if err := r.db.QueryRow(query).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// CountByOutcome возвращает количество записей с определенным исходом.
func (r *TradeRepository) CountByOutcome(outcome models.TradeOutcome) (int, error) {
	query := `SELECT COUNT(*) FROM trade_records WHERE outcome = $1`

	var count int
	if err := r.db.QueryRow(query, outcome).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
