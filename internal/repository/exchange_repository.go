package repository

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"arbot/internal/models"
)

// Ошибки репозитория бирж
var (
	ErrExchangeNotFound = errors.New("exchange not found")
	ErrExchangeExists   = errors.New("exchange already exists")
)

// ExchangeRepository - работа с таблицей exchanges
type ExchangeRepository struct {
	db *sql.DB
}

// NewExchangeRepository создает новый экземпляр репозитория
func NewExchangeRepository(db *sql.DB) *ExchangeRepository {
	return &ExchangeRepository{db: db}
}

const exchangeColumns = `id, name, api_key, secret_key, passphrase, connected, balance, last_error, updated_at, created_at`

// Create создает новый аккаунт биржи
func (r *ExchangeRepository) Create(account *models.ExchangeAccount) error {
	query := `
		INSERT INTO exchanges (name, api_key, secret_key, passphrase, connected, balance, last_error, updated_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`

	now := time.Now()
	account.UpdatedAt = now
	account.CreatedAt = now

	err := r.db.QueryRow(
		query,
		account.Name,
		account.APIKey,
		account.SecretKey,
		account.Passphrase,
		account.Connected,
		account.Balance,
		account.LastError,
		account.UpdatedAt,
		account.CreatedAt,
	).Scan(&account.ID)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrExchangeExists
		}
		return err
	}

	return nil
}

func scanExchangeAccount(scan func(...any) error) (*models.ExchangeAccount, error) {
	account := &models.ExchangeAccount{}
	if err := scan(
		&account.ID,
		&account.Name,
		&account.APIKey,
		&account.SecretKey,
		&account.Passphrase,
		&account.Connected,
		&account.Balance,
		&account.LastError,
		&account.UpdatedAt,
		&account.CreatedAt,
	); err != nil {
		return nil, err
	}
	return account, nil
}

// GetByID возвращает аккаунт биржи по ID
func (r *ExchangeRepository) GetByID(id int) (*models.ExchangeAccount, error) {
	query := `SELECT ` + exchangeColumns + ` FROM exchanges WHERE id = $1`

	account, err := scanExchangeAccount(r.db.QueryRow(query, id).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrExchangeNotFound
		}
		return nil, err
	}
	return account, nil
}

// GetByName возвращает аккаунт биржи по имени
func (r *ExchangeRepository) GetByName(name string) (*models.ExchangeAccount, error) {
	query := `SELECT ` + exchangeColumns + ` FROM exchanges WHERE name = $1`

	account, err := scanExchangeAccount(r.db.QueryRow(query, strings.ToLower(name)).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrExchangeNotFound
		}
		return nil, err
	}
	return account, nil
}

// GetAll возвращает все аккаунты бирж
func (r *ExchangeRepository) GetAll() ([]*models.ExchangeAccount, error) {
	query := `SELECT ` + exchangeColumns + ` FROM exchanges ORDER BY name`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*models.ExchangeAccount
	for rows.Next() {
		account, err := scanExchangeAccount(rows.Scan)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return accounts, nil
}

// GetConnected возвращает только подключенные биржи
func (r *ExchangeRepository) GetConnected() ([]*models.ExchangeAccount, error) {
	query := `SELECT ` + exchangeColumns + ` FROM exchanges WHERE connected = true ORDER BY name`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*models.ExchangeAccount
	for rows.Next() {
		account, err := scanExchangeAccount(rows.Scan)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return accounts, nil
}

// Update обновляет аккаунт биржи
func (r *ExchangeRepository) Update(account *models.ExchangeAccount) error {
	query := `
		UPDATE exchanges
		SET api_key = $1, secret_key = $2, passphrase = $3, connected = $4, balance = $5, last_error = $6, updated_at = $7
		WHERE id = $8`

	account.UpdatedAt = time.Now()

	result, err := r.db.Exec(
		query,
		account.APIKey,
		account.SecretKey,
		account.Passphrase,
		account.Connected,
		account.Balance,
		account.LastError,
		account.UpdatedAt,
		account.ID,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrExchangeNotFound
	}
	return nil
}

// UpdateBalance обновляет баланс биржи
func (r *ExchangeRepository) UpdateBalance(id int, balance float64) error {
	query := `UPDATE exchanges SET balance = $1, updated_at = $2 WHERE id = $3`

	result, err := r.db.Exec(query, balance, time.Now(), id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrExchangeNotFound
	}
	return nil
}

// SetLastError записывает последнюю ошибку биржи (пустая строка очищает)
func (r *ExchangeRepository) SetLastError(id int, message string) error {
	query := `UPDATE exchanges SET last_error = $1, updated_at = $2 WHERE id = $3`

	result, err := r.db.Exec(query, message, time.Now(), id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrExchangeNotFound
	}
	return nil
}

// Delete удаляет аккаунт биржи
func (r *ExchangeRepository) Delete(id int) error {
	query := `DELETE FROM exchanges WHERE id = $1`

	result, err := r.db.Exec(query, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrExchangeNotFound
	}
	return nil
}

// DeleteByName удаляет аккаунт биржи по имени
func (r *ExchangeRepository) DeleteByName(name string) error {
	query := `DELETE FROM exchanges WHERE name = $1`

	result, err := r.db.Exec(query, strings.ToLower(name))
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrExchangeNotFound
	}
	return nil
}

// UpdateBalanceByName обновляет баланс биржи по имени
func (r *ExchangeRepository) UpdateBalanceByName(name string, balance float64) error {
	query := `UPDATE exchanges SET balance = $1, updated_at = $2 WHERE name = $3`

	result, err := r.db.Exec(query, balance, time.Now(), strings.ToLower(name))
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrExchangeNotFound
	}
	return nil
}

// SetConnected обновляет статус подключения биржи
func (r *ExchangeRepository) SetConnected(id int, connected bool) error {
	query := `UPDATE exchanges SET connected = $1, updated_at = $2 WHERE id = $3`

	result, err := r.db.Exec(query, connected, time.Now(), id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrExchangeNotFound
	}
	return nil
}

// CountConnected возвращает количество подключенных бирж
func (r *ExchangeRepository) CountConnected() (int, error) {
	query := `SELECT COUNT(*) FROM exchanges WHERE connected = true`

	var count int
	if err := r.db.QueryRow(query).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "duplicate key") || strings.Contains(errStr, "23505")
}
