package repository

import (
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"arbot/internal/models"
)

// Ошибки репозитория уведомлений
var (
	ErrNotificationNotFound = errors.New("notification not found")
)

// NotificationRepository - работа с таблицей notifications
type NotificationRepository struct {
	db *sql.DB
}

// NewNotificationRepository создает новый экземпляр репозитория
func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

const notificationColumns = `id, timestamp, type, severity, pair_id, message, meta`

// Create создает новое уведомление
func (r *NotificationRepository) Create(notif *models.Notification) error {
	var metaJSON []byte
	if notif.Meta != nil {
		var err error
		metaJSON, err = json.Marshal(notif.Meta)
		if err != nil {
			return err
		}
	}

	query := `
		INSERT INTO notifications (timestamp, type, severity, pair_id, message, meta)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	if notif.Timestamp.IsZero() {
		notif.Timestamp = time.Now()
	}

	return r.db.QueryRow(
		query,
		notif.Timestamp,
		notif.Type,
		notif.Severity,
		notif.PairID,
		notif.Message,
		metaJSON,
	).Scan(&notif.ID)
}

func scanNotification(scan func(...any) error) (*models.Notification, error) {
	notif := &models.Notification{}
	var metaJSON []byte
	if err := scan(
		&notif.ID,
		&notif.Timestamp,
		&notif.Type,
		&notif.Severity,
		&notif.PairID,
		&notif.Message,
		&metaJSON,
	); err != nil {
		return nil, err
	}
	if len(metaJSON) > 0 {
		if err := json.Unmarshal(metaJSON, &notif.Meta); err != nil {
			return nil, err
		}
	}
	return notif, nil
}

// GetByID возвращает уведомление по ID
func (r *NotificationRepository) GetByID(id int) (*models.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = $1`

	notif, err := scanNotification(r.db.QueryRow(query, id).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotificationNotFound
		}
		return nil, err
	}
	return notif, nil
}

func (r *NotificationRepository) queryNotifications(query string, args ...any) ([]*models.Notification, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []*models.Notification
	for rows.Next() {
		notif, err := scanNotification(rows.Scan)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, notif)
	}
	return notifications, rows.Err()
}

// GetRecent возвращает последние N уведомлений
func (r *NotificationRepository) GetRecent(limit int) ([]*models.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications ORDER BY timestamp DESC LIMIT $1`
	return r.queryNotifications(query, limit)
}

// GetByTypes возвращает уведомления определенных типов
func (r *NotificationRepository) GetByTypes(types []string, limit int) ([]*models.Notification, error) {
	if len(types) == 0 {
		return r.GetRecent(limit)
	}

	placeholders := make([]string, len(types))
	args := make([]any, 0, len(types)+1)
	for i, t := range types {
		placeholders[i] = "$" + strconv.Itoa(i+1)
		args = append(args, t)
	}
	args = append(args, limit)

	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE type IN (` +
		strings.Join(placeholders, ", ") + `) ORDER BY timestamp DESC LIMIT $` + strconv.Itoa(len(types)+1)

	return r.queryNotifications(query, args...)
}

// GetByPairID возвращает уведомления по ID пары
func (r *NotificationRepository) GetByPairID(pairID, limit int) ([]*models.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE pair_id = $1 ORDER BY timestamp DESC LIMIT $2`
	return r.queryNotifications(query, pairID, limit)
}

// GetBySeverity возвращает уведомления по уровню важности
func (r *NotificationRepository) GetBySeverity(severity string, limit int) ([]*models.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE severity = $1 ORDER BY timestamp DESC LIMIT $2`
	return r.queryNotifications(query, severity, limit)
}

// GetInTimeRange возвращает уведомления за период времени
func (r *NotificationRepository) GetInTimeRange(from, to time.Time, limit int) ([]*models.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE timestamp >= $1 AND timestamp <= $2 ORDER BY timestamp DESC LIMIT $3`
	return r.queryNotifications(query, from, to, limit)
}

// DeleteAll удаляет все уведомления
func (r *NotificationRepository) DeleteAll() error {
	_, err := r.db.Exec(`DELETE FROM notifications`)
	return err
}

// DeleteOlderThan удаляет уведомления старше указанного времени
func (r *NotificationRepository) DeleteOlderThan(timestamp time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM notifications WHERE timestamp < $1`, timestamp)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// DeleteByPairID удаляет уведомления по ID пары
func (r *NotificationRepository) DeleteByPairID(pairID int) error {
	_, err := r.db.Exec(`DELETE FROM notifications WHERE pair_id = $1`, pairID)
	return err
}

// Count возвращает общее количество уведомлений
func (r *NotificationRepository) Count() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM notifications`).Scan(&count)
	return count, err
}

// CountByType возвращает количество уведомлений заданного типа
func (r *NotificationRepository) CountByType(notifType string) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM notifications WHERE type = $1`, notifType).Scan(&count)
	return count, err
}

// CountBySeverity возвращает количество уведомлений заданной важности
func (r *NotificationRepository) CountBySeverity(severity string) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM notifications WHERE severity = $1`, severity).Scan(&count)
	return count, err
}

// KeepRecent оставляет только N последних уведомлений, остальные удаляет
func (r *NotificationRepository) KeepRecent(keepCount int) (int64, error) {
	query := `
		DELETE FROM notifications
		WHERE id NOT IN (
			SELECT id FROM notifications ORDER BY timestamp DESC LIMIT $1
		)`
	result, err := r.db.Exec(query, keepCount)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
