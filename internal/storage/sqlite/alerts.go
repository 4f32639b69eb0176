package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/iris-assistant/backend/internal/storage/models"
	"github.com/iris-assistant/backend/pkg/logger"
)

func (c *Client) InsertAlert(ctx context.Context, alert *models.Alert) error {
	var expiresAt sql.NullInt64
	if alert.ExpiresAt != nil {
		expiresAt = sql.NullInt64{Int64: alert.ExpiresAt.UnixMilli(), Valid: true}
	}

	_, err := c.db.ExecContext(ctx, `
		INSERT INTO alerts (id, type, title, description, lat, lng, address, upvotes, downvotes, created_at, expires_at, reported_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		alert.ID,
		string(alert.Type),
		alert.Title,
		alert.Description,
		alert.Location.Lat,
		alert.Location.Lng,
		alert.Location.Address,
		alert.Upvotes,
		alert.Downvotes,
		alert.CreatedAt.UnixMilli(),
		expiresAt,
		alert.ReportedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}

	logger.Debug("Alert inserted", zap.String("alert_id", alert.ID), zap.String("type", string(alert.Type)))
	return nil
}

func (c *Client) CountAlerts(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM alerts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count alerts: %w", err)
	}
	return n, nil
}

const alertColumns = `id, type, title, description, lat, lng, address, upvotes, downvotes, created_at, expires_at, reported_by`

func (c *Client) GetAlert(ctx context.Context, id string) (*models.Alert, error) {
	alert, err := scanAlert(c.db.QueryRowContext(ctx, `SELECT `+alertColumns+` FROM alerts WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrAlertNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}
	return alert, nil
}

// ListAlerts returns every stored alert, newest first.
func (c *Client) ListAlerts(ctx context.Context) ([]models.Alert, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT `+alertColumns+` FROM alerts ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	alerts := []models.Alert{}
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, *alert)
	}
	return alerts, rows.Err()
}

func (c *Client) VoteAlert(ctx context.Context, id string, up bool) (*models.Alert, error) {
	column := "downvotes"
	if up {
		column = "upvotes"
	}

	res, err := c.db.ExecContext(ctx, `UPDATE alerts SET `+column+` = `+column+` + 1 WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to vote alert: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, models.ErrAlertNotFound
	}

	return c.GetAlert(ctx, id)
}

// DeleteExpiredAlerts removes alerts whose expiry is at or before the given
// instant. Alerts without an expiry are kept.
func (c *Client) DeleteExpiredAlerts(ctx context.Context, before time.Time) (int64, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM alerts WHERE expires_at IS NOT NULL AND expires_at <= ?`, before.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired alerts: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func scanAlert(row scanner) (*models.Alert, error) {
	var alert models.Alert
	var alertType string
	var address sql.NullString
	var createdAt int64
	var expiresAt sql.NullInt64

	err := row.Scan(
		&alert.ID,
		&alertType,
		&alert.Title,
		&alert.Description,
		&alert.Location.Lat,
		&alert.Location.Lng,
		&address,
		&alert.Upvotes,
		&alert.Downvotes,
		&createdAt,
		&expiresAt,
		&alert.ReportedBy,
	)
	if err != nil {
		return nil, err
	}

	alert.Type = models.AlertType(alertType)
	alert.Location.Address = address.String
	alert.CreatedAt = time.UnixMilli(createdAt)
	if expiresAt.Valid {
		t := time.UnixMilli(expiresAt.Int64)
		alert.ExpiresAt = &t
	}
	return &alert, nil
}
