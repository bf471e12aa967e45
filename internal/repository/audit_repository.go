package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"caseportal/internal/models"
)

// AuditRepository only inserts and reads; audit rows are never changed.
type AuditRepository struct {
	db *sql.DB
}

func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Insert(ctx context.Context, entry models.AuditLogEntry) error {
	const query = `
		INSERT INTO audit_logs (
			id, actor_id, action, table_name, record_id, old_values, new_values, ip_address, user_agent, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)
	`

	oldValues, err := marshalValues(entry.OldValues)
	if err != nil {
		return err
	}
	newValues, err := marshalValues(entry.NewValues)
	if err != nil {
		return err
	}

	if _, err := r.db.ExecContext(ctx, query,
		entry.ID,
		entry.ActorID,
		entry.Action,
		entry.TableName,
		entry.RecordID,
		oldValues,
		newValues,
		entry.IPAddress,
		entry.UserAgent,
		entry.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// ListBetween returns entries with from <= created_at < to, oldest first.
func (r *AuditRepository) ListBetween(ctx context.Context, from, to time.Time) ([]models.AuditLogEntry, error) {
	const query = `
		SELECT id, actor_id, action, table_name, record_id, old_values, new_values, ip_address, user_agent, created_at
		FROM audit_logs
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at, id
	`

	rows, err := r.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []models.AuditLogEntry
	for rows.Next() {
		var (
			entry                models.AuditLogEntry
			actorID, ip, agent   sql.NullString
			oldValues, newValues []byte
		)
		if err := rows.Scan(
			&entry.ID,
			&actorID,
			&entry.Action,
			&entry.TableName,
			&entry.RecordID,
			&oldValues,
			&newValues,
			&ip,
			&agent,
			&entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entry.ActorID = nullableString(actorID)
		entry.IPAddress = nullableString(ip)
		entry.UserAgent = nullableString(agent)
		if entry.OldValues, err = unmarshalValues(oldValues); err != nil {
			return nil, err
		}
		if entry.NewValues, err = unmarshalValues(newValues); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// marshalValues yields an untyped nil for a nil map so the column stays NULL.
func marshalValues(values map[string]any) (any, error) {
	if values == nil {
		return nil, nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("marshal audit values: %w", err)
	}
	return data, nil
}

func unmarshalValues(data []byte) (map[string]any, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var values map[string]any
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("unmarshal audit values: %w", err)
	}
	return values, nil
}

func nullableString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}
