package analytics

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"blackbox-backend/internal/db"
)

const analyticsSchema = `
CREATE TABLE IF NOT EXISTS analytics_events (
	id               TEXT PRIMARY KEY,
	event_name       TEXT NOT NULL,
	event_time       BIGINT NOT NULL,
	session_id       TEXT,
	platform         TEXT NOT NULL,
	app_version      TEXT,
	device_locale    TEXT,
	source_event_key TEXT UNIQUE,
	properties       TEXT NOT NULL
)`

// SQLSink stores events in the analytics_events table.
type SQLSink struct {
	db *db.DB
}

func NewSQLSink(ctx context.Context, d *db.DB) (*SQLSink, error) {
	if _, err := d.ExecContext(ctx, analyticsSchema); err != nil {
		return nil, fmt.Errorf("create analytics_events: %w", err)
	}
	return &SQLSink{db: d}, nil
}

func (s *SQLSink) Record(ctx context.Context, e Event) error {
	b, err := json.Marshal(e.Properties)
	if err != nil {
		return fmt.Errorf("marshal properties: %w", err)
	}

	_, err = s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO analytics_events (
			id, event_name, event_time,
			session_id, platform, app_version, device_locale,
			source_event_key, properties
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (source_event_key) DO NOTHING
	`), e.ID, e.Name, e.Time.UnixMilli(),
		nullIfEmpty(e.SessionID), e.Platform, nullIfEmpty(e.AppVersion), nullIfEmpty(e.DeviceLocale),
		nullIfEmpty(e.SourceEventKey), string(b),
	)
	if err != nil {
		return fmt.Errorf("insert analytics event: %w", err)
	}
	return nil
}

func (s *SQLSink) Recent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, s.db.Rebind(`
		SELECT id, event_name, event_time,
			COALESCE(session_id, ''), platform, COALESCE(app_version, ''), COALESCE(device_locale, ''),
			COALESCE(source_event_key, ''), properties
		FROM analytics_events
		ORDER BY event_time DESC, id DESC
		LIMIT $1
	`), limit)
	if err != nil {
		return nil, fmt.Errorf("query analytics events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			e     Event
			ms    int64
			props string
		)
		if err := rows.Scan(&e.ID, &e.Name, &ms,
			&e.SessionID, &e.Platform, &e.AppVersion, &e.DeviceLocale,
			&e.SourceEventKey, &props); err != nil {
			return nil, fmt.Errorf("scan analytics event: %w", err)
		}
		e.Time = time.UnixMilli(ms).UTC()
		if err := json.Unmarshal([]byte(props), &e.Properties); err != nil {
			e.Properties = map[string]any{}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func nullIfEmpty(s string) sql.NullString {
	if strings.TrimSpace(s) == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}
