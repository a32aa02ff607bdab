// Package postgres persists liveness records, notifications, and release
// events in PostgreSQL. Record writes carry the version read and fail with
// sentinel.ErrVersionMismatch when stale, mirroring the memory store.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"heirloom/internal/liveness/models"
	id "heirloom/pkg/domain"
	"heirloom/pkg/platform/sentinel"
	txcontext "heirloom/pkg/platform/tx"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// execer joins a transaction carried in the context, so a trigger's record
// write, release events, and audit outbox entry commit together.
func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *Store) Create(ctx context.Context, record *models.LivenessRecord) error {
	policy, err := json.Marshal(record.Policy)
	if err != nil {
		return fmt.Errorf("marshal policy: %w", err)
	}

	query := `
		INSERT INTO liveness_records
			(id, user_id, last_checkin_at, next_due_at, status, reminders_sent,
			 max_reminders, grace_period_days, is_active, policy, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 1, $11, $12)
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(record.ID), uuid.UUID(record.UserID),
		record.LastCheckinAt, record.NextDueAt,
		string(record.Status), record.RemindersSent,
		record.MaxReminders, record.GracePeriodDays,
		record.IsActive, policy,
		record.CreatedAt, record.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert liveness record: %w", err)
	}
	record.Version = 1
	return nil
}

func (s *Store) Get(ctx context.Context, userID id.UserID) (*models.LivenessRecord, error) {
	query := `
		SELECT id, user_id, last_checkin_at, next_due_at, status, reminders_sent,
		       max_reminders, grace_period_days, is_active, policy, version, created_at, updated_at
		FROM liveness_records
		WHERE user_id = $1
	`
	record, err := scanRecord(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(userID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get liveness record: %w", err)
	}
	return record, nil
}

// Update performs the optimistic write: the row changes only when the stored
// version still matches the one the caller read.
func (s *Store) Update(ctx context.Context, record *models.LivenessRecord) error {
	policy, err := json.Marshal(record.Policy)
	if err != nil {
		return fmt.Errorf("marshal policy: %w", err)
	}

	query := `
		UPDATE liveness_records
		SET last_checkin_at = $1, next_due_at = $2, status = $3, reminders_sent = $4,
		    is_active = $5, policy = $6, version = version + 1, updated_at = $7
		WHERE user_id = $8 AND version = $9
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		record.LastCheckinAt, record.NextDueAt,
		string(record.Status), record.RemindersSent,
		record.IsActive, policy, record.UpdatedAt,
		uuid.UUID(record.UserID), record.Version,
	)
	if err != nil {
		return fmt.Errorf("update liveness record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update liveness record: %w", err)
	}
	if affected == 0 {
		// Either the row is gone or another writer bumped the version.
		if _, err := s.Get(ctx, record.UserID); errors.Is(err, sentinel.ErrNotFound) {
			return sentinel.ErrNotFound
		}
		return sentinel.ErrVersionMismatch
	}
	record.Version++
	return nil
}

func (s *Store) ListActive(ctx context.Context) ([]*models.LivenessRecord, error) {
	query := `
		SELECT id, user_id, last_checkin_at, next_due_at, status, reminders_sent,
		       max_reminders, grace_period_days, is_active, policy, version, created_at, updated_at
		FROM liveness_records
		WHERE is_active = TRUE
		ORDER BY user_id
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list active records: %w", err)
	}
	defer rows.Close()

	var out []*models.LivenessRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan liveness record: %w", err)
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

func (s *Store) AppendNotification(ctx context.Context, n *models.NotificationRecord) error {
	query := `
		INSERT INTO notification_records
			(id, user_id, recipient_id, recipient_class, kind, sent_at,
			 requires_action, triggered_inheritance, privacy_respected, delivery_status, dedup_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(n.ID), uuid.UUID(n.UserID), uuid.UUID(n.RecipientID),
		string(n.RecipientClass), string(n.Kind), n.SentAt,
		n.RequiresAction, n.TriggeredInheritance, n.PrivacyRespected,
		string(n.DeliveryStatus), n.DedupKey,
	)
	if err != nil {
		return fmt.Errorf("insert notification record: %w", err)
	}
	return nil
}

func (s *Store) ListNotifications(ctx context.Context, userID id.UserID) ([]*models.NotificationRecord, error) {
	query := `
		SELECT id, user_id, recipient_id, recipient_class, kind, sent_at,
		       requires_action, triggered_inheritance, privacy_respected, delivery_status, dedup_key
		FROM notification_records
		WHERE user_id = $1
		ORDER BY sent_at DESC, id
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []*models.NotificationRecord
	for rows.Next() {
		var (
			n                          models.NotificationRecord
			nid, uid, rid              uuid.UUID
			class, kind, status        string
		)
		if err := rows.Scan(&nid, &uid, &rid, &class, &kind, &n.SentAt,
			&n.RequiresAction, &n.TriggeredInheritance, &n.PrivacyRespected,
			&status, &n.DedupKey); err != nil {
			return nil, fmt.Errorf("scan notification record: %w", err)
		}
		n.ID = id.NotificationID(nid)
		n.UserID = id.UserID(uid)
		n.RecipientID = id.ContactID(rid)
		n.RecipientClass = models.RecipientClass(class)
		n.Kind = models.NotificationKind(kind)
		n.DeliveryStatus = models.DeliveryStatus(status)
		out = append(out, &n)
	}
	return out, rows.Err()
}

func (s *Store) AppendReleaseEvent(ctx context.Context, e *models.InheritanceReleaseEvent) error {
	query := `
		INSERT INTO inheritance_release_events
			(id, user_id, asset_id, beneficiary_id, triggered_at, reason, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(e.ID), uuid.UUID(e.UserID), uuid.UUID(e.AssetID),
		uuid.UUID(e.BeneficiaryID), e.TriggeredAt, e.Reason, string(e.Status),
	)
	if err != nil {
		return fmt.Errorf("insert release event: %w", err)
	}
	return nil
}

func (s *Store) ListReleaseEvents(ctx context.Context, userID id.UserID) ([]*models.InheritanceReleaseEvent, error) {
	query := `
		SELECT id, user_id, asset_id, beneficiary_id, triggered_at, reason, status
		FROM inheritance_release_events
		WHERE user_id = $1
		ORDER BY triggered_at, id
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("list release events: %w", err)
	}
	defer rows.Close()

	var out []*models.InheritanceReleaseEvent
	for rows.Next() {
		var (
			e                  models.InheritanceReleaseEvent
			eid, uid, aid, bid uuid.UUID
			status             string
		)
		if err := rows.Scan(&eid, &uid, &aid, &bid, &e.TriggeredAt, &e.Reason, &status); err != nil {
			return nil, fmt.Errorf("scan release event: %w", err)
		}
		e.ID = id.ReleaseEventID(eid)
		e.UserID = id.UserID(uid)
		e.AssetID = id.AssetID(aid)
		e.BeneficiaryID = id.BeneficiaryID(bid)
		e.Status = models.ReleaseStatus(status)
		out = append(out, &e)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.LivenessRecord, error) {
	var (
		record      models.LivenessRecord
		rid, uid    uuid.UUID
		status      string
		policyBytes []byte
	)
	if err := row.Scan(&rid, &uid, &record.LastCheckinAt, &record.NextDueAt,
		&status, &record.RemindersSent, &record.MaxReminders, &record.GracePeriodDays,
		&record.IsActive, &policyBytes, &record.Version,
		&record.CreatedAt, &record.UpdatedAt); err != nil {
		return nil, err
	}
	record.ID = id.RecordID(rid)
	record.UserID = id.UserID(uid)
	record.Status = models.Status(status)
	if err := json.Unmarshal(policyBytes, &record.Policy); err != nil {
		return nil, fmt.Errorf("unmarshal policy: %w", err)
	}
	return &record, nil
}
