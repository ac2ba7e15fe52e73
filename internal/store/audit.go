package store

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Audit target types.
const (
	AuditTargetUser    = "user"
	AuditTargetHostel  = "hostel"
	AuditTargetBooking = "booking"
	AuditTargetPayment = "payment"
)

// AuditEvent records who changed what. Detail is a short human summary; it
// never carries credentials or request bodies.
type AuditEvent struct {
	ID         int64
	RequestID  string
	ActorID    int64
	Action     string
	TargetType string
	TargetID   int64
	Detail     string
	CreatedAt  time.Time
}

type AuditEventInput struct {
	RequestID  string
	ActorID    int64
	Action     string
	TargetType string
	TargetID   int64
	Detail     string
}

const maxAuditDetail = 255

func (s *Store) InsertAuditEvent(ctx context.Context, in AuditEventInput) error {
	if strings.TrimSpace(in.Action) == "" || strings.TrimSpace(in.TargetType) == "" {
		return invalidf("audit action and target type are required")
	}
	detail := strings.TrimSpace(in.Detail)
	if len(detail) > maxAuditDetail {
		detail = detail[:maxAuditDetail]
	}
	_, err := s.db.ExecContext(ctx, s.q(`
INSERT INTO audit_events(request_id, actor_id, action, target_type, target_id, detail, created_at)
VALUES(?, ?, ?, ?, ?, ?, ?)`), in.RequestID, in.ActorID, in.Action, in.TargetType, in.TargetID, detail, s.now())
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListAuditEvents returns the newest events first; targetType "" lists all.
func (s *Store) ListAuditEvents(ctx context.Context, targetType string, limit, offset int) ([]AuditEvent, error) {
	limit, offset = clampPage(limit, offset)
	query := `SELECT id, request_id, actor_id, action, target_type, target_id, detail, created_at FROM audit_events`
	var args []any
	if targetType = strings.TrimSpace(targetType); targetType != "" {
		query += ` WHERE target_type=?`
		args = append(args, targetType)
	}
	query += ` ORDER BY id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var out []AuditEvent
	for rows.Next() {
		var e AuditEvent
		if err := rows.Scan(&e.ID, &e.RequestID, &e.ActorID, &e.Action, &e.TargetType, &e.TargetID, &e.Detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
