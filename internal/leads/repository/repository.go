package repository

import (
	"context"
	"errors"
	"time"

	"artisan_dispatch_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const leadNotFoundMsg = "lead not found"

// MaxNotificationAttempts is the attempt ceiling per lead. Attempts saturate
// here; the retry sweep's filter then stops selecting the lead.
const MaxNotificationAttempts = 3

// Lead lifecycle statuses.
const (
	StatusPending   = "pending"
	StatusOffered   = "offered"
	StatusAccepted  = "accepted"
	StatusCompleted = "completed"
	StatusExpired   = "expired"
	StatusCancelled = "cancelled"
)

// Notification delivery statuses.
const (
	NotificationPending  = "pending"
	NotificationSent     = "sent"
	NotificationFailed   = "failed"
	NotificationRetrying = "retrying"
)

// Repository provides database operations for leads.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new leads repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Lead struct {
	ID                      uuid.UUID
	ProblemType             string
	Description             string
	PhotoKey                *string
	ClientPhone             string
	ClientEmail             *string
	City                    *string
	Address                 *string
	Urgent                  bool
	Geocoded                bool
	QualityScore            int
	QualityTier             string
	Status                  string
	NotificationStatus      string
	NotificationAttempts    int
	NotificationError       *string
	NotificationLastAttempt *time.Time
	Satisfaction            *int
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

const leadColumns = `
	id, problem_type, description, photo_key, client_phone, client_email,
	city, address, urgent, geocoded, quality_score, quality_tier, status,
	notification_status, notification_attempts, notification_error,
	notification_last_attempt, satisfaction, created_at, updated_at`

func scanLead(row pgx.Row) (Lead, error) {
	var l Lead
	err := row.Scan(
		&l.ID, &l.ProblemType, &l.Description, &l.PhotoKey, &l.ClientPhone,
		&l.ClientEmail, &l.City, &l.Address, &l.Urgent, &l.Geocoded,
		&l.QualityScore, &l.QualityTier, &l.Status, &l.NotificationStatus,
		&l.NotificationAttempts, &l.NotificationError, &l.NotificationLastAttempt,
		&l.Satisfaction, &l.CreatedAt, &l.UpdatedAt,
	)
	return l, err
}

func (r *Repository) Create(ctx context.Context, lead Lead) (Lead, error) {
	query := `
		INSERT INTO leads (
			id, problem_type, description, photo_key, client_phone, client_email,
			city, address, urgent, geocoded, quality_score, quality_tier, status,
			notification_status, notification_attempts, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, 0, now(), now()
		)
		RETURNING ` + leadColumns

	row := r.pool.QueryRow(ctx, query,
		lead.ID, lead.ProblemType, lead.Description, lead.PhotoKey,
		lead.ClientPhone, lead.ClientEmail, lead.City, lead.Address,
		lead.Urgent, lead.Geocoded, lead.QualityScore, lead.QualityTier,
		lead.Status, lead.NotificationStatus,
	)

	created, err := scanLead(row)
	if err != nil {
		return Lead{}, apperr.Downstream("failed to create lead", err)
	}
	return created, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE id = $1`

	lead, err := scanLead(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Lead{}, apperr.NotFound(leadNotFoundMsg)
		}
		return Lead{}, apperr.Downstream("failed to load lead", err)
	}
	return lead, nil
}

// ClaimFailedNotifications atomically flips up to limit failed leads below the
// attempt ceiling to "retrying" and returns them, oldest first. The claim is a
// conditional update: a row the sweep did not flip itself is never returned,
// so two concurrent invocations cannot both claim the same lead.
func (r *Repository) ClaimFailedNotifications(ctx context.Context, limit int) ([]Lead, error) {
	query := `
		UPDATE leads SET notification_status = $1, updated_at = now()
		WHERE id IN (
			SELECT id FROM leads
			WHERE notification_status = $2 AND notification_attempts < $3
			ORDER BY created_at ASC
			LIMIT $4
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + leadColumns

	rows, err := r.pool.Query(ctx, query, NotificationRetrying, NotificationFailed, MaxNotificationAttempts, limit)
	if err != nil {
		return nil, apperr.Downstream("failed to claim failed notifications", err)
	}
	defer rows.Close()

	var leads []Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, apperr.Downstream("failed to scan claimed lead", err)
		}
		leads = append(leads, lead)
	}
	if rows.Err() != nil {
		return nil, apperr.Downstream("failed to read claimed leads", rows.Err())
	}
	return leads, nil
}

// ReleaseNotificationClaim puts a claimed lead back in the failed pool
// without recording an attempt, so a sweep that claimed a lead it cannot
// process does not strand it in "retrying".
func (r *Repository) ReleaseNotificationClaim(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE leads SET notification_status = $1, updated_at = now()
		WHERE id = $2 AND notification_status = $3`

	_, err := r.pool.Exec(ctx, query, NotificationFailed, id, NotificationRetrying)
	if err != nil {
		return apperr.Downstream("failed to release notification claim", err)
	}
	return nil
}

// MarkNotificationSent records a successful dispatch: status sent, error
// cleared, attempt counter incremented, last-attempt time stamped. The
// counter saturates at the ceiling so late status callbacks cannot push
// it past the maximum.
func (r *Repository) MarkNotificationSent(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE leads SET
			notification_status = $1,
			notification_error = NULL,
			notification_attempts = LEAST(notification_attempts + 1, $2),
			notification_last_attempt = now(),
			updated_at = now()
		WHERE id = $3`

	tag, err := r.pool.Exec(ctx, query, NotificationSent, MaxNotificationAttempts, id)
	if err != nil {
		return apperr.Downstream("failed to mark notification sent", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(leadNotFoundMsg)
	}
	return nil
}

// MarkNotificationFailed records a failed dispatch: status back to failed,
// error recorded, attempt counter incremented (saturating at the ceiling),
// last-attempt time stamped.
func (r *Repository) MarkNotificationFailed(ctx context.Context, id uuid.UUID, reason string) error {
	query := `
		UPDATE leads SET
			notification_status = $1,
			notification_error = $2,
			notification_attempts = LEAST(notification_attempts + 1, $3),
			notification_last_attempt = now(),
			updated_at = now()
		WHERE id = $4`

	tag, err := r.pool.Exec(ctx, query, NotificationFailed, reason, MaxNotificationAttempts, id)
	if err != nil {
		return apperr.Downstream("failed to mark notification failed", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(leadNotFoundMsg)
	}
	return nil
}

// FindFollowUpCandidates returns accepted leads without satisfaction feedback
// whose updated_at falls inside [from, to), oldest first.
func (r *Repository) FindFollowUpCandidates(ctx context.Context, from, to time.Time, limit int) ([]Lead, error) {
	query := `
		SELECT ` + leadColumns + ` FROM leads
		WHERE status = $1 AND satisfaction IS NULL
		  AND updated_at >= $2 AND updated_at < $3
		ORDER BY updated_at ASC
		LIMIT $4`

	rows, err := r.pool.Query(ctx, query, StatusAccepted, from, to, limit)
	if err != nil {
		return nil, apperr.Downstream("failed to find follow-up candidates", err)
	}
	defer rows.Close()

	var leads []Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, apperr.Downstream("failed to scan follow-up candidate", err)
		}
		leads = append(leads, lead)
	}
	if rows.Err() != nil {
		return nil, apperr.Downstream("failed to read follow-up candidates", rows.Err())
	}
	return leads, nil
}

// HasFeedback reports whether a follow-up feedback record already exists for
// the lead. This is the idempotence guard against duplicate triggering.
func (r *Repository) HasFeedback(ctx context.Context, leadID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM lead_feedback WHERE lead_id = $1)`, leadID,
	).Scan(&exists)
	if err != nil {
		return false, apperr.Downstream("failed to check lead feedback", err)
	}
	return exists, nil
}

// RecordFeedback inserts the feedback record marking the follow-up as triggered.
func (r *Repository) RecordFeedback(ctx context.Context, leadID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO lead_feedback (id, lead_id, triggered_at) VALUES ($1, $2, now())
		 ON CONFLICT (lead_id) DO NOTHING`,
		uuid.New(), leadID,
	)
	if err != nil {
		return apperr.Downstream("failed to record lead feedback", err)
	}
	return nil
}

// FindPendingForRescore returns pending leads for the score recalculation
// sweep, oldest first.
func (r *Repository) FindPendingForRescore(ctx context.Context, limit int) ([]Lead, error) {
	query := `
		SELECT ` + leadColumns + ` FROM leads
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, StatusPending, limit)
	if err != nil {
		return nil, apperr.Downstream("failed to find leads for rescore", err)
	}
	defer rows.Close()

	var leads []Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, apperr.Downstream("failed to scan lead for rescore", err)
		}
		leads = append(leads, lead)
	}
	if rows.Err() != nil {
		return nil, apperr.Downstream("failed to read leads for rescore", rows.Err())
	}
	return leads, nil
}

// UpdateScore writes a recomputed score and tier.
func (r *Repository) UpdateScore(ctx context.Context, id uuid.UUID, score int, tier string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE leads SET quality_score = $1, quality_tier = $2, updated_at = now() WHERE id = $3`,
		score, tier, id,
	)
	if err != nil {
		return apperr.Downstream("failed to update lead score", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(leadNotFoundMsg)
	}
	return nil
}
