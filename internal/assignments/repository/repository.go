package repository

import (
	"context"
	"errors"
	"time"

	leadrepo "artisan_dispatch_backend/internal/leads/repository"
	"artisan_dispatch_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const assignmentNotFoundMsg = "assignment not found"

// GracePeriod is the window after acceptance during which the owning artisan
// may cancel with automatic refund.
const GracePeriod = 30 * time.Minute

// OfferWindow is the deadline stamped on an assignment once the workflow
// engine confirms delivery. It runs from the confirmation, not from
// assignment creation.
const OfferWindow = 2 * time.Minute

// Notification channels.
const (
	ChannelWhatsApp = "whatsapp"
	ChannelSMS      = "sms"
	ChannelEmail    = "email"
)

// Cancel outcome reasons.
const (
	ReasonNotFound         = "not_found"
	ReasonNotOwner         = "not_owner"
	ReasonGraceExpired     = "grace_expired"
	ReasonAlreadyCancelled = "already_cancelled"
)

// Repository provides database operations for assignments and the artisan
// credit movements tied to them. Every lifecycle mutation runs as a single
// transaction so a crash can never leave a debit without an assignment or a
// cancel without a refund.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new assignments repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Assignment struct {
	ID                     uuid.UUID
	LeadID                 uuid.UUID
	ArtisanID              uuid.UUID
	CreditCost             int
	NotificationChannel    string
	NotificationExternalID *string
	AcceptedAt             *time.Time
	CancelledAt            *time.Time
	ExpiredAt              *time.Time
	ExpiresAt              *time.Time
	CreatedAt              time.Time
}

// OfferDetails carries everything the notification preparers need to build
// a channel payload, loaded in one query.
type OfferDetails struct {
	Assignment   Assignment
	Lead         leadrepo.Lead
	ArtisanName  string
	ArtisanPhone string
	ArtisanEmail *string
}

// CancelOutcome is the structured result of the atomic cancel procedure.
type CancelOutcome struct {
	Cancelled       bool
	Reason          string
	LeadID          uuid.UUID
	RefundedCredits int
}

const assignmentColumns = `
	id, lead_id, artisan_id, credit_cost, notification_channel,
	notification_external_id, accepted_at, cancelled_at, expired_at,
	expires_at, created_at`

func scanAssignment(row pgx.Row) (Assignment, error) {
	var a Assignment
	err := row.Scan(
		&a.ID, &a.LeadID, &a.ArtisanID, &a.CreditCost, &a.NotificationChannel,
		&a.NotificationExternalID, &a.AcceptedAt, &a.CancelledAt, &a.ExpiredAt,
		&a.ExpiresAt, &a.CreatedAt,
	)
	return a, err
}

// Offer creates an assignment for a pending lead, debits the artisan's
// credits and marks the lead offered, all in one transaction.
func (r *Repository) Offer(ctx context.Context, leadID, artisanID uuid.UUID, channel string, creditCost int) (Assignment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Assignment{}, apperr.Downstream("failed to begin offer transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx,
		`UPDATE artisans SET credits = credits - $1 WHERE id = $2 AND credits >= $1`,
		creditCost, artisanID,
	)
	if err != nil {
		return Assignment{}, apperr.Downstream("failed to debit artisan credits", err)
	}
	if tag.RowsAffected() == 0 {
		return Assignment{}, apperr.Conflict("artisan has insufficient credits")
	}

	tag, err = tx.Exec(ctx,
		`UPDATE leads SET status = $1, notification_status = $2, updated_at = now()
		 WHERE id = $3 AND status = $4`,
		leadrepo.StatusOffered, leadrepo.NotificationPending, leadID, leadrepo.StatusPending,
	)
	if err != nil {
		return Assignment{}, apperr.Downstream("failed to mark lead offered", err)
	}
	if tag.RowsAffected() == 0 {
		return Assignment{}, apperr.Conflict("lead is not available for assignment")
	}

	row := tx.QueryRow(ctx,
		`INSERT INTO assignments (id, lead_id, artisan_id, credit_cost, notification_channel, created_at)
		 VALUES ($1, $2, $3, $4, $5, now())
		 RETURNING `+assignmentColumns,
		uuid.New(), leadID, artisanID, creditCost, channel,
	)
	assignment, err := scanAssignment(row)
	if err != nil {
		return Assignment{}, apperr.Downstream("failed to create assignment", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Assignment{}, apperr.Downstream("failed to commit offer", err)
	}
	return assignment, nil
}

// Accept stamps the acceptance on a live assignment and moves the lead to
// accepted. Only the owning artisan can accept, and only while the offer
// window (when stamped) has not lapsed.
func (r *Repository) Accept(ctx context.Context, assignmentID, artisanID uuid.UUID) (Assignment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Assignment{}, apperr.Downstream("failed to begin accept transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx,
		`UPDATE assignments SET accepted_at = now()
		 WHERE id = $1 AND artisan_id = $2
		   AND accepted_at IS NULL AND cancelled_at IS NULL AND expired_at IS NULL
		   AND (expires_at IS NULL OR expires_at > now())
		 RETURNING `+assignmentColumns,
		assignmentID, artisanID,
	)
	assignment, err := scanAssignment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Assignment{}, apperr.Conflict("assignment can no longer be accepted")
		}
		return Assignment{}, apperr.Downstream("failed to accept assignment", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE leads SET status = $1, updated_at = now() WHERE id = $2`,
		leadrepo.StatusAccepted, assignment.LeadID,
	); err != nil {
		return Assignment{}, apperr.Downstream("failed to mark lead accepted", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Assignment{}, apperr.Downstream("failed to commit accept", err)
	}
	return assignment, nil
}

// Cancel executes the atomic cancel-with-refund procedure. The assignment row
// is locked, classified, and on success the assignment is voided, the lead
// reverts to pending and the debited credits are refunded, all in one
// transaction. The outcome reason is authoritative; the caller only supplies
// the two identifiers.
func (r *Repository) Cancel(ctx context.Context, assignmentID, artisanID uuid.UUID) (CancelOutcome, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return CancelOutcome{}, apperr.Downstream("failed to begin cancel transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	assignment, err := scanAssignment(tx.QueryRow(ctx,
		`SELECT `+assignmentColumns+` FROM assignments WHERE id = $1 FOR UPDATE`,
		assignmentID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return CancelOutcome{Reason: ReasonNotFound}, nil
		}
		return CancelOutcome{}, apperr.Downstream("failed to load assignment", err)
	}

	// The grace window is measured on the database clock, like every other
	// timestamp on the row, so classification is immune to app clock skew.
	var dbNow time.Time
	if err := tx.QueryRow(ctx, `SELECT now()`).Scan(&dbNow); err != nil {
		return CancelOutcome{}, apperr.Downstream("failed to read database time", err)
	}

	switch {
	case assignment.ArtisanID != artisanID:
		return CancelOutcome{Reason: ReasonNotOwner}, nil
	case assignment.CancelledAt != nil:
		return CancelOutcome{Reason: ReasonAlreadyCancelled}, nil
	case assignment.ExpiredAt != nil:
		return CancelOutcome{Reason: ReasonAlreadyCancelled}, nil
	case graceExpired(assignment.AcceptedAt, dbNow):
		return CancelOutcome{Reason: ReasonGraceExpired}, nil
	}

	if _, err := tx.Exec(ctx,
		`UPDATE assignments SET cancelled_at = now() WHERE id = $1`, assignmentID,
	); err != nil {
		return CancelOutcome{}, apperr.Downstream("failed to void assignment", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE leads SET status = $1, updated_at = now() WHERE id = $2`,
		leadrepo.StatusPending, assignment.LeadID,
	); err != nil {
		return CancelOutcome{}, apperr.Downstream("failed to revert lead", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE artisans SET credits = credits + $1 WHERE id = $2`,
		assignment.CreditCost, artisanID,
	); err != nil {
		return CancelOutcome{}, apperr.Downstream("failed to refund credits", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return CancelOutcome{}, apperr.Downstream("failed to commit cancel", err)
	}

	return CancelOutcome{
		Cancelled:       true,
		LeadID:          assignment.LeadID,
		RefundedCredits: assignment.CreditCost,
	}, nil
}

// graceExpired reports whether an accepted assignment is past the cancel
// grace window at the given instant. Unaccepted assignments never expire
// the grace, and the boundary itself is still inside the window.
func graceExpired(acceptedAt *time.Time, now time.Time) bool {
	return acceptedAt != nil && now.Sub(*acceptedAt) > GracePeriod
}

// ConfirmNotification stamps the offer deadline and the delivery provider's
// external id once the workflow engine confirms delivery, and marks the lead's
// notification sent. The deadline runs from this confirmation.
func (r *Repository) ConfirmNotification(ctx context.Context, assignmentID uuid.UUID, externalID string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return apperr.Downstream("failed to begin confirmation transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var leadID uuid.UUID
	err = tx.QueryRow(ctx,
		`UPDATE assignments SET notification_external_id = $1, expires_at = now() + make_interval(secs => $2)
		 WHERE id = $3
		 RETURNING lead_id`,
		externalID, OfferWindow.Seconds(), assignmentID,
	).Scan(&leadID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound(assignmentNotFoundMsg)
		}
		return apperr.Downstream("failed to confirm notification", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE leads SET notification_status = $1, notification_error = NULL, updated_at = now()
		 WHERE id = $2`,
		leadrepo.NotificationSent, leadID,
	); err != nil {
		return apperr.Downstream("failed to mark lead notification sent", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return apperr.Downstream("failed to commit confirmation", err)
	}
	return nil
}

// FailNotification records a delivery failure reported by the workflow engine
// on the assignment's lead, making it eligible for the retry sweep.
func (r *Repository) FailNotification(ctx context.Context, assignmentID uuid.UUID, reason string) error {
	var leadID uuid.UUID
	err := r.pool.QueryRow(ctx,
		`SELECT lead_id FROM assignments WHERE id = $1`, assignmentID,
	).Scan(&leadID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound(assignmentNotFoundMsg)
		}
		return apperr.Downstream("failed to load assignment", err)
	}

	_, err = r.pool.Exec(ctx,
		`UPDATE leads SET
			notification_status = $1,
			notification_error = $2,
			notification_attempts = LEAST(notification_attempts + 1, $3),
			notification_last_attempt = now(),
			updated_at = now()
		 WHERE id = $4`,
		leadrepo.NotificationFailed, reason, leadrepo.MaxNotificationAttempts, leadID,
	)
	if err != nil {
		return apperr.Downstream("failed to record notification failure", err)
	}
	return nil
}

// ExpireStale voids assignments whose offer deadline has passed without
// acceptance: the assignment is marked expired, the lead reverts to pending
// and the debited credits are refunded. Returns the number of assignments
// expired.
func (r *Repository) ExpireStale(ctx context.Context, limit int) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, apperr.Downstream("failed to begin expiry transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx,
		`UPDATE assignments SET expired_at = now()
		 WHERE id IN (
			SELECT id FROM assignments
			WHERE expires_at IS NOT NULL AND expires_at < now()
			  AND accepted_at IS NULL AND cancelled_at IS NULL AND expired_at IS NULL
			ORDER BY expires_at ASC
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		 )
		 RETURNING lead_id, artisan_id, credit_cost`,
		limit,
	)
	if err != nil {
		return 0, apperr.Downstream("failed to expire assignments", err)
	}

	type expired struct {
		leadID     uuid.UUID
		artisanID  uuid.UUID
		creditCost int
	}
	var batch []expired
	for rows.Next() {
		var e expired
		if err := rows.Scan(&e.leadID, &e.artisanID, &e.creditCost); err != nil {
			rows.Close()
			return 0, apperr.Downstream("failed to scan expired assignment", err)
		}
		batch = append(batch, e)
	}
	rows.Close()
	if rows.Err() != nil {
		return 0, apperr.Downstream("failed to read expired assignments", rows.Err())
	}

	for _, e := range batch {
		if _, err := tx.Exec(ctx,
			`UPDATE leads SET status = $1, updated_at = now() WHERE id = $2 AND status = $3`,
			leadrepo.StatusPending, e.leadID, leadrepo.StatusOffered,
		); err != nil {
			return 0, apperr.Downstream("failed to revert lead on expiry", err)
		}
		if _, err := tx.Exec(ctx,
			`UPDATE artisans SET credits = credits + $1 WHERE id = $2`,
			e.creditCost, e.artisanID,
		); err != nil {
			return 0, apperr.Downstream("failed to refund credits on expiry", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, apperr.Downstream("failed to commit expiry", err)
	}
	return len(batch), nil
}

// GetOfferDetails loads the assignment with its lead and artisan contact
// details for the notification preparers.
func (r *Repository) GetOfferDetails(ctx context.Context, assignmentID uuid.UUID) (OfferDetails, error) {
	query := `
		SELECT
			a.id, a.lead_id, a.artisan_id, a.credit_cost, a.notification_channel,
			a.notification_external_id, a.accepted_at, a.cancelled_at, a.expired_at,
			a.expires_at, a.created_at,
			l.problem_type, l.description, l.photo_key, l.client_phone, l.client_email,
			l.city, l.address, l.urgent, l.quality_score, l.quality_tier,
			ar.name, ar.phone, ar.email
		FROM assignments a
		JOIN leads l ON l.id = a.lead_id
		JOIN artisans ar ON ar.id = a.artisan_id
		WHERE a.id = $1`

	var d OfferDetails
	err := r.pool.QueryRow(ctx, query, assignmentID).Scan(
		&d.Assignment.ID, &d.Assignment.LeadID, &d.Assignment.ArtisanID,
		&d.Assignment.CreditCost, &d.Assignment.NotificationChannel,
		&d.Assignment.NotificationExternalID, &d.Assignment.AcceptedAt,
		&d.Assignment.CancelledAt, &d.Assignment.ExpiredAt,
		&d.Assignment.ExpiresAt, &d.Assignment.CreatedAt,
		&d.Lead.ProblemType, &d.Lead.Description, &d.Lead.PhotoKey,
		&d.Lead.ClientPhone, &d.Lead.ClientEmail, &d.Lead.City, &d.Lead.Address,
		&d.Lead.Urgent, &d.Lead.QualityScore, &d.Lead.QualityTier,
		&d.ArtisanName, &d.ArtisanPhone, &d.ArtisanEmail,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return OfferDetails{}, apperr.NotFound(assignmentNotFoundMsg)
		}
		return OfferDetails{}, apperr.Downstream("failed to load offer details", err)
	}

	d.Lead.ID = d.Assignment.LeadID
	return d, nil
}
