package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eRom/health-sub001/internal/database"
	"github.com/eRom/health-sub001/internal/models"
)

// AssociationRepository defines the interface for patient-provider associations.
type AssociationRepository interface {
	Create(ctx context.Context, a *models.Association) error
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Association, error)
	// GetByTokenForUpdate locks the row for the rest of the transaction.
	GetByTokenForUpdate(ctx context.Context, token string) (*models.Association, error)
	GetByPairForUpdate(ctx context.Context, patientID, providerID uuid.UUID) (*models.Association, error)
	// GetAcceptedBetween finds an ACCEPTED association linking the two users in either role.
	GetAcceptedBetween(ctx context.Context, userA, userB uuid.UUID) (*models.Association, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.AssociationStatus, respondedAt *time.Time) error
	// Reopen moves a terminal association back to PENDING with a fresh token.
	Reopen(ctx context.Context, id uuid.UUID, token string, sentAt time.Time) error
	ListForPatient(ctx context.Context, patientID uuid.UUID) ([]*models.Association, error)
	ListForProvider(ctx context.Context, providerID uuid.UUID) ([]*models.Association, error)
	CountAccepted(ctx context.Context) (int64, error)
}

type associationRepo struct {
	pool *pgxpool.Pool
}

// NewAssociationRepository creates a new association repository.
func NewAssociationRepository(pool *pgxpool.Pool) AssociationRepository {
	return &associationRepo{pool: pool}
}

const associationColumns = `a.id, a.patient_id, a.provider_id, a.status, a.invitation_token,
	a.invitation_sent_at, a.responded_at, a.created_at, a.updated_at`

func scanAssociation(row pgx.Row, extra ...any) (*models.Association, error) {
	var a models.Association
	dest := []any{
		&a.ID,
		&a.PatientID,
		&a.ProviderID,
		&a.Status,
		&a.InvitationToken,
		&a.InvitationSentAt,
		&a.RespondedAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	}
	err := row.Scan(append(dest, extra...)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Create inserts a new PENDING association.
func (r *associationRepo) Create(ctx context.Context, a *models.Association) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Status == "" {
		a.Status = models.AssociationPending
	}
	err := database.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO patient_provider_associations (id, patient_id, provider_id, status, invitation_token, invitation_sent_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		a.ID, a.PatientID, a.ProviderID, a.Status, a.InvitationToken, a.InvitationSentAt,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// GetByIDForUpdate retrieves and locks an association by ID.
func (r *associationRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Association, error) {
	return scanAssociation(database.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+associationColumns+` FROM patient_provider_associations a WHERE a.id = $1 FOR UPDATE`, id))
}

// GetByTokenForUpdate retrieves and locks an association by invitation token.
func (r *associationRepo) GetByTokenForUpdate(ctx context.Context, token string) (*models.Association, error) {
	return scanAssociation(database.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+associationColumns+` FROM patient_provider_associations a
		WHERE a.invitation_token = $1 FOR UPDATE`, token))
}

// GetByPairForUpdate retrieves and locks the association of a patient and provider.
func (r *associationRepo) GetByPairForUpdate(ctx context.Context, patientID, providerID uuid.UUID) (*models.Association, error) {
	return scanAssociation(database.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+associationColumns+` FROM patient_provider_associations a
		WHERE a.patient_id = $1 AND a.provider_id = $2 FOR UPDATE`, patientID, providerID))
}

// GetAcceptedBetween finds the ACCEPTED association between two users.
func (r *associationRepo) GetAcceptedBetween(ctx context.Context, userA, userB uuid.UUID) (*models.Association, error) {
	return scanAssociation(database.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+associationColumns+` FROM patient_provider_associations a
		WHERE a.status = 'ACCEPTED'
		  AND ((a.patient_id = $1 AND a.provider_id = $2) OR (a.patient_id = $2 AND a.provider_id = $1))`,
		userA, userB))
}

// UpdateStatus sets a new status.
func (r *associationRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status models.AssociationStatus, respondedAt *time.Time) error {
	tag, err := database.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE patient_provider_associations
		SET status = $2, responded_at = COALESCE($3, responded_at), updated_at = NOW()
		WHERE id = $1`, id, status, respondedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Reopen resets a terminal association to PENDING.
func (r *associationRepo) Reopen(ctx context.Context, id uuid.UUID, token string, sentAt time.Time) error {
	tag, err := database.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE patient_provider_associations
		SET status = 'PENDING', invitation_token = $2, invitation_sent_at = $3, responded_at = NULL, updated_at = NOW()
		WHERE id = $1 AND status IN ('DECLINED', 'CANCELLED')`, id, token, sentAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *associationRepo) list(ctx context.Context, where string, id uuid.UUID, counterpartCol string) ([]*models.Association, error) {
	rows, err := database.Conn(ctx, r.pool).Query(ctx, `
		SELECT `+associationColumns+`, u.id, u.name, u.email
		FROM patient_provider_associations a
		JOIN users u ON u.id = a.`+counterpartCol+`
		WHERE `+where+` = $1
		ORDER BY a.updated_at DESC`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Association
	for rows.Next() {
		var counterpart models.UserSummary
		a, err := scanAssociation(rows, &counterpart.ID, &counterpart.Name, &counterpart.Email)
		if err != nil {
			return nil, err
		}
		if counterpartCol == "provider_id" {
			a.Provider = &counterpart
		} else {
			a.Patient = &counterpart
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListForPatient lists a patient's associations with provider details.
func (r *associationRepo) ListForPatient(ctx context.Context, patientID uuid.UUID) ([]*models.Association, error) {
	return r.list(ctx, "a.patient_id", patientID, "provider_id")
}

// ListForProvider lists a provider's associations with patient details.
func (r *associationRepo) ListForProvider(ctx context.Context, providerID uuid.UUID) ([]*models.Association, error) {
	return r.list(ctx, "a.provider_id", providerID, "patient_id")
}

// CountAccepted returns the number of active associations.
func (r *associationRepo) CountAccepted(ctx context.Context) (int64, error) {
	var n int64
	err := database.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT COUNT(*) FROM patient_provider_associations WHERE status = 'ACCEPTED'`).Scan(&n)
	return n, err
}

// Compile-time check
var _ AssociationRepository = (*associationRepo)(nil)
