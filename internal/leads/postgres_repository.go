package leads

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/wolfman30/leadradar/internal/database"
	"github.com/wolfman30/leadradar/internal/forms"
)

// PostgresRepository writes leads to the relational database.
type PostgresRepository struct {
	pool database.PgxPool
}

// NewPostgresRepository initializes a repo backed by a pgx pool.
func NewPostgresRepository(pool database.PgxPool) *PostgresRepository {
	if pool == nil {
		panic("leads: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

// Create inserts the lead and its values in one transaction. The form row is
// share-locked so it cannot be archived between validation and commit.
func (r *PostgresRepository) Create(ctx context.Context, in *NewLead) (*Lead, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("leads: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var status string
	if err := tx.QueryRow(ctx, `SELECT status FROM forms WHERE id = $1 FOR SHARE`, in.FormID).Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, forms.ErrFormNotFound
		}
		return nil, fmt.Errorf("leads: lock form: %w", err)
	}
	if !forms.Status(status).AcceptsLeads() {
		return nil, ErrFormArchived
	}

	lead := &Lead{
		FormID:           in.FormID,
		EventID:          in.EventID,
		CapturedByUserID: in.CapturedByUserID,
		Values:           make([]*Value, 0, len(in.Values)),
	}
	query := `
		INSERT INTO leads (form_id, event_id, captured_by_user_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, (SELECT name FROM events WHERE id = $2)
	`
	var eventName *string
	if err := tx.QueryRow(ctx, query, in.FormID, in.EventID, in.CapturedByUserID).Scan(&lead.ID, &lead.CreatedAt, &eventName); err != nil {
		return nil, translateWriteError(err)
	}
	if in.EventID != nil && eventName != nil {
		lead.Event = &EventRef{ID: *in.EventID, Name: *eventName}
	}

	valueQuery := `
		INSERT INTO lead_values (lead_id, field_id, field_key, field_label, value)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	for _, v := range in.Values {
		stored := *v
		stored.LeadID = lead.ID
		if err := tx.QueryRow(ctx, valueQuery, lead.ID, v.FieldID, v.FieldKey, v.FieldLabel, v.Value).Scan(&stored.ID); err != nil {
			return nil, translateWriteError(err)
		}
		lead.Values = append(lead.Values, &stored)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("leads: commit: %w", err)
	}
	return lead, nil
}

func translateWriteError(err error) error {
	if database.IsForeignKeyViolation(err) {
		switch database.ConstraintName(err) {
		case "leads_event_id_fkey":
			return ErrInvalidReference.WithMessage("The referenced event does not exist")
		case "leads_captured_by_user_id_fkey":
			return ErrInvalidReference.WithMessage("The referenced user does not exist")
		case "lead_values_field_id_fkey":
			return ErrUnknownFieldKey.WithMessage("A field of this form was removed while the lead was submitted")
		}
		return ErrInvalidReference.Wrap(err)
	}
	return fmt.Errorf("leads: insert failed: %w", err)
}
