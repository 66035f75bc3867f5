package forms

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wolfman30/leadradar/internal/database"
)

var formsTracer = otel.Tracer("leadradar/forms")

const fieldKeyConstraint = "form_fields_form_id_key_key"

const formColumns = `id, name, description, status, created_at, updated_at`

const fieldColumns = `id, form_id, key, label, type, required, options, position`

// PostgresRepository stores forms and fields in Postgres.
type PostgresRepository struct {
	pool database.PgxPool
}

// NewPostgresRepository initializes a repo backed by a pgx pool.
func NewPostgresRepository(pool database.PgxPool) *PostgresRepository {
	if pool == nil {
		panic("forms: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

// Create inserts a new form.
func (r *PostgresRepository) Create(ctx context.Context, req *CreateFormRequest) (*Form, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO forms (name, description, status)
		VALUES ($1, $2, $3)
		RETURNING ` + formColumns
	form, err := scanForm(r.pool.QueryRow(ctx, query, req.Name, req.Description, req.Status))
	if err != nil {
		return nil, fmt.Errorf("forms: insert failed: %w", err)
	}
	form.Fields = []*Field{}
	return form, nil
}

// List returns forms newest first, each with its ordered fields.
func (r *PostgresRepository) List(ctx context.Context, filter ListFilter) ([]*Form, error) {
	query := `
		SELECT ` + formColumns + `
		FROM forms
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC, id DESC
	`
	rows, err := r.pool.Query(ctx, query, string(filter.Status))
	if err != nil {
		return nil, fmt.Errorf("forms: list failed: %w", err)
	}
	defer rows.Close()

	var out []*Form
	byID := make(map[int64]*Form)
	ids := make([]int64, 0)
	for rows.Next() {
		form, err := scanForm(rows)
		if err != nil {
			return nil, fmt.Errorf("forms: scan failed: %w", err)
		}
		form.Fields = []*Field{}
		out = append(out, form)
		byID[form.ID] = form
		ids = append(ids, form.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("forms: list rows: %w", err)
	}
	if len(ids) == 0 {
		return []*Form{}, nil
	}

	fields, err := r.fieldsFor(ctx, r.pool, ids)
	if err != nil {
		return nil, err
	}
	for _, f := range fields {
		if form, ok := byID[f.FormID]; ok {
			form.Fields = append(form.Fields, f)
		}
	}
	return out, nil
}

// Get fetches a form with fields ordered by position, then id.
func (r *PostgresRepository) Get(ctx context.Context, id int64) (*Form, error) {
	return r.getForm(ctx, r.pool, id, false)
}

// Update applies a partial update under a row lock so the status state
// machine sees the current status.
func (r *PostgresRepository) Update(ctx context.Context, id int64, req *UpdateFormRequest) (*Form, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("forms: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	form, err := r.getForm(ctx, tx, id, true)
	if err != nil {
		return nil, err
	}
	if err := req.Apply(form); err != nil {
		return nil, err
	}

	query := `
		UPDATE forms
		SET name = $2, description = $3, status = $4, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`
	if err := tx.QueryRow(ctx, query, id, form.Name, form.Description, form.Status).Scan(&form.UpdatedAt); err != nil {
		return nil, fmt.Errorf("forms: update failed: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("forms: commit: %w", err)
	}
	return form, nil
}

// Archive sets status ARCHIVED. An already archived form is returned as is.
func (r *PostgresRepository) Archive(ctx context.Context, id int64) (*Form, error) {
	query := `
		UPDATE forms
		SET status = 'ARCHIVED',
			updated_at = CASE WHEN status = 'ARCHIVED' THEN updated_at ELSE now() END
		WHERE id = $1
		RETURNING ` + formColumns
	form, err := scanForm(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrFormNotFound
		}
		return nil, fmt.Errorf("forms: archive failed: %w", err)
	}
	fields, err := r.fieldsFor(ctx, r.pool, []int64{id})
	if err != nil {
		return nil, err
	}
	form.Fields = fields
	return form, nil
}

// CreateField inserts a field. The form row is locked so concurrent creates
// do not pick the same default position.
func (r *PostgresRepository) CreateField(ctx context.Context, formID int64, req *CreateFieldRequest) (*Field, error) {
	if err := req.Normalize(); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("forms: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := lockForm(ctx, tx, formID); err != nil {
		return nil, err
	}

	var position int
	if req.Order != nil {
		position = *req.Order
	} else if err := tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(position), 0) + 1 FROM form_fields WHERE form_id = $1`, formID,
	).Scan(&position); err != nil {
		return nil, fmt.Errorf("forms: next position: %w", err)
	}

	options := req.ParsedOptions()
	if options == nil {
		options = []string{}
	}
	query := `
		INSERT INTO form_fields (form_id, key, label, type, required, options, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + fieldColumns
	field, err := scanField(tx.QueryRow(ctx, query, formID, req.Key, req.Label, req.Type, req.Required, options, position))
	if err != nil {
		if database.IsUniqueViolation(err, fieldKeyConstraint) {
			return nil, ErrDuplicateFieldKey.WithMessage("The field key %q is already used in this form", req.Key)
		}
		return nil, fmt.Errorf("forms: insert field failed: %w", err)
	}
	if _, err := tx.Exec(ctx, `UPDATE forms SET updated_at = now() WHERE id = $1`, formID); err != nil {
		return nil, fmt.Errorf("forms: touch form: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("forms: commit: %w", err)
	}
	return field, nil
}

// UpdateField applies a partial update to a field of the form.
func (r *PostgresRepository) UpdateField(ctx context.Context, formID, fieldID int64, req *UpdateFieldRequest) (*Field, error) {
	if err := req.Normalize(); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("forms: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `
		SELECT ` + fieldColumns + `
		FROM form_fields
		WHERE id = $1 AND form_id = $2
		FOR UPDATE
	`
	field, err := scanField(tx.QueryRow(ctx, query, fieldID, formID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrFieldNotFound
		}
		return nil, fmt.Errorf("forms: select field failed: %w", err)
	}
	req.Apply(field)
	if field.Options == nil {
		field.Options = []string{}
	}

	update := `
		UPDATE form_fields
		SET key = $2, label = $3, type = $4, required = $5, options = $6, position = $7
		WHERE id = $1
	`
	if _, err := tx.Exec(ctx, update, field.ID, field.Key, field.Label, field.Type, field.Required, field.Options, field.Order); err != nil {
		if database.IsUniqueViolation(err, fieldKeyConstraint) {
			return nil, ErrDuplicateFieldKey.WithMessage("The field key %q is already used in this form", field.Key)
		}
		return nil, fmt.Errorf("forms: update field failed: %w", err)
	}
	if _, err := tx.Exec(ctx, `UPDATE forms SET updated_at = now() WHERE id = $1`, formID); err != nil {
		return nil, fmt.Errorf("forms: touch form: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("forms: commit: %w", err)
	}
	return field, nil
}

// DeleteField removes a field. Stored lead values keep their key and label
// snapshot; the foreign key nulls their field_id.
func (r *PostgresRepository) DeleteField(ctx context.Context, formID, fieldID int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM form_fields WHERE id = $1 AND form_id = $2`, fieldID, formID)
	if err != nil {
		return fmt.Errorf("forms: delete field failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrFieldNotFound
	}
	return nil
}

// ReorderFields rewrites positions 1..N in one transaction with the form row
// locked, so readers observe either the old or the new order.
func (r *PostgresRepository) ReorderFields(ctx context.Context, formID int64, order []int64) ([]*Field, error) {
	ctx, span := formsTracer.Start(ctx, "forms.reorder_fields")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("leadradar.form_id", formID),
		attribute.Int("fields.count", len(order)),
	)

	fields, err := r.reorder(ctx, formID, order)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "reorder failed")
		return nil, err
	}
	return fields, nil
}

func (r *PostgresRepository) reorder(ctx context.Context, formID int64, order []int64) ([]*Field, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("forms: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := lockForm(ctx, tx, formID); err != nil {
		return nil, err
	}
	current, err := r.fieldsFor(ctx, tx, []int64{formID})
	if err != nil {
		return nil, err
	}
	if err := ValidateFieldOrder(fieldIDs(current), order); err != nil {
		return nil, err
	}

	for i, id := range order {
		if _, err := tx.Exec(ctx, `UPDATE form_fields SET position = $1 WHERE id = $2 AND form_id = $3`, i+1, id, formID); err != nil {
			return nil, fmt.Errorf("forms: update position: %w", err)
		}
	}
	if _, err := tx.Exec(ctx, `UPDATE forms SET updated_at = now() WHERE id = $1`, formID); err != nil {
		return nil, fmt.Errorf("forms: touch form: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("forms: commit: %w", err)
	}
	return ApplyFieldOrder(current, order), nil
}

func (r *PostgresRepository) getForm(ctx context.Context, q database.Querier, id int64, forUpdate bool) (*Form, error) {
	query := `SELECT ` + formColumns + ` FROM forms WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	form, err := scanForm(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrFormNotFound
		}
		return nil, fmt.Errorf("forms: select failed: %w", err)
	}
	fields, err := r.fieldsFor(ctx, q, []int64{id})
	if err != nil {
		return nil, err
	}
	form.Fields = fields
	return form, nil
}

func (r *PostgresRepository) fieldsFor(ctx context.Context, q database.Querier, formIDs []int64) ([]*Field, error) {
	query := `
		SELECT ` + fieldColumns + `
		FROM form_fields
		WHERE form_id = ANY($1)
		ORDER BY form_id, position, id
	`
	rows, err := q.Query(ctx, query, formIDs)
	if err != nil {
		return nil, fmt.Errorf("forms: list fields failed: %w", err)
	}
	defer rows.Close()

	fields := make([]*Field, 0)
	for rows.Next() {
		field, err := scanField(rows)
		if err != nil {
			return nil, fmt.Errorf("forms: scan field failed: %w", err)
		}
		fields = append(fields, field)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("forms: field rows: %w", err)
	}
	return fields, nil
}

func lockForm(ctx context.Context, tx pgx.Tx, formID int64) error {
	var id int64
	if err := tx.QueryRow(ctx, `SELECT id FROM forms WHERE id = $1 FOR UPDATE`, formID).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrFormNotFound
		}
		return fmt.Errorf("forms: lock form: %w", err)
	}
	return nil
}

func scanForm(row pgx.Row) (*Form, error) {
	var (
		form   Form
		status string
	)
	if err := row.Scan(&form.ID, &form.Name, &form.Description, &status, &form.CreatedAt, &form.UpdatedAt); err != nil {
		return nil, err
	}
	form.Status = Status(status)
	return &form, nil
}

func scanField(row pgx.Row) (*Field, error) {
	var (
		field     Field
		fieldType string
	)
	if err := row.Scan(&field.ID, &field.FormID, &field.Key, &field.Label, &fieldType,
		&field.Required, &field.Options, &field.Order); err != nil {
		return nil, err
	}
	field.Type = FieldType(fieldType)
	if field.Options == nil {
		field.Options = []string{}
	}
	return &field, nil
}
