package leads

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

const leadSelect = `
	SELECT l.id, l.created_at, f.id, f.name, e.id, e.name, u.id, u.name, u.email
	FROM leads l
	JOIN forms f ON f.id = l.form_id
	LEFT JOIN events e ON e.id = l.event_id
	LEFT JOIN users u ON u.id = l.captured_by_user_id
	WHERE ($1::bigint IS NULL OR l.form_id = $1)
`

const valueSelect = `
	SELECT v.id, v.lead_id, v.field_id,
		COALESCE(ff.key, v.field_key), COALESCE(ff.label, v.field_label), v.value
	FROM lead_values v
	LEFT JOIN form_fields ff ON ff.id = v.field_id
	WHERE v.lead_id = ANY($1)
	ORDER BY v.lead_id, COALESCE(ff.position, 2147483647), v.id
`

// SQLQueryRepository reads leads through database/sql.
type SQLQueryRepository struct {
	db *sql.DB
}

// NewSQLQueryRepository creates a read repository.
func NewSQLQueryRepository(db *sql.DB) *SQLQueryRepository {
	return &SQLQueryRepository{db: db}
}

// List returns leads newest first.
func (r *SQLQueryRepository) List(ctx context.Context, filter ListFilter) ([]*ListItem, error) {
	filter.Normalize()
	query := leadSelect + `
	ORDER BY l.created_at DESC, l.id DESC
	LIMIT $2 OFFSET $3`
	return r.query(ctx, query, nullableID(filter.FormID), filter.Limit, filter.Offset)
}

// Export returns every matching lead oldest first.
func (r *SQLQueryRepository) Export(ctx context.Context, formID *int64) ([]*ListItem, error) {
	query := leadSelect + `
	ORDER BY l.created_at ASC, l.id ASC`
	return r.query(ctx, query, nullableID(formID))
}

func (r *SQLQueryRepository) query(ctx context.Context, query string, args ...any) ([]*ListItem, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("leads: list failed: %w", err)
	}
	defer rows.Close()

	items := make([]*ListItem, 0)
	byID := make(map[int64]*ListItem)
	ids := make([]int64, 0)
	for rows.Next() {
		var (
			item                ListItem
			eventID, userID     sql.NullInt64
			eventName           sql.NullString
			userName, userEmail sql.NullString
		)
		if err := rows.Scan(&item.ID, &item.CreatedAt, &item.Form.ID, &item.Form.Name,
			&eventID, &eventName, &userID, &userName, &userEmail); err != nil {
			return nil, fmt.Errorf("leads: scan failed: %w", err)
		}
		if eventID.Valid {
			item.Event = &EventRef{ID: eventID.Int64, Name: eventName.String}
		}
		if userID.Valid {
			item.CapturedBy = &UserRef{ID: userID.Int64, Name: userName.String, Email: userEmail.String}
		}
		item.Values = []*Value{}
		items = append(items, &item)
		byID[item.ID] = &item
		ids = append(ids, item.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("leads: list rows: %w", err)
	}
	if len(ids) == 0 {
		return items, nil
	}

	if err := r.attachValues(ctx, ids, byID); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *SQLQueryRepository) attachValues(ctx context.Context, ids []int64, byID map[int64]*ListItem) error {
	rows, err := r.db.QueryContext(ctx, valueSelect, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("leads: list values failed: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			v       Value
			fieldID sql.NullInt64
		)
		if err := rows.Scan(&v.ID, &v.LeadID, &fieldID, &v.FieldKey, &v.FieldLabel, &v.Value); err != nil {
			return fmt.Errorf("leads: scan value failed: %w", err)
		}
		if fieldID.Valid {
			id := fieldID.Int64
			v.FieldID = &id
		}
		if item, ok := byID[v.LeadID]; ok {
			item.Values = append(item.Values, &v)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("leads: value rows: %w", err)
	}
	return nil
}

func nullableID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}
