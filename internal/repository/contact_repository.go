package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/contacts-api/internal/model"
)

const contactColumns = "id, first_name, last_name, email, phone, birthday, data, user_id, created_at, updated_at"

// searchColumns whitelists the columns SearchByField may touch.
var searchColumns = map[model.SearchField]string{
	model.FieldFirstName: "first_name",
	model.FieldLastName:  "last_name",
	model.FieldEmail:     "email",
	model.FieldPhone:     "phone",
}

// ContactRepo persists contacts. Every query is scoped by owner.
type ContactRepo struct{ DB *sql.DB }

func NewContactRepo(db *sql.DB) *ContactRepo { return &ContactRepo{DB: db} }

func scanContact(row interface{ Scan(...any) error }) (*model.Contact, error) {
	var c model.Contact
	err := row.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.Phone, &c.Birthday, &c.Data, &c.UserID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *ContactRepo) query(ctx context.Context, q string, args ...any) ([]model.Contact, error) {
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query contacts: %w", err)
	}
	defer rows.Close()

	out := []model.Contact{}
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// List returns one page of the owner's contacts ordered by id.
func (r *ContactRepo) List(ctx context.Context, userID uint64, skip, limit int) ([]model.Contact, error) {
	return r.query(ctx,
		"SELECT "+contactColumns+" FROM contacts WHERE user_id=? ORDER BY id LIMIT ? OFFSET ?",
		userID, limit, skip)
}

// Get returns the owner's contact with id, or ErrNotFound.
func (r *ContactRepo) Get(ctx context.Context, userID, id uint64) (*model.Contact, error) {
	return scanContact(r.DB.QueryRowContext(ctx,
		"SELECT "+contactColumns+" FROM contacts WHERE id=? AND user_id=? LIMIT 1", id, userID))
}

// Create inserts c and fills in its ID and timestamps.
func (r *ContactRepo) Create(ctx context.Context, c *model.Contact) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO contacts (first_name, last_name, email, phone, birthday, data, user_id) VALUES (?,?,?,?,?,?,?)",
		c.FirstName, c.LastName, c.Email, c.Phone, c.Birthday, c.Data, c.UserID)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert contact: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	created, err := r.Get(ctx, c.UserID, uint64(id))
	if err != nil {
		return fmt.Errorf("reload contact: %w", err)
	}
	*c = *created
	return nil
}

// Update replaces every writable field of the owner's contact c.ID.
func (r *ContactRepo) Update(ctx context.Context, c *model.Contact) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE contacts SET first_name=?, last_name=?, email=?, phone=?, birthday=?, data=? WHERE id=? AND user_id=?",
		c.FirstName, c.LastName, c.Email, c.Phone, c.Birthday, c.Data, c.ID, c.UserID)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("update contact: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	updated, err := r.Get(ctx, c.UserID, c.ID)
	if err != nil {
		return err
	}
	*c = *updated
	return nil
}

// UpdateData overwrites only the free-text data field.
func (r *ContactRepo) UpdateData(ctx context.Context, userID, id uint64, data string) (*model.Contact, error) {
	res, err := r.DB.ExecContext(ctx, "UPDATE contacts SET data=? WHERE id=? AND user_id=?", data, id, userID)
	if err != nil {
		return nil, fmt.Errorf("update contact data: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrNotFound
	}
	return r.Get(ctx, userID, id)
}

// Delete removes the owner's contact with id.
func (r *ContactRepo) Delete(ctx context.Context, userID, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM contacts WHERE id=? AND user_id=?", id, userID)
	if err != nil {
		return fmt.Errorf("delete contact: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// Birthdays returns the owner's contacts whose month-day falls in w.
func (r *ContactRepo) Birthdays(ctx context.Context, userID uint64, w model.BirthdayWindow, skip, limit int) ([]model.Contact, error) {
	cond := "DATE_FORMAT(birthday, '%m-%d') BETWEEN ? AND ?"
	if w.Wraps() {
		cond = "(DATE_FORMAT(birthday, '%m-%d') >= ? OR DATE_FORMAT(birthday, '%m-%d') <= ?)"
	}
	return r.query(ctx,
		"SELECT "+contactColumns+" FROM contacts WHERE user_id=? AND "+cond+" ORDER BY id LIMIT ? OFFSET ?",
		userID, w.Start, w.End, limit, skip)
}

// SearchByField returns the owner's contacts whose field contains term,
// ignoring case.
func (r *ContactRepo) SearchByField(ctx context.Context, userID uint64, field model.SearchField, term string) ([]model.Contact, error) {
	col, ok := searchColumns[field]
	if !ok {
		return nil, fmt.Errorf("unknown search field %q", field)
	}
	return r.query(ctx,
		"SELECT "+contactColumns+" FROM contacts WHERE user_id=? AND LOWER("+col+") LIKE ? ORDER BY id",
		userID, likePattern(term))
}

// SearchByBirthday returns the owner's contacts born exactly on d.
func (r *ContactRepo) SearchByBirthday(ctx context.Context, userID uint64, d model.Date) ([]model.Contact, error) {
	return r.query(ctx,
		"SELECT "+contactColumns+" FROM contacts WHERE user_id=? AND birthday=? ORDER BY id",
		userID, d)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(term string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
}
