package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/twiztd/cpbc-volunteer-app/internal/model"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so the same queries can run
// inside or outside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries provides typed access to the database.
type Queries struct {
	db DBTX
}

// New creates a Queries instance.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns a Queries instance bound to the given transaction.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

const adminColumns = `id, email, password_hash, name, is_active, is_super_admin,
	reset_token, reset_expires_at, created_at, updated_at`

func scanAdmin(row interface{ Scan(dest ...any) error }) (model.AdminUser, error) {
	var a model.AdminUser
	err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.Name, &a.IsActive,
		&a.IsSuperAdmin, &a.ResetToken, &a.ResetExpiresAt, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

// CreateAdminParams holds the fields for CreateAdmin.
type CreateAdminParams struct {
	Email        string
	PasswordHash string
	Name         string
	IsSuperAdmin bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CreateAdmin inserts a new admin account and returns it.
func (q *Queries) CreateAdmin(ctx context.Context, arg CreateAdminParams) (model.AdminUser, error) {
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO admin_users (email, password_hash, name, is_active, is_super_admin, created_at, updated_at)
		VALUES (?, ?, ?, 1, ?, ?, ?)`,
		arg.Email, arg.PasswordHash, arg.Name, arg.IsSuperAdmin, arg.CreatedAt, arg.UpdatedAt)
	if err != nil {
		return model.AdminUser{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.AdminUser{}, err
	}
	return q.GetAdminByID(ctx, id)
}

// GetAdminByID fetches an admin account by ID.
func (q *Queries) GetAdminByID(ctx context.Context, id int64) (model.AdminUser, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+adminColumns+` FROM admin_users WHERE id = ?`, id)
	return scanAdmin(row)
}

// GetAdminByEmail fetches an admin account by case-insensitive email.
func (q *Queries) GetAdminByEmail(ctx context.Context, email string) (model.AdminUser, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+adminColumns+` FROM admin_users WHERE lower(email) = lower(?)`, email)
	return scanAdmin(row)
}

// GetAdminByResetToken fetches an active admin account by exact reset token.
func (q *Queries) GetAdminByResetToken(ctx context.Context, token string) (model.AdminUser, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+adminColumns+` FROM admin_users WHERE reset_token = ? AND is_active = 1`, token)
	return scanAdmin(row)
}

// ListAdmins returns all admin accounts, newest first.
func (q *Queries) ListAdmins(ctx context.Context) ([]model.AdminUser, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+adminColumns+` FROM admin_users ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var admins []model.AdminUser
	for rows.Next() {
		a, err := scanAdmin(rows)
		if err != nil {
			return nil, err
		}
		admins = append(admins, a)
	}
	return admins, rows.Err()
}

// CountAdmins returns the total number of admin accounts.
func (q *Queries) CountAdmins(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM admin_users`).Scan(&n)
	return n, err
}

// CountActiveSuperAdmins returns the number of active accounts holding the
// super admin flag. The directory invariant keeps this at 0 or 1.
func (q *Queries) CountActiveSuperAdmins(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM admin_users WHERE is_super_admin = 1 AND is_active = 1`).Scan(&n)
	return n, err
}

// UpdateAdminParams holds the fields for UpdateAdmin.
type UpdateAdminParams struct {
	ID        int64
	IsActive  bool
	Name      string
	UpdatedAt time.Time
}

// UpdateAdmin mutates the active flag and display name of an account.
func (q *Queries) UpdateAdmin(ctx context.Context, arg UpdateAdminParams) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE admin_users SET is_active = ?, name = ?, updated_at = ? WHERE id = ?`,
		arg.IsActive, arg.Name, arg.UpdatedAt, arg.ID)
	return err
}

// UpdateAdminPasswordParams holds the fields for UpdateAdminPassword.
type UpdateAdminPasswordParams struct {
	ID           int64
	PasswordHash string
	UpdatedAt    time.Time
}

// UpdateAdminPassword sets a new password hash and clears any pending reset
// token in the same statement.
func (q *Queries) UpdateAdminPassword(ctx context.Context, arg UpdateAdminPasswordParams) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE admin_users SET password_hash = ?, reset_token = NULL, reset_expires_at = NULL, updated_at = ?
		 WHERE id = ?`,
		arg.PasswordHash, arg.UpdatedAt, arg.ID)
	return err
}

// ConsumeAdminResetTokenParams holds the fields for ConsumeAdminResetToken.
type ConsumeAdminResetTokenParams struct {
	ID           int64
	ResetToken   string
	PasswordHash string
	UpdatedAt    time.Time
}

// ConsumeAdminResetToken sets a new password hash and clears the reset state,
// conditioned on the token still being the one on the row. The returned count
// is 0 when another completion consumed the token first, which keeps the
// token single-use without a surrounding transaction.
func (q *Queries) ConsumeAdminResetToken(ctx context.Context, arg ConsumeAdminResetTokenParams) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`UPDATE admin_users SET password_hash = ?, reset_token = NULL, reset_expires_at = NULL, updated_at = ?
		 WHERE id = ? AND reset_token = ?`,
		arg.PasswordHash, arg.UpdatedAt, arg.ID, arg.ResetToken)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// SetAdminResetTokenParams holds the fields for SetAdminResetToken.
type SetAdminResetTokenParams struct {
	ID             int64
	ResetToken     string
	ResetExpiresAt time.Time
	UpdatedAt      time.Time
}

// SetAdminResetToken records a pending reset, overwriting any prior token.
func (q *Queries) SetAdminResetToken(ctx context.Context, arg SetAdminResetTokenParams) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE admin_users SET reset_token = ?, reset_expires_at = ?, updated_at = ? WHERE id = ?`,
		arg.ResetToken, arg.ResetExpiresAt, arg.UpdatedAt, arg.ID)
	return err
}

// ClearAdminResetToken removes a pending reset without touching the password.
func (q *Queries) ClearAdminResetToken(ctx context.Context, id int64, updatedAt time.Time) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE admin_users SET reset_token = NULL, reset_expires_at = NULL, updated_at = ? WHERE id = ?`,
		updatedAt, id)
	return err
}

// SetSuperAdmin sets or clears the super admin flag on an account.
func (q *Queries) SetSuperAdmin(ctx context.Context, id int64, isSuperAdmin bool, updatedAt time.Time) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE admin_users SET is_super_admin = ?, updated_at = ? WHERE id = ?`,
		isSuperAdmin, updatedAt, id)
	return err
}

// CreateVolunteerParams holds the fields for CreateVolunteer.
type CreateVolunteerParams struct {
	Name       string
	Phone      string
	Email      string
	SignupDate time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// CreateVolunteer inserts a volunteer record and returns its ID.
func (q *Queries) CreateVolunteer(ctx context.Context, arg CreateVolunteerParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO volunteers (name, phone, email, signup_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		arg.Name, arg.Phone, arg.Email, arg.SignupDate, arg.CreatedAt, arg.UpdatedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetVolunteerByID fetches a volunteer without its selections.
func (q *Queries) GetVolunteerByID(ctx context.Context, id int64) (model.Volunteer, error) {
	var v model.Volunteer
	err := q.db.QueryRowContext(ctx, `
		SELECT id, name, phone, email, signup_date, created_at, updated_at
		FROM volunteers WHERE id = ?`, id).
		Scan(&v.ID, &v.Name, &v.Phone, &v.Email, &v.SignupDate, &v.CreatedAt, &v.UpdatedAt)
	return v, err
}

// DeleteVolunteer removes a volunteer; selections and notes cascade.
func (q *Queries) DeleteVolunteer(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM volunteers WHERE id = ?`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CreateVolunteerMinistry inserts one ministry selection.
func (q *Queries) CreateVolunteerMinistry(ctx context.Context, volunteerID int64, sel model.MinistrySelection) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO volunteer_ministries (volunteer_id, category, ministry_area)
		VALUES (?, ?, ?)`,
		volunteerID, sel.Category, sel.MinistryArea)
	return err
}

// DeleteVolunteerMinistries removes every selection for a volunteer. Used
// when a signup's selection set is replaced as a whole.
func (q *Queries) DeleteVolunteerMinistries(ctx context.Context, volunteerID int64) error {
	_, err := q.db.ExecContext(ctx,
		`DELETE FROM volunteer_ministries WHERE volunteer_id = ?`, volunteerID)
	return err
}

// ListMinistriesByVolunteer returns a volunteer's selections in insertion order.
func (q *Queries) ListMinistriesByVolunteer(ctx context.Context, volunteerID int64) ([]model.MinistrySelection, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, category, ministry_area FROM volunteer_ministries
		WHERE volunteer_id = ? ORDER BY id`, volunteerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sels []model.MinistrySelection
	for rows.Next() {
		var s model.MinistrySelection
		if err := rows.Scan(&s.ID, &s.Category, &s.MinistryArea); err != nil {
			return nil, err
		}
		sels = append(sels, s)
	}
	return sels, rows.Err()
}

// VolunteerMinistryRow pairs a selection with its volunteer for bulk loading.
type VolunteerMinistryRow struct {
	VolunteerID int64
	Selection   model.MinistrySelection
}

// ListAllVolunteerMinistries returns every selection, ordered by volunteer.
func (q *Queries) ListAllVolunteerMinistries(ctx context.Context) ([]VolunteerMinistryRow, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT volunteer_id, id, category, ministry_area
		FROM volunteer_ministries ORDER BY volunteer_id, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []VolunteerMinistryRow
	for rows.Next() {
		var r VolunteerMinistryRow
		if err := rows.Scan(&r.VolunteerID, &r.Selection.ID, &r.Selection.Category, &r.Selection.MinistryArea); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Volunteer list sort orders.
const (
	VolunteerSortDate     = "date"
	VolunteerSortName     = "name"
	VolunteerSortMinistry = "ministry"
)

// ListVolunteersParams holds the filters for ListVolunteers.
type ListVolunteersParams struct {
	MinistryArea string // filter by exact ministry area, if set
	Category     string // filter by category; ignored when MinistryArea is set
	SortBy       string // one of the VolunteerSort constants; defaults to date
}

// ListVolunteers returns volunteers matching the filters, without selections.
func (q *Queries) ListVolunteers(ctx context.Context, arg ListVolunteersParams) ([]model.Volunteer, error) {
	query := `SELECT v.id, v.name, v.phone, v.email, v.signup_date, v.created_at, v.updated_at
		FROM volunteers v`
	var args []any

	switch {
	case arg.MinistryArea != "":
		query += ` JOIN volunteer_ministries m ON m.volunteer_id = v.id AND m.ministry_area = ?`
		args = append(args, arg.MinistryArea)
	case arg.Category != "":
		query += ` JOIN volunteer_ministries m ON m.volunteer_id = v.id AND m.category = ?`
		args = append(args, arg.Category)
	}

	switch arg.SortBy {
	case VolunteerSortName:
		query += ` GROUP BY v.id ORDER BY v.name`
	case VolunteerSortMinistry:
		query = `SELECT v.id, v.name, v.phone, v.email, v.signup_date, v.created_at, v.updated_at
			FROM volunteers v LEFT JOIN volunteer_ministries vm ON vm.volunteer_id = v.id` +
			joinFilter(arg) + ` GROUP BY v.id ORDER BY COUNT(vm.id) DESC`
		args = filterArgs(arg)
	default:
		query += ` GROUP BY v.id ORDER BY v.signup_date DESC`
	}

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vols []model.Volunteer
	for rows.Next() {
		var v model.Volunteer
		if err := rows.Scan(&v.ID, &v.Name, &v.Phone, &v.Email, &v.SignupDate, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, err
		}
		vols = append(vols, v)
	}
	return vols, rows.Err()
}

func joinFilter(arg ListVolunteersParams) string {
	switch {
	case arg.MinistryArea != "":
		return ` JOIN volunteer_ministries f ON f.volunteer_id = v.id AND f.ministry_area = ?`
	case arg.Category != "":
		return ` JOIN volunteer_ministries f ON f.volunteer_id = v.id AND f.category = ?`
	}
	return ``
}

func filterArgs(arg ListVolunteersParams) []any {
	switch {
	case arg.MinistryArea != "":
		return []any{arg.MinistryArea}
	case arg.Category != "":
		return []any{arg.Category}
	}
	return nil
}

// CreateVolunteerNoteParams holds the fields for CreateVolunteerNote.
type CreateVolunteerNoteParams struct {
	VolunteerID int64
	AdminID     int64
	NoteText    string
	CreatedAt   time.Time
}

// CreateVolunteerNote inserts an admin note on a volunteer.
func (q *Queries) CreateVolunteerNote(ctx context.Context, arg CreateVolunteerNoteParams) (model.VolunteerNote, error) {
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO volunteer_notes (volunteer_id, admin_id, note_text, created_at)
		VALUES (?, ?, ?, ?)`,
		arg.VolunteerID, arg.AdminID, arg.NoteText, arg.CreatedAt)
	if err != nil {
		return model.VolunteerNote{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.VolunteerNote{}, err
	}
	return model.VolunteerNote{
		ID:          id,
		VolunteerID: arg.VolunteerID,
		AdminID:     sql.NullInt64{Int64: arg.AdminID, Valid: true},
		NoteText:    arg.NoteText,
		CreatedAt:   arg.CreatedAt,
	}, nil
}

// ListVolunteerNotes returns a volunteer's notes, newest first, with the
// author's email when the account still exists.
func (q *Queries) ListVolunteerNotes(ctx context.Context, volunteerID int64) ([]model.VolunteerNote, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT n.id, n.volunteer_id, n.admin_id, COALESCE(a.email, ''), n.note_text, n.created_at
		FROM volunteer_notes n
		LEFT JOIN admin_users a ON a.id = n.admin_id
		WHERE n.volunteer_id = ?
		ORDER BY n.created_at DESC, n.id DESC`, volunteerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []model.VolunteerNote
	for rows.Next() {
		var n model.VolunteerNote
		if err := rows.Scan(&n.ID, &n.VolunteerID, &n.AdminID, &n.AdminEmail, &n.NoteText, &n.CreatedAt); err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// ListCustomMinistries returns persisted taxonomy extensions in insertion order.
func (q *Queries) ListCustomMinistries(ctx context.Context) ([]model.CustomMinistry, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, category, ministry_area, created_at FROM custom_ministries ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.CustomMinistry
	for rows.Next() {
		var e model.CustomMinistry
		if err := rows.Scan(&e.ID, &e.Category, &e.MinistryArea, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CreateEventParams holds the fields for CreateEvent.
type CreateEventParams struct {
	Level     string
	Category  string
	Message   string
	AdminID   sql.NullInt64
	Metadata  string
	CreatedAt time.Time
}

// CreateEvent inserts an audit log entry.
func (q *Queries) CreateEvent(ctx context.Context, arg CreateEventParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO events (level, category, message, admin_id, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		arg.Level, arg.Category, arg.Message, arg.AdminID, arg.Metadata, arg.CreatedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListEventsParams holds pagination for ListEvents.
type ListEventsParams struct {
	Limit  int64
	Offset int64
}

// ListEvents returns audit log entries, newest first.
func (q *Queries) ListEvents(ctx context.Context, arg ListEventsParams) ([]model.Event, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, level, category, message, admin_id, metadata, created_at
		FROM events
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var events []model.Event
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(&e.ID, &e.Level, &e.Category, &e.Message, &e.AdminID, &e.Metadata, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// CountEvents returns the total number of audit log entries.
func (q *Queries) CountEvents(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&count)
	return count, err
}
