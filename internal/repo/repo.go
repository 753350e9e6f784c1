package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var ErrNotFound = errors.New("not found")

type Profile struct {
	DeviceID    string    `json:"device_id,omitempty"`
	Name        string    `json:"name"`
	Sex         string    `json:"sex"`
	Email       string    `json:"email"`
	Mobile      string    `json:"mobile"`
	Designation string    `json:"designation"`
	Unit        string    `json:"unit"`
	Hospital    string    `json:"hospital"`
	City        string    `json:"city"`
	Country     string    `json:"country"`
	UpdatedAt   time.Time `json:"-"`
}

type Feedback struct {
	ID                 int64      `json:"id,omitempty"`
	Type               string     `json:"type"`
	Priority           string     `json:"priority"`
	Subject            string     `json:"subject"`
	Message            string     `json:"message"`
	ProfileName        string     `json:"profile_name"`
	ProfileEmail       string     `json:"profile_email"`
	ProfileDesignation string     `json:"profile_designation"`
	ProfileHospital    string     `json:"profile_hospital"`
	ProfileCity        string     `json:"profile_city"`
	DeviceID           string     `json:"device_id"`
	Device             string     `json:"device"`
	Browser            string     `json:"browser"`
	Screen             string     `json:"screen"`
	AppVersion         string     `json:"app_version"`
	CreatedAt          time.Time  `json:"created_at"`
	NotifiedAt         *time.Time `json:"notified_at,omitempty"`
}

type Repository interface {
	FindProfileByDevice(ctx context.Context, deviceID string) (Profile, error)
	FindProfileByEmail(ctx context.Context, email string) (Profile, error)
	RelinkDevice(ctx context.Context, oldDeviceID, newDeviceID string) error
	UpsertProfile(ctx context.Context, p Profile) error
	InsertFeedback(ctx context.Context, f Feedback) (int64, error)
	ListFeedback(ctx context.Context, limit int) ([]Feedback, error)
	PendingFeedback(ctx context.Context, limit int) ([]Feedback, error)
	MarkFeedbackNotified(ctx context.Context, id int64, at time.Time) error
}

const schema = `
CREATE TABLE IF NOT EXISTS profiles (
	id SERIAL PRIMARY KEY,
	device_id TEXT UNIQUE NOT NULL,
	name TEXT NOT NULL DEFAULT '',
	sex TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL DEFAULT '',
	mobile TEXT NOT NULL DEFAULT '',
	designation TEXT NOT NULL DEFAULT '',
	unit TEXT NOT NULL DEFAULT '',
	hospital TEXT NOT NULL DEFAULT '',
	city TEXT NOT NULL DEFAULT '',
	country TEXT NOT NULL DEFAULT '',
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS profiles_email_idx ON profiles (lower(email));
CREATE TABLE IF NOT EXISTS feedback (
	id BIGSERIAL PRIMARY KEY,
	type TEXT NOT NULL DEFAULT '',
	priority TEXT NOT NULL DEFAULT 'Medium',
	subject TEXT NOT NULL DEFAULT '',
	message TEXT NOT NULL DEFAULT '',
	profile_name TEXT NOT NULL DEFAULT '',
	profile_email TEXT NOT NULL DEFAULT '',
	profile_designation TEXT NOT NULL DEFAULT '',
	profile_hospital TEXT NOT NULL DEFAULT '',
	profile_city TEXT NOT NULL DEFAULT '',
	device_id TEXT NOT NULL DEFAULT '',
	device TEXT NOT NULL DEFAULT '',
	browser TEXT NOT NULL DEFAULT '',
	screen TEXT NOT NULL DEFAULT '',
	app_version TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	notified_at TIMESTAMPTZ
);`

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Migrate creates the profiles and feedback tables if they are missing.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const profileCols = "device_id, name, sex, email, mobile, designation, unit, hospital, city, country, updated_at"

func scanProfile(row *sql.Row) (Profile, error) {
	var p Profile
	err := row.Scan(&p.DeviceID, &p.Name, &p.Sex, &p.Email, &p.Mobile, &p.Designation,
		&p.Unit, &p.Hospital, &p.City, &p.Country, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Profile{}, ErrNotFound
	}
	return p, err
}

func (r *PostgresRepository) FindProfileByDevice(ctx context.Context, deviceID string) (Profile, error) {
	query := "SELECT " + profileCols + " FROM profiles WHERE device_id=$1 LIMIT 1"
	return scanProfile(r.db.QueryRowContext(ctx, query, deviceID))
}

func (r *PostgresRepository) FindProfileByEmail(ctx context.Context, email string) (Profile, error) {
	query := "SELECT " + profileCols + " FROM profiles WHERE lower(email)=lower($1) ORDER BY updated_at DESC LIMIT 1"
	return scanProfile(r.db.QueryRowContext(ctx, query, email))
}

func (r *PostgresRepository) RelinkDevice(ctx context.Context, oldDeviceID, newDeviceID string) error {
	res, err := r.db.ExecContext(ctx, "UPDATE profiles SET device_id=$2, updated_at=now() WHERE device_id=$1", oldDeviceID, newDeviceID)
	if err != nil {
		return fmt.Errorf("relink device: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) UpsertProfile(ctx context.Context, p Profile) error {
	query := `INSERT INTO profiles (device_id, name, sex, email, mobile, designation, unit, hospital, city, country, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
		ON CONFLICT (device_id) DO UPDATE SET
			name=excluded.name, sex=excluded.sex, email=excluded.email, mobile=excluded.mobile,
			designation=excluded.designation, unit=excluded.unit, hospital=excluded.hospital,
			city=excluded.city, country=excluded.country, updated_at=now()`
	_, err := r.db.ExecContext(ctx, query, p.DeviceID, p.Name, p.Sex, p.Email, p.Mobile,
		p.Designation, p.Unit, p.Hospital, p.City, p.Country)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

func (r *PostgresRepository) InsertFeedback(ctx context.Context, f Feedback) (int64, error) {
	var id int64
	query := `INSERT INTO feedback (type, priority, subject, message, profile_name, profile_email,
		profile_designation, profile_hospital, profile_city, device_id, device, browser, screen, app_version, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15) RETURNING id`
	err := r.db.QueryRowContext(ctx, query, f.Type, f.Priority, f.Subject, f.Message, f.ProfileName,
		f.ProfileEmail, f.ProfileDesignation, f.ProfileHospital, f.ProfileCity, f.DeviceID,
		f.Device, f.Browser, f.Screen, f.AppVersion, f.CreatedAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert feedback: %w", err)
	}
	return id, nil
}

const feedbackCols = `id, type, priority, subject, message, profile_name, profile_email, profile_designation,
	profile_hospital, profile_city, device_id, device, browser, screen, app_version, created_at, notified_at`

func (r *PostgresRepository) queryFeedback(ctx context.Context, query string, args ...any) ([]Feedback, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select feedback: %w", err)
	}
	defer rows.Close()
	out := []Feedback{}
	for rows.Next() {
		var f Feedback
		var notified sql.NullTime
		if err := rows.Scan(&f.ID, &f.Type, &f.Priority, &f.Subject, &f.Message, &f.ProfileName,
			&f.ProfileEmail, &f.ProfileDesignation, &f.ProfileHospital, &f.ProfileCity, &f.DeviceID,
			&f.Device, &f.Browser, &f.Screen, &f.AppVersion, &f.CreatedAt, &notified); err != nil {
			return nil, fmt.Errorf("scan feedback: %w", err)
		}
		if notified.Valid {
			t := notified.Time
			f.NotifiedAt = &t
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) ListFeedback(ctx context.Context, limit int) ([]Feedback, error) {
	return r.queryFeedback(ctx, "SELECT "+feedbackCols+" FROM feedback ORDER BY created_at DESC LIMIT $1", limit)
}

// PendingFeedback returns the oldest messages nobody has been notified about.
func (r *PostgresRepository) PendingFeedback(ctx context.Context, limit int) ([]Feedback, error) {
	return r.queryFeedback(ctx, "SELECT "+feedbackCols+" FROM feedback WHERE notified_at IS NULL ORDER BY id LIMIT $1", limit)
}

func (r *PostgresRepository) MarkFeedbackNotified(ctx context.Context, id int64, at time.Time) error {
	if _, err := r.db.ExecContext(ctx, "UPDATE feedback SET notified_at=$2 WHERE id=$1", id, at); err != nil {
		return fmt.Errorf("mark feedback %d: %w", id, err)
	}
	return nil
}
