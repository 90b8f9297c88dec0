package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/talentdesk/backoffice/pkg/models"
)

func (r *SQLiteRepo) CreateStaff(ctx context.Context, s *models.Staff) (int64, error) {
	if s == nil {
		return 0, fmt.Errorf("staff is nil")
	}
	role := s.Role
	if role == "" {
		role = "employee"
	}
	res, err := r.conn.Exec(ctx,
		`INSERT INTO staff (name, email, role, password_hash, updated) VALUES (?, ?, ?, ?, ?)`,
		s.Name, s.Email, role, s.PasswordHash, now())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r *SQLiteRepo) GetByID(ctx context.Context, id int64) (*models.Staff, error) {
	row := r.conn.QueryRow(ctx, `SELECT id, name, email, role, password_hash, updated FROM staff WHERE id = ?`, id)
	return scanStaff(row)
}

func (r *SQLiteRepo) GetByEmail(ctx context.Context, email string) (*models.Staff, error) {
	row := r.conn.QueryRow(ctx, `SELECT id, name, email, role, password_hash, updated FROM staff WHERE email = ?`, email)
	return scanStaff(row)
}

func scanStaff(row *sql.Row) (*models.Staff, error) {
	var s models.Staff
	var pw sql.NullString
	if err := row.Scan(&s.ID, &s.Name, &s.Email, &s.Role, &pw, &s.Updated); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if pw.Valid {
		s.PasswordHash = pw.String
	}
	return &s, nil
}

func (r *SQLiteRepo) UpdateStaff(ctx context.Context, s *models.Staff) error {
	if s == nil {
		return fmt.Errorf("staff is nil")
	}
	_, err := r.conn.Exec(ctx,
		`UPDATE staff SET name = ?, email = ?, role = ?, password_hash = ?, updated = ? WHERE id = ?`,
		s.Name, s.Email, s.Role, s.PasswordHash, now(), s.ID)
	return err
}

func (r *SQLiteRepo) DeleteStaff(ctx context.Context, id int64) error {
	_, err := r.conn.Exec(ctx, `DELETE FROM staff WHERE id = ?`, id)
	return err
}
