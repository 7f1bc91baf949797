package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/garyjia/travel-approval/internal/application/port"
	"github.com/garyjia/travel-approval/internal/domain/entity"
	"github.com/garyjia/travel-approval/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// DirectoryRepository implements port.DirectoryRepository
type DirectoryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDirectoryRepository creates a new directory repository
func NewDirectoryRepository(db *sql.DB, logger *zap.Logger) port.DirectoryRepository {
	return &DirectoryRepository{
		db:     db,
		logger: logger,
	}
}

// UpsertUser inserts or replaces a user record
func (r *DirectoryRepository) UpsertUser(ctx context.Context, u *entity.User) error {
	query := `
		INSERT INTO users (id, name, email, role, department, school)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			role = excluded.role,
			department = excluded.department,
			school = excluded.school
	`

	_, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		u.ID, u.Name, u.Email, u.Role, u.Department, u.School)
	if err != nil {
		r.logger.Error("Failed to upsert user", zap.String("user_id", u.ID), zap.Error(err))
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

// UpsertDepartment inserts or replaces a department record
func (r *DirectoryRepository) UpsertDepartment(ctx context.Context, d *entity.Department) error {
	query := `
		INSERT INTO departments (id, name, school, hod_id)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			school = excluded.school,
			hod_id = excluded.hod_id
	`

	_, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query, d.ID, d.Name, d.School, d.HoDID)
	if err != nil {
		r.logger.Error("Failed to upsert department", zap.String("department", d.Name), zap.Error(err))
		return fmt.Errorf("failed to upsert department: %w", err)
	}
	return nil
}

// UpsertSchool inserts or replaces a school record
func (r *DirectoryRepository) UpsertSchool(ctx context.Context, s *entity.School) error {
	query := `
		INSERT INTO schools (id, name, dean_id)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			dean_id = excluded.dean_id
	`

	_, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query, s.ID, s.Name, s.DeanID)
	if err != nil {
		r.logger.Error("Failed to upsert school", zap.String("school", s.Name), zap.Error(err))
		return fmt.Errorf("failed to upsert school: %w", err)
	}
	return nil
}

// GetUser returns the user with id, or nil if unknown
func (r *DirectoryRepository) GetUser(ctx context.Context, id string) (*entity.User, error) {
	query := `SELECT id, name, email, role, department, school FROM users WHERE id = ?`

	var u entity.User
	err := sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, id).Scan(
		&u.ID, &u.Name, &u.Email, &u.Role, &u.Department, &u.School)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get user", zap.String("user_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

// ListUsers returns users with role, or all users when role is empty
func (r *DirectoryRepository) ListUsers(ctx context.Context, role entity.Role) ([]*entity.User, error) {
	query := `SELECT id, name, email, role, department, school FROM users`
	var args []interface{}
	if role != "" {
		query += " WHERE role = ?"
		args = append(args, role)
	}
	query += " ORDER BY name"

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list users", zap.Error(err))
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*entity.User
	for rows.Next() {
		var u entity.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.Department, &u.School); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, &u)
	}
	return users, rows.Err()
}

// GetDepartmentByName returns the department called name, or nil if unknown
func (r *DirectoryRepository) GetDepartmentByName(ctx context.Context, name string) (*entity.Department, error) {
	query := `SELECT id, name, school, COALESCE(hod_id, '') FROM departments WHERE name = ?`

	var d entity.Department
	err := sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, name).Scan(&d.ID, &d.Name, &d.School, &d.HoDID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get department", zap.String("department", name), zap.Error(err))
		return nil, fmt.Errorf("failed to get department: %w", err)
	}
	return &d, nil
}

// ListDepartments returns all departments ordered by school and name
func (r *DirectoryRepository) ListDepartments(ctx context.Context) ([]*entity.Department, error) {
	query := `SELECT id, name, school, COALESCE(hod_id, '') FROM departments ORDER BY school, name`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list departments", zap.Error(err))
		return nil, fmt.Errorf("failed to list departments: %w", err)
	}
	defer rows.Close()

	var departments []*entity.Department
	for rows.Next() {
		var d entity.Department
		if err := rows.Scan(&d.ID, &d.Name, &d.School, &d.HoDID); err != nil {
			return nil, fmt.Errorf("failed to scan department: %w", err)
		}
		departments = append(departments, &d)
	}
	return departments, rows.Err()
}

// ListSchools returns all schools ordered by name
func (r *DirectoryRepository) ListSchools(ctx context.Context) ([]*entity.School, error) {
	query := `SELECT id, name, COALESCE(dean_id, '') FROM schools ORDER BY name`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list schools", zap.Error(err))
		return nil, fmt.Errorf("failed to list schools: %w", err)
	}
	defer rows.Close()

	var schools []*entity.School
	for rows.Next() {
		var s entity.School
		if err := rows.Scan(&s.ID, &s.Name, &s.DeanID); err != nil {
			return nil, fmt.Errorf("failed to scan school: %w", err)
		}
		schools = append(schools, &s)
	}
	return schools, rows.Err()
}

// Verify interface compliance
var _ port.DirectoryRepository = (*DirectoryRepository)(nil)
