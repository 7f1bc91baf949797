package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/travel-approval/internal/application/port"
	"github.com/garyjia/travel-approval/internal/domain/entity"
	"github.com/garyjia/travel-approval/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

const requestColumns = `
	id, submitted_by, requester_name, requester_email, department, school,
	destination, reason, start_date, end_date, is_private,
	status, current_level, created_at, updated_at`

// RequestRepository implements port.RequestRepository
type RequestRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRequestRepository creates a new request repository
func NewRequestRepository(db *sql.DB, logger *zap.Logger) port.RequestRepository {
	return &RequestRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new request. Decisions are stored separately.
func (r *RequestRepository) Create(ctx context.Context, req *entity.Request) error {
	query := `
		INSERT INTO travel_requests (` + requestColumns + `
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		req.ID,
		req.SubmittedBy,
		req.RequesterName,
		req.RequesterEmail,
		req.Department,
		req.School,
		req.Destination,
		req.Reason,
		req.StartDate.Format(entity.DateLayout),
		req.EndDate.Format(entity.DateLayout),
		req.IsPrivate,
		req.Status,
		req.CurrentLevel,
		req.CreatedAt.UTC(),
		req.UpdatedAt.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to create request", zap.String("request_id", req.ID), zap.Error(err))
		return fmt.Errorf("failed to create request: %w", err)
	}

	return nil
}

// GetByID returns the request with its decisions, or nil if it does not exist
func (r *RequestRepository) GetByID(ctx context.Context, id string) (*entity.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM travel_requests WHERE id = ?`

	req, err := scanRequest(sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get request by ID", zap.String("request_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get request: %w", err)
	}

	if err := r.attachDecisions(ctx, []*entity.Request{req}); err != nil {
		return nil, err
	}

	return req, nil
}

// List returns requests matching query, newest first
func (r *RequestRepository) List(ctx context.Context, q port.RequestQuery) ([]*entity.Request, error) {
	var (
		where []string
		args  []interface{}
	)
	if q.Status != "" {
		where = append(where, "status = ?")
		args = append(args, q.Status)
	}
	if q.Level != "" {
		where = append(where, "current_level = ?")
		args = append(args, q.Level)
	}
	if q.Department != "" {
		where = append(where, "department = ?")
		args = append(args, q.Department)
	}
	if q.School != "" {
		where = append(where, "school = ?")
		args = append(args, q.School)
	}
	if q.SubmittedBy != "" {
		where = append(where, "submitted_by = ?")
		args = append(args, q.SubmittedBy)
	}

	query := `SELECT ` + requestColumns + ` FROM travel_requests`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id"
	if q.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, q.Limit, q.Offset)
	}

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list requests", zap.Error(err))
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	defer rows.Close()

	var requests []*entity.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate requests: %w", err)
	}

	if err := r.attachDecisions(ctx, requests); err != nil {
		return nil, err
	}

	return requests, nil
}

// UpdateState applies a level/status change only if the request is still
// pending at `from`
func (r *RequestRepository) UpdateState(ctx context.Context, id string, from, to entity.Level, status entity.Status, updatedAt time.Time) (bool, error) {
	query := `
		UPDATE travel_requests
		SET current_level = ?, status = ?, updated_at = ?
		WHERE id = ? AND current_level = ? AND status = ?
	`

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		to, status, updatedAt.UTC(), id, from, entity.StatusPending)
	if err != nil {
		r.logger.Error("Failed to update request state",
			zap.String("request_id", id),
			zap.String("from", from.String()),
			zap.String("to", to.String()),
			zap.Error(err))
		return false, fmt.Errorf("failed to update request state: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return affected == 1, nil
}

// decisionBatchSize keeps each IN list well under SQLite's host parameter limit
const decisionBatchSize = 500

func (r *RequestRepository) attachDecisions(ctx context.Context, requests []*entity.Request) error {
	if len(requests) == 0 {
		return nil
	}

	byID := make(map[string]*entity.Request, len(requests))
	ids := make([]interface{}, 0, len(requests))
	for _, req := range requests {
		byID[req.ID] = req
		ids = append(ids, req.ID)
	}

	for start := 0; start < len(ids); start += decisionBatchSize {
		end := min(start+decisionBatchSize, len(ids))
		if err := r.loadDecisions(ctx, ids[start:end], byID); err != nil {
			return err
		}
	}

	for _, req := range requests {
		sortDecisions(req.Decisions)
	}
	return nil
}

func (r *RequestRepository) loadDecisions(ctx context.Context, ids []interface{}, byID map[string]*entity.Request) error {
	query := `SELECT ` + decisionColumns + ` FROM approval_decisions
		WHERE request_id IN (?` + strings.Repeat(",?", len(ids)-1) + `)`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, ids...)
	if err != nil {
		r.logger.Error("Failed to load decisions", zap.Int("requests", len(ids)), zap.Error(err))
		return fmt.Errorf("failed to load decisions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return fmt.Errorf("failed to scan decision: %w", err)
		}
		if req, ok := byID[d.RequestID]; ok {
			req.Decisions = append(req.Decisions, d)
		}
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRequest(row rowScanner) (*entity.Request, error) {
	var (
		req        entity.Request
		start, end string
	)

	err := row.Scan(
		&req.ID,
		&req.SubmittedBy,
		&req.RequesterName,
		&req.RequesterEmail,
		&req.Department,
		&req.School,
		&req.Destination,
		&req.Reason,
		&start,
		&end,
		&req.IsPrivate,
		&req.Status,
		&req.CurrentLevel,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if req.StartDate, err = time.Parse(entity.DateLayout, start); err != nil {
		return nil, fmt.Errorf("invalid start_date %q: %w", start, err)
	}
	if req.EndDate, err = time.Parse(entity.DateLayout, end); err != nil {
		return nil, fmt.Errorf("invalid end_date %q: %w", end, err)
	}

	return &req, nil
}

// Verify interface compliance
var _ port.RequestRepository = (*RequestRepository)(nil)
