package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/garyjia/travel-approval/internal/application/port"
	"github.com/garyjia/travel-approval/internal/domain/entity"
	"github.com/garyjia/travel-approval/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

const decisionColumns = `id, request_id, level, approver_id, approver_name, approved, comment, decided_at`

// DecisionRepository implements port.DecisionRepository
type DecisionRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDecisionRepository creates a new decision repository
func NewDecisionRepository(db *sql.DB, logger *zap.Logger) port.DecisionRepository {
	return &DecisionRepository{
		db:     db,
		logger: logger,
	}
}

// Create records a decision. The (request_id, level) pair is unique.
func (r *DecisionRepository) Create(ctx context.Context, d *entity.ApprovalDecision) error {
	query := `INSERT INTO approval_decisions (` + decisionColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		d.ID,
		d.RequestID,
		d.Level,
		d.ApproverID,
		d.ApproverName,
		d.Approved,
		d.Comment,
		d.DecidedAt.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to create decision",
			zap.String("request_id", d.RequestID),
			zap.String("level", d.Level.String()),
			zap.Error(err))
		return fmt.Errorf("failed to create decision: %w", err)
	}

	return nil
}

// GetByRequestID returns the decisions of a request in chain order
func (r *DecisionRepository) GetByRequestID(ctx context.Context, requestID string) ([]entity.ApprovalDecision, error) {
	query := `SELECT ` + decisionColumns + ` FROM approval_decisions WHERE request_id = ?`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, requestID)
	if err != nil {
		r.logger.Error("Failed to get decisions", zap.String("request_id", requestID), zap.Error(err))
		return nil, fmt.Errorf("failed to get decisions: %w", err)
	}
	defer rows.Close()

	var decisions []entity.ApprovalDecision
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}
		decisions = append(decisions, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sortDecisions(decisions)
	return decisions, nil
}

func scanDecision(row rowScanner) (entity.ApprovalDecision, error) {
	var d entity.ApprovalDecision
	err := row.Scan(
		&d.ID,
		&d.RequestID,
		&d.Level,
		&d.ApproverID,
		&d.ApproverName,
		&d.Approved,
		&d.Comment,
		&d.DecidedAt,
	)
	return d, err
}

func sortDecisions(decisions []entity.ApprovalDecision) {
	sort.Slice(decisions, func(i, j int) bool {
		return decisions[i].Level.Index() < decisions[j].Level.Index()
	})
}

// Verify interface compliance
var _ port.DecisionRepository = (*DecisionRepository)(nil)
