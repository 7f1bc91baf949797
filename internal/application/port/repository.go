package port

import (
	"context"
	"time"

	"github.com/garyjia/travel-approval/internal/domain/entity"
)

// RequestQuery narrows a request listing. Zero values mean "any".
type RequestQuery struct {
	Status      entity.Status
	Level       entity.Level
	Department  string
	School      string
	SubmittedBy string
	Limit       int
	Offset      int
}

// RequestRepository defines persistence operations for Request.
// Returned requests carry their decisions in chain order.
type RequestRepository interface {
	Create(ctx context.Context, req *entity.Request) error
	GetByID(ctx context.Context, id string) (*entity.Request, error)
	List(ctx context.Context, query RequestQuery) ([]*entity.Request, error)

	// UpdateState moves a pending request from level `from` only if it is
	// still there. It reports false when another writer got there first.
	UpdateState(ctx context.Context, id string, from entity.Level, to entity.Level, status entity.Status, updatedAt time.Time) (bool, error)
}

// DecisionRepository defines persistence operations for ApprovalDecision
type DecisionRepository interface {
	Create(ctx context.Context, decision *entity.ApprovalDecision) error
	GetByRequestID(ctx context.Context, requestID string) ([]entity.ApprovalDecision, error)
}

// DirectoryRepository stores the org chart seeded from the directory file
type DirectoryRepository interface {
	UpsertUser(ctx context.Context, user *entity.User) error
	UpsertDepartment(ctx context.Context, dept *entity.Department) error
	UpsertSchool(ctx context.Context, school *entity.School) error

	GetUser(ctx context.Context, id string) (*entity.User, error)
	ListUsers(ctx context.Context, role entity.Role) ([]*entity.User, error)
	GetDepartmentByName(ctx context.Context, name string) (*entity.Department, error)
	ListDepartments(ctx context.Context) ([]*entity.Department, error)
	ListSchools(ctx context.Context) ([]*entity.School, error)
}

// NotificationRepository defines persistence operations for Notification
type NotificationRepository interface {
	Create(ctx context.Context, n *entity.Notification) error
	ListByUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*entity.Notification, error)
	MarkRead(ctx context.Context, id, userID string, at time.Time) (bool, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
