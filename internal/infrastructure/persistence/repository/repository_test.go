package repository

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/travel-approval/internal/application/port"
	"github.com/garyjia/travel-approval/internal/domain/entity"
	"github.com/garyjia/travel-approval/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/travel-approval/migrations"
	"github.com/garyjia/travel-approval/pkg/database"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	logger := zap.NewNop()

	db, err := database.New(database.Config{Path: filepath.Join(t.TempDir(), "travel.db")}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.NewMigrator(db, logger).RunMigrations(migrations.FS))
	return db.DB
}

func newRequest(id string, created time.Time) *entity.Request {
	return &entity.Request{
		ID:             id,
		SubmittedBy:    "1",
		RequesterName:  "Dr. Sarah Ali",
		RequesterEmail: "sarah.ali@university.suza",
		Department:     "Computer Science",
		School:         "Engineering",
		Destination:    "Nairobi, Kenya",
		Reason:         "Conference Attendance",
		StartDate:      time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC),
		EndDate:        time.Date(2025, 2, 20, 0, 0, 0, 0, time.UTC),
		IsPrivate:      true,
		Status:         entity.StatusPending,
		CurrentLevel:   entity.LevelHoD,
		CreatedAt:      created,
		UpdatedAt:      created,
	}
}

func TestRequestRepository_CreateAndGet(t *testing.T) {
	db := setupDB(t)
	repo := NewRequestRepository(db, zap.NewNop())
	ctx := context.Background()

	created := time.Date(2025, 1, 10, 9, 30, 0, 0, time.UTC)
	require.NoError(t, repo.Create(ctx, newRequest("req-1", created)))

	got, err := repo.GetByID(ctx, "req-1")
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, "Computer Science", got.Department)
	assert.Equal(t, "2025-02-15", got.StartDate.Format(entity.DateLayout))
	assert.Equal(t, "2025-02-20", got.EndDate.Format(entity.DateLayout))
	assert.True(t, got.IsPrivate)
	assert.Equal(t, entity.StatusPending, got.Status)
	assert.Equal(t, entity.LevelHoD, got.CurrentLevel)
	assert.True(t, created.Equal(got.CreatedAt))
	assert.Empty(t, got.Decisions)

	missing, err := repo.GetByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRequestRepository_UpdateStateIsCompareAndSet(t *testing.T) {
	db := setupDB(t)
	repo := NewRequestRepository(db, zap.NewNop())
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newRequest("req-1", time.Now())))

	ok, err := repo.UpdateState(ctx, "req-1", entity.LevelHoD, entity.LevelDean, entity.StatusPending, time.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	// A second writer that still believes the request is at hod loses.
	ok, err = repo.UpdateState(ctx, "req-1", entity.LevelHoD, entity.LevelCompleted, entity.StatusRejected, time.Now())
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := repo.GetByID(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, entity.LevelDean, got.CurrentLevel)
	assert.Equal(t, entity.StatusPending, got.Status)
}

func TestRequestRepository_ListFilters(t *testing.T) {
	db := setupDB(t)
	repo := NewRequestRepository(db, zap.NewNop())
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	r1 := newRequest("req-1", base)
	r2 := newRequest("req-2", base.Add(time.Hour))
	r2.Department, r2.School = "Chemistry", "Science"
	r3 := newRequest("req-3", base.Add(2*time.Hour))
	r3.Status, r3.CurrentLevel = entity.StatusRejected, entity.LevelCompleted
	for _, r := range []*entity.Request{r1, r2, r3} {
		require.NoError(t, repo.Create(ctx, r))
	}

	all, err := repo.List(ctx, port.RequestQuery{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "req-3", all[0].ID, "newest first")

	science, err := repo.List(ctx, port.RequestQuery{School: "Science"})
	require.NoError(t, err)
	require.Len(t, science, 1)
	assert.Equal(t, "req-2", science[0].ID)

	pendingHoD, err := repo.List(ctx, port.RequestQuery{Status: entity.StatusPending, Level: entity.LevelHoD, Department: "Computer Science"})
	require.NoError(t, err)
	require.Len(t, pendingHoD, 1)
	assert.Equal(t, "req-1", pendingHoD[0].ID)

	page, err := repo.List(ctx, port.RequestQuery{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "req-2", page[0].ID)
}

func TestDecisionRepository_OnePerLevel(t *testing.T) {
	db := setupDB(t)
	requests := NewRequestRepository(db, zap.NewNop())
	decisions := NewDecisionRepository(db, zap.NewNop())
	ctx := context.Background()
	require.NoError(t, requests.Create(ctx, newRequest("req-1", time.Now())))

	dean := &entity.ApprovalDecision{ID: "d2", RequestID: "req-1", Level: entity.LevelDean, ApproverID: "2", ApproverName: "Prof. Hassan Bambi", Approved: false, Comment: "conflict", DecidedAt: time.Now()}
	hod := &entity.ApprovalDecision{ID: "d1", RequestID: "req-1", Level: entity.LevelHoD, ApproverID: "1", ApproverName: "Dr. Sarah Ali", Approved: true, DecidedAt: time.Now()}
	require.NoError(t, decisions.Create(ctx, dean))
	require.NoError(t, decisions.Create(ctx, hod))

	duplicate := *hod
	duplicate.ID = "d3"
	assert.Error(t, decisions.Create(ctx, &duplicate))

	got, err := decisions.GetByRequestID(ctx, "req-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, entity.LevelHoD, got[0].Level)
	assert.Equal(t, entity.LevelDean, got[1].Level)
	assert.False(t, got[1].Approved)
	assert.Equal(t, "conflict", got[1].Comment)

	req, err := requests.GetByID(ctx, "req-1")
	require.NoError(t, err)
	require.NotNil(t, req.HoDApproval())
	require.NotNil(t, req.DeanApproval())
	assert.Nil(t, req.DVCApproval())
}

func TestRequestRepository_ListAttachesDecisionsPastParameterLimit(t *testing.T) {
	db := setupDB(t)
	tx := sqlite.NewDB(db, zap.NewNop())
	requests := NewRequestRepository(db, zap.NewNop())
	decisions := NewDecisionRepository(db, zap.NewNop())
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	// more rows than SQLite accepts as host parameters in one statement
	const total = 2*decisionBatchSize + 201
	require.NoError(t, tx.WithTransaction(ctx, func(txCtx context.Context) error {
		for i := 0; i < total; i++ {
			id := fmt.Sprintf("req-%04d", i)
			if err := requests.Create(txCtx, newRequest(id, base.Add(time.Duration(i)*time.Minute))); err != nil {
				return err
			}
			if i%decisionBatchSize != 0 {
				continue
			}
			if err := decisions.Create(txCtx, &entity.ApprovalDecision{
				ID: "dec-" + id, RequestID: id, Level: entity.LevelHoD,
				ApproverID: "1", ApproverName: "Dr. Sarah Ali", Approved: true, DecidedAt: base,
			}); err != nil {
				return err
			}
		}
		return nil
	}))

	all, err := requests.List(ctx, port.RequestQuery{})
	require.NoError(t, err)
	require.Len(t, all, total)

	decided := 0
	for _, req := range all {
		if req.HoDApproval() != nil {
			decided++
		}
	}
	assert.Equal(t, 3, decided, "one decided request in each batch")
}

func TestDecisionRepository_RollsBackWithTransaction(t *testing.T) {
	db := setupDB(t)
	tx := sqlite.NewDB(db, zap.NewNop())
	requests := NewRequestRepository(db, zap.NewNop())
	decisions := NewDecisionRepository(db, zap.NewNop())
	ctx := context.Background()
	require.NoError(t, requests.Create(ctx, newRequest("req-1", time.Now())))

	err := tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if _, err := requests.UpdateState(txCtx, "req-1", entity.LevelHoD, entity.LevelDean, entity.StatusPending, time.Now()); err != nil {
			return err
		}
		// Unknown request id violates the foreign key.
		return decisions.Create(txCtx, &entity.ApprovalDecision{ID: "d1", RequestID: "missing", Level: entity.LevelHoD, ApproverID: "1", ApproverName: "x", Approved: true, DecidedAt: time.Now()})
	})
	require.Error(t, err)

	got, err := requests.GetByID(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, entity.LevelHoD, got.CurrentLevel, "state change must roll back with the decision")
}

func TestDirectoryRepository(t *testing.T) {
	db := setupDB(t)
	repo := NewDirectoryRepository(db, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, repo.UpsertSchool(ctx, &entity.School{ID: "s1", Name: "Engineering", DeanID: "2"}))
	require.NoError(t, repo.UpsertDepartment(ctx, &entity.Department{ID: "d1", Name: "Computer Science", School: "Engineering", HoDID: "1"}))
	require.NoError(t, repo.UpsertUser(ctx, &entity.User{ID: "1", Name: "Dr. Sarah Ali", Email: "sarah.ali@university.suza", Role: entity.RoleHoD, Department: "Computer Science", School: "Engineering"}))
	require.NoError(t, repo.UpsertUser(ctx, &entity.User{ID: "3", Name: "Prof. Melo Brown", Email: "melo.brown@university.suza", Role: entity.RoleDVC}))

	// Upsert replaces
	require.NoError(t, repo.UpsertUser(ctx, &entity.User{ID: "3", Name: "Prof. Melo Brown", Email: "dvc@university.suza", Role: entity.RoleDVC}))

	u, err := repo.GetUser(ctx, "3")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "dvc@university.suza", u.Email)

	missing, err := repo.GetUser(ctx, "99")
	require.NoError(t, err)
	assert.Nil(t, missing)

	hods, err := repo.ListUsers(ctx, entity.RoleHoD)
	require.NoError(t, err)
	require.Len(t, hods, 1)
	assert.Equal(t, "Computer Science", hods[0].Department)

	dept, err := repo.GetDepartmentByName(ctx, "Computer Science")
	require.NoError(t, err)
	require.NotNil(t, dept)
	assert.Equal(t, "Engineering", dept.School)

	depts, err := repo.ListDepartments(ctx)
	require.NoError(t, err)
	assert.Len(t, depts, 1)

	schools, err := repo.ListSchools(ctx)
	require.NoError(t, err)
	require.Len(t, schools, 1)
	assert.Equal(t, "2", schools[0].DeanID)
}

func TestNotificationRepository(t *testing.T) {
	db := setupDB(t)
	repo := NewNotificationRepository(db, zap.NewNop())
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, &entity.Notification{ID: "n1", UserID: "2", RequestID: "req-1", Kind: entity.NotificationActionRequired, Message: "first", CreatedAt: base}))
	require.NoError(t, repo.Create(ctx, &entity.Notification{ID: "n2", UserID: "2", RequestID: "req-2", Kind: entity.NotificationActionRequired, Message: "second", CreatedAt: base.Add(time.Minute)}))

	ok, err := repo.MarkRead(ctx, "n1", "3", time.Now())
	require.NoError(t, err)
	assert.False(t, ok, "other users cannot mark it read")

	ok, err = repo.MarkRead(ctx, "n1", "2", time.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	all, err := repo.ListByUser(ctx, "2", false, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "n2", all[0].ID)
	assert.NotNil(t, all[1].ReadAt)

	unread, err := repo.ListByUser(ctx, "2", true, 10)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, "n2", unread[0].ID)
}
