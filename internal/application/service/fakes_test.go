package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/garyjia/travel-approval/internal/application/port"
	"github.com/garyjia/travel-approval/internal/domain/entity"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

type passthroughTx struct{}

func (passthroughTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// memRequests stores requests and their decisions together so a
// GetByID always returns the decision history, like the SQLite repository.
type memRequests struct {
	mu        sync.Mutex
	requests  map[string]*entity.Request
	decisions map[string][]entity.ApprovalDecision

	// staleOnce makes the next UpdateState lose its compare-and-set
	staleOnce func(req *entity.Request)
}

func newMemRequests() *memRequests {
	return &memRequests{
		requests:  make(map[string]*entity.Request),
		decisions: make(map[string][]entity.ApprovalDecision),
	}
}

func (m *memRequests) Create(_ context.Context, req *entity.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.requests[req.ID]; exists {
		return fmt.Errorf("duplicate id %s", req.ID)
	}
	c := req.Clone()
	c.Decisions = nil
	m.requests[req.ID] = c
	return nil
}

func (m *memRequests) GetByID(_ context.Context, id string) (*entity.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load(id), nil
}

func (m *memRequests) load(id string) *entity.Request {
	r, ok := m.requests[id]
	if !ok {
		return nil
	}
	c := r.Clone()
	c.Decisions = append([]entity.ApprovalDecision(nil), m.decisions[id]...)
	return c
}

func (m *memRequests) List(_ context.Context, q port.RequestQuery) ([]*entity.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*entity.Request
	for id, r := range m.requests {
		switch {
		case q.Status != "" && r.Status != q.Status,
			q.Level != "" && r.CurrentLevel != q.Level,
			q.Department != "" && r.Department != q.Department,
			q.School != "" && r.School != q.School,
			q.SubmittedBy != "" && r.SubmittedBy != q.SubmittedBy:
			continue
		}
		out = append(out, m.load(id))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *memRequests) UpdateState(_ context.Context, id string, from, to entity.Level, status entity.Status, updatedAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.requests[id]
	if !ok {
		return false, nil
	}
	if m.staleOnce != nil {
		m.staleOnce(r)
		m.staleOnce = nil
	}
	if r.CurrentLevel != from || r.Status != entity.StatusPending {
		return false, nil
	}
	r.CurrentLevel, r.Status, r.UpdatedAt = to, status, updatedAt
	return true, nil
}

// decisionStore writes into the same memRequests
type decisionStore struct{ m *memRequests }

func (d decisionStore) Create(_ context.Context, decision *entity.ApprovalDecision) error {
	d.m.mu.Lock()
	defer d.m.mu.Unlock()
	for _, existing := range d.m.decisions[decision.RequestID] {
		if existing.Level == decision.Level {
			return fmt.Errorf("UNIQUE constraint failed: %s/%s", decision.RequestID, decision.Level)
		}
	}
	d.m.decisions[decision.RequestID] = append(d.m.decisions[decision.RequestID], *decision)
	return nil
}

func (d decisionStore) GetByRequestID(_ context.Context, requestID string) ([]entity.ApprovalDecision, error) {
	d.m.mu.Lock()
	defer d.m.mu.Unlock()
	return append([]entity.ApprovalDecision(nil), d.m.decisions[requestID]...), nil
}

type memDirectory struct {
	users       map[string]entity.User
	departments map[string]entity.Department
	schools     []entity.School
}

func (d *memDirectory) UpsertUser(_ context.Context, u *entity.User) error {
	d.users[u.ID] = *u
	return nil
}

func (d *memDirectory) UpsertDepartment(_ context.Context, dept *entity.Department) error {
	d.departments[dept.Name] = *dept
	return nil
}

func (d *memDirectory) UpsertSchool(_ context.Context, s *entity.School) error {
	d.schools = append(d.schools, *s)
	return nil
}

func (d *memDirectory) GetUser(_ context.Context, id string) (*entity.User, error) {
	u, ok := d.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (d *memDirectory) ListUsers(_ context.Context, role entity.Role) ([]*entity.User, error) {
	var out []*entity.User
	for _, u := range d.users {
		if role == "" || u.Role == role {
			u := u
			out = append(out, &u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (d *memDirectory) GetDepartmentByName(_ context.Context, name string) (*entity.Department, error) {
	dept, ok := d.departments[name]
	if !ok {
		return nil, nil
	}
	return &dept, nil
}

func (d *memDirectory) ListDepartments(_ context.Context) ([]*entity.Department, error) {
	var out []*entity.Department
	for _, dept := range d.departments {
		dept := dept
		out = append(out, &dept)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (d *memDirectory) ListSchools(_ context.Context) ([]*entity.School, error) {
	out := make([]*entity.School, len(d.schools))
	for i := range d.schools {
		s := d.schools[i]
		out[i] = &s
	}
	return out, nil
}

// Fixture users mirror the shipped directory
const (
	sarahHoDCS      = "1"
	hassanDeanEng   = "2"
	meloDVC         = "3"
	mohammedAdmin   = "4"
	jamesHoDPhysics = "5"
	mariaHoDChem    = "6"
	isaacDeanSci    = "10"
	elizabethDVC    = "14"
)

func newDirectory() *memDirectory {
	d := &memDirectory{
		users:       make(map[string]entity.User),
		departments: make(map[string]entity.Department),
		schools: []entity.School{
			{ID: "engineering", Name: "Engineering", DeanID: hassanDeanEng},
			{ID: "science", Name: "Science", DeanID: isaacDeanSci},
		},
	}
	for _, dept := range []entity.Department{
		{ID: "cs", Name: "Computer Science", School: "Engineering", HoDID: sarahHoDCS},
		{ID: "physics", Name: "Physics", School: "Engineering", HoDID: jamesHoDPhysics},
		{ID: "chemistry", Name: "Chemistry", School: "Science", HoDID: mariaHoDChem},
	} {
		d.departments[dept.Name] = dept
	}
	for _, u := range []entity.User{
		{ID: sarahHoDCS, Name: "Dr. Sarah Ali", Email: "sarah.ali@university.suza", Role: entity.RoleHoD, Department: "Computer Science", School: "Engineering"},
		{ID: hassanDeanEng, Name: "Prof. Hassan Bambi", Email: "hassan.bambi@university.suza", Role: entity.RoleDean, School: "Engineering"},
		{ID: meloDVC, Name: "Prof. Melo Brown", Email: "melo.brown@university.suza", Role: entity.RoleDVC},
		{ID: mohammedAdmin, Name: "Mohammed Ali", Email: "mohammed.ali@university.suza", Role: entity.RoleAdmin},
		{ID: jamesHoDPhysics, Name: "Dr. James Wilson", Email: "james.wilson@university.suza", Role: entity.RoleHoD, Department: "Physics", School: "Engineering"},
		{ID: mariaHoDChem, Name: "Prof. Maria Garcia", Email: "maria.garcia@university.suza", Role: entity.RoleHoD, Department: "Chemistry", School: "Science"},
		{ID: isaacDeanSci, Name: "Prof. Isaac Newton", Email: "isaac.newton@university.suza", Role: entity.RoleDean, School: "Science"},
		{ID: elizabethDVC, Name: "Prof. Elizabeth Brown", Email: "elizabeth.brown@university.suza", Role: entity.RoleDVC},
	} {
		d.users[u.ID] = u
	}
	return d
}

type memNotifications struct {
	mu    sync.Mutex
	items []*entity.Notification
}

func (m *memNotifications) Create(_ context.Context, n *entity.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *n
	m.items = append(m.items, &c)
	return nil
}

func (m *memNotifications) ListByUser(_ context.Context, userID string, unreadOnly bool, limit int) ([]*entity.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Notification
	for i := len(m.items) - 1; i >= 0; i-- {
		n := m.items[i]
		if n.UserID != userID || (unreadOnly && n.ReadAt != nil) {
			continue
		}
		c := *n
		out = append(out, &c)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memNotifications) MarkRead(_ context.Context, id, userID string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.items {
		if n.ID == id && n.UserID == userID && n.ReadAt == nil {
			n.ReadAt = &at
			return true, nil
		}
	}
	return false, nil
}

func (m *memNotifications) forUser(userID string) []*entity.Notification {
	list, _ := m.ListByUser(context.Background(), userID, false, 0)
	return list
}

var portQueryAll = port.RequestQuery{}
