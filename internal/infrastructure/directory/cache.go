package directory

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/garyjia/travel-approval/internal/application/port"
	"github.com/garyjia/travel-approval/internal/domain/entity"
)

const (
	keyUserPrefix       = "user:"
	keyUsersByRole      = "users:"
	keyDepartmentPrefix = "dept:"
	keyDepartments      = "departments"
	keySchools          = "schools"
)

// CachedRepository fronts a DirectoryRepository with an in-memory TTL cache.
// Writes go straight through and flush the cache.
type CachedRepository struct {
	next  port.DirectoryRepository
	cache *cache.Cache
}

// NewCachedRepository wraps next; entries expire after ttl
func NewCachedRepository(next port.DirectoryRepository, ttl time.Duration) *CachedRepository {
	return &CachedRepository{
		next:  next,
		cache: cache.New(ttl, 2*ttl),
	}
}

func (c *CachedRepository) UpsertUser(ctx context.Context, user *entity.User) error {
	defer c.cache.Flush()
	return c.next.UpsertUser(ctx, user)
}

func (c *CachedRepository) UpsertDepartment(ctx context.Context, dept *entity.Department) error {
	defer c.cache.Flush()
	return c.next.UpsertDepartment(ctx, dept)
}

func (c *CachedRepository) UpsertSchool(ctx context.Context, school *entity.School) error {
	defer c.cache.Flush()
	return c.next.UpsertSchool(ctx, school)
}

// GetUser returns a copy of the cached user. Misses are not cached.
func (c *CachedRepository) GetUser(ctx context.Context, id string) (*entity.User, error) {
	if v, ok := c.cache.Get(keyUserPrefix + id); ok {
		u := v.(entity.User)
		return &u, nil
	}

	user, err := c.next.GetUser(ctx, id)
	if err != nil || user == nil {
		return user, err
	}
	c.cache.SetDefault(keyUserPrefix+id, *user)
	return user, nil
}

func (c *CachedRepository) ListUsers(ctx context.Context, role entity.Role) ([]*entity.User, error) {
	key := keyUsersByRole + string(role)
	if v, ok := c.cache.Get(key); ok {
		return copyUsers(v.([]entity.User)), nil
	}

	users, err := c.next.ListUsers(ctx, role)
	if err != nil {
		return nil, err
	}
	stored := make([]entity.User, len(users))
	for i, u := range users {
		stored[i] = *u
	}
	c.cache.SetDefault(key, stored)
	return users, nil
}

func (c *CachedRepository) GetDepartmentByName(ctx context.Context, name string) (*entity.Department, error) {
	if v, ok := c.cache.Get(keyDepartmentPrefix + name); ok {
		d := v.(entity.Department)
		return &d, nil
	}

	dept, err := c.next.GetDepartmentByName(ctx, name)
	if err != nil || dept == nil {
		return dept, err
	}
	c.cache.SetDefault(keyDepartmentPrefix+name, *dept)
	return dept, nil
}

func (c *CachedRepository) ListDepartments(ctx context.Context) ([]*entity.Department, error) {
	if v, ok := c.cache.Get(keyDepartments); ok {
		stored := v.([]entity.Department)
		out := make([]*entity.Department, len(stored))
		for i := range stored {
			d := stored[i]
			out[i] = &d
		}
		return out, nil
	}

	depts, err := c.next.ListDepartments(ctx)
	if err != nil {
		return nil, err
	}
	stored := make([]entity.Department, len(depts))
	for i, d := range depts {
		stored[i] = *d
	}
	c.cache.SetDefault(keyDepartments, stored)
	return depts, nil
}

func (c *CachedRepository) ListSchools(ctx context.Context) ([]*entity.School, error) {
	if v, ok := c.cache.Get(keySchools); ok {
		stored := v.([]entity.School)
		out := make([]*entity.School, len(stored))
		for i := range stored {
			s := stored[i]
			out[i] = &s
		}
		return out, nil
	}

	schools, err := c.next.ListSchools(ctx)
	if err != nil {
		return nil, err
	}
	stored := make([]entity.School, len(schools))
	for i, s := range schools {
		stored[i] = *s
	}
	c.cache.SetDefault(keySchools, stored)
	return schools, nil
}

func copyUsers(stored []entity.User) []*entity.User {
	out := make([]*entity.User, len(stored))
	for i := range stored {
		u := stored[i]
		out[i] = &u
	}
	return out
}

var _ port.DirectoryRepository = (*CachedRepository)(nil)
