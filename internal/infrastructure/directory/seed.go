package directory

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/garyjia/travel-approval/internal/application/port"
	"github.com/garyjia/travel-approval/internal/domain/entity"
)

// Seed is the org chart as written in the directory file
type Seed struct {
	Schools     []entity.School     `yaml:"schools"`
	Departments []entity.Department `yaml:"departments"`
	Users       []entity.User       `yaml:"users"`
}

// LoadSeed reads and validates the directory file at path
func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory file: %w", err)
	}
	return ParseSeed(data)
}

// ParseSeed decodes and validates a directory document
func ParseSeed(data []byte) (*Seed, error) {
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal directory: %w", err)
	}
	if err := seed.Validate(); err != nil {
		return nil, err
	}
	return &seed, nil
}

// Validate checks every user against the role rules and that each
// department, HoD and Dean points at a unit that exists.
func (s *Seed) Validate() error {
	schools := make(map[string]bool, len(s.Schools))
	for _, sc := range s.Schools {
		if sc.ID == "" || sc.Name == "" {
			return fmt.Errorf("school %q: id and name are required", sc.Name)
		}
		if schools[sc.Name] {
			return fmt.Errorf("duplicate school %q", sc.Name)
		}
		schools[sc.Name] = true
	}

	departments := make(map[string]string, len(s.Departments))
	for _, d := range s.Departments {
		if d.ID == "" || d.Name == "" {
			return fmt.Errorf("department %q: id and name are required", d.Name)
		}
		if _, dup := departments[d.Name]; dup {
			return fmt.Errorf("duplicate department %q", d.Name)
		}
		if !schools[d.School] {
			return fmt.Errorf("department %q: unknown school %q", d.Name, d.School)
		}
		departments[d.Name] = d.School
	}

	users := make(map[string]bool, len(s.Users))
	for i := range s.Users {
		u := &s.Users[i]
		if err := u.Validate(); err != nil {
			return err
		}
		if users[u.ID] {
			return fmt.Errorf("duplicate user id %q", u.ID)
		}
		users[u.ID] = true

		switch u.Role {
		case entity.RoleHoD:
			school, ok := departments[u.Department]
			if !ok {
				return fmt.Errorf("user %s: unknown department %q", u.ID, u.Department)
			}
			if school != u.School {
				return fmt.Errorf("user %s: department %q belongs to %q, not %q", u.ID, u.Department, school, u.School)
			}
		case entity.RoleDean:
			if !schools[u.School] {
				return fmt.Errorf("user %s: unknown school %q", u.ID, u.School)
			}
		case entity.RoleDVC, entity.RoleAdmin:
		}
	}

	return nil
}

// Apply upserts the seed into the directory store in one transaction
func (s *Seed) Apply(ctx context.Context, repo port.DirectoryRepository, tx port.TransactionManager, logger *zap.Logger) error {
	err := tx.WithTransaction(ctx, func(ctx context.Context) error {
		for i := range s.Schools {
			if err := repo.UpsertSchool(ctx, &s.Schools[i]); err != nil {
				return err
			}
		}
		for i := range s.Departments {
			if err := repo.UpsertDepartment(ctx, &s.Departments[i]); err != nil {
				return err
			}
		}
		for i := range s.Users {
			if err := repo.UpsertUser(ctx, &s.Users[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to seed directory: %w", err)
	}

	logger.Info("Directory seeded",
		zap.Int("schools", len(s.Schools)),
		zap.Int("departments", len(s.Departments)),
		zap.Int("users", len(s.Users)))
	return nil
}
