package service

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/garyjia/travel-approval/internal/application/port"
	"github.com/garyjia/travel-approval/internal/domain/access"
	"github.com/garyjia/travel-approval/internal/domain/entity"
	"github.com/garyjia/travel-approval/internal/domain/workflow"
)

// ReportService builds the university-wide system reports
type ReportService interface {
	Overview(ctx context.Context, viewerID string) (*entity.Overview, error)
	ExportOverview(ctx context.Context, viewerID string, w io.Writer) error
	ExportContentType() string
}

type reportServiceImpl struct {
	requests   port.RequestRepository
	directory  port.DirectoryRepository
	writer     port.ReportWriter
	topReasons int
	logger     Logger
	now        func() time.Time
}

// NewReportService creates a new ReportService. topReasons caps the reason ranking.
func NewReportService(
	requests port.RequestRepository,
	directory port.DirectoryRepository,
	writer port.ReportWriter,
	topReasons int,
	logger Logger,
) ReportService {
	if topReasons <= 0 {
		topReasons = 5
	}
	return &reportServiceImpl{
		requests:   requests,
		directory:  directory,
		writer:     writer,
		topReasons: topReasons,
		logger:     logger,
		now:        time.Now,
	}
}

// Overview aggregates every request. Only admins and the DVC may read it.
func (s *reportServiceImpl) Overview(ctx context.Context, viewerID string) (*entity.Overview, error) {
	viewer, err := s.directory.GetUser(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	if viewer == nil {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, viewerID)
	}
	if !canReadReports(viewer.Role) {
		return nil, fmt.Errorf("%w: %s cannot read system reports", workflow.ErrUnauthorized, viewer.Role)
	}

	all, err := s.requests.List(ctx, port.RequestQuery{})
	if err != nil {
		s.logger.Error("Failed to load requests for report", "error", err)
		return nil, err
	}

	return buildOverview(viewer, all, s.topReasons, s.now().UTC()), nil
}

// ExportOverview writes the overview through the configured report writer
func (s *reportServiceImpl) ExportOverview(ctx context.Context, viewerID string, w io.Writer) error {
	overview, err := s.Overview(ctx, viewerID)
	if err != nil {
		return err
	}
	if err := s.writer.WriteOverview(w, overview); err != nil {
		s.logger.Error("Failed to export overview", "error", err, "viewer", viewerID)
		return err
	}
	s.logger.Info("Overview exported", "viewer", viewerID, "total", overview.Totals.Total)
	return nil
}

func (s *reportServiceImpl) ExportContentType() string {
	return s.writer.ContentType()
}

func canReadReports(role entity.Role) bool {
	switch role {
	case entity.RoleAdmin, entity.RoleDVC:
		return true
	case entity.RoleHoD, entity.RoleDean:
		return false
	default:
		return false
	}
}

// privateReason stands in for reasons the viewer may not read
const privateReason = "Private"

func buildOverview(viewer *entity.User, requests []*entity.Request, topReasons int, now time.Time) *entity.Overview {
	overview := &entity.Overview{GeneratedAt: now, Totals: entity.Breakdown{Name: "All"}}

	departments := make(map[string]*entity.Breakdown)
	schools := make(map[string]*entity.Breakdown)
	months := make(map[string]*entity.Breakdown)
	reasons := make(map[string]int)

	var (
		processed int
		totalDays float64
	)
	for _, req := range requests {
		overview.Totals.Add(req.Status)
		bucket(departments, req.Department).Add(req.Status)
		bucket(schools, req.School).Add(req.Status)
		bucket(months, req.CreatedAt.UTC().Format("2006-01")).Add(req.Status)
		if access.CanSeePrivate(viewer, req) {
			reasons[req.Reason]++
		} else {
			reasons[privateReason]++
		}

		if req.IsFinalized() {
			processed++
			totalDays += processingDays(req)
		}
	}
	if processed > 0 {
		overview.AvgProcessingDays = totalDays / float64(processed)
	}

	overview.Departments = sortedByTotal(departments)
	overview.Schools = sortedByTotal(schools)
	overview.Months = sortedByName(months)
	overview.TopReasons = rankReasons(reasons, overview.Totals.Total, topReasons)
	return overview
}

func bucket(m map[string]*entity.Breakdown, name string) *entity.Breakdown {
	b, ok := m[name]
	if !ok {
		b = &entity.Breakdown{Name: name}
		m[name] = b
	}
	return b
}

func sortedByTotal(m map[string]*entity.Breakdown) []entity.Breakdown {
	out := flatten(m)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func sortedByName(m map[string]*entity.Breakdown) []entity.Breakdown {
	out := flatten(m)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func flatten(m map[string]*entity.Breakdown) []entity.Breakdown {
	out := make([]entity.Breakdown, 0, len(m))
	for _, b := range m {
		out = append(out, *b)
	}
	return out
}

// rankReasons returns the most frequent reasons; anything past limit is
// folded into "Other"
func rankReasons(counts map[string]int, total, limit int) []entity.ReasonCount {
	ranked := make([]entity.ReasonCount, 0, len(counts))
	for reason, n := range counts {
		ranked = append(ranked, entity.ReasonCount{Reason: reason, Count: n})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Reason < ranked[j].Reason
	})

	if len(ranked) > limit {
		other := entity.ReasonCount{Reason: "Other"}
		for _, r := range ranked[limit:] {
			other.Count += r.Count
		}
		ranked = append(ranked[:limit], other)
	}

	for i := range ranked {
		if total > 0 {
			ranked[i].Percentage = float64(ranked[i].Count) / float64(total) * 100
		}
	}
	return ranked
}
