package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/travel-approval/internal/application/dispatcher"
	"github.com/garyjia/travel-approval/internal/application/port"
	"github.com/garyjia/travel-approval/internal/domain/access"
	"github.com/garyjia/travel-approval/internal/domain/entity"
	"github.com/garyjia/travel-approval/internal/domain/event"
	"github.com/garyjia/travel-approval/internal/domain/workflow"
	"github.com/garyjia/travel-approval/pkg/utils"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Draft is what a requester fills in. Identity always comes from the
// submitter's directory record; identity fields that are set must match it.
type Draft struct {
	RequesterName  string `json:"requester_name" validate:"omitempty,max=120"`
	RequesterEmail string `json:"requester_email" validate:"omitempty,email"`
	Department     string `json:"department" validate:"omitempty,max=120"`
	School         string `json:"school" validate:"omitempty,max=120"`
	Destination    string `json:"destination" validate:"required,max=200"`
	Reason         string `json:"reason" validate:"required,max=500"`
	StartDate      string `json:"start_date" validate:"required"`
	EndDate        string `json:"end_date" validate:"required"`
	IsPrivate      bool   `json:"is_private"`
}

// Scope narrows a listing relative to the viewer
type Scope string

const (
	ScopeAll   Scope = "all"
	ScopeMine  Scope = "mine"
	ScopeQueue Scope = "queue"
)

// IsValid reports whether s is a known scope; empty means all
func (s Scope) IsValid() bool {
	switch s {
	case "", ScopeAll, ScopeMine, ScopeQueue:
		return true
	default:
		return false
	}
}

// Filter narrows List. Zero values mean "any".
type Filter struct {
	Status     entity.Status
	Level      entity.Level
	Department string
	School     string
	Scope      Scope
	Search     string
	Limit      int
	Offset     int
}

// Dashboard holds per-viewer counters over the requests the viewer can see
type Dashboard struct {
	Total             int     `json:"total"`
	Pending           int     `json:"pending"`
	Approved          int     `json:"approved"`
	Rejected          int     `json:"rejected"`
	ThisMonth         int     `json:"this_month"`
	Mine              int     `json:"mine"`
	AwaitingMe        int     `json:"awaiting_me"`
	AvgProcessingDays float64 `json:"avg_processing_days"`
}

// RequestService is the approval workflow engine boundary
type RequestService interface {
	Submit(ctx context.Context, submitterID string, draft Draft) (*entity.Request, error)
	Advance(ctx context.Context, requestID, userID string, approved bool, comment string) (*entity.Request, error)
	Get(ctx context.Context, viewerID, requestID string) (*entity.Request, error)
	List(ctx context.Context, viewerID string, filter Filter) ([]*entity.Request, error)
	Dashboard(ctx context.Context, viewerID string) (*Dashboard, error)
}

type requestServiceImpl struct {
	requests   port.RequestRepository
	decisions  port.DecisionRepository
	directory  port.DirectoryRepository
	txManager  port.TransactionManager
	dispatcher dispatcher.Dispatcher
	logger     Logger

	locks *keyedMutex
	now   func() time.Time
}

// RequestOption customizes the request service
type RequestOption func(*requestServiceImpl)

// WithClock replaces time.Now, mainly for tests
func WithClock(now func() time.Time) RequestOption {
	return func(s *requestServiceImpl) {
		s.now = now
	}
}

// NewRequestService creates a new RequestService
func NewRequestService(
	requests port.RequestRepository,
	decisions port.DecisionRepository,
	directory port.DirectoryRepository,
	txManager port.TransactionManager,
	events dispatcher.Dispatcher,
	logger Logger,
	opts ...RequestOption,
) RequestService {
	s := &requestServiceImpl{
		requests:   requests,
		decisions:  decisions,
		directory:  directory,
		txManager:  txManager,
		dispatcher: events,
		logger:     logger,
		locks:      newKeyedMutex(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit creates a request at the first level of the chain
func (s *requestServiceImpl) Submit(ctx context.Context, submitterID string, draft Draft) (*entity.Request, error) {
	submitter, err := s.lookupUser(ctx, submitterID)
	if err != nil {
		return nil, err
	}
	if submitter.Role != entity.RoleHoD {
		return nil, fmt.Errorf("%w: only heads of department submit requests", workflow.ErrUnauthorized)
	}

	req, err := s.buildRequest(ctx, submitter, draft)
	if err != nil {
		return nil, err
	}

	if err := s.requests.Create(ctx, req); err != nil {
		s.logger.Error("Failed to create request", "error", err, "submitted_by", submitter.ID)
		return nil, err
	}

	s.logger.Info("Request submitted",
		"request_id", req.ID,
		"submitted_by", submitter.ID,
		"department", req.Department,
		"level", req.CurrentLevel)

	s.publish(ctx, event.NewEvent(event.TypeRequestSubmitted, req.ID, submitter.ID, routingPayload(req)))
	return req.Clone(), nil
}

func (s *requestServiceImpl) buildRequest(ctx context.Context, submitter *entity.User, draft Draft) (*entity.Request, error) {
	if err := utils.ValidateStruct(draft); err != nil {
		return nil, fmt.Errorf("%w: %v", workflow.ErrValidation, err)
	}

	start, err := utils.ParseDate(draft.StartDate)
	if err != nil {
		return nil, fmt.Errorf("%w: start_date: %v", workflow.ErrValidation, err)
	}
	end, err := utils.ParseDate(draft.EndDate)
	if err != nil {
		return nil, fmt.Errorf("%w: end_date: %v", workflow.ErrValidation, err)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end_date %s is before start_date %s",
			workflow.ErrValidation, draft.EndDate, draft.StartDate)
	}

	if err := matchIdentity(submitter, draft); err != nil {
		return nil, err
	}

	req := &entity.Request{
		SubmittedBy:    submitter.ID,
		RequesterName:  strings.TrimSpace(submitter.Name),
		RequesterEmail: strings.TrimSpace(submitter.Email),
		Department:     strings.TrimSpace(submitter.Department),
		School:         strings.TrimSpace(submitter.School),
		Destination:    utils.SanitizeString(draft.Destination),
		Reason:         utils.SanitizeString(draft.Reason),
		StartDate:      start,
		EndDate:        end,
		IsPrivate:      draft.IsPrivate,
	}

	switch {
	case req.RequesterName == "":
		return nil, fmt.Errorf("%w: requester_name is required", workflow.ErrValidation)
	case req.Department == "":
		return nil, fmt.Errorf("%w: department is required", workflow.ErrValidation)
	case req.School == "":
		return nil, fmt.Errorf("%w: school is required", workflow.ErrValidation)
	case req.Destination == "" || req.Reason == "":
		return nil, fmt.Errorf("%w: destination and reason are required", workflow.ErrValidation)
	}
	if err := utils.ValidateEmail(req.RequesterEmail); err != nil {
		return nil, fmt.Errorf("%w: %v", workflow.ErrValidation, err)
	}

	dept, err := s.directory.GetDepartmentByName(ctx, req.Department)
	if err != nil {
		return nil, err
	}
	if dept == nil {
		return nil, fmt.Errorf("%w: unknown department %q", workflow.ErrValidation, req.Department)
	}
	if dept.School != req.School {
		return nil, fmt.Errorf("%w: department %q belongs to school %q, not %q",
			workflow.ErrValidation, dept.Name, dept.School, req.School)
	}

	now := s.now().UTC()
	req.ID = uuid.NewString()
	req.Status = entity.StatusPending
	req.CurrentLevel = entity.LevelHoD
	req.CreatedAt = now
	req.UpdatedAt = now
	return req, nil
}

// Advance records userID's decision on the request and moves it along the chain
func (s *requestServiceImpl) Advance(ctx context.Context, requestID, userID string, approved bool, comment string) (*entity.Request, error) {
	user, err := s.lookupUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(requestID)
	defer unlock()

	current, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, fmt.Errorf("%w: %s", ErrRequestNotFound, requestID)
	}
	if current.IsFinalized() {
		return nil, fmt.Errorf("%w: request %s is %s", workflow.ErrAlreadyFinalized, current.ID, current.Status)
	}

	decision := entity.ApprovalDecision{
		ID:           uuid.NewString(),
		Level:        current.CurrentLevel,
		ApproverID:   user.ID,
		ApproverName: user.Name,
		Approved:     approved,
		Comment:      utils.SanitizeString(comment),
		DecidedAt:    s.now().UTC(),
	}

	from := current.CurrentLevel
	next := current.Clone()
	if err := workflow.Advance(user, next, decision); err != nil {
		if errors.Is(err, workflow.ErrUnauthorized) {
			s.logger.Info("Decision refused", "request_id", requestID, "user_id", user.ID, "role", user.Role, "level", current.CurrentLevel)
		}
		return nil, err
	}
	recorded := next.Decisions[len(next.Decisions)-1]

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		moved, err := s.requests.UpdateState(txCtx, next.ID, from, next.CurrentLevel, next.Status, next.UpdatedAt)
		if err != nil {
			return err
		}
		if !moved {
			return errLostRace
		}
		return s.decisions.Create(txCtx, &recorded)
	})
	if errors.Is(err, errLostRace) {
		return nil, s.explainLostRace(ctx, requestID)
	}
	if err != nil {
		s.logger.Error("Failed to record decision", "error", err, "request_id", requestID, "user_id", user.ID)
		return nil, err
	}

	s.logger.Info("Request advanced",
		"request_id", next.ID,
		"actor", user.ID,
		"approved", approved,
		"from", from,
		"to", next.CurrentLevel,
		"status", next.Status)

	s.publishAdvance(ctx, next, user.ID, from, recorded)
	return withActions(user, next), nil
}

// explainLostRace re-reads a request whose update lost the compare-and-set
func (s *requestServiceImpl) explainLostRace(ctx context.Context, requestID string) error {
	latest, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return err
	}
	if latest == nil {
		return fmt.Errorf("%w: %s", ErrRequestNotFound, requestID)
	}
	if latest.IsFinalized() {
		return fmt.Errorf("%w: request %s is %s", workflow.ErrAlreadyFinalized, latest.ID, latest.Status)
	}
	return fmt.Errorf("%w: request %s moved to %s", workflow.ErrInvalidTransition, latest.ID, latest.CurrentLevel)
}

// Get returns the request as the viewer may see it
func (s *requestServiceImpl) Get(ctx context.Context, viewerID, requestID string) (*entity.Request, error) {
	viewer, err := s.lookupUser(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, fmt.Errorf("%w: %s", ErrRequestNotFound, requestID)
	}

	view, ok := access.View(viewer, req)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRequestNotFound, requestID)
	}
	return withActions(viewer, view), nil
}

// List returns the requests visible to the viewer, newest first, redacted per policy
func (s *requestServiceImpl) List(ctx context.Context, viewerID string, filter Filter) ([]*entity.Request, error) {
	viewer, err := s.lookupUser(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	if err := validateFilter(filter); err != nil {
		return nil, err
	}

	query := port.RequestQuery{
		Status:     filter.Status,
		Level:      filter.Level,
		Department: filter.Department,
		School:     filter.School,
	}
	switch filter.Scope {
	case ScopeMine:
		query.SubmittedBy = viewer.ID
	case ScopeQueue:
		level, ok := viewer.Role.ApprovalLevel()
		if !ok {
			return []*entity.Request{}, nil
		}
		query.Status = entity.StatusPending
		query.Level = level
	case ScopeAll, "":
	}

	candidates, err := s.requests.List(ctx, query)
	if err != nil {
		s.logger.Error("Failed to list requests", "error", err, "viewer", viewer.ID)
		return nil, err
	}

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	views := make([]*entity.Request, 0, len(candidates))
	for _, req := range candidates {
		if filter.Scope == ScopeQueue && !access.CanDecide(viewer, req) {
			continue
		}
		view, ok := access.View(viewer, req)
		if !ok || !matchesSearch(view, search) {
			continue
		}
		views = append(views, withActions(viewer, view))
	}

	return paginate(views, filter.Offset, filter.Limit), nil
}

// Dashboard summarizes the requests visible to the viewer
func (s *requestServiceImpl) Dashboard(ctx context.Context, viewerID string) (*Dashboard, error) {
	viewer, err := s.lookupUser(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	all, err := s.requests.List(ctx, port.RequestQuery{})
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	var (
		dash      Dashboard
		processed int
		totalDays float64
	)
	for _, req := range all {
		if !access.VisibleTo(viewer, req) {
			continue
		}
		dash.Total++
		switch req.Status {
		case entity.StatusPending:
			dash.Pending++
		case entity.StatusApproved:
			dash.Approved++
		case entity.StatusRejected:
			dash.Rejected++
		}
		if req.CreatedAt.Year() == now.Year() && req.CreatedAt.Month() == now.Month() {
			dash.ThisMonth++
		}
		if access.IsRequester(viewer, req) {
			dash.Mine++
		}
		if access.CanDecide(viewer, req) {
			dash.AwaitingMe++
		}
		if req.IsFinalized() {
			processed++
			totalDays += processingDays(req)
		}
	}
	if processed > 0 {
		dash.AvgProcessingDays = totalDays / float64(processed)
	}

	return &dash, nil
}

func (s *requestServiceImpl) lookupUser(ctx context.Context, id string) (*entity.User, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty user id", ErrUserNotFound)
	}
	user, err := s.directory.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, id)
	}
	return user, nil
}

func (s *requestServiceImpl) publishAdvance(ctx context.Context, req *entity.Request, actorID string, from entity.Level, decision entity.ApprovalDecision) {
	payload := routingPayload(req)
	payload["from_level"] = from.String()
	payload["approved"] = decision.Approved
	payload["approver_name"] = decision.ApproverName
	s.publish(ctx, event.NewEvent(event.TypeRequestAdvanced, req.ID, actorID, payload))

	switch req.Status {
	case entity.StatusApproved:
		s.publish(ctx, event.NewEvent(event.TypeRequestApproved, req.ID, actorID, routingPayload(req)))
	case entity.StatusRejected:
		s.publish(ctx, event.NewEvent(event.TypeRequestRejected, req.ID, actorID, routingPayload(req)).
			WithPayload("rejected_at", from.String()))
	case entity.StatusPending:
	}
}

// publish dispatches after commit. Handler failures are logged and never
// undo the state change.
func (s *requestServiceImpl) publish(ctx context.Context, evt *event.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Dispatch(ctx, evt); err != nil {
		s.logger.Error("Event handler failed", "error", err, "event_type", evt.Type, "request_id", evt.RequestID)
	}
}

func routingPayload(req *entity.Request) map[string]interface{} {
	return map[string]interface{}{
		"submitted_by":   req.SubmittedBy,
		"requester_name": req.RequesterName,
		"department":     req.Department,
		"school":         req.School,
		"level":          req.CurrentLevel.String(),
		"status":         req.Status.String(),
	}
}

func validateFilter(f Filter) error {
	if f.Status != "" && !f.Status.IsValid() {
		return fmt.Errorf("%w: unknown status %q", workflow.ErrValidation, f.Status)
	}
	if f.Level != "" && !f.Level.IsValid() {
		return fmt.Errorf("%w: unknown level %q", workflow.ErrValidation, f.Level)
	}
	if !f.Scope.IsValid() {
		return fmt.Errorf("%w: unknown scope %q", workflow.ErrValidation, f.Scope)
	}
	if f.Limit < 0 || f.Offset < 0 {
		return fmt.Errorf("%w: limit and offset must not be negative", workflow.ErrValidation)
	}
	return nil
}

// matchesSearch only looks at fields the viewer can see, so redacted text
// never influences the result
func matchesSearch(view *entity.Request, search string) bool {
	if search == "" {
		return true
	}
	fields := []string{view.RequesterName, view.Department, view.School}
	if !view.Redacted {
		fields = append(fields, view.Destination, view.Reason)
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), search) {
			return true
		}
	}
	return false
}

func paginate(views []*entity.Request, offset, limit int) []*entity.Request {
	if offset >= len(views) {
		return []*entity.Request{}
	}
	views = views[offset:]
	if limit > 0 && limit < len(views) {
		views = views[:limit]
	}
	return views
}

func processingDays(req *entity.Request) float64 {
	return req.UpdatedAt.Sub(req.CreatedAt).Hours() / 24
}

// withActions records on view what viewer may do with it next
func withActions(viewer *entity.User, view *entity.Request) *entity.Request {
	view.Actions = nil
	for _, trigger := range workflow.AvailableActions(viewer, view) {
		view.Actions = append(view.Actions, strings.ToLower(trigger.String()))
	}
	return view
}

// matchIdentity rejects drafts that name someone other than the submitter
func matchIdentity(submitter *entity.User, draft Draft) error {
	claims := []struct {
		field, claimed, actual string
	}{
		{"requester_name", draft.RequesterName, submitter.Name},
		{"requester_email", draft.RequesterEmail, submitter.Email},
		{"department", draft.Department, submitter.Department},
		{"school", draft.School, submitter.School},
	}
	for _, c := range claims {
		claimed := strings.TrimSpace(c.claimed)
		if claimed == "" {
			continue
		}
		if !strings.EqualFold(claimed, strings.TrimSpace(c.actual)) {
			return fmt.Errorf("%w: %s %q does not match the submitter's directory record",
				workflow.ErrValidation, c.field, claimed)
		}
	}
	return nil
}
