package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/travel-approval/internal/application/dispatcher"
	"github.com/garyjia/travel-approval/internal/application/port"
	"github.com/garyjia/travel-approval/internal/domain/entity"
	"github.com/garyjia/travel-approval/internal/domain/event"
)

const defaultNotificationLimit = 50

// NotificationService turns request events into in-app notifications
type NotificationService interface {
	// Register subscribes the service to request events
	Register(d dispatcher.Dispatcher)

	ListForUser(ctx context.Context, userID string, unreadOnly bool) ([]*entity.Notification, error)
	MarkRead(ctx context.Context, userID, notificationID string) error

	// Remind nudges the approvers currently responsible for a pending
	// request and reports how many notifications were written
	Remind(ctx context.Context, req *entity.Request) (int, error)
}

type notificationServiceImpl struct {
	notifications port.NotificationRepository
	directory     port.DirectoryRepository
	logger        Logger
	now           func() time.Time
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(
	notifications port.NotificationRepository,
	directory port.DirectoryRepository,
	logger Logger,
) NotificationService {
	return &notificationServiceImpl{
		notifications: notifications,
		directory:     directory,
		logger:        logger,
		now:           time.Now,
	}
}

func (s *notificationServiceImpl) Register(d dispatcher.Dispatcher) {
	d.Subscribe(event.TypeRequestSubmitted, "notify-approvers", s.notifyApprovers)
	d.Subscribe(event.TypeRequestAdvanced, "notify-approvers", s.notifyApprovers)
	d.Subscribe(event.TypeRequestApproved, "notify-requester", s.notifyRequester)
	d.Subscribe(event.TypeRequestRejected, "notify-requester", s.notifyRequester)
}

func (s *notificationServiceImpl) ListForUser(ctx context.Context, userID string, unreadOnly bool) ([]*entity.Notification, error) {
	list, err := s.notifications.ListByUser(ctx, userID, unreadOnly, defaultNotificationLimit)
	if err != nil {
		s.logger.Error("Failed to list notifications", "error", err, "user_id", userID)
		return nil, err
	}
	if list == nil {
		list = []*entity.Notification{}
	}
	return list, nil
}

// MarkRead marks the user's notification read. Marking twice is not an error.
func (s *notificationServiceImpl) MarkRead(ctx context.Context, userID, notificationID string) error {
	ok, err := s.notifications.MarkRead(ctx, notificationID, userID, s.now().UTC())
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	// Distinguish "already read" from "not yours / missing"
	all, err := s.notifications.ListByUser(ctx, userID, false, 0)
	if err != nil {
		return err
	}
	for _, n := range all {
		if n.ID == notificationID {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrNotificationNotFound, notificationID)
}

// notifyApprovers tells whoever now holds the request that it awaits them
func (s *notificationServiceImpl) notifyApprovers(ctx context.Context, evt *event.Event) error {
	level := entity.Level(evt.GetPayloadString("level"))
	if level.IsTerminal() || !level.IsValid() {
		return nil
	}

	recipients, err := s.approversFor(ctx, level, evt.GetPayloadString("department"), evt.GetPayloadString("school"))
	if err != nil {
		return err
	}

	msg := fmt.Sprintf("Travel request from %s (%s) awaits your decision at %s level",
		evt.GetPayloadString("requester_name"), evt.GetPayloadString("department"), level)

	var errs []error
	for _, u := range recipients {
		if err := s.create(ctx, u.ID, evt.RequestID, entity.NotificationActionRequired, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *notificationServiceImpl) Remind(ctx context.Context, req *entity.Request) (int, error) {
	if req == nil || req.IsFinalized() {
		return 0, nil
	}

	recipients, err := s.approversFor(ctx, req.CurrentLevel, req.Department, req.School)
	if err != nil {
		return 0, err
	}

	msg := fmt.Sprintf("Reminder: travel request from %s (%s) has been waiting at %s level since %s",
		req.RequesterName, req.Department, req.CurrentLevel, req.UpdatedAt.UTC().Format(entity.DateLayout))

	sent := 0
	var errs []error
	for _, u := range recipients {
		if err := s.create(ctx, u.ID, req.ID, entity.NotificationReminder, msg); err != nil {
			errs = append(errs, err)
			continue
		}
		sent++
	}
	return sent, errors.Join(errs...)
}

// notifyRequester tells the submitter their request reached a final status
func (s *notificationServiceImpl) notifyRequester(ctx context.Context, evt *event.Event) error {
	submitter := evt.GetPayloadString("submitted_by")
	if submitter == "" {
		return nil
	}

	kind, msg := entity.NotificationApproved, "Your travel request was approved"
	if evt.Type == event.TypeRequestRejected {
		kind = entity.NotificationRejected
		msg = fmt.Sprintf("Your travel request was rejected at %s level", evt.GetPayloadString("rejected_at"))
	}
	return s.create(ctx, submitter, evt.RequestID, kind, msg)
}

func (s *notificationServiceImpl) approversFor(ctx context.Context, level entity.Level, department, school string) ([]*entity.User, error) {
	role, ok := level.Role()
	if !ok {
		return nil, nil
	}
	users, err := s.directory.ListUsers(ctx, role)
	if err != nil {
		return nil, err
	}

	var out []*entity.User
	for _, u := range users {
		switch role {
		case entity.RoleHoD:
			if u.Department != department {
				continue
			}
		case entity.RoleDean:
			if u.School != school {
				continue
			}
		case entity.RoleDVC, entity.RoleAdmin:
		}
		out = append(out, u)
	}
	return out, nil
}

func (s *notificationServiceImpl) create(ctx context.Context, userID, requestID, kind, msg string) error {
	n := &entity.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		RequestID: requestID,
		Kind:      kind,
		Message:   msg,
		CreatedAt: s.now().UTC(),
	}
	if err := s.notifications.Create(ctx, n); err != nil {
		s.logger.Error("Failed to create notification", "error", err, "user_id", userID, "request_id", requestID)
		return err
	}
	s.logger.Info("Notification created", "user_id", userID, "request_id", requestID, "kind", kind)
	return nil
}
