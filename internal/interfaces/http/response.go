package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/garyjia/travel-approval/internal/application/service"
	"github.com/garyjia/travel-approval/internal/domain/entity"
	"github.com/garyjia/travel-approval/internal/domain/workflow"
)

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// DecisionResponse is one recorded verdict
type DecisionResponse struct {
	Level        string `json:"level"`
	ApproverID   string `json:"approver_id"`
	ApproverName string `json:"approver_name"`
	Approved     bool   `json:"approved"`
	Comment      string `json:"comment,omitempty"`
	DecidedAt    string `json:"decided_at"`
}

// RequestResponse is a request as shown to one viewer
type RequestResponse struct {
	ID             string             `json:"id"`
	SubmittedBy    string             `json:"submitted_by"`
	RequesterName  string             `json:"requester_name"`
	RequesterEmail string             `json:"requester_email"`
	Department     string             `json:"department"`
	School         string             `json:"school"`
	Destination    string             `json:"destination,omitempty"`
	Reason         string             `json:"reason,omitempty"`
	StartDate      string             `json:"start_date"`
	EndDate        string             `json:"end_date"`
	IsPrivate      bool               `json:"is_private"`
	Redacted       bool               `json:"redacted"`
	Status         string             `json:"status"`
	CurrentLevel   string             `json:"current_level"`
	Decisions      []DecisionResponse `json:"decisions"`
	Actions        []string           `json:"actions"`
	CreatedAt      string             `json:"created_at"`
	UpdatedAt      string             `json:"updated_at"`
}

// DecisionRequest is the body of POST /api/requests/:id/decision
type DecisionRequest struct {
	Approved *bool  `json:"approved" binding:"required"`
	Comment  string `json:"comment" binding:"max=1000"`
}

// ListRequestsQuery holds the query parameters of GET /api/requests
type ListRequestsQuery struct {
	Status     string `form:"status"`
	Level      string `form:"level"`
	Department string `form:"department"`
	School     string `form:"school"`
	Scope      string `form:"scope"`
	Search     string `form:"q"`
	Limit      int    `form:"limit"`
	Offset     int    `form:"offset"`
}

// ListNotificationsQuery is the query string of GET /api/notifications
type ListNotificationsQuery struct {
	Unread bool `form:"unread"`
}

func toRequestResponse(req *entity.Request) RequestResponse {
	resp := RequestResponse{
		ID:             req.ID,
		SubmittedBy:    req.SubmittedBy,
		RequesterName:  req.RequesterName,
		RequesterEmail: req.RequesterEmail,
		Department:     req.Department,
		School:         req.School,
		Destination:    req.Destination,
		Reason:         req.Reason,
		StartDate:      req.StartDate.Format(entity.DateLayout),
		EndDate:        req.EndDate.Format(entity.DateLayout),
		IsPrivate:      req.IsPrivate,
		Redacted:       req.Redacted,
		Status:         req.Status.String(),
		CurrentLevel:   req.CurrentLevel.String(),
		Decisions:      make([]DecisionResponse, 0, len(req.Decisions)),
		Actions:        nonNil(req.Actions),
		CreatedAt:      req.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:      req.UpdatedAt.UTC().Format(time.RFC3339),
	}
	for _, d := range req.Decisions {
		resp.Decisions = append(resp.Decisions, DecisionResponse{
			Level:        d.Level.String(),
			ApproverID:   d.ApproverID,
			ApproverName: d.ApproverName,
			Approved:     d.Approved,
			Comment:      d.Comment,
			DecidedAt:    d.DecidedAt.UTC().Format(time.RFC3339),
		})
	}
	return resp
}

func toRequestResponses(reqs []*entity.Request) []RequestResponse {
	out := make([]RequestResponse, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, toRequestResponse(r))
	}
	return out
}

// statusFor maps service and domain errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, workflow.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, workflow.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, service.ErrRequestNotFound),
		errors.Is(err, service.ErrNotificationNotFound),
		errors.Is(err, service.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, workflow.ErrInvalidTransition),
		errors.Is(err, workflow.ErrAlreadyFinalized):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
