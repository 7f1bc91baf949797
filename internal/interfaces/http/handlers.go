package http

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/travel-approval/internal/application/service"
	"github.com/garyjia/travel-approval/internal/domain/entity"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	exportFilename  = "travel-overview.xlsx"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	services Services
	logger   Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(services Services, logger Logger) *Handlers {
	return &Handlers{services: services, logger: logger}
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   "1.0.0",
		},
	})
}

// Me handles GET /api/me
func (h *Handlers) Me(c *gin.Context) {
	c.JSON(http.StatusOK, Response{Success: true, Data: currentUser(c)})
}

// Dashboard handles GET /api/dashboard
func (h *Handlers) Dashboard(c *gin.Context) {
	dash, err := h.services.Requests.Dashboard(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		h.fail(c, "Failed to build dashboard", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: dash})
}

// SubmitRequest handles POST /api/requests
func (h *Handlers) SubmitRequest(c *gin.Context) {
	var draft service.Draft
	if err := c.ShouldBindJSON(&draft); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	user := currentUser(c)
	req, err := h.services.Requests.Submit(c.Request.Context(), user.ID, draft)
	if err != nil {
		h.fail(c, "Failed to submit request", err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: toRequestResponse(req)})
}

// ListRequests handles GET /api/requests
func (h *Handlers) ListRequests(c *gin.Context) {
	var q ListRequestsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid query parameters"})
		return
	}

	q.Limit = pageLimit(q.Limit)
	if q.Offset < 0 {
		q.Offset = 0
	}

	filter := service.Filter{
		Status:     entity.Status(q.Status),
		Level:      entity.Level(q.Level),
		Department: q.Department,
		School:     q.School,
		Scope:      service.Scope(q.Scope),
		Search:     q.Search,
		Limit:      q.Limit,
		Offset:     q.Offset,
	}

	reqs, err := h.services.Requests.List(c.Request.Context(), currentUser(c).ID, filter)
	if err != nil {
		h.fail(c, "Failed to list requests", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: toRequestResponses(reqs)})
}

// GetRequest handles GET /api/requests/:id
func (h *Handlers) GetRequest(c *gin.Context) {
	req, err := h.services.Requests.Get(c.Request.Context(), currentUser(c).ID, c.Param("id"))
	if err != nil {
		h.fail(c, "Failed to get request", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: toRequestResponse(req)})
}

// DecideRequest handles POST /api/requests/:id/decision
func (h *Handlers) DecideRequest(c *gin.Context) {
	var body DecisionRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "body must contain a boolean \"approved\""})
		return
	}

	id := c.Param("id")
	user := currentUser(c)
	req, err := h.services.Requests.Advance(c.Request.Context(), id, user.ID, *body.Approved, body.Comment)
	if err != nil {
		h.fail(c, "Failed to record decision", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: toRequestResponse(req)})
}

// ReportOverview handles GET /api/reports/overview
func (h *Handlers) ReportOverview(c *gin.Context) {
	overview, err := h.services.Reports.Overview(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		h.fail(c, "Failed to build overview", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: overview})
}

// ExportOverview handles GET /api/reports/overview.xlsx
func (h *Handlers) ExportOverview(c *gin.Context) {
	// Buffer so a failure can still be reported as JSON
	var buf bytes.Buffer
	if err := h.services.Reports.ExportOverview(c.Request.Context(), currentUser(c).ID, &buf); err != nil {
		h.fail(c, "Failed to export overview", err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+exportFilename+`"`)
	c.Data(http.StatusOK, h.services.Reports.ExportContentType(), buf.Bytes())
}

// ListUsers handles GET /api/directory/users
func (h *Handlers) ListUsers(c *gin.Context) {
	users, err := h.services.Directory.ListUsers(c.Request.Context(), entity.Role(c.Query("role")))
	if err != nil {
		h.fail(c, "Failed to list users", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: nonNil(users)})
}

// ListDepartments handles GET /api/directory/departments
func (h *Handlers) ListDepartments(c *gin.Context) {
	depts, err := h.services.Directory.ListDepartments(c.Request.Context())
	if err != nil {
		h.fail(c, "Failed to list departments", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: nonNil(depts)})
}

// ListSchools handles GET /api/directory/schools
func (h *Handlers) ListSchools(c *gin.Context) {
	schools, err := h.services.Directory.ListSchools(c.Request.Context())
	if err != nil {
		h.fail(c, "Failed to list schools", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: nonNil(schools)})
}

// ListNotifications handles GET /api/notifications
func (h *Handlers) ListNotifications(c *gin.Context) {
	var q ListNotificationsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid query parameters"})
		return
	}

	list, err := h.services.Notifications.ListForUser(c.Request.Context(), currentUser(c).ID, q.Unread)
	if err != nil {
		h.fail(c, "Failed to list notifications", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: nonNil(list)})
}

// MarkNotificationRead handles POST /api/notifications/:id/read
func (h *Handlers) MarkNotificationRead(c *gin.Context) {
	if err := h.services.Notifications.MarkRead(c.Request.Context(), currentUser(c).ID, c.Param("id")); err != nil {
		h.fail(c, "Failed to mark notification read", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true})
}

// fail writes err as a JSON error. Internal failures are logged and hidden.
func (h *Handlers) fail(c *gin.Context, msg string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error(msg, "error", err, "path", c.Request.URL.Path)
		c.JSON(status, Response{Success: false, Error: "internal server error"})
		return
	}
	c.JSON(status, Response{Success: false, Error: err.Error()})
}

// pageLimit defaults a missing limit and caps an oversized one
func pageLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultPageSize
	case limit > maxPageSize:
		return maxPageSize
	default:
		return limit
	}
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
