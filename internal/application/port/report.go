package port

import (
	"io"

	"github.com/garyjia/travel-approval/internal/domain/entity"
)

// ReportWriter renders a system overview into a downloadable document
type ReportWriter interface {
	WriteOverview(w io.Writer, overview *entity.Overview) error
	ContentType() string
}
