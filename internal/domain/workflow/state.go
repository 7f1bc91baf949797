package workflow

import "github.com/garyjia/travel-approval/internal/domain/entity"

// State is a position in the approval chain
type State = entity.Level

const (
	StateHoD       = entity.LevelHoD
	StateDean      = entity.LevelDean
	StateDVC       = entity.LevelDVC
	StateCompleted = entity.LevelCompleted
)
