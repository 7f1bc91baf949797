package workflow

import (
	"errors"
	"fmt"

	"github.com/garyjia/travel-approval/internal/domain/access"
	"github.com/garyjia/travel-approval/internal/domain/entity"
)

var approvalChain = NewApprovalChain()

// NewApprovalChain builds the fixed hod -> dean -> dvc -> completed chain.
// A rejection at any level ends the chain. Every transition is guarded by
// the decision authority check.
func NewApprovalChain() *Chain {
	b := NewChainBuilder()
	for i, level := range entity.ApprovalLevels {
		next := StateCompleted
		if i+1 < len(entity.ApprovalLevels) {
			next = entity.ApprovalLevels[i+1]
		}
		b.Allow(level, TriggerApprove, next, access.CanDecide).
			Allow(level, TriggerReject, StateCompleted, access.CanDecide)
	}
	return b.Build()
}

// AvailableActions lists what actor may do with req right now
func AvailableActions(actor *entity.User, req *entity.Request) []Trigger {
	return approvalChain.Actions(actor, req)
}

// Advance applies actor's decision to req. On error req is left untouched.
func Advance(actor *entity.User, req *entity.Request, decision entity.ApprovalDecision) error {
	if req.IsFinalized() {
		return fmt.Errorf("%w: request %s is %s", ErrAlreadyFinalized, req.ID, req.Status)
	}
	if !req.CurrentLevel.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidState, req.CurrentLevel)
	}
	if decision.Level != req.CurrentLevel {
		return fmt.Errorf("%w: decision for level %s but request %s is at %s",
			ErrInvalidTransition, decision.Level, req.ID, req.CurrentLevel)
	}
	if _, exists := req.Decision(decision.Level); exists {
		return fmt.Errorf("%w: level %s already decided on request %s", ErrInvalidTransition, decision.Level, req.ID)
	}

	next, err := approvalChain.Next(actor, req, TriggerFor(decision.Approved))
	if err != nil {
		return err
	}

	decision.RequestID = req.ID
	req.Decisions = append(req.Decisions, decision)
	req.CurrentLevel = next
	switch {
	case !decision.Approved:
		req.Status = entity.StatusRejected
	case req.CurrentLevel.IsTerminal():
		req.Status = entity.StatusApproved
	default:
		req.Status = entity.StatusPending
	}
	req.UpdatedAt = decision.DecidedAt

	return nil
}

// ErrInvariant is returned by CheckInvariants
var ErrInvariant = errors.New("request invariant violated")

// CheckInvariants verifies the status, level and decision history agree.
func CheckInvariants(req *entity.Request) error {
	if !req.Status.IsValid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvariant, req.Status)
	}
	if !req.CurrentLevel.IsValid() {
		return fmt.Errorf("%w: unknown level %q", ErrInvariant, req.CurrentLevel)
	}
	if (req.Status == entity.StatusPending) != !req.CurrentLevel.IsTerminal() {
		return fmt.Errorf("%w: status %s with level %s", ErrInvariant, req.Status, req.CurrentLevel)
	}
	if len(req.Decisions) > len(entity.ApprovalLevels) {
		return fmt.Errorf("%w: %d decisions", ErrInvariant, len(req.Decisions))
	}

	rejected := false
	for i, d := range req.Decisions {
		if d.Level != entity.ApprovalLevels[i] {
			return fmt.Errorf("%w: decision %d at level %s, want %s", ErrInvariant, i, d.Level, entity.ApprovalLevels[i])
		}
		if rejected {
			return fmt.Errorf("%w: decision at %s after a rejection", ErrInvariant, d.Level)
		}
		if !d.Approved {
			rejected = true
		}
	}

	switch req.Status {
	case entity.StatusRejected:
		if !rejected {
			return fmt.Errorf("%w: rejected without a rejecting decision", ErrInvariant)
		}
	case entity.StatusApproved:
		if rejected || len(req.Decisions) != len(entity.ApprovalLevels) {
			return fmt.Errorf("%w: approved without three approvals", ErrInvariant)
		}
	case entity.StatusPending:
		if rejected {
			return fmt.Errorf("%w: pending after a rejection", ErrInvariant)
		}
		if len(req.Decisions) != req.CurrentLevel.Index() {
			return fmt.Errorf("%w: %d decisions at level %s", ErrInvariant, len(req.Decisions), req.CurrentLevel)
		}
	}

	return nil
}
