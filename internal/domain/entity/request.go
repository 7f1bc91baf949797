package entity

import "time"

// DateLayout is the wire and storage format of travel dates.
const DateLayout = "2006-01-02"

// Request is a travel/absence request moving through the approval chain
type Request struct {
	ID string `json:"id"`

	// Submission facts, immutable after creation
	SubmittedBy    string    `json:"submitted_by"`
	RequesterName  string    `json:"requester_name"`
	RequesterEmail string    `json:"requester_email"`
	Department     string    `json:"department"`
	School         string    `json:"school"`
	Destination    string    `json:"destination"`
	Reason         string    `json:"reason"`
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
	IsPrivate      bool      `json:"is_private"`
	CreatedAt      time.Time `json:"created_at"`

	// Workflow state
	Status       Status             `json:"status"`
	CurrentLevel Level              `json:"current_level"`
	Decisions    []ApprovalDecision `json:"decisions"`
	UpdatedAt    time.Time          `json:"updated_at"`

	// Redacted is set on copies whose private fields were withheld
	Redacted bool `json:"redacted,omitempty"`
	// Actions is what the viewer of a copy may do next; never stored
	Actions []string `json:"actions,omitempty"`
}

// ApprovalDecision is one approver's verdict at one level
type ApprovalDecision struct {
	ID           string    `json:"id"`
	RequestID    string    `json:"request_id"`
	Level        Level     `json:"level"`
	ApproverID   string    `json:"approver_id"`
	ApproverName string    `json:"approver_name"`
	Approved     bool      `json:"approved"`
	Comment      string    `json:"comment,omitempty"`
	DecidedAt    time.Time `json:"decided_at"`
}

// Decision returns the decision recorded at level, if any.
func (r *Request) Decision(level Level) (*ApprovalDecision, bool) {
	for i := range r.Decisions {
		if r.Decisions[i].Level == level {
			return &r.Decisions[i], true
		}
	}
	return nil, false
}

// HoDApproval returns the Head of Department decision or nil
func (r *Request) HoDApproval() *ApprovalDecision {
	d, _ := r.Decision(LevelHoD)
	return d
}

// DeanApproval returns the Dean decision or nil
func (r *Request) DeanApproval() *ApprovalDecision {
	d, _ := r.Decision(LevelDean)
	return d
}

// DVCApproval returns the Deputy Vice Chancellor decision or nil
func (r *Request) DVCApproval() *ApprovalDecision {
	d, _ := r.Decision(LevelDVC)
	return d
}

// IsFinalized reports whether the request accepts no further decisions.
func (r *Request) IsFinalized() bool {
	return r.Status != StatusPending || r.CurrentLevel.IsTerminal()
}

// Clone returns a deep copy of the request
func (r *Request) Clone() *Request {
	c := *r
	if r.Decisions != nil {
		c.Decisions = make([]ApprovalDecision, len(r.Decisions))
		copy(c.Decisions, r.Decisions)
	}
	if r.Actions != nil {
		c.Actions = append([]string(nil), r.Actions...)
	}
	return &c
}

// Redact returns a copy with reason and destination withheld.
func (r *Request) Redact() *Request {
	c := r.Clone()
	c.Reason = ""
	c.Destination = ""
	c.Redacted = true
	return c
}
