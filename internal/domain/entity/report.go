package entity

import "time"

// Breakdown counts requests by status within one grouping (department,
// school or month)
type Breakdown struct {
	Name     string `json:"name"`
	Total    int    `json:"total"`
	Approved int    `json:"approved"`
	Rejected int    `json:"rejected"`
	Pending  int    `json:"pending"`
}

// Add counts one request with the given status
func (b *Breakdown) Add(status Status) {
	b.Total++
	switch status {
	case StatusApproved:
		b.Approved++
	case StatusRejected:
		b.Rejected++
	case StatusPending:
		b.Pending++
	}
}

// ApprovalRate is approved over decided requests, as a percentage
func (b Breakdown) ApprovalRate() float64 {
	decided := b.Approved + b.Rejected
	if decided == 0 {
		return 0
	}
	return float64(b.Approved) / float64(decided) * 100
}

// ReasonCount is how often a travel reason occurs
type ReasonCount struct {
	Reason     string  `json:"reason"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// Overview is the university-wide system report
type Overview struct {
	GeneratedAt       time.Time     `json:"generated_at"`
	Totals            Breakdown     `json:"totals"`
	AvgProcessingDays float64       `json:"avg_processing_days"`
	Departments       []Breakdown   `json:"departments"`
	Schools           []Breakdown   `json:"schools"`
	Months            []Breakdown   `json:"months"`
	TopReasons        []ReasonCount `json:"top_reasons"`
}
