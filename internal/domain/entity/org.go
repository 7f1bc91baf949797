package entity

// Department belongs to one school and is led by one HoD
type Department struct {
	ID     string `json:"id" yaml:"id"`
	Name   string `json:"name" yaml:"name"`
	School string `json:"school" yaml:"school"`
	HoDID  string `json:"hod_id,omitempty" yaml:"hod_id,omitempty"`
}

// School is led by one Dean
type School struct {
	ID     string `json:"id" yaml:"id"`
	Name   string `json:"name" yaml:"name"`
	DeanID string `json:"dean_id,omitempty" yaml:"dean_id,omitempty"`
}
