package models

import "time"

// Common workstream field names consulted by edge conditions.
const (
	FieldAnnualValue    = "annual_value"
	FieldTier           = "tier"
	FieldCounterpartyID = "counterparty_id"
)

// Workstream is a running instance of a Play against a business entity (a
// deal or matter). The engine reads Fields for condition evaluation and
// writes back only the output fields a step declares; everything else is
// owned by the surrounding application.
type Workstream struct {
	ID        string         `json:"id"      validate:"required"`
	PlayID    string         `json:"play_id" validate:"required"`
	Name      string         `json:"name"`
	Stage     string         `json:"stage"`
	Fields    map[string]any `json:"fields"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Field returns the named business field and whether it is set.
func (w *Workstream) Field(name string) (any, bool) {
	if w.Fields == nil {
		return nil, false
	}

	value, ok := w.Fields[name]

	return value, ok
}

// SetField writes a declared output field back onto the workstream.
func (w *Workstream) SetField(name string, value any) {
	if w.Fields == nil {
		w.Fields = make(map[string]any)
	}

	w.Fields[name] = value
}
