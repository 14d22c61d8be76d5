package models

// PropertyCode is the opaque stable identifier of a single camera setting.
// Meaning is assigned by the vendor property catalogue; this service never
// interprets codes beyond equality checks.
type PropertyCode string

// Property is the last-known state of one device setting.
type Property struct {
	Code         PropertyCode `json:"code"`
	CurrentValue string       `json:"value"`          // formatted, display-ready
	CurrentRaw   int64        `json:"raw"`            // raw wire value
	Allowed      []int64      `json:"allowed,omitempty"` // ordered; empty means unconstrained
	Writable     bool         `json:"writable"`
}

// ValueIndexValid reports whether idx addresses an entry of Allowed.
func (p Property) ValueIndexValid(idx int) bool {
	return idx >= 0 && idx < len(p.Allowed)
}
