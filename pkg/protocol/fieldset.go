package protocol

import "strings"

// FieldKey identifies one attribute of a quote request.
type FieldKey string

const (
	FieldLaptopModel      FieldKey = "laptop_model"
	FieldRAM              FieldKey = "ram"
	FieldStorage          FieldKey = "storage"
	FieldScreenSize       FieldKey = "screen_size"
	FieldWarranty         FieldKey = "warranty"
	FieldQuantity         FieldKey = "quantity"
	FieldDeliveryLocation FieldKey = "delivery_location"
	FieldDeliveryTimeline FieldKey = "delivery_timeline"
	FieldBudget           FieldKey = "budget"
)

// FieldSet is the cumulative structured record assembled for one ticket.
// All values are free-form strings as stated by the customer; empty means
// not yet known.
type FieldSet struct {
	LaptopModel      string `json:"laptop_model,omitempty"`
	RAM              string `json:"ram,omitempty"`
	Storage          string `json:"storage,omitempty"`
	ScreenSize       string `json:"screen_size,omitempty"`
	Warranty         string `json:"warranty,omitempty"`
	Quantity         string `json:"quantity,omitempty"`
	DeliveryLocation string `json:"delivery_location,omitempty"`
	DeliveryTimeline string `json:"delivery_timeline,omitempty"`
	Budget           string `json:"budget,omitempty"`
}

// fieldSpec ties a field identifier to its requiredness, customer-facing
// label, and accessors. This table is the single source of truth for both
// the completeness check and follow-up wording.
type fieldSpec struct {
	key      FieldKey
	required bool
	label    string
	get      func(*FieldSet) string
	set      func(*FieldSet, string)
}

var fieldSpecs = []fieldSpec{
	{FieldLaptopModel, true, "laptop model and specifications",
		func(f *FieldSet) string { return f.LaptopModel }, func(f *FieldSet, v string) { f.LaptopModel = v }},
	{FieldRAM, true, "RAM size",
		func(f *FieldSet) string { return f.RAM }, func(f *FieldSet, v string) { f.RAM = v }},
	{FieldStorage, true, "storage capacity",
		func(f *FieldSet) string { return f.Storage }, func(f *FieldSet, v string) { f.Storage = v }},
	{FieldScreenSize, true, "screen size",
		func(f *FieldSet) string { return f.ScreenSize }, func(f *FieldSet, v string) { f.ScreenSize = v }},
	{FieldWarranty, true, "warranty requirements",
		func(f *FieldSet) string { return f.Warranty }, func(f *FieldSet, v string) { f.Warranty = v }},
	{FieldQuantity, true, "quantity needed",
		func(f *FieldSet) string { return f.Quantity }, func(f *FieldSet, v string) { f.Quantity = v }},
	{FieldDeliveryLocation, true, "delivery location",
		func(f *FieldSet) string { return f.DeliveryLocation }, func(f *FieldSet, v string) { f.DeliveryLocation = v }},
	{FieldDeliveryTimeline, true, "delivery timeline",
		func(f *FieldSet) string { return f.DeliveryTimeline }, func(f *FieldSet, v string) { f.DeliveryTimeline = v }},
	{FieldBudget, false, "budget",
		func(f *FieldSet) string { return f.Budget }, func(f *FieldSet, v string) { f.Budget = v }},
}

// Fields returns every field identifier in canonical order.
func Fields() []FieldKey {
	keys := make([]FieldKey, len(fieldSpecs))
	for i, s := range fieldSpecs {
		keys[i] = s.key
	}
	return keys
}

// Label returns the customer-facing name of a field, or the raw key for
// unknown identifiers.
func (k FieldKey) Label() string {
	for _, s := range fieldSpecs {
		if s.key == k {
			return s.label
		}
	}
	return string(k)
}

// Required reports whether the field counts toward completeness.
func (k FieldKey) Required() bool {
	for _, s := range fieldSpecs {
		if s.key == k {
			return s.required
		}
	}
	return false
}

// Get returns the value of a field by identifier.
func (f *FieldSet) Get(k FieldKey) string {
	for _, s := range fieldSpecs {
		if s.key == k {
			return s.get(f)
		}
	}
	return ""
}

// Set writes the value of a field by identifier. Unknown identifiers are
// ignored.
func (f *FieldSet) Set(k FieldKey, v string) {
	for _, s := range fieldSpecs {
		if s.key == k {
			s.set(f, v)
			return
		}
	}
}

// populated treats whitespace-only values the same as absent ones.
func populated(v string) bool {
	return strings.TrimSpace(v) != ""
}

// Merge combines a stored field set with a freshly extracted one. A fresh
// non-empty value wins; a populated stored value is never regressed to
// empty by a weaker extraction.
func Merge(prev, fresh FieldSet) FieldSet {
	out := prev
	for _, s := range fieldSpecs {
		if v := s.get(&fresh); populated(v) {
			s.set(&out, v)
		}
	}
	return out
}

// PreferNonEmpty applies the merge rule to a single value. It is used for
// the ticket-level customer name and email, which are not FieldSet fields
// but follow the same monotonic rule.
func PreferNonEmpty(prev, fresh string) string {
	if populated(fresh) {
		return fresh
	}
	return prev
}

// MissingRequired returns the required fields that are still empty, in
// canonical order.
func (f *FieldSet) MissingRequired() []FieldKey {
	var missing []FieldKey
	for _, s := range fieldSpecs {
		if s.required && !populated(s.get(f)) {
			missing = append(missing, s.key)
		}
	}
	return missing
}

// IsComplete reports whether every required field is populated.
func (f *FieldSet) IsComplete() bool {
	return len(f.MissingRequired()) == 0
}
