package protocol

import "testing"

func TestMerge_FreshWins(t *testing.T) {
	prev := FieldSet{LaptopModel: "Dell Latitude 5440", RAM: "16GB"}
	fresh := FieldSet{RAM: "32GB", Storage: "1TB SSD"}

	got := Merge(prev, fresh)

	if got.LaptopModel != "Dell Latitude 5440" {
		t.Errorf("laptop_model = %q, want previous value kept", got.LaptopModel)
	}
	if got.RAM != "32GB" {
		t.Errorf("ram = %q, want fresh value", got.RAM)
	}
	if got.Storage != "1TB SSD" {
		t.Errorf("storage = %q, want fresh value", got.Storage)
	}
}

func TestMerge_NeverRegresses(t *testing.T) {
	prev := FieldSet{
		LaptopModel: "ThinkPad T14", RAM: "16GB", Storage: "512GB SSD",
		ScreenSize: "14-inch", Warranty: "3 years", Quantity: "25",
		DeliveryLocation: "Austin, TX", DeliveryTimeline: "March 15",
		Budget: "$30,000",
	}

	// A failed re-extraction yields an all-empty set.
	got := Merge(prev, FieldSet{})

	for _, k := range Fields() {
		if got.Get(k) != prev.Get(k) {
			t.Errorf("field %s regressed from %q to %q", k, prev.Get(k), got.Get(k))
		}
	}
}

func TestMerge_WhitespaceIsEmpty(t *testing.T) {
	prev := FieldSet{Warranty: "1 year"}
	got := Merge(prev, FieldSet{Warranty: "   "})
	if got.Warranty != "1 year" {
		t.Errorf("warranty = %q, want whitespace-only fresh value ignored", got.Warranty)
	}
}

func TestMissingRequired_Empty(t *testing.T) {
	f := FieldSet{}
	missing := f.MissingRequired()
	if len(missing) != 8 {
		t.Fatalf("expected 8 missing required fields, got %d: %v", len(missing), missing)
	}
	for _, k := range missing {
		if k == FieldBudget {
			t.Error("budget must never be required")
		}
	}
	if f.IsComplete() {
		t.Error("empty set reported complete")
	}
}

func TestMissingRequired_BudgetOptional(t *testing.T) {
	f := FieldSet{
		LaptopModel: "MacBook Pro", RAM: "16GB", Storage: "512GB",
		ScreenSize: "14-inch", Warranty: "AppleCare", Quantity: "10",
		DeliveryLocation: "Berlin", DeliveryTimeline: "ASAP",
	}
	if missing := f.MissingRequired(); len(missing) != 0 {
		t.Errorf("expected no missing fields, got %v", missing)
	}
	if !f.IsComplete() {
		t.Error("complete set reported incomplete without budget")
	}
}

func TestIsComplete_RoundTrip(t *testing.T) {
	// IsComplete must agree with MissingRequired for partial sets too.
	f := FieldSet{LaptopModel: "HP EliteBook", Quantity: "5"}
	if f.IsComplete() != (len(f.MissingRequired()) == 0) {
		t.Error("IsComplete disagrees with MissingRequired")
	}
	if got := len(f.MissingRequired()); got != 6 {
		t.Errorf("expected 6 missing fields, got %d", got)
	}
}

func TestFieldKey_Label(t *testing.T) {
	if got := FieldRAM.Label(); got != "RAM size" {
		t.Errorf("label = %q", got)
	}
	if got := FieldKey("bogus").Label(); got != "bogus" {
		t.Errorf("unknown key label = %q, want raw key", got)
	}
}

func TestFieldSet_GetSet(t *testing.T) {
	var f FieldSet
	f.Set(FieldDeliveryLocation, "Oslo")
	if got := f.Get(FieldDeliveryLocation); got != "Oslo" {
		t.Errorf("get = %q", got)
	}
	f.Set(FieldKey("bogus"), "x") // no-op
	if got := f.Get(FieldKey("bogus")); got != "" {
		t.Errorf("unknown key get = %q", got)
	}
}

func TestPreferNonEmpty(t *testing.T) {
	if got := PreferNonEmpty("old@x.com", ""); got != "old@x.com" {
		t.Errorf("got %q", got)
	}
	if got := PreferNonEmpty("old@x.com", "new@x.com"); got != "new@x.com" {
		t.Errorf("got %q", got)
	}
}

func TestStatusForMissing(t *testing.T) {
	if got := StatusForMissing(nil); got != TicketReady {
		t.Errorf("no missing fields: status = %q", got)
	}
	if got := StatusForMissing([]FieldKey{FieldRAM}); got != TicketWaitingOnCustomer {
		t.Errorf("missing fields: status = %q", got)
	}
}

func TestTicketStatus_Valid(t *testing.T) {
	for _, s := range []TicketStatus{TicketNew, TicketWaitingOnCustomer, TicketReady} {
		if !s.Valid() {
			t.Errorf("%q should be valid", s)
		}
	}
	if TicketStatus("CLOSED").Valid() {
		t.Error("unknown status should be invalid")
	}
}
