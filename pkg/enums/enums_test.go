package enums

import "testing"

func TestParseRentalStatus(t *testing.T) {
	for _, status := range validRentalStatuses {
		parsed, err := ParseRentalStatus(status.String())
		if err != nil {
			t.Fatalf("ParseRentalStatus(%s): %v", status, err)
		}
		if parsed != status {
			t.Fatalf("expected %s, got %s", status, parsed)
		}
	}
	if _, err := ParseRentalStatus("active"); err == nil {
		t.Fatal("lowercase input must be rejected")
	}
	if _, err := ParseRentalStatus(""); err == nil {
		t.Fatal("empty input must be rejected")
	}
}

func TestRentalStatusTerminality(t *testing.T) {
	if RentalStatusActive.IsTerminal() || RentalStatusOverdue.IsTerminal() {
		t.Fatal("active and overdue rentals must allow further transitions")
	}
	if !RentalStatusReturned.IsTerminal() || !RentalStatusCancelled.IsTerminal() {
		t.Fatal("returned and cancelled rentals must be terminal")
	}
}

func TestActiveRentalStatusesConsumeCapacity(t *testing.T) {
	for _, status := range ActiveRentalStatuses {
		if status.IsTerminal() {
			t.Fatalf("%s cannot both consume capacity and be terminal", status)
		}
	}
	for _, status := range []RentalStatus{RentalStatusReturned, RentalStatusCancelled} {
		for _, active := range ActiveRentalStatuses {
			if status == active {
				t.Fatalf("%s must not consume capacity", status)
			}
		}
	}
}

func TestParseBookingStatus(t *testing.T) {
	for _, status := range validBookingStatuses {
		parsed, err := ParseBookingStatus(status.String())
		if err != nil {
			t.Fatalf("ParseBookingStatus(%s): %v", status, err)
		}
		if parsed != status {
			t.Fatalf("expected %s, got %s", status, parsed)
		}
	}
	if _, err := ParseBookingStatus("CHECKED-IN"); err == nil {
		t.Fatal("hyphenated input must be rejected")
	}
}

func TestBookingStatusTerminality(t *testing.T) {
	terminal := map[BookingStatus]bool{
		BookingStatusBooked:    false,
		BookingStatusCheckedIn: false,
		BookingStatusCompleted: true,
		BookingStatusCancelled: true,
		BookingStatusNoShow:    true,
	}
	for status, want := range terminal {
		if got := status.IsTerminal(); got != want {
			t.Fatalf("%s: IsTerminal() = %v, want %v", status, got, want)
		}
	}
}

func TestParseEquipmentStatus(t *testing.T) {
	parsed, err := ParseEquipmentStatus("MAINTENANCE")
	if err != nil {
		t.Fatalf("ParseEquipmentStatus: %v", err)
	}
	if parsed != EquipmentStatusMaintenance {
		t.Fatalf("expected MAINTENANCE, got %s", parsed)
	}
	if _, err := ParseEquipmentStatus("BROKEN"); err == nil {
		t.Fatal("unknown status must be rejected")
	}
}

func TestParsePaymentMethod(t *testing.T) {
	for _, method := range validPaymentMethods {
		if !method.IsValid() {
			t.Fatalf("%s should be valid", method)
		}
	}
	if PaymentMethod("CHEQUE").IsValid() {
		t.Fatal("CHEQUE is not a supported method")
	}
	if _, err := ParsePaymentMethod("cash"); err == nil {
		t.Fatal("lowercase input must be rejected")
	}
}
