package domain

import "testing"

func TestNewBikeBuildIsAvailable(t *testing.T) {
	rate := 7.5
	b := NewBike{SKU: "B1", Model: "Roadster", Type: "road", HourlyRate: &rate, Notes: "n"}.Build()
	if b.Status != BikeAvailable || b.HourlyRate != 7.5 || b.ID != 0 || b.SKU != "B1" {
		t.Fatalf("unexpected bike %+v", b)
	}
}

func TestPatchesKeepUnsetFields(t *testing.T) {
	model, rate := "Cruiser", 3.0
	bike := Bike{ID: 1, SKU: "B1", Model: "Roadster", HourlyRate: 5, Status: BikeRented, Notes: "keep"}
	got := BikePatch{Model: &model, HourlyRate: &rate}.Apply(bike)
	if got.Model != "Cruiser" || got.HourlyRate != 3 || got.SKU != "B1" || got.Notes != "keep" || got.Status != BikeRented {
		t.Fatalf("unexpected patched bike %+v", got)
	}

	phone := "555"
	c := CustomerPatch{Phone: &phone}.Apply(Customer{ID: 2, Name: "Ada", Email: "a@x"})
	if c.Phone != "555" || c.Name != "Ada" || c.Email != "a@x" {
		t.Fatalf("unexpected patched customer %+v", c)
	}
}
