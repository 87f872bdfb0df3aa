package cpe

import "testing"

func TestParseURI(t *testing.T) {
	c, err := Parse("cpe:/a:microsoft:internet_explorer:8.0.6001:beta")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := Cpe{Part: "a", Vendor: "microsoft", Product: "internet_explorer", Version: "8.0.6001", Update: "beta"}
	if c != want {
		t.Errorf("got %+v, want %+v", c, want)
	}
}

func TestParseFormattedString(t *testing.T) {
	c, err := Parse("cpe:2.3:a:microsoft:internet_explorer:8.0.6001:beta:*:*:*:*:*:*")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := Cpe{Part: "a", Vendor: "microsoft", Product: "internet_explorer", Version: "8.0.6001", Update: "beta"}
	if c != want {
		t.Errorf("got %+v, want %+v", c, want)
	}
}

func TestParseInvalid(t *testing.T) {
	if _, err := Parse("not a cpe"); err == nil {
		t.Fatal("expected an error for a malformed CPE")
	}
}

func TestStringRendersAny(t *testing.T) {
	c := Cpe{Part: "a", Vendor: "acme", Product: "widget"}
	if got, want := c.String(), "cpe:2.3:a:acme:widget:*:*:*:*:*:*:*:*"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
