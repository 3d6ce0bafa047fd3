package validator

import (
	"testing"
)

func TestIsEmpty(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"", true},
		{"   ", true},
		{"abc", false},
		{" abc ", false},
	}
	for _, c := range cases {
		got := IsEmpty(c.input)
		if got != c.want {
			t.Errorf("IsEmpty(%q) = %v, want %v", c.input, got, c.want)
		}
	}
}

func TestIsValidTaxYear(t *testing.T) {
	valid := map[string]int{"2024-25": 2024, "2025-26": 2025, "1999-00": 1999}
	invalid := []string{"2024-26", "2024/25", "24-25", "2024-2025", "", "abcd-ef"}
	for s, wantStart := range valid {
		start, ok := IsValidTaxYear(s)
		if !ok || start != wantStart {
			t.Errorf("IsValidTaxYear(%q) = %d, %v, want %d, true", s, start, ok, wantStart)
		}
	}
	for _, s := range invalid {
		if _, ok := IsValidTaxYear(s); ok {
			t.Errorf("IsValidTaxYear(%q) = true, want false", s)
		}
	}
}

func TestIsValidMonth(t *testing.T) {
	for _, m := range []int{1, 6, 12} {
		if !IsValidMonth(m) {
			t.Errorf("IsValidMonth(%d) = false, want true", m)
		}
	}
	for _, m := range []int{0, 13, -1} {
		if IsValidMonth(m) {
			t.Errorf("IsValidMonth(%d) = true, want false", m)
		}
	}
}

func TestIsValidEmployeeID(t *testing.T) {
	valid := []string{"EMP-0001", "0188d0f2-7b8c-7b4a-8a2b-6b8b8b8b8b8b", "e_42"}
	invalid := []string{"", "emp 1", "emp/1"}
	for _, id := range valid {
		if !IsValidEmployeeID(id) {
			t.Errorf("IsValidEmployeeID(%q) = false, want true", id)
		}
	}
	for _, id := range invalid {
		if IsValidEmployeeID(id) {
			t.Errorf("IsValidEmployeeID(%q) = true, want false", id)
		}
	}
}

func TestValidationErrors(t *testing.T) {
	errs := ValidationErrors{
		{Field: "month", Message: "must be between 1 and 12"},
		{Field: "year", Message: "is required"},
	}
	if got := errs.Error(); got != "month: must be between 1 and 12; year: is required" {
		t.Errorf("Error() = %q", got)
	}
	if m := errs.ToMap(); m["year"] != "is required" {
		t.Errorf("ToMap()[year] = %q", m["year"])
	}
}

func TestIsValidDate(t *testing.T) {
	valid := []string{"2023-01-01", "2000-12-31"}
	invalid := []string{"2023-13-01", "2023-02-30", "01-01-2023", ""}
	for _, d := range valid {
		if _, ok := IsValidDate(d); !ok {
			t.Errorf("IsValidDate(%q) = false, want true", d)
		}
	}
	for _, d := range invalid {
		if _, ok := IsValidDate(d); ok {
			t.Errorf("IsValidDate(%q) = true, want false", d)
		}
	}
}
