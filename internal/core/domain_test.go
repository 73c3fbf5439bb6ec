package core

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestParseDate(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"2025-01-01", true},
		{"2024-02-29", true},
		{" 2025-12-31 ", true},
		{"2025-13-40", false},
		{"2025-02-30", false},
		{"01/02/2025", false},
		{"", false},
	}
	for _, tc := range cases {
		_, err := ParseDate(tc.in)
		if tc.ok && err != nil {
			t.Fatalf("%q expected ok, got %v", tc.in, err)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidDate) {
			t.Fatalf("%q expected ErrInvalidDate, got %v", tc.in, err)
		}
	}
}

func TestDateJSON(t *testing.T) {
	var v struct {
		D Date `json:"d"`
	}
	if err := json.Unmarshal([]byte(`{"d":"2025-03-04"}`), &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v.D != NewDate(2025, 3, 4) {
		t.Fatalf("unexpected date %v", v.D)
	}
	out, _ := json.Marshal(v)
	if string(out) != `{"d":"2025-03-04"}` {
		t.Fatalf("unexpected json %s", out)
	}
	if err := json.Unmarshal([]byte(`{"d":"2025-13-40"}`), &v); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestNameInputValidate(t *testing.T) {
	if err := (NameInput{Name: "Checking"}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	for _, name := range []string{"", "   ", strings.Repeat("x", MaxNameLength+1)} {
		err := NameInput{Name: name}.Validate()
		verr, ok := AsValidationError(err)
		if !ok {
			t.Fatalf("%q expected validation error, got %v", name, err)
		}
		if _, ok := verr.Fields["name"]; !ok {
			t.Fatalf("%q expected name field error, got %v", name, verr.Fields)
		}
	}
}

func TestTransactionInputValidate(t *testing.T) {
	amount := int64(-2550)
	good := TransactionInput{
		AccountID: "acc",
		Date:      NewDate(2025, 1, 1),
		Payee:     "Grocer",
		Amount:    &amount,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	err := TransactionInput{}.Validate()
	verr, ok := AsValidationError(err)
	if !ok {
		t.Fatalf("expected validation error, got %v", err)
	}
	for _, f := range []string{"accountId", "date", "payee", "amount"} {
		if _, ok := verr.Fields[f]; !ok {
			t.Fatalf("expected field error for %s, got %v", f, verr.Fields)
		}
	}
}

func TestTransactionInputNormalize(t *testing.T) {
	empty := "  "
	notes := " paid cash "
	in := TransactionInput{AccountID: " a ", Payee: " p ", CategoryID: &empty, Notes: &notes}
	in.Normalize()
	if in.AccountID != "a" || in.Payee != "p" {
		t.Fatalf("expected trimmed fields, got %+v", in)
	}
	if in.CategoryID != nil {
		t.Fatalf("expected blank category to become nil")
	}
	if in.Notes == nil || *in.Notes != "paid cash" {
		t.Fatalf("expected trimmed notes, got %v", in.Notes)
	}
}
