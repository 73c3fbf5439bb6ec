package core

import (
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MaxNameLength  = 100
	MaxPayeeLength = 200
	MaxNotesLength = 1000
)

type (
	// Account is a bank account owned directly by a user.
	Account struct {
		ID     string `json:"id"`
		UserID string `json:"-"`
		Name   string `json:"name"`
	}

	// Category groups transactions. Owned directly by a user.
	Category struct {
		ID     string `json:"id"`
		UserID string `json:"-"`
		Name   string `json:"name"`
	}

	// Transaction has no owner of its own: it belongs to whoever owns AccountID.
	Transaction struct {
		ID         string  `json:"id"`
		Date       Date    `json:"date"`
		CategoryID *string `json:"categoryId"`
		Payee      string  `json:"payee"`
		Amount     int64   `json:"amount"`
		Notes      *string `json:"notes"`
		AccountID  string  `json:"accountId"`
	}

	// TransactionRow is a transaction enriched with its account and category names.
	TransactionRow struct {
		ID         string  `json:"id"`
		Date       Date    `json:"date"`
		Category   *string `json:"category"`
		CategoryID *string `json:"categoryId"`
		Payee      string  `json:"payee"`
		Amount     int64   `json:"amount"`
		Notes      *string `json:"notes"`
		Account    string  `json:"account"`
		AccountID  string  `json:"accountId"`
	}

	// NameInput is the body accepted when creating or renaming accounts and categories.
	NameInput struct {
		Name string `json:"name"`
	}

	// TransactionInput is the body accepted when creating or updating a transaction.
	TransactionInput struct {
		AccountID  string  `json:"accountId"`
		CategoryID *string `json:"categoryId"`
		Date       Date    `json:"date"`
		Payee      string  `json:"payee"`
		Amount     *int64  `json:"amount"`
		Notes      *string `json:"notes"`
	}

	// TransactionFilter narrows a transaction listing. AccountID is optional.
	TransactionFilter struct {
		Range     DateRange
		AccountID string
	}
)

// Normalize trims the name in place.
func (in *NameInput) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
}

func (in NameInput) Validate() error {
	verr := NewValidationError()
	name := strings.TrimSpace(in.Name)
	switch {
	case name == "":
		verr.Add("name", "is required")
	case utf8.RuneCountInString(name) > MaxNameLength:
		verr.Add("name", "must be at most 100 characters")
	}
	return verr.OrNil()
}

// Normalize trims free text and turns empty optional fields into nil.
func (in *TransactionInput) Normalize() {
	in.AccountID = strings.TrimSpace(in.AccountID)
	in.Payee = strings.TrimSpace(in.Payee)
	in.CategoryID = trimOptional(in.CategoryID)
	in.Notes = trimOptional(in.Notes)
}

func (in TransactionInput) Validate() error {
	verr := NewValidationError()
	if strings.TrimSpace(in.AccountID) == "" {
		verr.Add("accountId", "is required")
	}
	if in.Date.IsZero() {
		verr.Add("date", "is required")
	}
	payee := strings.TrimSpace(in.Payee)
	switch {
	case payee == "":
		verr.Add("payee", "is required")
	case utf8.RuneCountInString(payee) > MaxPayeeLength:
		verr.Add("payee", "must be at most 200 characters")
	}
	if in.Amount == nil {
		verr.Add("amount", "is required")
	}
	if in.Notes != nil && utf8.RuneCountInString(*in.Notes) > MaxNotesLength {
		verr.Add("notes", "must be at most 1000 characters")
	}
	return verr.OrNil()
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// Date is a calendar date without a time component, always in UTC.
type Date struct {
	time.Time
}

// DateLayout is the only accepted textual date format.
const DateLayout = "2006-01-02"

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date in t's location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses YYYY-MM-DD strictly: 2025-13-40 is rejected, not normalized.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// AddDays returns the date n days later (n may be negative).
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" || s == `""` {
		*d = Date{}
		return nil
	}
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return ErrInvalidDate
	}
	parsed, err := ParseDate(s[1 : len(s)-1])
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
