package core

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

type (
	// Date is a calendar day normalized to midnight UTC.
	Date struct {
		time.Time
	}

	// Transaction is an immutable ledger record. Methods that change it
	// return a modified copy.
	Transaction struct {
		ID          string   `json:"id"`
		AccountID   string   `json:"account_id"`
		Date        Date     `json:"date"`
		Amount      Money    `json:"amount"`
		Description string   `json:"description"`
		Merchant    string   `json:"merchant,omitempty"`
		CategoryID  string   `json:"category_id,omitempty"`
		Tags        []string `json:"tags,omitempty"`
	}
)

var (
	ErrInvalidDay       = errors.New("invalid day")
	ErrInvalidMonth     = errors.New("invalid month")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrMissingCurrency  = errors.New("missing currency")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyID          = errors.New("empty id")
	ErrEmptyTag         = errors.New("empty tag")
)

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses an ISO date (2006-01-02).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return DateOf(t), nil
}

func (d Date) AddDays(n int) Date { return Date{Time: d.Time.AddDate(0, 0, n)} }

// Between reports whether d lies in [start, end], both ends inclusive.
func (d Date) Between(start, end Date) bool {
	return !d.Before(start.Time) && !d.After(end.Time)
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// NormalizeText lowercases s and collapses runs of whitespace.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return ErrEmptyID
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	return t.Amount.Validate()
}

func (t Transaction) IsExpense() bool { return t.Amount.IsNegative() }
func (t Transaction) IsIncome() bool  { return t.Amount.IsPositive() }

// IsCategorized reports whether a category has been assigned.
func (t Transaction) IsCategorized() bool { return t.CategoryID != "" }

// Label is the merchant when present, otherwise the description.
func (t Transaction) Label() string {
	if m := strings.TrimSpace(t.Merchant); m != "" {
		return m
	}
	return strings.TrimSpace(t.Description)
}

// WithCategory returns a copy assigned to categoryID. A previous
// assignment is overwritten.
func (t Transaction) WithCategory(categoryID string) Transaction {
	out := t
	out.Tags = slices.Clone(t.Tags)
	out.CategoryID = categoryID
	return out
}

func normalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}

// WithTag returns a copy with tag added. Tags are stored lowercased and sorted.
func (t Transaction) WithTag(tag string) (Transaction, error) {
	tag = normalizeTag(tag)
	if tag == "" {
		return t, ErrEmptyTag
	}
	out := t
	out.Tags = slices.Clone(t.Tags)
	if !slices.Contains(out.Tags, tag) {
		out.Tags = append(out.Tags, tag)
		slices.Sort(out.Tags)
	}
	return out, nil
}

// WithoutTag returns a copy with tag removed.
func (t Transaction) WithoutTag(tag string) Transaction {
	tag = normalizeTag(tag)
	out := t
	out.Tags = slices.DeleteFunc(slices.Clone(t.Tags), func(s string) bool { return s == tag })
	return out
}

func (t Transaction) HasTag(tag string) bool {
	return slices.Contains(t.Tags, normalizeTag(tag))
}

// ItemError is a failure tied to one input item. Analysis runs collect
// these next to their partial results instead of aborting.
type ItemError struct {
	Kind string // "transaction", "budget", "category"
	ID   string
	Err  error
}

func (e ItemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Kind, e.ID, e.Err)
}

func (e ItemError) Unwrap() error { return e.Err }
