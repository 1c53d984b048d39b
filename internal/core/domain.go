package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	CategoryMine   Category = "Mine"
	CategoryShared Category = "Shared"
	CategoryOther  Category = "Other"
)

type (
	// Category is the cost-split class of a purchase. Stored values may use
	// any accepted encoding; Canonical resolves them.
	Category string

	Date struct {
		time.Time
	}

	// YearMonth identifies a billing month, rendered as "YYYY-MM".
	YearMonth struct {
		Year  int
		Month time.Month
	}

	Purchase struct {
		ID                int64
		RegisteredDate    Date
		Concept           string
		Category          Category
		TotalInstallments int
		InstallmentAmount decimal.Decimal
		Active            bool
	}

	// InstallmentRow is one scheduled monthly payment of a purchase plan.
	InstallmentRow struct {
		ID                int64
		PurchaseID        int64
		InstallmentNumber int
		DueMonth          YearMonth
		Amount            decimal.Decimal
	}

	// Candidate is a purchase proposed by manual entry or statement extraction,
	// not yet persisted.
	Candidate struct {
		Concept            string          `json:"concept"`
		Category           Category        `json:"category"`
		TotalInstallments  int             `json:"total_installments"`
		CurrentInstallment int             `json:"current_installment"`
		Amount             decimal.Decimal `json:"amount"`
	}

	// PurchaseUpdate holds the fields an edit replaces.
	PurchaseUpdate struct {
		Concept           string          `json:"concept"`
		Category          Category        `json:"category"`
		Amount            decimal.Decimal `json:"amount"`
		TotalInstallments int             `json:"total_installments"`
	}
)

var (
	ErrInvalidDate         = errors.New("invalid date")
	ErrInvalidMonth        = errors.New("invalid month")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidInstallments = errors.New("invalid installments")
	ErrEmptyConcept        = errors.New("empty concept")
	ErrUnknownCategory     = errors.New("unknown category")
)

// categoryEncodings maps every accepted textual form (lower-cased) to its variant.
var categoryEncodings = map[string]Category{
	"mine":       CategoryMine,
	"m":          CategoryMine,
	"mio":        CategoryMine,
	"mío":        CategoryMine,
	"shared":     CategoryShared,
	"c":          CategoryShared,
	"compartido": CategoryShared,
	"other":      CategoryOther,
	"o":          CategoryOther,
	"otros":      CategoryOther,
}

// ParseCategory resolves any accepted encoding ("Mine", "M", "Mio", ...) to
// the canonical variant.
func ParseCategory(s string) (Category, error) {
	c, ok := Category(s).Canonical()
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
	}
	return c, nil
}

// Canonical returns the canonical variant and whether the encoding was recognised.
func (c Category) Canonical() (Category, bool) {
	v, ok := categoryEncodings[strings.ToLower(strings.TrimSpace(string(c)))]
	return v, ok
}

func (c Category) String() string {
	return string(c)
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts a plain ISO date (2006-01-02) or an RFC 3339 timestamp.
// The time of day is discarded.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.DateOnly, time.RFC3339, time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return NewDate(t.Year(), int(t.Month()), t.Day()), nil
		}
	}
	return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: date cannot be zero", ErrInvalidDate)
	}
	return nil
}

// String formats the date as ISO 2006-01-02, the persisted form.
func (d Date) String() string {
	return d.Format(time.DateOnly)
}

// NewYearMonth builds a YearMonth, normalising out-of-range months.
func NewYearMonth(year int, month time.Month) YearMonth {
	return YearMonth{Year: year, Month: time.January}.AddMonths(int(month) - 1)
}

// YearMonthOf returns the month a date falls in; the day is discarded.
func YearMonthOf(d Date) YearMonth {
	return YearMonth{Year: d.Year(), Month: d.Month()}
}

// ParseYearMonth parses "YYYY-MM".
func ParseYearMonth(s string) (YearMonth, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return YearMonth{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return YearMonth{Year: t.Year(), Month: t.Month()}, nil
}

// AddMonths advances by n whole months, rolling over year boundaries.
func (ym YearMonth) AddMonths(n int) YearMonth {
	idx := ym.Year*12 + int(ym.Month) - 1 + n
	year, month := idx/12, idx%12
	if month < 0 {
		year--
		month += 12
	}
	return YearMonth{Year: year, Month: time.Month(month + 1)}
}

// Compare returns -1, 0 or +1 like cmp.Compare.
func (ym YearMonth) Compare(other YearMonth) int {
	a := ym.Year*12 + int(ym.Month)
	b := other.Year*12 + int(other.Month)
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, int(ym.Month))
}

func (ym YearMonth) IsZero() bool {
	return ym.Year == 0 && ym.Month == 0
}

// MarshalText implements encoding.TextMarshaler so YearMonth travels as "YYYY-MM".
func (ym YearMonth) MarshalText() ([]byte, error) {
	return []byte(ym.String()), nil
}

func (ym *YearMonth) UnmarshalText(b []byte) error {
	v, err := ParseYearMonth(string(b))
	if err != nil {
		return err
	}
	*ym = v
	return nil
}

func (c Candidate) Validate() error {
	if strings.TrimSpace(c.Concept) == "" {
		return ErrEmptyConcept
	}
	if len(c.Concept) > 200 {
		return errors.New("concept too long (max 200 characters)")
	}
	if _, err := ParseCategory(string(c.Category)); err != nil {
		return err
	}
	if c.CurrentInstallment < 1 || c.TotalInstallments < c.CurrentInstallment {
		return fmt.Errorf("%w: installment %d of %d", ErrInvalidInstallments, c.CurrentInstallment, c.TotalInstallments)
	}
	return nil
}

func (u PurchaseUpdate) Validate() error {
	return Candidate{
		Concept:            u.Concept,
		Category:           u.Category,
		TotalInstallments:  u.TotalInstallments,
		CurrentInstallment: 1,
		Amount:             u.Amount,
	}.Validate()
}
