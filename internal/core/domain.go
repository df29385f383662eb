package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	Account         ItemKind = "account"
	ExpenseCategory ItemKind = "expense_category"
)

type (
	ItemKind string

	// Currency is a known currency code with its display symbol.
	Currency struct {
		Code   string `json:"code"`
		Symbol string `json:"symbol"`
	}

	// ConversionRate converts one unit of Source into Rate units of Destination.
	ConversionRate struct {
		Source      string  `json:"source"`
		Destination string  `json:"destination"`
		Rate        float64 `json:"rate"`
	}

	WalletItem struct {
		ID       string   `json:"id"`
		Order    uint     `json:"order"`
		Kind     ItemKind `json:"kind"`
		Name     string   `json:"name"`
		Icon     string   `json:"icon,omitempty"`
		Currency string   `json:"currency"`
		Balance  float64  `json:"balance"`
		Budget   *float64 `json:"budget,omitempty"` // monthly, expense categories only
	}

	// WalletTransaction moves Amount (in Currency, debited from the source) into
	// Amount*Rate on the destination. Rate is frozen at creation time.
	WalletTransaction struct {
		ID            string    `json:"id"`
		Date          time.Time `json:"date"`
		Currency      string    `json:"currency"`
		Amount        float64   `json:"amount"`
		Commentary    string    `json:"commentary,omitempty"`
		Rate          float64   `json:"rate"`
		SourceID      string    `json:"source_id"`
		DestinationID string    `json:"destination_id"`
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidRate      = errors.New("invalid conversion rate")
	ErrEmptyName        = errors.New("empty name")
	ErrEmptyCurrency    = errors.New("empty currency code")
	ErrInvalidKind      = errors.New("invalid item kind")
	ErrBudgetNotAllowed = errors.New("budget is only allowed on expense categories")
	ErrInvalidTransfer  = errors.New("transfer cannot be performed between these items")
)

// NewID returns a fresh stable identifier for items and transactions.
func NewID() string {
	return uuid.New().String()
}

func (k ItemKind) IsValid() bool {
	switch k {
	case Account, ExpenseCategory:
		return true
	default:
		return false
	}
}

func (k ItemKind) String() string {
	return string(k)
}

// CanBePerformed reports whether money can move from source to destination.
func CanBePerformed(source, destination WalletItem) bool {
	if source.ID == destination.ID {
		return false
	}
	if source.Kind != Account {
		return false
	}
	return destination.Kind == Account || destination.Kind == ExpenseCategory
}

func (c Currency) Validate() error {
	if strings.TrimSpace(c.Code) == "" {
		return ErrEmptyCurrency
	}
	return nil
}

func (r ConversionRate) Validate() error {
	if strings.TrimSpace(r.Source) == "" || strings.TrimSpace(r.Destination) == "" {
		return ErrEmptyCurrency
	}
	if !(r.Rate > 0) {
		return ErrInvalidRate
	}
	return nil
}

func (i WalletItem) Validate() error {
	if !i.Kind.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidKind, i.Kind)
	}
	if len(strings.TrimSpace(i.Name)) == 0 {
		return ErrEmptyName
	}
	if len(i.Name) > 100 {
		return errors.New("name too long (max 100 characters)")
	}
	if strings.TrimSpace(i.Currency) == "" {
		return ErrEmptyCurrency
	}
	if i.Budget != nil {
		if i.Kind != ExpenseCategory {
			return ErrBudgetNotAllowed
		}
		if *i.Budget < 0 {
			return ErrInvalidAmount
		}
	}
	return nil
}

// HasBudget returns true if a monthly budget is set.
func (i WalletItem) HasBudget() bool {
	return i.Kind == ExpenseCategory && i.Budget != nil
}

func (t WalletTransaction) Validate() error {
	if t.Date.IsZero() {
		return errors.New("date cannot be zero")
	}
	if !(t.Amount > 0) {
		return ErrInvalidAmount
	}
	if !(t.Rate > 0) {
		return ErrInvalidRate
	}
	if strings.TrimSpace(t.Currency) == "" {
		return ErrEmptyCurrency
	}
	if t.SourceID == "" || t.DestinationID == "" {
		return errors.New("source and destination are required")
	}
	if t.SourceID == t.DestinationID {
		return ErrInvalidTransfer
	}
	if len(t.Commentary) > 500 {
		return errors.New("commentary too long (max 500 characters)")
	}
	return nil
}

// Converted is the amount credited to the destination.
func (t WalletTransaction) Converted() float64 {
	return t.Amount * t.Rate
}

// Touches reports whether the transaction references the given item.
func (t WalletTransaction) Touches(itemID string) bool {
	return t.SourceID == itemID || t.DestinationID == itemID
}
