package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Inflow  MovementType = "Entrada"
	Outflow MovementType = "Saida"

	Bank FundsSource = "Banco"
	Cash FundsSource = "Dinheiro"

	StatusPending  RequestStatus = "Pendente"
	StatusApproved RequestStatus = "Aprovada"
	StatusRefused  RequestStatus = "Recusada"

	// DefaultProject is assigned when a ledger entry arrives with a blank project.
	DefaultProject = "Geral"

	// DuesProject tags the inflow entry produced by a debt settlement.
	DuesProject = "Mensalidades"

	// DateLayout is the wire format for dates across all tables.
	DateLayout = "2006-01-02"
)

type (
	MovementType  string
	FundsSource   string
	RequestStatus string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// LedgerEntry is one financial movement. Entries carry no identity of
	// their own; edits happen by replacing the whole table.
	LedgerEntry struct {
		Date        Date
		Type        MovementType
		Project     string
		Description string
		Amount      Money
		Source      FundsSource
	}

	// Debtor is one row of the registry, keyed by exact member name.
	Debtor struct {
		Name       string
		AmountDue  Money
		LastUpdate Date
	}

	// PurchaseRequest carries a stable generated ID so that status updates
	// survive row deletions and reorders in the underlying table.
	PurchaseRequest struct {
		ID             string
		Date           Date
		Requester      string
		Item           string
		EstimatedValue Money
		Justification  string
		Status         RequestStatus
	}
)

var (
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidMovement  = errors.New("invalid movement type")
	ErrInvalidSource    = errors.New("invalid source of funds")
	ErrInvalidStatus    = errors.New("invalid request status")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyItem        = errors.New("empty item description")
	ErrEmptyName        = errors.New("empty debtor name")
	ErrDebtorNotFound   = errors.New("debtor not found")
	ErrDebtorExists     = errors.New("debtor already registered")
	ErrRequestNotFound  = errors.New("purchase request not found")
)

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses the canonical YYYY-MM-DD wire format.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// Today returns the current date truncated to day precision.
func Today() Date {
	now := time.Now()
	return NewDate(now.Year(), int(now.Month()), now.Day())
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (mt MovementType) Validate() error {
	switch mt {
	case Inflow, Outflow:
		return nil
	}
	return ErrInvalidMovement
}

func (fs FundsSource) Validate() error {
	switch fs {
	case Bank, Cash:
		return nil
	}
	return ErrInvalidSource
}

func (rs RequestStatus) Validate() error {
	switch rs {
	case StatusPending, StatusApproved, StatusRefused:
		return nil
	}
	return ErrInvalidStatus
}

// Terminal reports whether the approval UI considers the status final.
func (rs RequestStatus) Terminal() bool {
	return rs == StatusApproved || rs == StatusRefused
}

func (e LedgerEntry) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if err := e.Type.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	return e.Source.Validate()
}

// Normalized returns the entry with a defaulted project and trimmed fields.
func (e LedgerEntry) Normalized() LedgerEntry {
	e.Project = strings.TrimSpace(e.Project)
	if e.Project == "" {
		e.Project = DefaultProject
	}
	e.Description = strings.TrimSpace(e.Description)
	return e
}

func (d Debtor) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return ErrEmptyName
	}
	if d.AmountDue.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// WithPayment applies a payment, clamping the balance at zero. Excess
// payment is discarded, not credited.
func (d Debtor) WithPayment(paid Money, on Date) Debtor {
	due := d.AmountDue.Cents - paid.Cents
	if due < 0 {
		due = 0
	}
	d.AmountDue = Money{Cents: due}
	d.LastUpdate = on
	return d
}

func (r PurchaseRequest) Validate() error {
	if err := r.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(r.Item)) == 0 {
		return ErrEmptyItem
	}
	// The estimate is informational. Zero means "no estimate yet"; only
	// a negative value is nonsense.
	if r.EstimatedValue.Cents < 0 {
		return ErrInvalidAmount
	}
	return r.Status.Validate()
}
