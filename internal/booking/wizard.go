// Package booking implements the five step booking wizard: trip details,
// seat selection, customer info, payment and confirmation.
//
// A Draft accumulates everything the customer enters. Each step has its own
// setter and a guard that must pass before Next moves on; Back is always
// allowed from steps 2 to 4 and never discards data. Confirm is the only way
// out of the payment step and runs through the Verifier and Submitter ports.
package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/explorebd/explorebd-api/internal/models"
	"github.com/explorebd/explorebd-api/internal/payment"
	"github.com/explorebd/explorebd-api/internal/seatmap"

	"github.com/google/uuid"
)

type Step int

const (
	StepTrip Step = iota + 1
	StepSeats
	StepCustomer
	StepPayment
	StepConfirmed
)

func (s Step) String() string {
	switch s {
	case StepTrip:
		return "trip"
	case StepSeats:
		return "seats"
	case StepCustomer:
		return "customer"
	case StepPayment:
		return "payment"
	case StepConfirmed:
		return "confirmed"
	}
	return fmt.Sprintf("step(%d)", int(s))
}

const (
	MinPersons = 1
	MaxPersons = 8
)

var (
	ErrInvalidStep     = errors.New("action not allowed at this step")
	ErrOriginRequired  = errors.New("origin is required")
	ErrDateRequired    = errors.New("travel date is required")
	ErrInvalidDate     = errors.New("travel date must be YYYY-MM-DD")
	ErrPersons         = errors.New("persons must be between 1 and 8")
	ErrSeatCount       = errors.New("selected seats must equal number of persons")
	ErrUnknownSeat     = errors.New("unknown seat")
	ErrSeatUnavailable = errors.New("seat is not available")
	ErrCustomerInfo    = errors.New("name, email and phone are required")
	ErrPaymentProof    = errors.New("transaction id or payment screenshot required")
	ErrPaymentRejected = errors.New("payment was not accepted")
)

// Draft is an in-progress booking.
type Draft struct {
	ID            string         `json:"id"`
	Step          Step           `json:"step"`
	TourID        uint           `json:"tourId"`
	TourName      string         `json:"tourName"`
	Price         int64          `json:"price"`
	From          string         `json:"from"`
	To            string         `json:"to"`
	Persons       int            `json:"persons"`
	Date          string         `json:"date"`
	Notes         string         `json:"notes"`
	SelectedSeats []string       `json:"selectedSeats"`
	Customer      models.Contact `json:"customer"`
	TransactionID string         `json:"transactionId"`
	PaymentProof  string         `json:"paymentProof,omitempty"`
	// SeatMap pins the layout for the draft when availability is randomised.
	SeatMap   seatmap.Map `json:"seatMap,omitempty"`
	BookingID uint        `json:"bookingId,omitempty"`
	Reference string      `json:"reference,omitempty"`
}

// NewDraft starts a wizard for tour. The destination is fixed by the tour.
func NewDraft(id string, tour *models.Tour) *Draft {
	return &Draft{
		ID:            id,
		Step:          StepTrip,
		TourID:        tour.ID,
		TourName:      tour.Name,
		Price:         tour.Price,
		To:            tour.Destination,
		Persons:       MinPersons,
		SelectedSeats: []string{},
	}
}

func (d *Draft) Amount() int64 {
	return payment.Amount(d.Price, d.Persons)
}

type TripDetails struct {
	From    string
	Persons int
	Date    string
	Notes   string
}

// SetTrip records step 1. Changing the party size drops the seat selection.
func (d *Draft) SetTrip(t TripDetails) error {
	if d.Step != StepTrip {
		return ErrInvalidStep
	}
	if t.Persons < MinPersons || t.Persons > MaxPersons {
		return ErrPersons
	}
	date := strings.TrimSpace(t.Date)
	if date != "" {
		if _, err := time.Parse(models.DateLayout, date); err != nil {
			return ErrInvalidDate
		}
	}
	if t.Persons != d.Persons || date != d.Date {
		d.SelectedSeats = []string{}
	}
	if date != d.Date {
		d.SeatMap = nil
	}
	d.From = strings.TrimSpace(t.From)
	d.Persons = t.Persons
	d.Date = date
	d.Notes = strings.TrimSpace(t.Notes)
	return nil
}

func (d *Draft) HasSeat(id string) bool {
	for _, s := range d.SelectedSeats {
		if s == id {
			return true
		}
	}
	return false
}

// ToggleSeat flips membership of seat in the selection. Adding a seat once
// the selection already holds Persons seats leaves it unchanged. The returned
// bool reports whether the seat is selected afterwards.
func (d *Draft) ToggleSeat(seat string, seats seatmap.Map) (bool, error) {
	if d.Step != StepSeats {
		return false, ErrInvalidStep
	}
	if d.HasSeat(seat) {
		kept := d.SelectedSeats[:0:0]
		for _, s := range d.SelectedSeats {
			if s != seat {
				kept = append(kept, s)
			}
		}
		d.SelectedSeats = kept
		return false, nil
	}

	s, ok := seats.Find(seat)
	if !ok {
		return false, ErrUnknownSeat
	}
	if !s.IsAvailable {
		return false, ErrSeatUnavailable
	}
	if len(d.SelectedSeats) >= d.Persons {
		return false, nil
	}
	d.SelectedSeats = append(d.SelectedSeats, seat)
	return true, nil
}

func (d *Draft) SetCustomer(c models.Contact) error {
	if d.Step != StepCustomer {
		return ErrInvalidStep
	}
	d.Customer = models.Contact{
		Name:  strings.TrimSpace(c.Name),
		Email: strings.TrimSpace(c.Email),
		Phone: strings.TrimSpace(c.Phone),
	}
	return nil
}

// SetPayment records the transaction id and/or the stored screenshot path.
// Empty values leave the previous value in place.
func (d *Draft) SetPayment(transactionID, proofPath string) error {
	if d.Step != StepPayment {
		return ErrInvalidStep
	}
	if tx := strings.TrimSpace(transactionID); tx != "" {
		d.TransactionID = tx
	}
	if proofPath != "" {
		d.PaymentProof = proofPath
	}
	return nil
}

// CanAdvance reports why the current step cannot move forward, if it cannot.
func (d *Draft) CanAdvance() error {
	switch d.Step {
	case StepTrip:
		if d.From == "" {
			return ErrOriginRequired
		}
		if d.Date == "" {
			return ErrDateRequired
		}
		return nil
	case StepSeats:
		if len(d.SelectedSeats) != d.Persons {
			return ErrSeatCount
		}
		return nil
	case StepCustomer:
		if d.Customer.Name == "" || d.Customer.Email == "" || d.Customer.Phone == "" {
			return ErrCustomerInfo
		}
		return nil
	}
	return ErrInvalidStep
}

// Next moves to the following step. The payment step only exits via Confirm.
func (d *Draft) Next() error {
	if err := d.CanAdvance(); err != nil {
		return err
	}
	d.Step++
	return nil
}

func (d *Draft) Back() error {
	if d.Step <= StepTrip || d.Step >= StepConfirmed {
		return ErrInvalidStep
	}
	d.Step--
	return nil
}

// Verifier checks the customer's payment proof.
type Verifier interface {
	VerifyPayment(ctx context.Context, req *payment.Request) (*payment.Response, error)
}

// Submitter commits a finished booking and assigns its ID.
type Submitter interface {
	Submit(ctx context.Context, b *models.Booking) error
}

type Workflow struct {
	verifier  Verifier
	submitter Submitter
	now       func() time.Time
	newRef    func() string
}

func NewWorkflow(verifier Verifier, submitter Submitter) *Workflow {
	return &Workflow{
		verifier:  verifier,
		submitter: submitter,
		now:       time.Now,
		newRef:    func() string { return uuid.NewString() },
	}
}

// Confirm verifies payment, commits the booking and moves the draft to the
// confirmation step. On any error the draft stays on the payment step.
func (w *Workflow) Confirm(ctx context.Context, d *Draft) (*models.Booking, error) {
	if d.Step != StepPayment {
		return nil, ErrInvalidStep
	}
	if d.TransactionID == "" && d.PaymentProof == "" {
		return nil, ErrPaymentProof
	}

	ref := w.newRef()
	resp, err := w.verifier.VerifyPayment(ctx, &payment.Request{
		Reference:     ref,
		Amount:        d.Amount(),
		TransactionID: d.TransactionID,
		HasProof:      d.PaymentProof != "",
	})
	if err != nil {
		if errors.Is(err, payment.ErrNoProof) {
			return nil, ErrPaymentProof
		}
		return nil, fmt.Errorf("failed to verify payment: %w", err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("%w: %s", ErrPaymentRejected, resp.Error)
	}

	b := &models.Booking{
		Reference:     ref,
		User:          d.Customer,
		TourID:        d.TourID,
		TourName:      d.TourName,
		From:          d.From,
		To:            d.To,
		Date:          d.Date,
		Persons:       d.Persons,
		SelectedSeats: append([]string(nil), d.SelectedSeats...),
		Notes:         d.Notes,
		Amount:        d.Amount(),
		Status:        models.BookingPending,
		TransactionID: d.TransactionID,
		PaymentProof:  d.PaymentProof,
		BookingDate:   w.now().UTC(),
	}
	if err := w.submitter.Submit(ctx, b); err != nil {
		return nil, err
	}

	d.Step = StepConfirmed
	d.BookingID = b.ID
	d.Reference = b.Reference
	return b, nil
}
