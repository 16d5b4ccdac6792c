package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/explorebd/explorebd-api/internal/models"
	"github.com/explorebd/explorebd-api/internal/payment"
	"github.com/explorebd/explorebd-api/internal/seatmap"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var coxsBazar = &models.Tour{ID: 2, Name: "Cox's Bazar Beach", Destination: "Cox's Bazar", Price: 8000}

type fakeVerifier struct {
	resp *payment.Response
	err  error
	reqs []*payment.Request
}

func (f *fakeVerifier) VerifyPayment(ctx context.Context, req *payment.Request) (*payment.Response, error) {
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}
	if f.resp != nil {
		return f.resp, nil
	}
	return &payment.Response{Success: true, Receipt: &payment.Receipt{ID: "rcpt"}}, nil
}

type fakeSubmitter struct {
	bookings []*models.Booking
	err      error
}

func (f *fakeSubmitter) Submit(ctx context.Context, b *models.Booking) error {
	if f.err != nil {
		return f.err
	}
	b.ID = uint(len(f.bookings) + 1)
	f.bookings = append(f.bookings, b)
	return nil
}

func newWorkflow(v Verifier, s Submitter) *Workflow {
	w := NewWorkflow(v, s)
	w.now = func() time.Time { return time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC) }
	w.newRef = func() string { return "ref-1" }
	return w
}

func draftAtSeats(t *testing.T, persons int) *Draft {
	t.Helper()
	d := NewDraft("d1", coxsBazar)
	require.NoError(t, d.SetTrip(TripDetails{From: "Dhaka", Persons: persons, Date: "2024-03-01"}))
	require.NoError(t, d.Next())
	require.Equal(t, StepSeats, d.Step)
	return d
}

func TestNewDraftDerivesDestination(t *testing.T) {
	d := NewDraft("d1", coxsBazar)
	assert.Equal(t, StepTrip, d.Step)
	assert.Equal(t, "Cox's Bazar", d.To)
	assert.Equal(t, 1, d.Persons)
	assert.Equal(t, int64(8000), d.Amount())
}

func TestTripStepGuards(t *testing.T) {
	d := NewDraft("d1", coxsBazar)

	assert.ErrorIs(t, d.Next(), ErrOriginRequired)

	require.NoError(t, d.SetTrip(TripDetails{From: "Dhaka", Persons: 2}))
	assert.ErrorIs(t, d.Next(), ErrDateRequired)

	assert.ErrorIs(t, d.SetTrip(TripDetails{From: "Dhaka", Persons: 0, Date: "2024-03-01"}), ErrPersons)
	assert.ErrorIs(t, d.SetTrip(TripDetails{From: "Dhaka", Persons: 9, Date: "2024-03-01"}), ErrPersons)
	assert.ErrorIs(t, d.SetTrip(TripDetails{From: "Dhaka", Persons: 2, Date: "03/01/2024"}), ErrInvalidDate)

	require.NoError(t, d.SetTrip(TripDetails{From: " Dhaka ", Persons: 2, Date: "2024-03-01", Notes: "veg"}))
	require.NoError(t, d.Next())
	assert.Equal(t, StepSeats, d.Step)
	assert.Equal(t, "Dhaka", d.From)

	assert.ErrorIs(t, d.SetTrip(TripDetails{From: "Sylhet", Persons: 1, Date: "2024-03-01"}), ErrInvalidStep)
}

func TestSeatSelectionRequiresExactCount(t *testing.T) {
	seats := seatmap.Layout()
	for persons := MinPersons; persons <= MaxPersons; persons++ {
		d := draftAtSeats(t, persons)
		for i := 0; i < persons; i++ {
			assert.ErrorIs(t, d.Next(), ErrSeatCount, "persons=%d selected=%d", persons, i)
			selected, err := d.ToggleSeat(seats[i].ID, seats)
			require.NoError(t, err)
			require.True(t, selected)
		}
		require.NoError(t, d.Next(), "persons=%d", persons)
		assert.Equal(t, StepCustomer, d.Step)
	}
}

func TestToggleBeyondCapIsNoop(t *testing.T) {
	seats := seatmap.Layout()
	d := draftAtSeats(t, 2)

	_, err := d.ToggleSeat("A1", seats)
	require.NoError(t, err)
	_, err = d.ToggleSeat("A2", seats)
	require.NoError(t, err)

	selected, err := d.ToggleSeat("A3", seats)
	require.NoError(t, err)
	assert.False(t, selected)
	assert.Equal(t, []string{"A1", "A2"}, d.SelectedSeats)

	// deselect then pick another
	selected, err = d.ToggleSeat("A1", seats)
	require.NoError(t, err)
	assert.False(t, selected)
	selected, err = d.ToggleSeat("M", seats)
	require.NoError(t, err)
	assert.True(t, selected)
	assert.Equal(t, []string{"A2", "M"}, d.SelectedSeats)
}

func TestToggleRejectsUnavailableAndUnknownSeats(t *testing.T) {
	seats := seatmap.Derive(map[string]bool{"B1": true})
	d := draftAtSeats(t, 2)

	_, err := d.ToggleSeat("B1", seats)
	assert.ErrorIs(t, err, ErrSeatUnavailable)
	_, err = d.ToggleSeat("Z9", seats)
	assert.ErrorIs(t, err, ErrUnknownSeat)
	assert.Empty(t, d.SelectedSeats)
}

func TestChangingPersonsClearsSeats(t *testing.T) {
	seats := seatmap.Layout()
	d := draftAtSeats(t, 2)
	_, err := d.ToggleSeat("A1", seats)
	require.NoError(t, err)

	require.NoError(t, d.Back())
	require.NoError(t, d.SetTrip(TripDetails{From: "Dhaka", Persons: 2, Date: "2024-03-01"}))
	assert.Equal(t, []string{"A1"}, d.SelectedSeats)

	require.NoError(t, d.SetTrip(TripDetails{From: "Dhaka", Persons: 3, Date: "2024-03-01"}))
	assert.Empty(t, d.SelectedSeats)
}

func TestBackKeepsData(t *testing.T) {
	seats := seatmap.Layout()
	d := draftAtSeats(t, 1)
	_, err := d.ToggleSeat("C2", seats)
	require.NoError(t, err)
	require.NoError(t, d.Next())
	require.NoError(t, d.SetCustomer(models.Contact{Name: "Rahul", Email: "rahul@email.com", Phone: "+880"}))

	require.NoError(t, d.Back())
	require.NoError(t, d.Back())
	assert.Equal(t, StepTrip, d.Step)
	assert.ErrorIs(t, d.Back(), ErrInvalidStep)

	assert.Equal(t, []string{"C2"}, d.SelectedSeats)
	assert.Equal(t, "Rahul", d.Customer.Name)
	assert.Equal(t, "Dhaka", d.From)
}

func TestCustomerStepRequiresAllFields(t *testing.T) {
	seats := seatmap.Layout()
	d := draftAtSeats(t, 1)
	_, err := d.ToggleSeat("A1", seats)
	require.NoError(t, err)
	require.NoError(t, d.Next())

	require.NoError(t, d.SetCustomer(models.Contact{Name: "Maya", Email: "  ", Phone: "1"}))
	assert.ErrorIs(t, d.Next(), ErrCustomerInfo)

	require.NoError(t, d.SetCustomer(models.Contact{Name: "Maya", Email: "not-an-email", Phone: "1"}))
	require.NoError(t, d.Next())
	assert.Equal(t, StepPayment, d.Step)

	// payment exits only through Confirm
	assert.ErrorIs(t, d.Next(), ErrInvalidStep)
}

func draftAtPayment(t *testing.T, persons int) *Draft {
	t.Helper()
	seats := seatmap.Layout()
	d := draftAtSeats(t, persons)
	for i := 0; i < persons; i++ {
		_, err := d.ToggleSeat(seats[i].ID, seats)
		require.NoError(t, err)
	}
	require.NoError(t, d.Next())
	require.NoError(t, d.SetCustomer(models.Contact{Name: "Rahul Khan", Email: "rahul@email.com", Phone: "+880 1700-234567"}))
	require.NoError(t, d.Next())
	require.Equal(t, StepPayment, d.Step)
	return d
}

func TestConfirmWithTransactionIDOnly(t *testing.T) {
	v := &fakeVerifier{}
	s := &fakeSubmitter{}
	w := newWorkflow(v, s)
	d := draftAtPayment(t, 2)

	assert.ErrorIs(t, d.Next(), ErrInvalidStep)
	_, err := w.Confirm(context.Background(), d)
	assert.ErrorIs(t, err, ErrPaymentProof)
	assert.Empty(t, v.reqs)

	require.NoError(t, d.SetPayment("BKash555", ""))
	b, err := w.Confirm(context.Background(), d)
	require.NoError(t, err)

	assert.Equal(t, int64(16000), b.Amount)
	assert.Equal(t, models.BookingPending, b.Status)
	assert.Equal(t, "BKash555", b.TransactionID)
	assert.Empty(t, b.PaymentProof)
	assert.Equal(t, "ref-1", b.Reference)
	assert.Equal(t, "Cox's Bazar", b.To)
	assert.Len(t, b.SelectedSeats, 2)
	assert.Equal(t, time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC), b.BookingDate)

	assert.Equal(t, StepConfirmed, d.Step)
	assert.Equal(t, uint(1), d.BookingID)
	require.Len(t, v.reqs, 1)
	assert.Equal(t, int64(16000), v.reqs[0].Amount)
	assert.False(t, v.reqs[0].HasProof)

	// terminal
	assert.ErrorIs(t, d.Back(), ErrInvalidStep)
	assert.ErrorIs(t, d.Next(), ErrInvalidStep)
	_, err = w.Confirm(context.Background(), d)
	assert.ErrorIs(t, err, ErrInvalidStep)
}

func TestConfirmWithScreenshotOnly(t *testing.T) {
	v := &fakeVerifier{}
	w := newWorkflow(v, &fakeSubmitter{})
	d := draftAtPayment(t, 1)

	require.NoError(t, d.SetPayment("", "uploads/proof.png"))
	b, err := w.Confirm(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, "uploads/proof.png", b.PaymentProof)
	assert.True(t, v.reqs[0].HasProof)
}

func TestConfirmFailuresKeepPaymentStep(t *testing.T) {
	d := draftAtPayment(t, 1)
	require.NoError(t, d.SetPayment("BKash1", ""))

	w := newWorkflow(&fakeVerifier{resp: &payment.Response{Success: false, Error: "no match"}}, &fakeSubmitter{})
	_, err := w.Confirm(context.Background(), d)
	assert.ErrorIs(t, err, ErrPaymentRejected)
	assert.Equal(t, StepPayment, d.Step)

	w = newWorkflow(&fakeVerifier{err: context.DeadlineExceeded}, &fakeSubmitter{})
	_, err = w.Confirm(context.Background(), d)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, StepPayment, d.Step)

	taken := errors.New("seat taken")
	w = newWorkflow(&fakeVerifier{}, &fakeSubmitter{err: taken})
	_, err = w.Confirm(context.Background(), d)
	assert.ErrorIs(t, err, taken)
	assert.Equal(t, StepPayment, d.Step)
	assert.Zero(t, d.BookingID)
}

func TestStepString(t *testing.T) {
	assert.Equal(t, "seats", StepSeats.String())
	assert.Equal(t, "step(9)", Step(9).String())
}
