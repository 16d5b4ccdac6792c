package booking

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/explorebd/explorebd-api/internal/booking"
	"github.com/explorebd/explorebd-api/internal/config"
	"github.com/explorebd/explorebd-api/internal/models"
	"github.com/explorebd/explorebd-api/internal/payment"
	"github.com/explorebd/explorebd-api/internal/redis"
	"github.com/explorebd/explorebd-api/internal/seatmap"
	"github.com/explorebd/explorebd-api/internal/store"
	"github.com/explorebd/explorebd-api/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const travelDate = "2024-03-01"

type fixture struct {
	cfg    *config.Config
	stores *store.Stores
	redis  *redis.Client
	mr     *miniredis.Miniredis
	router *gin.Engine
}

func newFixture(t *testing.T, mutate ...func(*config.Config)) *fixture {
	t.Helper()
	cfg := testutil.Config(t)
	for _, m := range mutate {
		m(cfg)
	}
	stores := store.New(testutil.NewDB(t))
	rc, mr := testutil.NewRedis(t)

	svc, err := NewService(cfg, stores, rc, payment.NewMockBkashClient(cfg), zerolog.Nop())
	require.NoError(t, err)
	r := testutil.Router()
	svc.SetupRoutes(r)

	tour := &models.Tour{
		Name:            "Cox's Bazar Beach",
		Location:        "Chittagong Division",
		Destination:     "Cox's Bazar",
		Duration:        "3 days",
		MaxParticipants: 20,
		Price:           8000,
		Status:          models.TourActive,
	}
	require.NoError(t, stores.Tours.Create(context.Background(), tour))

	return &fixture{cfg: cfg, stores: stores, redis: rc, mr: mr, router: r}
}

func (f *fixture) do(method, path string, body any) *httptest.ResponseRecorder {
	return testutil.Do(f.router, method, path, body, "")
}

type draftView struct {
	ID            string   `json:"id"`
	Step          int      `json:"step"`
	StepName      string   `json:"stepName"`
	To            string   `json:"to"`
	Persons       int      `json:"persons"`
	Amount        int64    `json:"amount"`
	SelectedSeats []string `json:"selectedSeats"`
	PaymentProof  string   `json:"paymentProof"`
}

func (f *fixture) newDraft(t *testing.T) string {
	t.Helper()
	w := f.do(http.MethodPost, "/booking/drafts", map[string]any{"tourId": 1})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var d draftView
	testutil.Decode(t, w, &d)
	assert.Equal(t, "Cox's Bazar", d.To)
	assert.Equal(t, "trip", d.StepName)
	return d.ID
}

func (f *fixture) toSeats(t *testing.T, id string, persons int) {
	t.Helper()
	w := f.do(http.MethodPut, "/booking/drafts/"+id+"/trip", map[string]any{"from": "Dhaka", "persons": persons, "date": travelDate})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = f.do(http.MethodPost, "/booking/drafts/"+id+"/next", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func (f *fixture) toggle(t *testing.T, id, seat string) (int, bool) {
	t.Helper()
	w := f.do(http.MethodPost, "/booking/drafts/"+id+"/seats/"+seat, nil)
	var resp struct {
		Selected bool `json:"selected"`
	}
	if w.Code == http.StatusOK {
		testutil.Decode(t, w, &resp)
	}
	return w.Code, resp.Selected
}

func (f *fixture) seats(t *testing.T, id string) (seatmap.Map, int) {
	t.Helper()
	w := f.do(http.MethodGet, "/booking/drafts/"+id+"/seats", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Seats     seatmap.Map `json:"seats"`
		Available int         `json:"available"`
	}
	testutil.Decode(t, w, &resp)
	return resp.Seats, resp.Available
}

func (f *fixture) toPayment(t *testing.T, id string) {
	t.Helper()
	require.Equal(t, http.StatusOK, f.do(http.MethodPost, "/booking/drafts/"+id+"/next", nil).Code)
	w := f.do(http.MethodPut, "/booking/drafts/"+id+"/customer", map[string]string{
		"name": "Rahul Khan", "email": "rahul@email.com", "phone": "+880 1700-234567",
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, http.StatusOK, f.do(http.MethodPost, "/booking/drafts/"+id+"/next", nil).Code)
}

func TestWizardHappyPath(t *testing.T) {
	f := newFixture(t)
	id := f.newDraft(t)

	// cannot advance without trip details
	w := f.do(http.MethodPost, "/booking/drafts/"+id+"/next", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	f.toSeats(t, id, 2)
	m, available := f.seats(t, id)
	assert.Len(t, m, seatmap.Size)
	assert.Equal(t, seatmap.Size, available)

	code, selected := f.toggle(t, id, "A1")
	require.Equal(t, http.StatusOK, code)
	assert.True(t, selected)
	code, selected = f.toggle(t, id, "a2")
	require.Equal(t, http.StatusOK, code)
	assert.True(t, selected)
	code, selected = f.toggle(t, id, "A3")
	require.Equal(t, http.StatusOK, code)
	assert.False(t, selected, "selection is capped at persons")
	code, _ = f.toggle(t, id, "Z9")
	assert.Equal(t, http.StatusBadRequest, code)

	f.toPayment(t, id)

	w = f.do(http.MethodGet, "/booking/drafts/"+id+"/quote", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var quote payment.Quote
	testutil.Decode(t, w, &quote)
	assert.Equal(t, int64(16000), quote.Subtotal)
	assert.Equal(t, quote.Subtotal, quote.Total)

	w = f.do(http.MethodPost, "/booking/drafts/"+id+"/confirm", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code, "payment proof is required")

	w = f.do(http.MethodPut, "/booking/drafts/"+id+"/payment", map[string]string{"transactionId": "BKash555"})
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(http.MethodPost, "/booking/drafts/"+id+"/confirm", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp struct {
		Booking models.Booking `json:"booking"`
		Draft   draftView      `json:"draft"`
	}
	testutil.Decode(t, w, &resp)
	assert.Equal(t, int64(16000), resp.Booking.Amount)
	assert.Equal(t, models.BookingPending, resp.Booking.Status)
	assert.Equal(t, "BKash555", resp.Booking.TransactionID)
	assert.ElementsMatch(t, []string{"A1", "A2"}, []string(resp.Booking.SelectedSeats))
	assert.NotEmpty(t, resp.Booking.Reference)
	assert.Equal(t, "confirmed", resp.Draft.StepName)

	// holds are released once seats are sold
	held, err := f.redis.HeldSeats(context.Background(), 1, travelDate)
	require.NoError(t, err)
	assert.Empty(t, held)

	tour, err := f.stores.Tours.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, tour.Bookings)

	// terminal step
	assert.Equal(t, http.StatusConflict, f.do(http.MethodPost, "/booking/drafts/"+id+"/back", nil).Code)
	assert.Equal(t, http.StatusConflict, f.do(http.MethodPost, "/booking/drafts/"+id+"/confirm", nil).Code)

	// sold seats are unavailable to the next customer
	other := f.newDraft(t)
	f.toSeats(t, other, 1)
	m, available = f.seats(t, other)
	assert.Equal(t, seatmap.Size-2, available)
	assert.False(t, m.Available("A1"))
	code, _ = f.toggle(t, other, "A1")
	assert.Equal(t, http.StatusConflict, code)

	assert.Equal(t, http.StatusOK, f.do(http.MethodDelete, "/booking/drafts/"+id, nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/booking/drafts/"+id, nil).Code)
}

func TestSeatHoldsBlockOtherDrafts(t *testing.T) {
	f := newFixture(t)
	a, b := f.newDraft(t), f.newDraft(t)
	f.toSeats(t, a, 1)
	f.toSeats(t, b, 1)

	code, selected := f.toggle(t, a, "C3")
	require.Equal(t, http.StatusOK, code)
	require.True(t, selected)

	m, _ := f.seats(t, b)
	assert.False(t, m.Available("C3"))
	// the holder still sees its own seat
	m, _ = f.seats(t, a)
	assert.True(t, m.Available("C3"))

	code, _ = f.toggle(t, b, "C3")
	assert.Equal(t, http.StatusConflict, code)

	// deselecting releases the hold
	code, selected = f.toggle(t, a, "C3")
	require.Equal(t, http.StatusOK, code)
	assert.False(t, selected)
	code, selected = f.toggle(t, b, "C3")
	require.Equal(t, http.StatusOK, code)
	assert.True(t, selected)

	// going back and changing party size drops the selection and its holds
	require.Equal(t, http.StatusOK, f.do(http.MethodPost, "/booking/drafts/"+b+"/back", nil).Code)
	w := f.do(http.MethodPut, "/booking/drafts/"+b+"/trip", map[string]any{"from": "Dhaka", "persons": 3, "date": travelDate})
	require.Equal(t, http.StatusOK, w.Code)
	held, err := f.redis.HeldSeats(context.Background(), 1, travelDate)
	require.NoError(t, err)
	assert.Empty(t, held)
}

func TestSeatHoldsLiveAsLongAsDraft(t *testing.T) {
	f := newFixture(t)
	a := f.newDraft(t)
	f.toSeats(t, a, 1)
	code, _ := f.toggle(t, a, "C3")
	require.Equal(t, http.StatusOK, code)

	f.mr.FastForward(20 * time.Minute)
	f.toPayment(t, a)
	f.mr.FastForward(15 * time.Minute)

	// the draft is still alive, so its seat must still be held
	require.Equal(t, http.StatusOK, f.do(http.MethodGet, "/booking/drafts/"+a, nil).Code)
	b := f.newDraft(t)
	f.toSeats(t, b, 1)
	code, _ = f.toggle(t, b, "C3")
	assert.Equal(t, http.StatusConflict, code)

	held, err := f.redis.HeldSeats(context.Background(), 1, travelDate)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"C3": a}, held)
}

func TestConcurrentTogglesKeepEverySeat(t *testing.T) {
	f := newFixture(t)
	a := f.newDraft(t)
	f.toSeats(t, a, 2)

	var wg sync.WaitGroup
	codes := make([]int, 2)
	for i, seat := range []string{"A1", "A2"} {
		wg.Add(1)
		go func(i int, seat string) {
			defer wg.Done()
			codes[i] = f.do(http.MethodPost, "/booking/drafts/"+a+"/seats/"+seat, nil).Code
		}(i, seat)
	}
	wg.Wait()
	assert.Equal(t, []int{http.StatusOK, http.StatusOK}, codes)

	w := f.do(http.MethodGet, "/booking/drafts/"+a, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var d draftView
	testutil.Decode(t, w, &d)
	assert.ElementsMatch(t, []string{"A1", "A2"}, d.SelectedSeats)

	held, err := f.redis.HeldSeats(context.Background(), 1, travelDate)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"A1": a, "A2": a}, held)
}

func TestDraftUpdateWaitsForLock(t *testing.T) {
	f := newFixture(t)
	a := f.newDraft(t)
	f.toSeats(t, a, 1)

	unlock, err := f.redis.LockDraft(context.Background(), a, time.Minute, 0)
	require.NoError(t, err)
	go func() {
		time.Sleep(100 * time.Millisecond)
		_ = unlock()
	}()

	code, selected := f.toggle(t, a, "B1")
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, selected)
}

func TestConfirmFailsWhenSeatSoldMeanwhile(t *testing.T) {
	f := newFixture(t)
	id := f.newDraft(t)
	f.toSeats(t, id, 1)
	code, _ := f.toggle(t, id, "D4")
	require.Equal(t, http.StatusOK, code)
	f.toPayment(t, id)
	require.Equal(t, http.StatusOK, f.do(http.MethodPut, "/booking/drafts/"+id+"/payment", map[string]string{"transactionId": "TX1"}).Code)

	// sold through another channel while this draft was paying
	require.NoError(t, f.stores.Bookings.Create(context.Background(), &models.Booking{
		Reference: "walk-in", TourID: 1, Date: travelDate, Persons: 1, SelectedSeats: []string{"D4"}, Amount: 8000,
	}))

	w := f.do(http.MethodPost, "/booking/drafts/"+id+"/confirm", nil)
	assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())

	w = f.do(http.MethodGet, "/booking/drafts/"+id, nil)
	var d draftView
	testutil.Decode(t, w, &d)
	assert.Equal(t, int(booking.StepPayment), d.Step)
}

func TestPaymentScreenshotUpload(t *testing.T) {
	f := newFixture(t)
	id := f.newDraft(t)
	f.toSeats(t, id, 1)
	code, _ := f.toggle(t, id, "M")
	require.Equal(t, http.StatusOK, code)
	f.toPayment(t, id)

	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\x0dIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")
	upload := func(content []byte) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, err := mw.CreateFormFile("paymentProof", "receipt.png")
		require.NoError(t, err)
		fw.Write(content)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPut, "/booking/drafts/"+id+"/payment", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusBadRequest, upload([]byte("plain text is not an image")).Code)

	w := upload(png)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var d draftView
	testutil.Decode(t, w, &d)
	assert.NotEmpty(t, d.PaymentProof)

	w = f.do(http.MethodPost, "/booking/drafts/"+id+"/confirm", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"transactionId":""`)
}

func TestPaymentRejected(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.MockPaymentSuccessRate = 0 })
	id := f.newDraft(t)
	f.toSeats(t, id, 1)
	code, _ := f.toggle(t, id, "B2")
	require.Equal(t, http.StatusOK, code)
	f.toPayment(t, id)
	require.Equal(t, http.StatusOK, f.do(http.MethodPut, "/booking/drafts/"+id+"/payment", map[string]string{"transactionId": "TX1"}).Code)

	w := f.do(http.MethodPost, "/booking/drafts/"+id+"/confirm", nil)
	assert.Equal(t, http.StatusPaymentRequired, w.Code)

	bookings, err := f.stores.Bookings.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, bookings)
}

func TestRandomSeatMapIsPinnedPerDraft(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.SeatMapMode = "random" })
	id := f.newDraft(t)
	f.toSeats(t, id, 1)

	first, _ := f.seats(t, id)
	second, _ := f.seats(t, id)
	assert.Equal(t, first, second)
}

func TestUnknownSeatMapMode(t *testing.T) {
	cfg := testutil.Config(t)
	cfg.SeatMapMode = "chaos"
	_, err := NewService(cfg, store.New(testutil.NewDB(t)), nil, nil, zerolog.Nop())
	assert.Error(t, err)
}

func TestDraftForInactiveTour(t *testing.T) {
	f := newFixture(t)
	status := models.TourDraft
	_, err := f.stores.Tours.Update(context.Background(), 1, store.TourPatch{Status: &status})
	require.NoError(t, err)

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodPost, "/booking/drafts", map[string]any{"tourId": 1}).Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/booking/drafts/missing", nil).Code)
}

func TestAdminBookings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := testutil.AdminToken(t, f.cfg, f.stores.Users)

	for _, seat := range []string{"A1", "A2", "A3"} {
		require.NoError(t, f.stores.Bookings.Create(ctx, &models.Booking{
			Reference: "ref-" + seat, TourID: 1, Date: travelDate, Persons: 1, SelectedSeats: []string{seat}, Amount: 8000,
		}))
	}

	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/admin/bookings", nil).Code)

	w := testutil.Do(f.router, http.MethodPut, "/admin/bookings/2/status", map[string]string{"status": "confirmed"}, admin)
	require.Equal(t, http.StatusOK, w.Code)
	w = testutil.Do(f.router, http.MethodPut, "/admin/bookings/2/status", map[string]string{"status": "paid"}, admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// a cancelled booking cannot come back once its seat is resold
	w = testutil.Do(f.router, http.MethodPut, "/admin/bookings/1/status", map[string]string{"status": "cancelled"}, admin)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, f.stores.Bookings.Create(ctx, &models.Booking{
		Reference: "ref-resold", TourID: 1, Date: travelDate, Persons: 1, SelectedSeats: []string{"A1"}, Amount: 8000,
	}))
	w = testutil.Do(f.router, http.MethodPut, "/admin/bookings/1/status", map[string]string{"status": "pending"}, admin)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = testutil.Do(f.router, http.MethodGet, "/admin/bookings?status=confirmed", nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":1`)

	w = testutil.Do(f.router, http.MethodGet, "/admin/bookings/recent?limit=2", nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":2`)

	w = testutil.Do(f.router, http.MethodPut, "/admin/bookings/3", map[string]string{"notes": "window seat"}, admin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"notes":"window seat"`)

	assert.Equal(t, http.StatusOK, testutil.Do(f.router, http.MethodDelete, "/admin/bookings/3", nil, admin).Code)
	assert.Equal(t, http.StatusNotFound, testutil.Do(f.router, http.MethodGet, "/admin/bookings/3", nil, admin).Code)
}

func TestTicketOnlyAfterConfirmation(t *testing.T) {
	f := newFixture(t)
	id := f.newDraft(t)
	f.toSeats(t, id, 1)
	code, _ := f.toggle(t, id, "C1")
	require.Equal(t, http.StatusOK, code)
	f.toPayment(t, id)

	assert.Equal(t, http.StatusConflict, f.do(http.MethodGet, "/booking/drafts/"+id+"/ticket", nil).Code)

	require.Equal(t, http.StatusOK, f.do(http.MethodPut, "/booking/drafts/"+id+"/payment", map[string]string{"transactionId": "TX9"}).Code)
	require.Equal(t, http.StatusCreated, f.do(http.MethodPost, "/booking/drafts/"+id+"/confirm", nil).Code)

	w := f.do(http.MethodGet, "/booking/drafts/"+id+"/ticket", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")))

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/booking/drafts/missing/ticket", nil).Code)
}
