package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/explorebd/explorebd-api/internal/auth"
	"github.com/explorebd/explorebd-api/internal/booking"
	"github.com/explorebd/explorebd-api/internal/config"
	"github.com/explorebd/explorebd-api/internal/models"
	"github.com/explorebd/explorebd-api/internal/payment"
	"github.com/explorebd/explorebd-api/internal/redis"
	"github.com/explorebd/explorebd-api/internal/seatmap"
	"github.com/explorebd/explorebd-api/internal/services/respond"
	"github.com/explorebd/explorebd-api/internal/store"
	"github.com/explorebd/explorebd-api/internal/upload"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/skip2/go-qrcode"
)

// TicketSize is the edge length in pixels of the e-ticket QR code.
const TicketSize = 256

type Service struct {
	config      *config.Config
	stores      *store.Stores
	redisClient *redis.Client
	seats       *seatmap.Generator
	workflow    *booking.Workflow
	uploads     *upload.Store
	log         zerolog.Logger
}

// NewService wires the wizard to Redis-backed drafts and holds. verifier is
// usually the mock bKash client.
func NewService(cfg *config.Config, stores *store.Stores, redisClient *redis.Client, verifier booking.Verifier, log zerolog.Logger) (*Service, error) {
	mode, err := seatmap.ParseMode(cfg.SeatMapMode)
	if err != nil {
		return nil, err
	}
	occ := &occupancy{bookings: stores.Bookings, holds: redisClient}
	return &Service{
		config:      cfg,
		stores:      stores,
		redisClient: redisClient,
		seats:       seatmap.NewGenerator(mode, occ, cfg.SeatMapOpenPct, rand.New(rand.NewSource(time.Now().UnixNano()))),
		workflow:    booking.NewWorkflow(verifier, stores.Bookings),
		uploads:     upload.NewStore(cfg.UploadDir),
		log:         log,
	}, nil
}

func (s *Service) SetupRoutes(r *gin.Engine) {
	drafts := r.Group("/booking/drafts")
	{
		drafts.POST("", s.CreateDraft)
		drafts.GET("/:id", s.GetDraft)
		drafts.DELETE("/:id", s.DiscardDraft)
		drafts.PUT("/:id/trip", s.SetTrip)
		drafts.GET("/:id/seats", s.GetSeats)
		drafts.POST("/:id/seats/:seat", s.ToggleSeat)
		drafts.PUT("/:id/customer", s.SetCustomer)
		drafts.PUT("/:id/payment", s.SetPayment)
		drafts.GET("/:id/quote", s.GetQuote)
		drafts.POST("/:id/next", s.Next)
		drafts.POST("/:id/back", s.Back)
		drafts.POST("/:id/confirm", s.Confirm)
		drafts.GET("/:id/ticket", s.Ticket)
	}

	admin := r.Group("/admin/bookings", auth.Middleware(s.config), auth.RequireRole(s.stores.Users, models.RoleAdmin))
	{
		admin.GET("", s.ListBookings)
		admin.GET("/recent", s.RecentBookings)
		admin.GET("/:id", s.GetBooking)
		admin.PUT("/:id", s.UpdateBooking)
		admin.PUT("/:id/status", s.UpdateStatus)
		admin.DELETE("/:id", s.DeleteBooking)
	}
}

// occupancy combines sold seats with seats held by other drafts.
type occupancy struct {
	bookings *store.BookingRepository
	holds    *redis.Client
}

func (o *occupancy) TakenSeats(ctx context.Context, tourID uint, date, holder string) (map[string]bool, error) {
	taken, err := o.bookings.BookedSeats(ctx, tourID, date)
	if err != nil {
		return nil, err
	}
	held, err := o.holds.HeldSeats(ctx, tourID, date)
	if err != nil {
		return nil, err
	}
	for seat, owner := range held {
		if owner != holder {
			taken[seat] = true
		}
	}
	return taken, nil
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, redis.ErrDraftNotFound):
		return http.StatusNotFound
	case errors.Is(err, booking.ErrSeatUnavailable), errors.Is(err, redis.ErrSeatHeld),
		errors.Is(err, redis.ErrDraftBusy),
		errors.Is(err, store.ErrSeatTaken), errors.Is(err, booking.ErrInvalidStep):
		return http.StatusConflict
	case errors.Is(err, booking.ErrPaymentRejected):
		return http.StatusPaymentRequired
	case errors.Is(err, booking.ErrOriginRequired), errors.Is(err, booking.ErrDateRequired),
		errors.Is(err, booking.ErrInvalidDate), errors.Is(err, booking.ErrPersons),
		errors.Is(err, booking.ErrSeatCount), errors.Is(err, booking.ErrUnknownSeat),
		errors.Is(err, booking.ErrCustomerInfo), errors.Is(err, booking.ErrPaymentProof),
		errors.Is(err, upload.ErrTooLarge), errors.Is(err, upload.ErrTypeForbidden),
		errors.Is(err, upload.ErrEmpty):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return respond.StoreStatus(err)
}

func (s *Service) loadDraft(ctx context.Context, id string) (*booking.Draft, error) {
	data, err := s.redisClient.LoadDraft(ctx, id)
	if err != nil {
		return nil, err
	}
	var d booking.Draft
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to decode draft: %w", err)
	}
	return &d, nil
}

func (s *Service) saveDraft(ctx context.Context, d *booking.Draft) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to encode draft: %w", err)
	}
	return s.redisClient.SaveDraft(ctx, d.ID, data, s.config.DraftTTL)
}

// withDraft loads the draft named in the path, runs fn and saves the result.
// draftLockWait bounds how long a request queues behind another update of
// the same draft before answering 409.
const draftLockWait = 5 * time.Second

// lockDraft serializes read-modify-write cycles on one draft across replicas.
// The lock outlives the slowest step, which is payment verification.
func (s *Service) lockDraft(c *gin.Context) (func(), bool) {
	id := c.Param("id")
	ttl := 30*time.Second + s.config.MockPaymentDelay
	unlock, err := s.redisClient.LockDraft(c.Request.Context(), id, ttl, draftLockWait)
	if err != nil {
		respond.Error(c, errorStatus(err), "Booking draft not available", err)
		return nil, false
	}
	return func() {
		if err := unlock(); err != nil {
			s.log.Warn().Err(err).Str("draft", id).Msg("failed to unlock booking draft")
		}
	}, true
}

func (s *Service) withDraft(c *gin.Context, fn func(ctx context.Context, d *booking.Draft) error) (*booking.Draft, bool) {
	unlock, ok := s.lockDraft(c)
	if !ok {
		return nil, false
	}
	defer unlock()

	ctx := c.Request.Context()
	d, err := s.loadDraft(ctx, c.Param("id"))
	if err != nil {
		respond.Error(c, errorStatus(err), "Booking draft not available", err)
		return nil, false
	}
	if err := fn(ctx, d); err != nil {
		respond.Error(c, errorStatus(err), "Booking step failed", err)
		return nil, false
	}
	if err := s.saveDraft(ctx, d); err != nil {
		respond.Error(c, http.StatusInternalServerError, "Failed to save booking draft", err)
		return nil, false
	}
	s.refreshHolds(ctx, d)
	return d, true
}

// refreshHolds extends the seat holds to the draft's new expiry so they never
// lapse while the draft is still alive.
func (s *Service) refreshHolds(ctx context.Context, d *booking.Draft) {
	if d.Step == booking.StepConfirmed || d.Date == "" {
		return
	}
	for _, seat := range d.SelectedSeats {
		if err := s.redisClient.HoldSeat(ctx, d.TourID, d.Date, seat, d.ID, s.config.DraftTTL); err != nil {
			s.log.Warn().Err(err).Str("draft", d.ID).Str("seat", seat).Msg("failed to refresh seat hold")
		}
	}
}

type draftResponse struct {
	*booking.Draft
	StepName string `json:"stepName"`
	Amount   int64  `json:"amount"`
}

func view(d *booking.Draft) draftResponse {
	return draftResponse{Draft: d, StepName: d.Step.String(), Amount: d.Amount()}
}

func (s *Service) CreateDraft(c *gin.Context) {
	var req struct {
		TourID uint `json:"tourId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "Invalid request data", err)
		return
	}

	tour, err := s.stores.Tours.Get(c.Request.Context(), req.TourID)
	if err == nil && tour.Status != models.TourActive {
		err = store.ErrNotFound
	}
	if err != nil {
		respond.Error(c, respond.StoreStatus(err), "Tour not available", err)
		return
	}

	d := booking.NewDraft(uuid.NewString(), tour)
	if err := s.saveDraft(c.Request.Context(), d); err != nil {
		respond.Error(c, http.StatusInternalServerError, "Failed to save booking draft", err)
		return
	}
	c.JSON(http.StatusCreated, view(d))
}

func (s *Service) GetDraft(c *gin.Context) {
	d, err := s.loadDraft(c.Request.Context(), c.Param("id"))
	if err != nil {
		respond.Error(c, errorStatus(err), "Booking draft not available", err)
		return
	}
	c.JSON(http.StatusOK, view(d))
}

// DiscardDraft is "start over": holds are released and the draft is dropped.
func (s *Service) DiscardDraft(c *gin.Context) {
	unlock, ok := s.lockDraft(c)
	if !ok {
		return
	}
	defer unlock()

	ctx := c.Request.Context()
	d, err := s.loadDraft(ctx, c.Param("id"))
	if err != nil {
		respond.Error(c, errorStatus(err), "Booking draft not available", err)
		return
	}
	if d.Step != booking.StepConfirmed {
		s.releaseHolds(ctx, d, d.Date, d.SelectedSeats)
	}
	if err := s.redisClient.DeleteDraft(ctx, d.ID); err != nil {
		respond.Error(c, http.StatusInternalServerError, "Failed to discard booking draft", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Booking draft discarded",
	})
}

func (s *Service) releaseHolds(ctx context.Context, d *booking.Draft, date string, seats []string) {
	for _, seat := range seats {
		if err := s.redisClient.ReleaseSeat(ctx, d.TourID, date, seat, d.ID); err != nil {
			s.log.Warn().Err(err).Str("draft", d.ID).Str("seat", seat).Msg("failed to release seat hold")
		}
	}
}

func (s *Service) SetTrip(c *gin.Context) {
	var req struct {
		From    string `json:"from"`
		Persons int    `json:"persons"`
		Date    string `json:"date"`
		Notes   string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "Invalid request data", err)
		return
	}

	d, ok := s.withDraft(c, func(ctx context.Context, d *booking.Draft) error {
		prevDate := d.Date
		prevSeats := append([]string(nil), d.SelectedSeats...)
		if err := d.SetTrip(booking.TripDetails{From: req.From, Persons: req.Persons, Date: req.Date, Notes: req.Notes}); err != nil {
			return err
		}
		if len(d.SelectedSeats) == 0 {
			s.releaseHolds(ctx, d, prevDate, prevSeats)
		}
		return nil
	})
	if ok {
		c.JSON(http.StatusOK, view(d))
	}
}

// seatMap returns the map the draft sees. Random maps are pinned on the draft
// so the layout does not reshuffle between requests.
func (s *Service) seatMap(ctx context.Context, d *booking.Draft) (seatmap.Map, error) {
	if s.seats.Mode() == seatmap.ModeRandom && len(d.SeatMap) > 0 {
		return d.SeatMap, nil
	}
	m, err := s.seats.Generate(ctx, d.TourID, d.Date, d.ID)
	if err != nil {
		return nil, err
	}
	if s.seats.Mode() == seatmap.ModeRandom {
		d.SeatMap = m
	}
	return m, nil
}

func (s *Service) GetSeats(c *gin.Context) {
	var m seatmap.Map
	d, ok := s.withDraft(c, func(ctx context.Context, d *booking.Draft) error {
		if d.Date == "" {
			return booking.ErrDateRequired
		}
		var err error
		m, err = s.seatMap(ctx, d)
		return err
	})
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"seats":     m,
		"available": m.AvailableCount(),
		"selected":  d.SelectedSeats,
		"persons":   d.Persons,
		"mode":      s.seats.Mode(),
	})
}

func (s *Service) ToggleSeat(c *gin.Context) {
	seat := strings.ToUpper(c.Param("seat"))
	var selected bool
	d, ok := s.withDraft(c, func(ctx context.Context, d *booking.Draft) error {
		if d.Step != booking.StepSeats {
			return booking.ErrInvalidStep
		}
		if d.HasSeat(seat) {
			if _, err := d.ToggleSeat(seat, nil); err != nil {
				return err
			}
			s.releaseHolds(ctx, d, d.Date, []string{seat})
			return nil
		}

		m, err := s.seatMap(ctx, d)
		if err != nil {
			return err
		}
		if selected, err = d.ToggleSeat(seat, m); err != nil || !selected {
			return err
		}
		if err := s.redisClient.HoldSeat(ctx, d.TourID, d.Date, seat, d.ID, s.config.DraftTTL); err != nil {
			selected = false
			return err
		}
		return nil
	})
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"seat":     seat,
		"selected": selected,
		"seats":    d.SelectedSeats,
		"persons":  d.Persons,
	})
}

func (s *Service) SetCustomer(c *gin.Context) {
	var req models.Contact
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "Invalid request data", err)
		return
	}
	d, ok := s.withDraft(c, func(ctx context.Context, d *booking.Draft) error {
		return d.SetCustomer(req)
	})
	if ok {
		c.JSON(http.StatusOK, view(d))
	}
}

// SetPayment accepts either JSON {"transactionId"} or a multipart form with
// a transactionId field and/or a paymentProof file.
func (s *Service) SetPayment(c *gin.Context) {
	var txID string
	var proof func(ctx context.Context) (string, error)

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		txID = c.PostForm("transactionId")
		fh, err := c.FormFile("paymentProof")
		if err != nil && !errors.Is(err, http.ErrMissingFile) {
			respond.Error(c, http.StatusBadRequest, "Invalid payment proof", err)
			return
		}
		if fh != nil {
			proof = func(ctx context.Context) (string, error) {
				settings, err := s.stores.Settings.Load(ctx)
				if err != nil {
					return "", err
				}
				f, err := fh.Open()
				if err != nil {
					return "", fmt.Errorf("failed to open upload: %w", err)
				}
				defer f.Close()
				return s.uploads.Save(f, upload.PolicyFrom(settings))
			}
		}
	} else {
		var req struct {
			TransactionID string `json:"transactionId"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, http.StatusBadRequest, "Invalid request data", err)
			return
		}
		txID = req.TransactionID
	}

	d, ok := s.withDraft(c, func(ctx context.Context, d *booking.Draft) error {
		if d.Step != booking.StepPayment {
			return booking.ErrInvalidStep
		}
		path := ""
		if proof != nil {
			var err error
			if path, err = proof(ctx); err != nil {
				return err
			}
		}
		return d.SetPayment(txID, path)
	})
	if ok {
		c.JSON(http.StatusOK, view(d))
	}
}

func (s *Service) GetQuote(c *gin.Context) {
	ctx := c.Request.Context()
	d, err := s.loadDraft(ctx, c.Param("id"))
	if err != nil {
		respond.Error(c, errorStatus(err), "Booking draft not available", err)
		return
	}
	settings, err := s.stores.Settings.Load(ctx)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "Failed to load settings", err)
		return
	}
	c.JSON(http.StatusOK, payment.NewQuote(d.Price, d.Persons, settings))
}

func (s *Service) Next(c *gin.Context) {
	d, ok := s.withDraft(c, func(ctx context.Context, d *booking.Draft) error {
		return d.Next()
	})
	if ok {
		c.JSON(http.StatusOK, view(d))
	}
}

func (s *Service) Back(c *gin.Context) {
	d, ok := s.withDraft(c, func(ctx context.Context, d *booking.Draft) error {
		return d.Back()
	})
	if ok {
		c.JSON(http.StatusOK, view(d))
	}
}

// Confirm re-checks the seats against live occupancy, then verifies payment
// and commits the booking.
func (s *Service) Confirm(c *gin.Context) {
	var created *models.Booking
	d, ok := s.withDraft(c, func(ctx context.Context, d *booking.Draft) error {
		if d.Step == booking.StepPayment && s.seats.Mode() == seatmap.ModeDerived {
			m, err := s.seats.Generate(ctx, d.TourID, d.Date, d.ID)
			if err != nil {
				return err
			}
			for _, seat := range d.SelectedSeats {
				if !m.Available(seat) {
					return fmt.Errorf("seat %s: %w", seat, booking.ErrSeatUnavailable)
				}
			}
		}

		b, err := s.workflow.Confirm(ctx, d)
		if err != nil {
			if errors.Is(err, store.ErrSeatTaken) {
				return fmt.Errorf("%w: %v", booking.ErrSeatUnavailable, err)
			}
			return err
		}
		created = b
		s.releaseHolds(ctx, d, d.Date, d.SelectedSeats)
		if err := s.stores.Users.IncrementBookings(ctx, b.User.Email); err != nil {
			s.log.Warn().Err(err).Msg("failed to update user booking count")
		}
		return nil
	})
	if !ok {
		return
	}

	s.log.Info().
		Uint("booking_id", created.ID).
		Str("reference", created.Reference).
		Uint("tour_id", created.TourID).
		Int64("amount", created.Amount).
		Msg("booking submitted")
	c.JSON(http.StatusCreated, gin.H{
		"booking": created,
		"draft":   view(d),
		"message": "Booking submitted, awaiting payment verification",
	})
}

// Ticket renders the booking reference of a confirmed draft as a QR code.
func (s *Service) Ticket(c *gin.Context) {
	d, err := s.loadDraft(c.Request.Context(), c.Param("id"))
	if err != nil {
		respond.Error(c, errorStatus(err), "Booking draft not available", err)
		return
	}
	if d.Step != booking.StepConfirmed || d.Reference == "" {
		respond.Error(c, http.StatusConflict, "Booking is not confirmed yet", booking.ErrInvalidStep)
		return
	}

	png, err := qrcode.Encode(d.Reference, qrcode.Medium, TicketSize)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "Failed to render ticket", err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}
