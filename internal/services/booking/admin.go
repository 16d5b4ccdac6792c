package booking

import (
	"net/http"
	"strconv"

	"github.com/explorebd/explorebd-api/internal/models"
	"github.com/explorebd/explorebd-api/internal/services/respond"
	"github.com/explorebd/explorebd-api/internal/store"

	"github.com/gin-gonic/gin"
)

func (s *Service) ListBookings(c *gin.Context) {
	status := models.BookingStatus(c.Query("status"))
	if status != "" && !status.Valid() {
		respond.Error(c, http.StatusBadRequest, "Invalid status filter", nil)
		return
	}
	bookings, err := s.stores.Bookings.List(c.Request.Context(), status)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "Failed to fetch bookings", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"bookings": bookings,
		"count":    len(bookings),
	})
}

func (s *Service) RecentBookings(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	bookings, err := s.stores.Bookings.Recent(c.Request.Context(), limit)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "Failed to fetch bookings", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"bookings": bookings,
		"count":    len(bookings),
	})
}

func (s *Service) GetBooking(c *gin.Context) {
	id, err := respond.ID(c, "id")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "Invalid booking ID", err)
		return
	}
	b, err := s.stores.Bookings.Get(c.Request.Context(), id)
	if err != nil {
		respond.Error(c, respond.StoreStatus(err), "Booking not found", err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (s *Service) UpdateBooking(c *gin.Context) {
	id, err := respond.ID(c, "id")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "Invalid booking ID", err)
		return
	}
	var patch store.BookingPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		respond.Error(c, http.StatusBadRequest, "Invalid request data", err)
		return
	}
	b, err := s.stores.Bookings.Update(c.Request.Context(), id, patch)
	if err != nil {
		respond.Error(c, respond.StoreStatus(err), "Failed to update booking", err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (s *Service) UpdateStatus(c *gin.Context) {
	id, err := respond.ID(c, "id")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "Invalid booking ID", err)
		return
	}
	var req struct {
		Status models.BookingStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "Invalid request data", err)
		return
	}
	b, err := s.stores.Bookings.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		respond.Error(c, respond.StoreStatus(err), "Failed to update booking", err)
		return
	}
	s.log.Info().Uint("booking_id", id).Str("status", string(req.Status)).Msg("booking status changed")
	c.JSON(http.StatusOK, b)
}

func (s *Service) DeleteBooking(c *gin.Context) {
	id, err := respond.ID(c, "id")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "Invalid booking ID", err)
		return
	}
	if err := s.stores.Bookings.Delete(c.Request.Context(), id); err != nil {
		respond.Error(c, respond.StoreStatus(err), "Failed to delete booking", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Booking deleted successfully",
	})
}
