// Package respond holds the JSON error shape shared by the HTTP services.
package respond

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/explorebd/explorebd-api/internal/store"

	"github.com/gin-gonic/gin"
)

var ErrBadID = errors.New("invalid id")

// Error writes {"error": msg, "details": err} and aborts the chain.
func Error(c *gin.Context, status int, msg string, err error) {
	body := gin.H{"error": msg}
	if err != nil {
		body["details"] = err.Error()
		c.Error(err)
	}
	c.AbortWithStatusJSON(status, body)
}

// StoreStatus maps repository errors to HTTP statuses.
func StoreStatus(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrDuplicate), errors.Is(err, store.ErrSeatTaken):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// ID parses a numeric path parameter.
func ID(c *gin.Context, name string) (uint, error) {
	v, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || v == 0 {
		return 0, fmt.Errorf("%w: %q", ErrBadID, c.Param(name))
	}
	return uint(v), nil
}
