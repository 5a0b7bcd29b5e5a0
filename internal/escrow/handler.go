package escrow

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/burucburcan/technician-marketplace-backend-sub004/internal/booking"
)

type Handler struct {
	scheduler *Scheduler
}

func NewHandler(scheduler *Scheduler) *Handler {
	return &Handler{scheduler: scheduler}
}

// GetStatus godoc
// @Summary      Escrow status for a booking
// @Tags         escrow
// @Security     BearerAuth
// @Produce      json
// @Param        bookingID  path      int  true  "Booking ID"
// @Success      200        {object}  Status
// @Failure      404        {object}  gin.H
// @Router       /bookings/{bookingID}/escrow [get]
func (h *Handler) GetStatus(c *gin.Context) {
	bookingID, err := strconv.ParseInt(c.Param("bookingID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking ID"})
		return
	}

	status, err := h.scheduler.GetStatus(c.Request.Context(), bookingID)
	if err != nil {
		if errors.Is(err, booking.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "booking not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load escrow status"})
		return
	}

	c.JSON(http.StatusOK, status)
}

// RunSweep godoc
// @Summary      Trigger an escrow sweep immediately
// @Description  Admin-only escape hatch for operational reprocessing.
// @Tags         escrow
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  gin.H
// @Router       /admin/escrow/sweep [post]
func (h *Handler) RunSweep(c *gin.Context) {
	released, failed := h.scheduler.RunSweep(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"released": released, "failed": failed})
}
