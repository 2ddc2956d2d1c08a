package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"absensi/internal/attendance"
	"absensi/internal/response"
)

// submitRequest accepts JSON and form bodies alike. Similarity is a pointer
// so that 0 passes the required check.
type submitRequest struct {
	Username   string   `json:"username" form:"username" binding:"required"`
	Location   string   `json:"location" form:"location" binding:"required"`
	Similarity *float64 `json:"similarity" form:"similarity" binding:"required"`
}

// ListAttendance handles GET /api/absensi[?status=].
func (h *Handler) ListAttendance(c *gin.Context) {
	recs, err := h.attendance.List(c.Request.Context(), c.Query("status"))
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, http.StatusOK, "", recs)
}

// SubmitAttendance handles POST /api/absensi.
func (h *Handler) SubmitAttendance(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBind(&req); err != nil {
		fail(c, bindError(err))
		return
	}

	res, err := h.attendance.Submit(c.Request.Context(), attendance.SubmitInput{
		Username:   req.Username,
		Location:   req.Location,
		Similarity: req.Similarity,
	})
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, http.StatusCreated, "attendance "+res.Status, res)
}

// DeleteAttendance handles DELETE /api/absensi/:id.
func (h *Handler) DeleteAttendance(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.attendance.Delete(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	response.OK(c, http.StatusOK, "attendance deleted", nil)
}
