package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"absensi/internal/response"
	"absensi/internal/users"
)

type userForm struct {
	Username string `form:"username"`
	Kelas    string `form:"kelas"`
}

// ListUsers handles GET /api/users.
func (h *Handler) ListUsers(c *gin.Context) {
	list, err := h.users.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, http.StatusOK, "", list)
}

// GetUser handles GET /api/users/:username.
func (h *Handler) GetUser(c *gin.Context) {
	u, err := h.users.Get(c.Request.Context(), c.Param("username"))
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, http.StatusOK, "", u)
}

// CreateUser handles POST /api/users (multipart: username, kelas, image).
func (h *Handler) CreateUser(c *gin.Context) {
	var req userForm
	if err := c.ShouldBind(&req); err != nil {
		fail(c, bindError(err))
		return
	}

	u, err := h.users.Register(c.Request.Context(), users.RegisterInput{
		Username: req.Username,
		Kelas:    req.Kelas,
		Image:    uploadedImage(c),
	})
	if err != nil {
		fail(c, err)
		return
	}

	response.OK(c, http.StatusCreated, "user registered", gin.H{
		"id":       u.ID,
		"username": u.Username,
		"images":   u.Images,
		"kelas":    u.Kelas,
	})
}

// UpdateUser handles PUT /api/users/:id (multipart: username, kelas, optional image).
func (h *Handler) UpdateUser(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		fail(c, err)
		return
	}
	var req userForm
	if err := c.ShouldBind(&req); err != nil {
		fail(c, bindError(err))
		return
	}

	err = h.users.Update(c.Request.Context(), id, users.UpdateInput{
		Username: req.Username,
		Kelas:    req.Kelas,
		Image:    uploadedImage(c),
	})
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, http.StatusOK, "user updated", nil)
}

// DeleteUser handles DELETE /api/users/:id.
func (h *Handler) DeleteUser(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.users.Delete(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	response.OK(c, http.StatusOK, "user deleted", nil)
}
