package handlers

import (
	"net/http"

	"auber_controller/internal/program"

	"github.com/gin-gonic/gin"
)

const (
	errListPrograms  = "failed to list programs"
	errGetProgram    = "failed to load program"
	errSaveProgram   = "failed to save program"
	errDeleteProgram = "failed to delete program"
)

// @Summary      List programs
// @Tags         programs
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "count, programs"
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/programs [get]
// @Security     BearerAuth
func (h *Handler) listPrograms(c *gin.Context) {
	recs, err := h.services.Programs.List(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errListPrograms, "programs_list_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":    len(recs),
		"programs": recs,
	})
}

// @Summary      Get program
// @Tags         programs
// @Produce      json
// @Param        name  path  string  true  "Program name"
// @Success      200   {object}  program.Record
// @Failure      401   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/programs/{name} [get]
// @Security     BearerAuth
func (h *Handler) getProgram(c *gin.Context) {
	name := c.Param("name")
	rec, err := h.services.Programs.Get(c.Request.Context(), name)
	if err != nil {
		h.respondServiceError(c, errGetProgram, "programs_get_failed", err, "program", name)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// @Summary      Save program
// @Description  Creates or replaces a program. Slots after the first empty one are ignored; "Custom" is reserved.
// @Tags         programs
// @Accept       json
// @Produce      json
// @Param        body  body   program.Record  true  "Program record"
// @Success      200   {object}  map[string]interface{}  "status, name"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/programs [post]
// @Security     BearerAuth
func (h *Handler) saveProgram(c *gin.Context) {
	var rec program.Record
	if err := c.ShouldBindJSON(&rec); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	if err := h.services.Programs.Save(c.Request.Context(), rec); err != nil {
		h.respondServiceError(c, errSaveProgram, "programs_save_failed", err, "program", rec.Name)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusSaved, "name": rec.Name})
}

// @Summary      Delete program
// @Tags         programs
// @Produce      json
// @Param        name  path  string  true  "Program name"
// @Success      200   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/programs/{name} [delete]
// @Security     BearerAuth
func (h *Handler) deleteProgram(c *gin.Context) {
	name := c.Param("name")
	if err := h.services.Programs.Delete(c.Request.Context(), name); err != nil {
		h.respondServiceError(c, errDeleteProgram, "programs_delete_failed", err, "program", name)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusDeleted, "name": name})
}
