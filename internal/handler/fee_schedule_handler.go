package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-ledger-api/internal/dto"
	"github.com/noah-isme/school-ledger-api/internal/models"
	appErrors "github.com/noah-isme/school-ledger-api/pkg/errors"
	"github.com/noah-isme/school-ledger-api/pkg/response"
)

type feeScheduleService interface {
	List(ctx context.Context) ([]models.FeeSchedule, error)
	Get(ctx context.Context, id string) (*models.FeeSchedule, error)
	Upsert(ctx context.Context, req dto.UpsertScheduleRequest, actorID string) (*models.FeeSchedule, error)
	Update(ctx context.Context, id string, req dto.UpsertScheduleRequest, actorID string) (*models.FeeSchedule, error)
	Delete(ctx context.Context, id string, actorID string) error
	SeedDefaults(ctx context.Context) (int, error)
}

// FeeScheduleHandler exposes the fee schedule registry.
type FeeScheduleHandler struct {
	schedules feeScheduleService
}

// NewFeeScheduleHandler constructs FeeScheduleHandler.
func NewFeeScheduleHandler(schedules feeScheduleService) *FeeScheduleHandler {
	return &FeeScheduleHandler{schedules: schedules}
}

// List godoc
// @Summary List fee schedules
// @Tags Fee Schedules
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /fees/schedules [get]
func (h *FeeScheduleHandler) List(c *gin.Context) {
	schedules, err := h.schedules.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedules, nil)
}

// Get godoc
// @Summary Get fee schedule
// @Tags Fee Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /fees/schedules/{id} [get]
func (h *FeeScheduleHandler) Get(c *gin.Context) {
	schedule, err := h.schedules.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// Upsert godoc
// @Summary Create or replace the schedule for a grade level
// @Description The total is always derived from tuition, canteen and others
// @Tags Fee Schedules
// @Accept json
// @Produce json
// @Param payload body dto.UpsertScheduleRequest true "Schedule payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /fees/schedules [post]
func (h *FeeScheduleHandler) Upsert(c *gin.Context) {
	var req dto.UpsertScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	schedule, err := h.schedules.Upsert(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// Update godoc
// @Summary Update fee schedule
// @Tags Fee Schedules
// @Accept json
// @Produce json
// @Param id path string true "Schedule ID"
// @Param payload body dto.UpsertScheduleRequest true "Schedule payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /fees/schedules/{id} [put]
func (h *FeeScheduleHandler) Update(c *gin.Context) {
	var req dto.UpsertScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	schedule, err := h.schedules.Update(c.Request.Context(), c.Param("id"), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// Delete godoc
// @Summary Delete fee schedule
// @Tags Fee Schedules
// @Param id path string true "Schedule ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /fees/schedules/{id} [delete]
func (h *FeeScheduleHandler) Delete(c *gin.Context) {
	if err := h.schedules.Delete(c.Request.Context(), c.Param("id"), actorID(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Seed godoc
// @Summary Install the default fee schedules
// @Description Only runs when no schedule exists yet
// @Tags Fee Schedules
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /fees/schedules/seed [post]
func (h *FeeScheduleHandler) Seed(c *gin.Context) {
	seeded, err := h.schedules.SeedDefaults(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.SeedSchedulesResponse{Seeded: seeded}, nil)
}
