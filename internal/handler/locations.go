package handler

import (
	"net/http"

	"mypostelma/internal/dto"
	"mypostelma/internal/service"

	"github.com/gin-gonic/gin"
)

type LocationsHandler struct{ svc service.LocationService }

func NewLocationsHandler(svc service.LocationService) *LocationsHandler {
	return &LocationsHandler{svc: svc}
}

// List godoc
// @Summary Liste les boutiques
// @Tags locations
// @Produce json
// @Security BearerAuth
// @Param active query bool false "Seulement les boutiques actives"
// @Success 200 {array} dto.LocationResponse
// @Router /v1/locations [get]
func (h *LocationsHandler) List(c *gin.Context) {
	resp, err := h.svc.List(c.Request.Context(), c.Query("active") == "true")
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// Create godoc
// @Summary Crée une boutique
// @Tags locations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CreateLocationRequest true "Boutique"
// @Success 201 {object} dto.LocationResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/locations [post]
func (h *LocationsHandler) Create(c *gin.Context) {
	var req dto.CreateLocationRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// SetActive godoc
// @Summary Active ou désactive une boutique
// @Tags locations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de boutique"
// @Param body body dto.UpdateLocationRequest true "Etat"
// @Success 200 {object} dto.LocationResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/locations/{id} [patch]
func (h *LocationsHandler) SetActive(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateLocationRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.SetActive(c.Request.Context(), id, *req.Active)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
