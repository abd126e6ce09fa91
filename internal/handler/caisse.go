package handler

import (
	"fmt"
	"net/http"

	"mypostelma/internal/apierror"
	"mypostelma/internal/dto"
	"mypostelma/internal/infra"
	"mypostelma/internal/middleware"
	"mypostelma/internal/service"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type CaisseHandler struct {
	sessions service.SessionService
	ledger   service.LedgerService
}

func NewCaisseHandler(sessions service.SessionService, ledger service.LedgerService) *CaisseHandler {
	return &CaisseHandler{sessions: sessions, ledger: ledger}
}

// Open godoc
// @Summary Ouvre une session de caisse pour une boutique
// @Tags caisse
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.OpenSessionRequest true "Fond de caisse et boutique"
// @Success 201 {object} dto.SessionResponse
// @Failure 400 {object} apierror.APIError
// @Failure 409 {object} apierror.APIError
// @Router /v1/caisse/sessions [post]
func (h *CaisseHandler) Open(c *gin.Context) {
	var req dto.OpenSessionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.sessions.Open(c.Request.Context(), middleware.OperatorID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// History godoc
// @Summary Historique paginé des sessions de caisse
// @Tags caisse
// @Produce json
// @Security BearerAuth
// @Param location_id query string false "Boutique"
// @Param status query string false "open | closed"
// @Param page query int false "Page (1 par défaut)"
// @Param limit query int false "Taille de page (20 par défaut, 100 max)"
// @Success 200 {object} dto.SessionListResponse
// @Router /v1/caisse/sessions [get]
func (h *CaisseHandler) History(c *gin.Context) {
	var q dto.SessionHistoryQuery
	if !bindQuery(c, &q) {
		return
	}
	resp, err := h.sessions.History(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Report godoc
// @Summary Rapport complet d'une session (statistiques, mouvements, annotations)
// @Tags caisse
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de session"
// @Success 200 {object} dto.SessionReportResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/caisse/sessions/{id} [get]
func (h *CaisseHandler) Report(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.sessions.Report(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Statistics godoc
// @Summary Statistiques courantes d'une session
// @Tags caisse
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de session"
// @Success 200 {object} dto.StatisticsResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/caisse/sessions/{id}/statistics [get]
func (h *CaisseHandler) Statistics(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.sessions.Statistics(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// RecordMovement godoc
// @Summary Enregistre une vente, une entrée ou une sortie de caisse
// @Tags caisse
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de session"
// @Param body body dto.RecordMovementRequest true "Mouvement"
// @Success 201 {object} dto.MovementResponse
// @Failure 400 {object} apierror.APIError
// @Failure 409 {object} apierror.APIError
// @Router /v1/caisse/sessions/{id}/movements [post]
func (h *CaisseHandler) RecordMovement(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.RecordMovementRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.ledger.Record(c.Request.Context(), middleware.OperatorID(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// ListMovements godoc
// @Summary Liste les mouvements d'une session dans l'ordre d'enregistrement
// @Tags caisse
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de session"
// @Success 200 {array} dto.MovementResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/caisse/sessions/{id}/movements [get]
func (h *CaisseHandler) ListMovements(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.ledger.List(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// Close godoc
// @Summary Clôture la session avec le montant compté et calcule l'écart
// @Tags caisse
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de session"
// @Param body body dto.CloseSessionRequest true "Comptage de clôture"
// @Success 200 {object} dto.CloseSessionResponse
// @Failure 400 {object} apierror.APIError
// @Failure 404 {object} apierror.APIError
// @Failure 409 {object} apierror.APIError
// @Router /v1/caisse/sessions/{id}/close [post]
func (h *CaisseHandler) Close(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.CloseSessionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.sessions.Close(c.Request.Context(), middleware.OperatorID(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Annotate godoc
// @Summary Ajoute une annotation d'audit à une session
// @Tags caisse
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de session"
// @Param body body dto.AnnotateSessionRequest true "Annotation"
// @Success 201 {object} dto.AnnotationResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/caisse/sessions/{id}/annotations [post]
func (h *CaisseHandler) Annotate(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.AnnotateSessionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.sessions.Annotate(c.Request.Context(), middleware.OperatorID(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Export godoc
// @Summary Exporte le rapport de session au format Excel
// @Tags caisse
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param id path string true "ID de session"
// @Success 200 {file} file
// @Failure 404 {object} apierror.APIError
// @Router /v1/caisse/sessions/{id}/export [get]
func (h *CaisseHandler) Export(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	report, err := h.sessions.Report(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	data, err := infra.BuildSessionWorkbook(report)
	if err != nil {
		c.Error(err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="caisse_%s.xlsx"`, id))
	c.Data(http.StatusOK, xlsxContentType, data)
}

// ActiveSession godoc
// @Summary Session ouverte d'une boutique
// @Tags caisse
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de boutique"
// @Success 200 {object} dto.SessionResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/locations/{id}/active-session [get]
func (h *CaisseHandler) ActiveSession(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.sessions.GetActive(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if resp == nil {
		c.JSON(http.StatusNotFound, apierror.WithCode(apierror.CodeNotFound, "Aucune session ouverte pour cette boutique"))
		return
	}
	c.JSON(http.StatusOK, resp)
}
