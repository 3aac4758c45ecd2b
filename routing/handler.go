package routing

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"mediguide-backend/matching"
)

// Handler exposes the direct-submission path (no chat, no synthesis) and the
// doctor-side triage endpoints.
type Handler struct {
	router *Router
}

func NewHandler(router *Router) *Handler { return &Handler{router: router} }

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.POST("/diagnostics/send", h.send)
	r.PATCH("/diagnostics/:id/treat", h.treat)
	r.GET("/diagnostics", h.list)
}

type sendReq struct {
	PatientID   string `json:"patient_id"`
	PatientName string `json:"patient_name"`
	Symptoms    string `json:"symptoms"`
}

func (h *Handler) send(c *gin.Context) {
	var req sendReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Symptoms) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "symptoms requis"})
		return
	}
	routed, err := h.router.Route(c.Request.Context(), RouteRequest{
		PatientID:   req.PatientID,
		PatientName: req.PatientName,
		SymptomText: req.Symptoms,
	})
	switch {
	case errors.Is(err, matching.ErrNoMatch):
		c.JSON(http.StatusOK, gin.H{
			"success": false,
			"error":   "Aucun spécialiste disponible pour ces symptômes. Veuillez contacter le support.",
		})
	case errors.Is(err, ErrPersistenceFailed):
		c.JSON(http.StatusBadGateway, gin.H{
			"success": false,
			"error":   "Le diagnostic n'a pas pu être enregistré. Veuillez réessayer.",
		})
	case err != nil:
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
	default:
		c.JSON(http.StatusOK, gin.H{"success": true, "diagnostic": routed.Case, "doctor": routed.Doctor})
	}
}

func (h *Handler) treat(c *gin.Context) {
	id := c.Param("id")
	err := h.router.MarkTreated(c.Request.Context(), id)
	switch {
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Diagnostic introuvable."})
	case errors.Is(err, ErrAlreadyTreated):
		c.JSON(http.StatusConflict, gin.H{"success": false, "error": "Ce diagnostic a déjà été traité."})
	case err != nil:
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "error": "La mise à jour du diagnostic a échoué. Veuillez réessayer."})
	default:
		c.JSON(http.StatusOK, gin.H{"success": true, "status": StatusTreated})
	}
}

func (h *Handler) list(c *gin.Context) {
	status := c.Query("status")
	if status != "" && status != StatusPending && status != StatusTreated {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "statut inconnu: " + status})
		return
	}
	cases, err := h.router.List(c.Request.Context(), status)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "error": "Impossible de récupérer les diagnostics."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "diagnostics": cases})
}
