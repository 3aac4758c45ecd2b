package intake

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"mediguide-backend/matching"
	"mediguide-backend/routing"
	"mediguide-backend/sse"
	"mediguide-backend/synthesis"
)

// Synthesizer abstracts the diagnostic generation boundary for easier mocking
// in unit tests.
type Synthesizer interface {
	Synthesize(ctx context.Context, rec synthesis.SymptomRecord) (string, error)
	Stream(ctx context.Context, rec synthesis.SymptomRecord) (<-chan string, error)
}

// CaseRouter is the subset of routing.Router the chat flow needs.
type CaseRouter interface {
	Route(ctx context.Context, req routing.RouteRequest) (*routing.RoutedCase, error)
}

// Handler exposes the patient-facing questionnaire flow.
type Handler struct {
	mgr    *Manager
	synth  Synthesizer
	router CaseRouter
}

func NewHandler(mgr *Manager, synth Synthesizer, router CaseRouter) *Handler {
	return &Handler{mgr: mgr, synth: synth, router: router}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/mediguide/question", h.question)
	r.POST("/mediguide/answer", h.answer)
	r.POST("/mediguide/reset", h.reset)
	r.POST("/mediguide/diagnostic", h.diagnostic)
	r.POST("/mediguide/diagnostic/stream", h.diagnosticStream)
	r.GET("/mediguide/history", h.history)
}

// question returns the prompt the session waits on, creating a new session when
// no session_id is given.
func (h *Handler) question(c *gin.Context) {
	id := strings.TrimSpace(c.Query("session_id"))
	var sess *Session
	if id == "" {
		sess = h.mgr.Start()
		log.Printf("[Intake][Start] session=%s", sess.ID)
	} else {
		var ok bool
		if sess, ok = h.mgr.Get(id); !ok {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Session inconnue. Recommencez le questionnaire."})
			return
		}
	}
	sess.SetPatient(c.Query("patient_id"), c.Query("patient_name"))

	q, ok := sess.CurrentQuestion()
	if !ok {
		c.JSON(http.StatusOK, gin.H{"success": true, "session_id": sess.ID, "question": nil, "status": sess.Status()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "session_id": sess.ID, "question": q, "step": sess.Step()})
}

type answerReq struct {
	SessionID   string `json:"session_id"`
	Answer      string `json:"answer"`
	PatientID   string `json:"patient_id"`
	PatientName string `json:"patient_name"`
}

// answer records one questionnaire answer. On the seventh answer it runs the
// synthesis and routes the finalized case in the same request.
func (h *Handler) answer(c *gin.Context) {
	var req answerReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.SessionID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "session_id requis"})
		return
	}
	sess, ok := h.mgr.Get(req.SessionID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Session inconnue. Recommencez le questionnaire."})
		return
	}
	sess.SetPatient(req.PatientID, req.PatientName)

	out, err := sess.SubmitAnswer(req.Answer)
	switch {
	case errors.Is(err, ErrEmptyAnswer):
		q, _ := sess.CurrentQuestion()
		c.JSON(http.StatusBadRequest, gin.H{
			"success":  false,
			"error":    "Votre réponse est vide. Merci de répondre à la question posée.",
			"question": q,
		})
		return
	case errors.Is(err, ErrSessionComplete):
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error":   "Le questionnaire est déjà terminé. Réinitialisez la session pour un nouveau diagnostic.",
		})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	if !out.Finalized {
		c.JSON(http.StatusOK, gin.H{"success": true, "session_id": sess.ID, "question": out.Question, "step": out.Step})
		return
	}
	h.finishSession(c, sess, *out.Record)
}

// diagnostic retries synthesis and routing for a session whose questionnaire is
// already finished (the answer-time synthesis may have failed).
func (h *Handler) diagnostic(c *gin.Context) {
	sess, ok := h.sessionFromBody(c)
	if !ok {
		return
	}
	if sess.Status() == StatusInProgress {
		c.JSON(http.StatusConflict, gin.H{"success": false, "error": "Le questionnaire n'est pas terminé."})
		return
	}
	h.finishSession(c, sess, sess.Record())
}

// finishSession synthesizes the diagnostic (unless one is already attached) and
// routes the case, mapping every failure to its own actionable message. A case
// already routed for this questionnaire is served as-is, never routed twice.
func (h *Handler) finishSession(c *gin.Context, sess *Session, rec synthesis.SymptomRecord) {
	diag := sess.Diagnostic()
	if diag == "" {
		var err error
		diag, err = h.synth.Synthesize(c.Request.Context(), rec)
		if err != nil {
			log.Printf("[Intake][Synthesize] session=%s: %v", sess.ID, err)
			c.JSON(http.StatusBadGateway, gin.H{
				"success":   false,
				"retryable": true,
				"error":     "La synthèse du diagnostic a échoué. Veuillez réessayer dans un instant.",
			})
			return
		}
		if err := sess.AttachDiagnostic(diag); err != nil {
			c.JSON(http.StatusConflict, gin.H{"success": false, "error": err.Error()})
			return
		}
	}

	if rc := sess.Routed(); rc != nil {
		c.JSON(http.StatusOK, gin.H{
			"success":    true,
			"session_id": sess.ID,
			"diagnostic": diag,
			"sections":   synthesis.Split(diag),
			"case":       rc.Case,
			"doctor":     rc.Doctor,
		})
		return
	}

	patientID, patientName := sess.Patient()
	routed, err := h.router.Route(c.Request.Context(), routing.RouteRequest{
		PatientID:   patientID,
		PatientName: patientName,
		SymptomText: diag,
	})
	switch {
	case errors.Is(err, matching.ErrNoMatch):
		c.JSON(http.StatusOK, gin.H{
			"success":    true,
			"session_id": sess.ID,
			"diagnostic": diag,
			"sections":   synthesis.Split(diag),
			"doctor":     nil,
			"message":    "Aucun spécialiste disponible pour ces symptômes. Veuillez contacter le support.",
		})
	case errors.Is(err, routing.ErrPersistenceFailed):
		log.Printf("[Intake][Route] session=%s: %v", sess.ID, err)
		c.JSON(http.StatusBadGateway, gin.H{
			"success":   false,
			"retryable": true,
			"error":     "Le diagnostic a été généré mais n'a pas pu être transmis à un médecin. Veuillez réessayer.",
		})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
	default:
		sess.SetRouted(routed)
		c.JSON(http.StatusOK, gin.H{
			"success":    true,
			"session_id": sess.ID,
			"diagnostic": diag,
			"sections":   synthesis.Split(diag),
			"case":       routed.Case,
			"doctor":     routed.Doctor,
		})
	}
}

// diagnosticStream streams the synthesis token by token over SSE. The narrative
// is accumulated while it streams; once complete it is attached to the session
// and the case routed in the background. The routed case is stored on the
// session, so the JSON endpoint the UI calls next serves it without routing
// again.
func (h *Handler) diagnosticStream(c *gin.Context) {
	sess, ok := h.sessionFromBody(c)
	if !ok {
		return
	}
	if sess.Status() != StatusAwaitingDiagnosis {
		c.JSON(http.StatusConflict, gin.H{"success": false, "error": "Aucune synthèse en attente pour cette session."})
		return
	}
	rec := sess.Record()
	ch, err := h.synth.Stream(c.Request.Context(), rec)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"success":   false,
			"retryable": true,
			"error":     "La synthèse du diagnostic a échoué. Veuillez réessayer dans un instant.",
		})
		return
	}

	var full strings.Builder
	tee := make(chan string)
	go func() {
		defer close(tee)
		for tok := range ch {
			full.WriteString(tok)
			tee <- tok
		}
	}()
	sse.Stream(c, tee)

	diag := full.String()
	if strings.TrimSpace(diag) == "" {
		return
	}
	if err := sess.AttachDiagnostic(diag); err != nil {
		log.Printf("[Intake][Stream] attach failed session=%s: %v", sess.ID, err)
		return
	}
	patientID, patientName := sess.Patient()
	go func() {
		rc, err := h.router.Route(context.Background(), routing.RouteRequest{
			PatientID:   patientID,
			PatientName: patientName,
			SymptomText: diag,
		})
		if err != nil {
			log.Printf("[Intake][Stream] route failed session=%s: %v", sess.ID, err)
			return
		}
		sess.SetRouted(rc)
	}()
}

// reset returns the session to the first question with an emptied record.
func (h *Handler) reset(c *gin.Context) {
	sess, ok := h.sessionFromBody(c)
	if !ok {
		return
	}
	sess.Reset()
	q, _ := sess.CurrentQuestion()
	log.Printf("[Intake][Reset] session=%s", sess.ID)
	c.JSON(http.StatusOK, gin.H{"success": true, "session_id": sess.ID, "question": q, "step": 0})
}

func (h *Handler) history(c *gin.Context) {
	id := strings.TrimSpace(c.Query("session_id"))
	sess, ok := h.mgr.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Session inconnue."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "session_id": sess.ID, "history": sess.History()})
}

func (h *Handler) sessionFromBody(c *gin.Context) (*Session, bool) {
	var req struct {
		SessionID string `json:"session_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.SessionID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "session_id requis"})
		return nil, false
	}
	sess, ok := h.mgr.Get(req.SessionID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Session inconnue. Recommencez le questionnaire."})
		return nil, false
	}
	return sess, true
}
