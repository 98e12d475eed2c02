package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Contextualist/submit-patch/internal/middleware"
	"github.com/Contextualist/submit-patch/internal/pkg/logger"
	"github.com/Contextualist/submit-patch/internal/services"
)

type ReviewHandler struct {
	log *logger.Logger
	svc services.ReviewService
}

func NewReviewHandler(log *logger.Logger, svc services.ReviewService) *ReviewHandler {
	return &ReviewHandler{
		log: log.With("Handler", "ReviewHandler"),
		svc: svc,
	}
}

// reviewSubjectForm carries the verdict plus the reviewer's optional
// field edits. A pointer field stays nil when the form omits it, which
// keeps "not overridden" distinct from "overridden to empty".
type reviewSubjectForm struct {
	React   string  `form:"react" binding:"required"`
	Reason  string  `form:"reject_reason"`
	Name    *string `form:"name"`
	Infobox *string `form:"infobox"`
	Summary *string `form:"summary"`
}

type reviewEpisodeForm struct {
	React       string  `form:"react" binding:"required"`
	Reason      string  `form:"reject_reason"`
	Name        *string `form:"name"`
	NameCN      *string `form:"name_cn"`
	Duration    *string `form:"duration"`
	Airdate     *string `form:"airdate"`
	Description *string `form:"ep_description"`
}

// POST /api/review-patch/:id
func (h *ReviewHandler) ReviewSubjectPatch(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	var form reviewSubjectForm
	if err := c.ShouldBind(&form); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	actor := middleware.CurrentUser(c)
	switch form.React {
	case "accept":
		overrides := map[string]string{}
		putOverride(overrides, "name", form.Name)
		putOverride(overrides, "infobox", form.Infobox)
		putOverride(overrides, "summary", form.Summary)
		err = h.svc.AcceptSubjectPatch(c.Request.Context(), id, actor, overrides)
	case "reject":
		err = h.svc.RejectSubjectPatch(c.Request.Context(), id, actor, form.Reason)
	default:
		RespondError(c, http.StatusBadRequest, "invalid_request", errors.New("react must be accept or reject"))
		return
	}
	if err != nil {
		RespondServiceError(c, h.log, err)
		return
	}
	RespondOK(c, gin.H{"status": form.React + "ed"})
}

// POST /api/review-episode/:id
func (h *ReviewHandler) ReviewEpisodePatch(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	var form reviewEpisodeForm
	if err := c.ShouldBind(&form); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	actor := middleware.CurrentUser(c)
	switch form.React {
	case "accept":
		overrides := map[string]string{}
		putOverride(overrides, "name", form.Name)
		putOverride(overrides, "name_cn", form.NameCN)
		putOverride(overrides, "duration", form.Duration)
		putOverride(overrides, "airdate", form.Airdate)
		putOverride(overrides, "description", form.Description)
		err = h.svc.AcceptEpisodePatch(c.Request.Context(), id, actor, overrides)
	case "reject":
		err = h.svc.RejectEpisodePatch(c.Request.Context(), id, actor, form.Reason)
	default:
		RespondError(c, http.StatusBadRequest, "invalid_request", errors.New("react must be accept or reject"))
		return
	}
	if err != nil {
		RespondServiceError(c, h.log, err)
		return
	}
	RespondOK(c, gin.H{"status": form.React + "ed"})
}

func putOverride(m map[string]string, field string, v *string) {
	if v != nil {
		m[field] = *v
	}
}
