package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Contextualist/submit-patch/internal/domain"
	"github.com/Contextualist/submit-patch/internal/middleware"
	"github.com/Contextualist/submit-patch/internal/pkg/logger"
	"github.com/Contextualist/submit-patch/internal/services"
)

type PatchHandler struct {
	log *logger.Logger
	svc services.PatchService
}

func NewPatchHandler(log *logger.Logger, svc services.PatchService) *PatchHandler {
	return &PatchHandler{
		log: log.With("Handler", "PatchHandler"),
		svc: svc,
	}
}

type suggestSubjectForm struct {
	SubjectID    int64  `form:"subject_id" binding:"required"`
	Name         string `form:"name"`
	Infobox      string `form:"infobox"`
	Summary      string `form:"summary"`
	Nsfw         string `form:"nsfw"`
	Description  string `form:"description"`
	CaptchaToken string `form:"cf_turnstile_response"`
}

type suggestEpisodeForm struct {
	EpisodeID     int64  `form:"episode_id" binding:"required"`
	Name          string `form:"name"`
	NameCN        string `form:"name_cn"`
	Duration      string `form:"duration"`
	Airdate       string `form:"airdate"`
	EpDescription string `form:"ep_description"`
	Description   string `form:"description"`
	CaptchaToken  string `form:"cf_turnstile_response"`
}

// POST /suggest
func (h *PatchHandler) SuggestSubject(c *gin.Context) {
	var form suggestSubjectForm
	if err := c.ShouldBind(&form); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	id, err := h.svc.CreateSubjectPatch(c.Request.Context(), middleware.CurrentUser(c), services.CreateSubjectPatchInput{
		SubjectID: form.SubjectID,
		Edit: domain.SubjectEdit{
			Name:    form.Name,
			Infobox: form.Infobox,
			Summary: form.Summary,
			// Checkboxes submit a value only when ticked.
			Nsfw: form.Nsfw != "",
		},
		Description:  form.Description,
		CaptchaToken: form.CaptchaToken,
	})
	if err != nil {
		RespondServiceError(c, h.log, err)
		return
	}
	RespondOK(c, gin.H{"id": id})
}

// POST /suggest-episode
func (h *PatchHandler) SuggestEpisode(c *gin.Context) {
	var form suggestEpisodeForm
	if err := c.ShouldBind(&form); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	id, err := h.svc.CreateEpisodePatch(c.Request.Context(), middleware.CurrentUser(c), services.CreateEpisodePatchInput{
		EpisodeID: form.EpisodeID,
		Edit: domain.EpisodeEdit{
			Name:        form.Name,
			NameCN:      form.NameCN,
			Duration:    form.Duration,
			Airdate:     form.Airdate,
			Description: form.EpDescription,
		},
		Description:  form.Description,
		CaptchaToken: form.CaptchaToken,
	})
	if err != nil {
		RespondServiceError(c, h.log, err)
		return
	}
	RespondOK(c, gin.H{"id": id})
}

// GET /patch/:id
func (h *PatchHandler) GetSubjectPatch(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	view, err := h.svc.GetSubjectPatch(c.Request.Context(), id)
	if err != nil {
		RespondServiceError(c, h.log, err)
		return
	}
	RespondOK(c, view)
}

// GET /episode/:id
func (h *PatchHandler) GetEpisodePatch(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	view, err := h.svc.GetEpisodePatch(c.Request.Context(), id)
	if err != nil {
		RespondServiceError(c, h.log, err)
		return
	}
	RespondOK(c, view)
}

// GET /patches
func (h *PatchHandler) ListSubjectPatches(c *gin.Context) {
	state, ok := parseState(c.DefaultQuery("state", "pending"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid state filter"})
		return
	}
	limit, offset := paging(c)

	patches, err := h.svc.ListSubjectPatches(c.Request.Context(), state, limit, offset)
	if err != nil {
		RespondServiceError(c, h.log, err)
		return
	}
	RespondOK(c, gin.H{"patches": patches})
}

// GET /episode-patches
func (h *PatchHandler) ListEpisodePatches(c *gin.Context) {
	state, ok := parseState(c.DefaultQuery("state", "pending"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid state filter"})
		return
	}
	limit, offset := paging(c)

	patches, err := h.svc.ListEpisodePatches(c.Request.Context(), state, limit, offset)
	if err != nil {
		RespondServiceError(c, h.log, err)
		return
	}
	RespondOK(c, gin.H{"patches": patches})
}

// GET /contrib/:user_id
func (h *PatchHandler) ListSubjectPatchesBySubmitter(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	limit, offset := paging(c)

	patches, err := h.svc.ListSubjectPatchesBySubmitter(c.Request.Context(), userID, limit, offset)
	if err != nil {
		RespondServiceError(c, h.log, err)
		return
	}
	RespondOK(c, gin.H{"patches": patches})
}

// GET /contrib/:user_id/episode
func (h *PatchHandler) ListEpisodePatchesBySubmitter(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	limit, offset := paging(c)

	patches, err := h.svc.ListEpisodePatchesBySubmitter(c.Request.Context(), userID, limit, offset)
	if err != nil {
		RespondServiceError(c, h.log, err)
		return
	}
	RespondOK(c, gin.H{"patches": patches})
}

// POST /api/delete-patch/:id
func (h *PatchHandler) DeleteSubjectPatch(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	if err := h.svc.DeleteSubjectPatch(c.Request.Context(), id, middleware.CurrentUser(c)); err != nil {
		RespondServiceError(c, h.log, err)
		return
	}
	RespondOK(c, gin.H{"status": "deleted"})
}

// POST /api/delete-episode/:id
func (h *PatchHandler) DeleteEpisodePatch(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	if err := h.svc.DeleteEpisodePatch(c.Request.Context(), id, middleware.CurrentUser(c)); err != nil {
		RespondServiceError(c, h.log, err)
		return
	}
	RespondOK(c, gin.H{"status": "deleted"})
}

func parseState(s string) (domain.PatchState, bool) {
	switch s {
	case "pending":
		return domain.StatePending, true
	case "accepted":
		return domain.StateAccepted, true
	case "rejected":
		return domain.StateRejected, true
	case "outdated":
		return domain.StateOutdated, true
	}
	return 0, false
}

func paging(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.Query("limit"))
	offset, _ = strconv.Atoi(c.Query("offset"))
	return limit, offset
}
