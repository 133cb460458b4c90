package controller

import (
	"errors"
	"net/http"

	"edu_assess_backend/internal/service"
	"edu_assess_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AssessmentController struct {
	Service *service.AssessmentService
}

func NewAssessmentController(svc *service.AssessmentService) *AssessmentController {
	return &AssessmentController{Service: svc}
}

type CreateAssessmentRequest struct {
	Subject       string `json:"subject" binding:"required"`
	QuestionCount int    `json:"question_count"`
}

type SubmitAssessmentRequest struct {
	Problems []map[string]any `json:"problems" binding:"required"`
	Answers  map[string]any   `json:"answers"`
}

// @Summary Create an assessment
// @Tags assessments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CreateAssessmentRequest true "subject and optional question count"
// @Success 201 {object} util.Response
// @Router /api/assessments [post]
func (c *AssessmentController) Create(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req CreateAssessmentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	run, blueprint, err := c.Service.CreateAssessment(user.UserID, req.Subject, req.QuestionCount)
	if err != nil {
		if errors.Is(err, util.ErrNoCurriculumData) {
			util.Error(ctx, http.StatusUnprocessableEntity, "no curriculum data for subject")
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	util.Created(ctx, gin.H{
		"assessmentId": run.ID,
		"blueprint":    blueprint,
	})
}

// @Summary Submit answers for scoring
// @Tags assessments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "assessment id"
// @Param body body SubmitAssessmentRequest true "problem set and answers keyed by problem id"
// @Success 200 {object} util.Response
// @Router /api/assessments/{id}/submit [post]
func (c *AssessmentController) Submit(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req SubmitAssessmentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	report, err := c.Service.SubmitAssessment(ctx.Request.Context(), ctx.Param("id"), user.UserID, req.Problems, req.Answers)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrAssessmentNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrAlreadyScored):
			util.Error(ctx, http.StatusConflict, "assessment already scored")
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, report)
}

// @Summary Fetch a scored report
// @Tags assessments
// @Produce json
// @Security BearerAuth
// @Param id path string true "assessment id"
// @Success 200 {object} util.Response
// @Router /api/assessments/{id}/report [get]
func (c *AssessmentController) GetReport(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	report, err := c.Service.GetReport(ctx.Request.Context(), ctx.Param("id"), user.UserID)
	if err != nil {
		if errors.Is(err, util.ErrAssessmentNotFound) || errors.Is(err, util.ErrReportNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, report)
}
