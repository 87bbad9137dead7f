package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/micaelmi/blog/internal/model"

	"github.com/gin-gonic/gin"
)

type createFeedbackRequest struct {
	Title   string `json:"title" binding:"required,max=191"`
	Message string `json:"message" binding:"required,max=2048"`
}

type updateFeedbackRequest struct {
	Visualized bool `json:"visualized"`
}

type feedbackResponse struct {
	ID         uint      `json:"id"`
	Title      string    `json:"title"`
	Message    string    `json:"message"`
	Visualized bool      `json:"visualized"`
	UserID     uint      `json:"user_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// handleCreateFeedback 提交反馈。
//
//	@Summary	Submit feedback
//	@Tags		feedbacks
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		body	body		createFeedbackRequest	true	"feedback"
//	@Success	201		{object}	map[string]uint
//	@Router		/feedbacks [post]
func (s *Server) handleCreateFeedback(c *gin.Context) {
	var req createFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	fb := model.Feedback{
		Title:   req.Title,
		Message: req.Message,
		UserID:  getUserID(c),
	}
	if err := s.db.Create(&fb).Error; err != nil {
		s.logger.Error("create feedback failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create feedback failed"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": fb.ID})
}

// handleListFeedbacks 返回全部反馈。
//
//	@Summary	List feedback entries
//	@Tags		feedbacks
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{array}	feedbackResponse
//	@Router		/feedbacks [get]
func (s *Server) handleListFeedbacks(c *gin.Context) {
	var feedbacks []model.Feedback
	if err := s.db.Order("created_at DESC").Find(&feedbacks).Error; err != nil {
		s.logger.Error("list feedbacks failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list feedbacks failed"})
		return
	}

	resp := make([]feedbackResponse, 0, len(feedbacks))
	for _, fb := range feedbacks {
		resp = append(resp, feedbackResponse{
			ID:         fb.ID,
			Title:      fb.Title,
			Message:    fb.Message,
			Visualized: fb.Visualized,
			UserID:     fb.UserID,
			CreatedAt:  fb.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, resp)
}

// handleUpdateFeedback 标记反馈是否已被查看。
//
//	@Summary	Mark feedback as visualized
//	@Tags		feedbacks
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id		path		int						true	"feedback id"
//	@Param		body	body		updateFeedbackRequest	true	"visualized flag"
//	@Success	200		{object}	map[string]bool
//	@Failure	404		{object}	map[string]string
//	@Router		/feedbacks/{id} [put]
func (s *Server) handleUpdateFeedback(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid feedback id"})
		return
	}

	var req updateFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res := s.db.Model(&model.Feedback{}).
		Where("id = ?", uint(id)).
		Update("visualized", req.Visualized)
	if res.Error != nil {
		s.logger.Error("update feedback failed", slog.String("error", res.Error.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "feedback not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"visualized": req.Visualized})
}

// handleDeleteFeedback 删除反馈。
//
//	@Summary	Delete feedback
//	@Tags		feedbacks
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		int	true	"feedback id"
//	@Success	200	{object}	map[string]string
//	@Failure	404	{object}	map[string]string
//	@Router		/feedbacks/{id} [delete]
func (s *Server) handleDeleteFeedback(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid feedback id"})
		return
	}

	res := s.db.Where("id = ?", uint(id)).Delete(&model.Feedback{})
	if res.Error != nil {
		s.logger.Error("delete feedback failed", slog.String("error", res.Error.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete feedback failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "feedback not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": c.Param("id")})
}
