package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/micaelmi/blog/internal/model"

	"github.com/gin-gonic/gin"
)

type subscribeRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// handleSubscribeEmail 订阅新闻邮件列表。
//
//	@Summary	Subscribe to the newsletter
//	@Tags		email-list
//	@Accept		json
//	@Produce	json
//	@Param		body	body		subscribeRequest	true	"email"
//	@Success	201		{object}	map[string]uint
//	@Failure	409		{object}	map[string]string
//	@Router		/email-list [post]
func (s *Server) handleSubscribeEmail(c *gin.Context) {
	var req subscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entry := model.EmailList{
		Email:  strings.TrimSpace(strings.ToLower(req.Email)),
		Active: true,
	}
	if err := s.db.Create(&entry).Error; err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "email already subscribed"})
		return
	}

	s.logger.Info("newsletter subscription", slog.String("email", entry.Email))
	c.JSON(http.StatusCreated, gin.H{"id": entry.ID})
}
