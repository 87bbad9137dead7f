package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/micaelmi/blog/internal/model"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type createCommentRequest struct {
	Content string `json:"content" binding:"required,max=1024"`
}

type commentResponse struct {
	ID        uint      `json:"id"`
	Content   string    `json:"content"`
	UserID    uint      `json:"user_id"`
	Username  string    `json:"username"`
	ArticleID uint      `json:"article_id"`
	CreatedAt time.Time `json:"created_at"`
}

// handleListComments 返回某篇文章的评论列表。
//
//	@Summary	List comments of an article
//	@Tags		comments
//	@Produce	json
//	@Param		articleId	path	int	true	"article id"
//	@Success	200	{array}		commentResponse
//	@Failure	404	{object}	map[string]string
//	@Router		/articles/{articleId}/comments [get]
func (s *Server) handleListComments(c *gin.Context) {
	articleID, err := strconv.ParseUint(c.Param("articleId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid article id"})
		return
	}

	var comments []model.Comment
	if err := s.db.Preload("User").
		Where("article_id = ?", uint(articleID)).
		Order("created_at").
		Find(&comments).Error; err != nil {
		s.logger.Error("list comments failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list comments failed"})
		return
	}

	resp := make([]commentResponse, 0, len(comments))
	for _, cm := range comments {
		resp = append(resp, commentResponse{
			ID:        cm.ID,
			Content:   cm.Content,
			UserID:    cm.UserID,
			Username:  cm.User.Username,
			ArticleID: cm.ArticleID,
			CreatedAt: cm.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, resp)
}

// handleCreateComment 在文章下创建评论。
//
// POST /articles/:articleId/comments
//
//	@Summary	Comment on an article
//	@Tags		comments
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		articleId	path		int						true	"article id"
//	@Param		body		body		createCommentRequest	true	"comment"
//	@Success	201			{object}	map[string]uint
//	@Failure	404			{object}	map[string]string
//	@Router		/articles/{articleId}/comments [post]
func (s *Server) handleCreateComment(c *gin.Context) {
	articleID, err := strconv.ParseUint(c.Param("articleId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid article id"})
		return
	}

	var req createCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var article model.Article
	if err := s.db.First(&article, uint(articleID)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "article not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query article failed"})
		return
	}

	comment := model.Comment{
		Content:   req.Content,
		UserID:    getUserID(c),
		ArticleID: article.ID,
	}
	if err := s.db.Create(&comment).Error; err != nil {
		s.logger.Error("create comment failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create comment failed"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": comment.ID})
}

// handleDeleteComment 删除评论（仅限评论作者）。
//
// DELETE /comments/:id
//
//	@Summary	Delete a comment
//	@Tags		comments
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		int	true	"comment id"
//	@Success	200	{object}	map[string]string
//	@Failure	404	{object}	map[string]string
//	@Router		/comments/{id} [delete]
func (s *Server) handleDeleteComment(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid comment id"})
		return
	}

	res := s.db.Where("id = ? AND user_id = ?", uint(id), getUserID(c)).Delete(&model.Comment{})
	if res.Error != nil {
		s.logger.Error("delete comment failed", slog.String("error", res.Error.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete comment failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "comment not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": c.Param("id")})
}
