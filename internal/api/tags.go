package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/micaelmi/blog/internal/model"

	"github.com/gin-gonic/gin"
)

type tagRequest struct {
	Name string `json:"name" binding:"required,min=1,max=64"`
}

// handleListTags 返回全部标签。
//
//	@Summary	List tags
//	@Tags		tags
//	@Produce	json
//	@Success	200	{array}	tagResponse
//	@Router		/tags [get]
func (s *Server) handleListTags(c *gin.Context) {
	var tags []model.Tag
	if err := s.db.Order("name").Find(&tags).Error; err != nil {
		s.logger.Error("list tags failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list tags failed"})
		return
	}

	resp := make([]tagResponse, 0, len(tags))
	for _, t := range tags {
		resp = append(resp, tagResponse{ID: t.ID, Name: t.Name})
	}
	c.JSON(http.StatusOK, resp)
}

// handleCreateTag 创建标签。
//
//	@Summary	Create a tag
//	@Tags		tags
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		body	body		tagRequest	true	"tag name"
//	@Success	201		{object}	map[string]uint
//	@Failure	409		{object}	map[string]string
//	@Router		/tags [post]
func (s *Server) handleCreateTag(c *gin.Context) {
	var req tagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tag := model.Tag{Name: strings.TrimSpace(req.Name)}
	if err := s.db.Create(&tag).Error; err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "tag already exists"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": tag.ID})
}

// handleUpdateTag 重命名标签。
//
//	@Summary	Rename a tag
//	@Tags		tags
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id		path		int			true	"tag id"
//	@Param		body	body		tagRequest	true	"new tag name"
//	@Success	200		{object}	map[string]bool
//	@Failure	404		{object}	map[string]string
//	@Router		/tags/{id} [put]
func (s *Server) handleUpdateTag(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tag id"})
		return
	}

	var req tagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res := s.db.Model(&model.Tag{}).
		Where("id = ?", uint(id)).
		Update("name", strings.TrimSpace(req.Name))
	if res.Error != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "tag already exists"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "tag not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated": true})
}

// handleDeleteTag 删除标签及其文章关联。
//
//	@Summary	Delete a tag
//	@Tags		tags
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		int	true	"tag id"
//	@Success	200	{object}	map[string]string
//	@Failure	404	{object}	map[string]string
//	@Router		/tags/{id} [delete]
func (s *Server) handleDeleteTag(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tag id"})
		return
	}

	tx := s.db.Begin()
	if tx.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "transaction failed"})
		return
	}
	if err := tx.Where("tag_id = ?", uint(id)).Delete(&model.ArticleTag{}).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete tag associations failed"})
		return
	}
	res := tx.Where("id = ?", uint(id)).Delete(&model.Tag{})
	if res.Error != nil {
		tx.Rollback()
		s.logger.Error("delete tag failed", slog.String("error", res.Error.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete tag failed"})
		return
	}
	if res.RowsAffected == 0 {
		tx.Rollback()
		c.JSON(http.StatusNotFound, gin.H{"error": "tag not found"})
		return
	}
	if err := tx.Commit().Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "commit failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": c.Param("id")})
}
