package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/micaelmi/blog/internal/model"

	"github.com/gin-gonic/gin"
)

type userTypeRequest struct {
	Type string `json:"type" binding:"required,min=2,max=32"`
}

type userTypeResponse struct {
	ID   uint   `json:"id"`
	Type string `json:"type"`
}

// handleListUserTypes 返回全部用户类型。
//
//	@Summary	List user types
//	@Tags		user-types
//	@Produce	json
//	@Success	200	{array}	userTypeResponse
//	@Router		/user-types [get]
func (s *Server) handleListUserTypes(c *gin.Context) {
	var types []model.UserType
	if err := s.db.Order("id").Find(&types).Error; err != nil {
		s.logger.Error("list user types failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list user types failed"})
		return
	}

	resp := make([]userTypeResponse, 0, len(types))
	for _, t := range types {
		resp = append(resp, userTypeResponse{ID: t.ID, Type: t.Type})
	}
	c.JSON(http.StatusOK, resp)
}

// handleCreateUserType 创建用户类型。
//
//	@Summary	Create a user type
//	@Tags		user-types
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		body	body		userTypeRequest	true	"type name"
//	@Success	201		{object}	map[string]uint
//	@Failure	409		{object}	map[string]string
//	@Router		/user-types [post]
func (s *Server) handleCreateUserType(c *gin.Context) {
	var req userTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ut := model.UserType{Type: strings.ToLower(strings.TrimSpace(req.Type))}
	if err := s.db.Create(&ut).Error; err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "user type already exists"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": ut.ID})
}

// handleUpdateUserType 重命名用户类型。
//
//	@Summary	Rename a user type
//	@Tags		user-types
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id		path		int				true	"user type id"
//	@Param		body	body		userTypeRequest	true	"new type name"
//	@Success	200		{object}	map[string]bool
//	@Failure	404		{object}	map[string]string
//	@Router		/user-types/{id} [put]
func (s *Server) handleUpdateUserType(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user type id"})
		return
	}

	var req userTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res := s.db.Model(&model.UserType{}).
		Where("id = ?", uint(id)).
		Update("type", strings.ToLower(strings.TrimSpace(req.Type)))
	if res.Error != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "user type already exists"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "user type not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated": true})
}

// handleDeleteUserType 删除用户类型。
//
//	@Summary	Delete a user type
//	@Tags		user-types
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		int	true	"user type id"
//	@Success	200	{object}	map[string]string
//	@Failure	404	{object}	map[string]string
//	@Router		/user-types/{id} [delete]
func (s *Server) handleDeleteUserType(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user type id"})
		return
	}

	res := s.db.Where("id = ?", uint(id)).Delete(&model.UserType{})
	if res.Error != nil {
		s.logger.Error("delete user type failed", slog.String("error", res.Error.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete user type failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "user type not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": c.Param("id")})
}
