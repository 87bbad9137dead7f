package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/micaelmi/blog/internal/model"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// createArticleRequest 创建文章的请求参数。
type createArticleRequest struct {
	Title     string `json:"title" binding:"required"`
	ImageURL  string `json:"image_url"`
	Content   string `json:"content" binding:"required"`
	Published bool   `json:"published"`
	TagIDs    []uint `json:"tag_ids"`
}

type updateArticleRequest struct {
	Title     *string `json:"title"`
	ImageURL  *string `json:"image_url"`
	Content   *string `json:"content"`
	Published *bool   `json:"published"`
	TagIDs    []uint  `json:"tag_ids"`
}

type tagResponse struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

type articleResponse struct {
	ID        uint          `json:"id"`
	Title     string        `json:"title"`
	ImageURL  string        `json:"image_url"`
	Content   string        `json:"content"`
	Published bool          `json:"published"`
	UserID    uint          `json:"user_id"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
	Tags      []tagResponse `json:"tags"`
}

// 列表排序字段白名单
var articleSortFields = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"title":      true,
}

func toArticleResponse(a *model.Article) articleResponse {
	resp := articleResponse{
		ID:        a.ID,
		Title:     a.Title,
		ImageURL:  a.ImageURL,
		Content:   a.Content,
		Published: a.Published,
		UserID:    a.UserID,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
		Tags:      []tagResponse{},
	}
	for _, t := range a.Tags {
		resp.Tags = append(resp.Tags, tagResponse{ID: t.ID, Name: t.Name})
	}
	return resp
}

// handleListArticles 返回文章列表，支持标题过滤、排序与分页。
//
//	@Summary	List articles
//	@Tags		articles
//	@Produce	json
//	@Param		query	query		string	false	"title substring filter"
//	@Param		sort	query		string	false	"sort field (created_at, updated_at, title)"
//	@Param		order	query		string	false	"asc or desc"
//	@Param		take	query		int		false	"page size (default 10, max 100)"
//	@Param		page	query		int		false	"1-based page number"
//	@Success	200		{array}		articleResponse
//	@Router		/articles [get]
func (s *Server) handleListArticles(c *gin.Context) {
	sortField := c.DefaultQuery("sort", "created_at")
	if !articleSortFields[sortField] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid sort field"})
		return
	}
	order := strings.ToLower(c.DefaultQuery("order", "desc"))
	if order != "asc" && order != "desc" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order"})
		return
	}

	take, err := strconv.Atoi(c.DefaultQuery("take", "10"))
	if err != nil || take < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid take"})
		return
	}
	if take > 100 {
		take = 100
	}
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page"})
		return
	}

	q := s.db.Model(&model.Article{}).Preload("Tags")
	if query := strings.TrimSpace(c.Query("query")); query != "" {
		q = q.Where("title LIKE ?", "%"+query+"%")
	}

	var articles []model.Article
	if err := q.Order(sortField + " " + order).
		Limit(take).
		Offset((page - 1) * take).
		Find(&articles).Error; err != nil {
		s.logger.Error("list articles failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list articles failed"})
		return
	}

	resp := make([]articleResponse, 0, len(articles))
	for i := range articles {
		resp = append(resp, toArticleResponse(&articles[i]))
	}
	c.JSON(http.StatusOK, resp)
}

// handleGetArticle 返回单篇文章。
//
//	@Summary	Get an article
//	@Tags		articles
//	@Produce	json
//	@Param		articleId	path		int	true	"article id"
//	@Success	200			{object}	articleResponse
//	@Failure	404			{object}	map[string]string
//	@Router		/articles/{articleId} [get]
func (s *Server) handleGetArticle(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("articleId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid article id"})
		return
	}

	var article model.Article
	if err := s.db.Preload("Tags").First(&article, uint(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "article not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query article failed"})
		return
	}
	c.JSON(http.StatusOK, toArticleResponse(&article))
}

// handleCreateArticle 创建文章及其标签关联。
//
// POST /articles
//
//	@Summary	Create an article
//	@Tags		articles
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		body	body		createArticleRequest	true	"article data"
//	@Success	201		{object}	map[string]uint
//	@Failure	400		{object}	map[string]string
//	@Router		/articles [post]
func (s *Server) handleCreateArticle(c *gin.Context) {
	var req createArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	userID := getUserID(c)

	article := model.Article{
		Title:     strings.TrimSpace(req.Title),
		ImageURL:  req.ImageURL,
		Content:   req.Content,
		Published: req.Published,
		UserID:    userID,
	}

	tx := s.db.Begin()
	if tx.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "transaction failed"})
		return
	}
	if err := tx.Create(&article).Error; err != nil {
		tx.Rollback()
		s.logger.Error("create article failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create article failed"})
		return
	}
	for _, tagID := range dedupeIDs(req.TagIDs) {
		if err := tx.Create(&model.ArticleTag{ArticleID: article.ID, TagID: tagID}).Error; err != nil {
			tx.Rollback()
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tag id"})
			return
		}
	}
	if err := tx.Commit().Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "commit failed"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": article.ID})
}

// handleUpdateArticle 更新文章字段并按集合差异同步标签关联。
//
// tag_ids 省略或为空时，所有标签关联都会被移除。
//
// PUT /articles/:articleId
//
//	@Summary	Update an article
//	@Tags		articles
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		articleId	path		int						true	"article id"
//	@Param		body		body		updateArticleRequest	true	"fields to update"
//	@Success	200			{object}	map[string]bool
//	@Failure	404			{object}	map[string]string
//	@Router		/articles/{articleId} [put]
func (s *Server) handleUpdateArticle(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("articleId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid article id"})
		return
	}

	var req updateArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var article model.Article
	if err := s.db.First(&article, uint(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "article not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query article failed"})
		return
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid title"})
			return
		}
		updates["title"] = title
	}
	if req.ImageURL != nil {
		updates["image_url"] = *req.ImageURL
	}
	if req.Content != nil {
		updates["content"] = *req.Content
	}
	if req.Published != nil {
		updates["published"] = *req.Published
	}

	tx := s.db.Begin()
	if tx.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "transaction failed"})
		return
	}

	if len(updates) > 0 {
		if err := tx.Model(&model.Article{}).Where("id = ?", article.ID).Updates(updates).Error; err != nil {
			tx.Rollback()
			s.logger.Error("update article failed", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
			return
		}
	}

	if err := s.reconcileTags(tx, article.ID, dedupeIDs(req.TagIDs)); err != nil {
		tx.Rollback()
		s.logger.Error("sync article tags failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sync tags failed"})
		return
	}

	if err := tx.Commit().Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "commit failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated": true})
}

// reconcileTags 按集合差异同步文章的标签关联：
// 删除不在目标集合中的关联，插入尚不存在的关联，已有交集保持不动。
func (s *Server) reconcileTags(tx *gorm.DB, articleID uint, target []uint) error {
	var existing []uint
	if err := tx.Model(&model.ArticleTag{}).
		Where("article_id = ?", articleID).
		Pluck("tag_id", &existing).Error; err != nil {
		return err
	}

	targetSet := make(map[uint]bool, len(target))
	for _, id := range target {
		targetSet[id] = true
	}
	existingSet := make(map[uint]bool, len(existing))
	for _, id := range existing {
		existingSet[id] = true
	}

	var stale []uint
	for _, id := range existing {
		if !targetSet[id] {
			stale = append(stale, id)
		}
	}
	if len(stale) > 0 {
		if err := tx.Where("article_id = ? AND tag_id IN ?", articleID, stale).
			Delete(&model.ArticleTag{}).Error; err != nil {
			return err
		}
	}

	for _, id := range target {
		if !existingSet[id] {
			if err := tx.Create(&model.ArticleTag{ArticleID: articleID, TagID: id}).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

// handleDeleteArticle 删除文章及其评论与标签关联。
//
// DELETE /articles/:articleId
//
//	@Summary	Delete an article
//	@Tags		articles
//	@Produce	json
//	@Security	BearerAuth
//	@Param		articleId	path		int	true	"article id"
//	@Success	200			{object}	map[string]string
//	@Failure	404			{object}	map[string]string
//	@Router		/articles/{articleId} [delete]
func (s *Server) handleDeleteArticle(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("articleId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid article id"})
		return
	}

	var article model.Article
	if err := s.db.First(&article, uint(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "article not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query article failed"})
		return
	}

	tx := s.db.Begin()
	if tx.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "transaction failed"})
		return
	}
	if err := tx.Where("article_id = ?", article.ID).Delete(&model.ArticleTag{}).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete article tags failed"})
		return
	}
	if err := tx.Where("article_id = ?", article.ID).Delete(&model.Comment{}).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete comments failed"})
		return
	}
	if err := tx.Delete(&article).Error; err != nil {
		tx.Rollback()
		s.logger.Error("delete article failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete article failed"})
		return
	}
	if err := tx.Commit().Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "commit failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": c.Param("articleId")})
}

// dedupeIDs 去重并保持首次出现的顺序。
func dedupeIDs(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
