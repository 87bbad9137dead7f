package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/micaelmi/blog/internal/config"
	"github.com/micaelmi/blog/internal/model"
	"github.com/micaelmi/blog/internal/pkg/metrics"
	"github.com/micaelmi/blog/internal/pkg/notify"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Handler 提供注册、邮箱确认与登录接口。
type Handler struct {
	db     *gorm.DB
	cfg    *config.Config
	mailer notify.Mailer
	logger *slog.Logger
}

// NewHandler 创建 Auth Handler。
func NewHandler(db *gorm.DB, cfg *config.Config, mailer notify.Mailer, logger *slog.Logger) *Handler {
	return &Handler{
		db:     db,
		cfg:    cfg,
		mailer: mailer,
		logger: logger,
	}
}

type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Username string `json:"username" binding:"required,min=3,max=64"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type loginRequest struct {
	Credential string `json:"credential" binding:"required"` // 用户名或邮箱
	Password   string `json:"password" binding:"required"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type customClaims struct {
	jwt.RegisteredClaims
	Name       string `json:"name"`
	Username   string `json:"username"`
	UserTypeID uint   `json:"user_type_id"`
}

// Register 接收注册申请并发送确认邮件。
//
// 注册数据先写入暂存表（unconfirmed_users），确认邮箱后才生成正式用户。
//
//	@Summary	Submit a registration
//	@Tags		auth
//	@Accept		json
//	@Produce	json
//	@Param		body	body		object{name=string,username=string,email=string,password=string}	true	"registration data"
//	@Success	202		{object}	map[string]string
//	@Failure	400		{object}	map[string]string
//	@Failure	409		{object}	map[string]string
//	@Router		/users [post]
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	email := strings.TrimSpace(strings.ToLower(req.Email))
	username := strings.TrimSpace(req.Username)

	// 用户名或邮箱已被正式用户占用则直接拒绝，不写任何行
	var count int64
	if err := h.db.Model(&model.User{}).
		Where("username = ? OR email = ?", username, email).
		Count(&count).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query user failed"})
		return
	}
	if count > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "username or email already exists"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "hash password failed"})
		return
	}

	staged := model.UnconfirmedUser{
		ID:       uuid.NewString(),
		Name:     strings.TrimSpace(req.Name),
		Username: username,
		Email:    email,
		Password: string(hash),
	}
	if err := h.db.Create(&staged).Error; err != nil {
		// 暂存表的唯一索引：同一用户名/邮箱的注册已在等待确认
		h.logger.Warn("create unconfirmed user failed", slog.String("email", email), slog.String("error", err.Error()))
		c.JSON(http.StatusConflict, gin.H{"error": "registration already pending confirmation"})
		return
	}

	link := fmt.Sprintf("%s/users/confirm-email?user_id=%s", strings.TrimRight(h.cfg.App.BaseURL, "/"), staged.ID)
	if err := h.mailer.SendConfirmation(email, staged.Name, link); err != nil {
		_ = h.db.Delete(&staged).Error
		h.logger.Warn("send confirmation email failed", slog.String("email", email), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "send confirmation failed"})
		return
	}

	metrics.RegistrationsTotal.Inc()
	h.logger.Info("registration accepted", slog.String("email", email), slog.String("username", username))
	c.JSON(http.StatusAccepted, gin.H{"message": "confirmation email sent"})
}

// ConfirmEmail 校验确认链接并将暂存记录提升为正式用户。
//
// 过期检查是惰性的：只有当链接在窗口外被访问时，暂存记录才会被删除。
//
//	@Summary	Confirm a registration email
//	@Tags		auth
//	@Produce	json
//	@Param		user_id	query		string	true	"unconfirmed user id (uuid)"
//	@Success	201		{object}	map[string]uint
//	@Failure	404		{object}	map[string]string
//	@Failure	410		{object}	map[string]string
//	@Router		/users/confirm-email [get]
func (h *Handler) ConfirmEmail(c *gin.Context) {
	rawID := c.Query("user_id")
	if _, err := uuid.Parse(rawID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
		return
	}

	var staged model.UnconfirmedUser
	if err := h.db.Where("id = ?", rawID).First(&staged).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			metrics.ConfirmationsTotal.WithLabelValues("not_found").Inc()
			c.JSON(http.StatusNotFound, gin.H{"error": "registration not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query registration failed"})
		return
	}

	if time.Since(staged.CreatedAt) > h.cfg.App.ConfirmTTL {
		if err := h.db.Delete(&staged).Error; err != nil {
			h.logger.Warn("delete expired registration failed", slog.String("id", staged.ID), slog.String("error", err.Error()))
		}
		metrics.ConfirmationsTotal.WithLabelValues("expired").Inc()
		h.logger.Info("registration expired", slog.String("email", staged.Email))
		c.JSON(http.StatusGone, gin.H{"error": "confirmation link expired"})
		return
	}

	var commonType model.UserType
	if err := h.db.Where("type = ?", "common").First(&commonType).Error; err != nil {
		h.logger.Error("common user type missing", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user type not configured"})
		return
	}

	user := model.User{
		Name:       staged.Name,
		Username:   staged.Username,
		Email:      staged.Email,
		Password:   staged.Password,
		Active:     true,
		UserTypeID: commonType.ID,
	}

	// 提升与清理在同一事务中提交，避免正式用户已创建而暂存行残留
	tx := h.db.Begin()
	if tx.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "transaction failed"})
		return
	}
	if err := tx.Create(&user).Error; err != nil {
		tx.Rollback()
		h.logger.Error("create user failed", slog.String("email", staged.Email), slog.String("error", err.Error()))
		c.JSON(http.StatusConflict, gin.H{"error": "username or email already exists"})
		return
	}
	if err := tx.Delete(&staged).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete registration failed"})
		return
	}
	if err := tx.Commit().Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "commit failed"})
		return
	}

	// 欢迎邮件失败不回滚账号
	if err := h.mailer.SendWelcome(user.Email, user.Name); err != nil {
		h.logger.Warn("send welcome email failed", slog.String("email", user.Email), slog.String("error", err.Error()))
	}

	metrics.ConfirmationsTotal.WithLabelValues("confirmed").Inc()
	h.logger.Info("email confirmed", slog.String("email", user.Email), slog.Uint64("user_id", uint64(user.ID)))

	if strings.Contains(c.GetHeader("Accept"), "text/html") {
		c.Data(http.StatusCreated, "text/html; charset=utf-8", []byte(confirmedPage))
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": user.ID})
}

// Login 校验凭据并签发 JWT。
//
//	@Summary	Log in with username or email
//	@Tags		auth
//	@Accept		json
//	@Produce	json
//	@Param		body	body		object{credential=string,password=string}	true	"credentials"
//	@Success	200		{object}	tokenResponse
//	@Failure	401		{object}	map[string]string
//	@Failure	404		{object}	map[string]string
//	@Router		/users/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	credential := strings.TrimSpace(req.Credential)

	var user model.User
	if err := h.db.Where("username = ? OR email = ?", credential, strings.ToLower(credential)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			metrics.LoginsTotal.WithLabelValues("not_found").Inc()
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query user failed"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		metrics.LoginsTotal.WithLabelValues("mismatch").Inc()
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := h.issueToken(&user)
	if err != nil {
		h.logger.Error("sign token failed", slog.String("username", user.Username), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sign token failed"})
		return
	}

	metrics.LoginsTotal.WithLabelValues("ok").Inc()
	h.logger.Info("user logged in", slog.String("username", user.Username))
	c.SetCookie("token", token, int(h.cfg.App.TokenTTL.Seconds()), "/", "", false, true)
	c.JSON(http.StatusOK, tokenResponse{Token: token})
}

// Logout 清除客户端 cookie。
//
// 无服务端吊销：已签发的 token 在自然过期前仍然有效。
//
//	@Summary	Log out (clears cookie)
//	@Tags		auth
//	@Produce	json
//	@Success	200	{object}	map[string]string
//	@Router		/users/logout [post]
func (h *Handler) Logout(c *gin.Context) {
	c.SetCookie("token", "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (h *Handler) issueToken(user *model.User) (string, error) {
	claims := customClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(h.cfg.App.TokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Name:       user.Name,
		Username:   user.Username,
		UserTypeID: user.UserTypeID,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.cfg.Security.JWTSecret))
}

const confirmedPage = `<!DOCTYPE html>
<html lang="pt-BR">
<head>
<meta charset="UTF-8" />
<title>E-mail confirmado</title>
<style>
  body { font-family: Arial, sans-serif; background: #f6f7fb; color: #1f2937; }
  .card { max-width: 480px; margin: 64px auto; background: #ffffff; border-radius: 12px; border: 1px solid #e5e7eb; padding: 32px; text-align: center; }
  h1 { font-size: 22px; }
</style>
</head>
<body>
  <div class="card">
    <h1>✅ E-mail confirmado!</h1>
    <p>Sua conta está ativa. Você já pode fazer login.</p>
  </div>
</body>
</html>`
