package api

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"testing"
	"time"

	"github.com/micaelmi/blog/internal/api/auth"
	"github.com/micaelmi/blog/internal/config"
	"github.com/micaelmi/blog/internal/model"
	"github.com/micaelmi/blog/internal/pkg/metrics"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

const testSecret = "test_secret"

type mockMailer struct {
	confirmations []string // 收到确认邮件的地址
	links         []string // 确认链接
	welcomes      []string // 收到欢迎邮件的地址
	failSend      bool
}

func (m *mockMailer) SendConfirmation(toEmail, name, link string) error {
	if m.failSend {
		return fmt.Errorf("smtp unavailable")
	}
	m.confirmations = append(m.confirmations, toEmail)
	m.links = append(m.links, link)
	return nil
}

func (m *mockMailer) SendWelcome(toEmail, name string) error {
	if m.failSend {
		return fmt.Errorf("smtp unavailable")
	}
	m.welcomes = append(m.welcomes, toEmail)
	return nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(
		&model.UserType{},
		&model.User{},
		&model.UnconfirmedUser{},
		&model.Article{},
		&model.Tag{},
		&model.ArticleTag{},
		&model.Comment{},
		&model.Feedback{},
		&model.EmailList{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func newTestServer(t *testing.T, mailer *mockMailer) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	metrics.InitMetrics()

	db := newTestDB(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &config.Config{
		App: config.AppConfig{
			Env:        "test",
			LogLevel:   "error",
			BaseURL:    "http://localhost:8080",
			TokenTTL:   30 * 24 * time.Hour,
			ConfirmTTL: 15 * time.Minute,
		},
		Security: config.SecurityConfig{JWTSecret: testSecret},
	}

	r := gin.New()
	s := &Server{
		cfg:    cfg,
		logger: logger,
		db:     db,
		router: r,
		auth:   auth.NewHandler(db, cfg, mailer, logger),
		mailer: mailer,
	}
	s.registerRoutes()
	return s
}

// seedCommonType 写入确认流程依赖的 "common" 用户类型。
func seedCommonType(t *testing.T, db *gorm.DB) model.UserType {
	t.Helper()
	ut := model.UserType{Type: "common"}
	if err := db.Create(&ut).Error; err != nil {
		t.Fatalf("seed common type: %v", err)
	}
	return ut
}

// seedUser 创建一个已确认用户并返回明文密码。
func seedUser(t *testing.T, db *gorm.DB, username, email string) (model.User, string) {
	t.Helper()
	var ut model.UserType
	if err := db.Where("type = ?", "common").First(&ut).Error; err != nil {
		ut = seedCommonType(t, db)
	}
	const password = "sup3rsecret"
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := model.User{
		Name:       "Test User",
		Username:   username,
		Email:      email,
		Password:   string(hash),
		Active:     true,
		UserTypeID: ut.ID,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user, password
}

// bearerToken 直接用测试密钥签发一个有效 token。
func bearerToken(t *testing.T, user model.User) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":          strconv.FormatUint(uint64(user.ID), 10),
		"name":         user.Name,
		"username":     user.Username,
		"user_type_id": user.UserTypeID,
		"exp":          time.Now().Add(time.Hour).Unix(),
		"iat":          time.Now().Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}
