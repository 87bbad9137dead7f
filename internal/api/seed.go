package api

import (
	"context"
	"errors"

	"github.com/micaelmi/blog/internal/model"

	"gorm.io/gorm"
)

// SeedUserTypes 初始化内置用户类型。
//
// "common" 类型是邮箱确认流程的硬依赖：缺失时确认请求会以服务端错误失败，
// 所以服务启动时保证它存在。
func (s *Server) SeedUserTypes(ctx context.Context) error {
	for _, name := range []string{"common", "admin"} {
		var ut model.UserType
		err := s.db.WithContext(ctx).Where("type = ?", name).First(&ut).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := s.db.WithContext(ctx).Create(&model.UserType{Type: name}).Error; err != nil {
			return err
		}
	}
	return nil
}
