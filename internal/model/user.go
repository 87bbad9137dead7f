package model

import "time"

// User 表示已完成邮箱验证的正式用户。
type User struct {
	ID        uint      `gorm:"primaryKey"`                    // 用户 ID
	Name      string    `gorm:"type:varchar(120);not null"`    // 显示名称
	Username  string    `gorm:"type:varchar(64);uniqueIndex"`  // 用户名（唯一）
	Email     string    `gorm:"type:varchar(191);uniqueIndex"` // 邮箱（唯一）
	Password  string    `gorm:"not null"`                      // bcrypt 哈希
	Bio       string    `gorm:"type:varchar(512)"`             // 个人简介
	AvatarURL string    `gorm:"type:varchar(512)"`             // 头像链接
	Active    bool      `gorm:"default:true"`                  // 是否启用
	CreatedAt time.Time // 创建时间
	UpdatedAt time.Time // 更新时间

	UserTypeID uint     `gorm:"not null"`              // 所属用户类型 ID
	UserType   UserType `gorm:"foreignKey:UserTypeID"` // 所属用户类型

	Articles  []Article  `gorm:"foreignKey:UserID"`
	Comments  []Comment  `gorm:"foreignKey:UserID"`
	Feedbacks []Feedback `gorm:"foreignKey:UserID"`
}

// UnconfirmedUser 是等待邮箱确认的注册暂存记录。
//
// 记录在确认成功（提升为 User）或确认链接过期后被删除；
// 过期检查是惰性的，只在确认链接被访问时发生。
type UnconfirmedUser struct {
	ID        string    `gorm:"type:varchar(36);primaryKey"`   // uuid，嵌入确认链接
	Name      string    `gorm:"type:varchar(120);not null"`    // 显示名称
	Username  string    `gorm:"type:varchar(64);uniqueIndex"`  // 用户名（唯一）
	Email     string    `gorm:"type:varchar(191);uniqueIndex"` // 邮箱（唯一）
	Password  string    `gorm:"not null"`                      // bcrypt 哈希
	CreatedAt time.Time // 创建时间（过期窗口的起点）
}

// UserType 表示用户角色，如 "common" / "admin"。
type UserType struct {
	ID   uint   `gorm:"primaryKey"`                   // 类型 ID
	Type string `gorm:"type:varchar(32);uniqueIndex"` // 类型名（唯一）

	Users []User `gorm:"foreignKey:UserTypeID"`
}
