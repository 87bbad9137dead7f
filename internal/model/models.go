package model

import (
	"time"
)

// Article 表示一篇博客文章。
//
// 文章与标签是多对多关系（通过 article_tags 表关联），
// 标签同步采用集合差异方式：更新时删除不再出现的关联、插入新增的关联。
type Article struct {
	ID        uint      `gorm:"primaryKey"` // 文章唯一标识
	CreatedAt time.Time // 创建时间
	UpdatedAt time.Time // 更新时间

	Title     string `gorm:"type:varchar(191);not null"` // 标题
	ImageURL  string `gorm:"type:varchar(512)"`          // 封面图链接
	Content   string `gorm:"type:text"`                  // 正文
	Published bool   `gorm:"default:false"`              // 是否已发布

	UserID uint `gorm:"not null"`          // 作者 ID
	User   User `gorm:"foreignKey:UserID"` // 作者

	Tags     []Tag     `gorm:"many2many:article_tags"` // 关联的标签列表
	Comments []Comment `gorm:"foreignKey:ArticleID"`   // 评论列表
}

// Tag 表示文章标签。
type Tag struct {
	ID   uint   `gorm:"primaryKey"`                   // 标签 ID
	Name string `gorm:"type:varchar(64);uniqueIndex"` // 标签名（唯一）

	Articles []Article `gorm:"many2many:article_tags"` // 关联的文章列表
}

// ArticleTag 是文章与标签的关联表（多对多中间表）。
type ArticleTag struct {
	ArticleID uint `gorm:"primaryKey"` // 文章 ID
	TagID     uint `gorm:"primaryKey"` // 标签 ID

	CreatedAt time.Time // 关联创建时间
}

// Comment 表示文章评论。
type Comment struct {
	ID        uint      `gorm:"primaryKey"` // 评论 ID
	Content   string    `gorm:"type:varchar(1024);not null"`
	CreatedAt time.Time // 创建时间

	UserID    uint    `gorm:"not null"`             // 评论者 ID
	User      User    `gorm:"foreignKey:UserID"`    // 评论者
	ArticleID uint    `gorm:"not null;index"`       // 所属文章 ID
	Article   Article `gorm:"foreignKey:ArticleID"` // 所属文章
}

// Feedback 表示用户提交的反馈。
type Feedback struct {
	ID         uint      `gorm:"primaryKey"` // 反馈 ID
	Title      string    `gorm:"type:varchar(191);not null"`
	Message    string    `gorm:"type:varchar(2048);not null"`
	Visualized bool      `gorm:"default:false"` // 是否已被查看
	CreatedAt  time.Time // 创建时间

	UserID uint `gorm:"not null"`          // 提交者 ID
	User   User `gorm:"foreignKey:UserID"` // 提交者
}

// EmailList 表示新闻邮件订阅记录。
type EmailList struct {
	ID        uint      `gorm:"primaryKey"`                    // 订阅 ID
	Email     string    `gorm:"type:varchar(191);uniqueIndex"` // 订阅邮箱（唯一）
	Active    bool      `gorm:"default:true"`                  // 是否仍在订阅
	CreatedAt time.Time // 订阅时间
}
