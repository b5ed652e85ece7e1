package db

import "gorm.io/gorm"

// Tag 字段长度上限
const (
	TagTextMaxLength = 30
	TagSlugMaxLength = 30
)

// Tag 定义了标签模型，slug 全局唯一。
type Tag struct {
	gorm.Model
	Text  string `gorm:"size:30;uniqueIndex;not null"`
	Slug  string `gorm:"size:30;uniqueIndex;not null"`
	Posts []Post `gorm:"many2many:post_tags;"`
}
