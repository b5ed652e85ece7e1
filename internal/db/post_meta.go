package db

import "gorm.io/gorm"

// MetaKeyWordPressID 保存迁移前系统里的文章编号，legacy 跳转依赖它。
const MetaKeyWordPressID = "wp_post_id"

// PostMeta holds additional key/value data for a post. Keys may repeat
// within one post; imported legacy fields often do.
type PostMeta struct {
	gorm.Model
	PostID uint   `gorm:"not null;index"`
	Key    string `gorm:"size:30;not null"`
	Value  string `gorm:"size:255;not null"`
}

// TableName 自定义表名以保持命名一致。
func (PostMeta) TableName() string {
	return "post_meta"
}
