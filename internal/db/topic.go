package db

import "gorm.io/gorm"

// Topic 字段长度上限
const (
	TopicTextMaxLength = 75
	TopicSlugMaxLength = 75
	TopicPathMaxLength = 255
)

// Topic 定义了层级化的主题模型。ParentID 为空表示根主题。
// Path 是缓存的物化路径（祖先 slug 以 / 连接，带结尾斜杠），每次保存时重建。
// slug 与 text 都要求在同一父级下唯一，约束由 service 层在保存事务里校验。
type Topic struct {
	gorm.Model
	Text        string `gorm:"size:75;not null;index:idx_topics_text_parent"`
	ParentID    *uint  `gorm:"index;index:idx_topics_text_parent"`
	Description string `gorm:"type:text"`
	Slug        string `gorm:"size:75;index"`
	Path        string `gorm:"size:255;index"`
	Posts       []Post `gorm:"many2many:post_topics;"`
}
