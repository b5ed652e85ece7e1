package db

import "gorm.io/gorm"

// Publication 字段长度上限
const PublicationSlugMaxLength = 75

// Publication 定义了文章所属的出版物（博客、专栏等）。
// 同一时刻最多只有一个默认出版物，保存默认项时会清掉其他行的标记。
type Publication struct {
	gorm.Model
	Title       string `gorm:"size:75;not null"`
	Slug        string `gorm:"size:75;uniqueIndex;not null"`
	OwnerID     uint
	Owner       User
	Default     bool   `gorm:"column:is_default;default:false"`
	Description string `gorm:"type:text"`
	Copyright   string `gorm:"type:text"`
}
