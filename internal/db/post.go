package db

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// 文章发布状态
const (
	PostStatusPublished   = "published"
	PostStatusUnpublished = "unpublished"
)

// 字段长度上限，slug 分配时用于截断
const (
	PostTitleMaxLength = 75
	PostSlugMaxLength  = 75
)

// Post 定义了文章模型。未发布的文章可以长期没有 slug 和发布时间。
type Post struct {
	gorm.Model
	Title         string       `gorm:"size:75;not null"`
	Slug          *string      `gorm:"size:75;index"`
	AuthorID      uint
	Author        User
	PublicationID *uint
	Publication   *Publication
	Content       string       `gorm:"type:text"`
	Teaser        string       `gorm:"type:text"`
	Status        string       `gorm:"size:16;not null;default:unpublished"`
	PubDate       *time.Time   `gorm:"index"`
	Tags          []Tag        `gorm:"many2many:post_tags;"`
	Topics        []Topic      `gorm:"many2many:post_topics;"`
	Meta          []PostMeta
}

// IsPublished reports whether the post is in the published state.
func (p *Post) IsPublished() bool {
	return p.Status == PostStatusPublished
}

// PermalinkPath builds the canonical archive path for a published post,
// e.g. /posts/2009/apr/08/here-we-go/.
func (p *Post) PermalinkPath() string {
	if p.Slug == nil || p.PubDate == nil {
		return ""
	}
	d := *p.PubDate
	month := strings.ToLower(d.Format("Jan"))
	return fmt.Sprintf("/posts/%04d/%s/%02d/%s/", d.Year(), month, d.Day(), *p.Slug)
}
