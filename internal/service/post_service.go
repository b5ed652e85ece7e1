package service

import (
	"errors"
	"time"

	"github.com/metarho/internal/db"
	"github.com/metarho/internal/slug"
	"gorm.io/gorm"
)

var (
	ErrPostNotFound  = errors.New("post not found")
	ErrDuplicateSlug = errors.New("slug must be unique for its publish date")
)

// PostService wraps post related database operations.
type PostService struct {
	db *gorm.DB
}

// PostInput represents fields accepted when creating or updating a post.
type PostInput struct {
	Title         string
	Content       string
	Teaser        string
	Status        string
	PubDate       *time.Time
	AuthorID      uint
	PublicationID *uint
	TagIDs        []uint
	TopicIDs      []uint
}

// NewPostService creates a PostService instance.
func NewPostService(gdb *gorm.DB) *PostService {
	return &PostService{db: gdb}
}

// Create persists a new post through the validating save path.
func (s *PostService) Create(input PostInput) (*db.Post, error) {
	post := db.Post{
		Title:         input.Title,
		Content:       input.Content,
		Teaser:        input.Teaser,
		Status:        input.Status,
		PubDate:       input.PubDate,
		AuthorID:      input.AuthorID,
		PublicationID: input.PublicationID,
	}
	if err := s.saveWithRelations(&post, input.TagIDs, input.TopicIDs); err != nil {
		return nil, err
	}
	return &post, nil
}

// Update applies updates to an existing post through the validating save path.
func (s *PostService) Update(id uint, input PostInput) (*db.Post, error) {
	var existing db.Post
	if err := s.db.First(&existing, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}

	existing.Title = input.Title
	existing.Content = input.Content
	existing.Teaser = input.Teaser
	existing.Status = input.Status
	existing.PubDate = input.PubDate
	if input.PublicationID != nil {
		existing.PublicationID = input.PublicationID
	}

	if err := s.saveWithRelations(&existing, input.TagIDs, input.TopicIDs); err != nil {
		return nil, err
	}
	return &existing, nil
}

// Get fetches a post by id with relations preloaded.
func (s *PostService) Get(id uint) (*db.Post, error) {
	var post db.Post
	if err := s.db.Preload("Tags").Preload("Topics").Preload("Author").First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	return &post, nil
}

// Save runs the publish-state save path inside one transaction:
// publishing assigns a pub date and a day-scoped slug when missing, and the
// write is rejected when another post holds the same slug on the same day.
func (s *PostService) Save(post *db.Post) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return savePost(tx, post)
	})
}

// Publish transitions a post to the published state.
func (s *PostService) Publish(id uint) (*db.Post, error) {
	return s.transition(id, db.PostStatusPublished)
}

// Unpublish transitions a post back to the unpublished state. The slug and
// pub date it may already carry are kept.
func (s *PostService) Unpublish(id uint) (*db.Post, error) {
	return s.transition(id, db.PostStatusUnpublished)
}

func (s *PostService) transition(id uint, status string) (*db.Post, error) {
	var post db.Post
	if err := s.db.First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	post.Status = status
	if err := s.Save(&post); err != nil {
		return nil, err
	}
	return &post, nil
}

// Published returns posts visible to readers as of the given time: published
// status with a pub date that is set and not in the future. A nil asOf means
// now.
func (s *PostService) Published(asOf *time.Time) ([]db.Post, error) {
	var posts []db.Post
	if err := publishedScope(s.db, asOf).
		Preload("Tags").
		Preload("Topics").
		Order("pub_date desc").
		Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// PublishedBetween returns published posts whose pub date falls in
// [start, end).
func (s *PostService) PublishedBetween(start, end time.Time) ([]db.Post, error) {
	var posts []db.Post
	if err := publishedScope(s.db, nil).
		Where("pub_date >= ? AND pub_date < ?", start, end).
		Preload("Tags").
		Preload("Topics").
		Order("pub_date desc").
		Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// GetBySlugAndDay returns the published post carrying the slug on the given
// calendar day.
func (s *PostService) GetBySlugAndDay(year int, month time.Month, day int, slugValue string) (*db.Post, error) {
	start := time.Date(year, month, day, 0, 0, 0, 0, time.Local)
	end := start.AddDate(0, 0, 1)

	var post db.Post
	if err := publishedScope(s.db, nil).
		Where("slug = ?", slugValue).
		Where("pub_date >= ? AND pub_date < ?", start, end).
		Preload("Tags").
		Preload("Topics").
		Preload("Author").
		First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	return &post, nil
}

// FindByLegacyID resolves a published post through the wp_post_id meta row
// written by the importer.
func (s *PostService) FindByLegacyID(value string) (*db.Post, error) {
	var post db.Post
	if err := publishedScope(s.db, nil).
		Joins("JOIN post_meta ON post_meta.post_id = posts.id").
		Where("post_meta.key = ? AND post_meta.value = ?", db.MetaKeyWordPressID, value).
		First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	return &post, nil
}

// PublishedByTagSlug returns published posts carrying the tag.
func (s *PostService) PublishedByTagSlug(tagSlug string) ([]db.Post, error) {
	var posts []db.Post
	if err := publishedScope(s.db, nil).
		Joins("JOIN post_tags ON post_tags.post_id = posts.id").
		Joins("JOIN tags ON tags.id = post_tags.tag_id").
		Where("tags.slug = ?", tagSlug).
		Preload("Tags").
		Order("pub_date desc").
		Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// PublishedByTopic returns published posts filed under the topic.
func (s *PostService) PublishedByTopic(topicID uint) ([]db.Post, error) {
	var posts []db.Post
	if err := publishedScope(s.db, nil).
		Joins("JOIN post_topics ON post_topics.post_id = posts.id").
		Where("post_topics.topic_id = ?", topicID).
		Preload("Topics").
		Order("pub_date desc").
		Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// AddMeta appends a key/value meta row to a post. Keys are allowed to repeat.
func (s *PostService) AddMeta(postID uint, key, value string) (*db.PostMeta, error) {
	meta := db.PostMeta{PostID: postID, Key: key, Value: value}
	if err := s.db.Create(&meta).Error; err != nil {
		return nil, err
	}
	return &meta, nil
}

// MetaFor returns all meta rows owned by a post.
func (s *PostService) MetaFor(postID uint) ([]db.PostMeta, error) {
	var meta []db.PostMeta
	if err := s.db.Where("post_id = ?", postID).Order("id asc").Find(&meta).Error; err != nil {
		return nil, err
	}
	return meta, nil
}

func (s *PostService) saveWithRelations(post *db.Post, tagIDs, topicIDs []uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := savePost(tx, post); err != nil {
			return err
		}

		if tagIDs != nil {
			var tags []db.Tag
			if err := tx.Find(&tags, tagIDs).Error; err != nil {
				return err
			}
			if err := tx.Model(post).Association("Tags").Replace(tags); err != nil {
				return err
			}
		}

		if topicIDs != nil {
			var topics []db.Topic
			if err := tx.Find(&topics, topicIDs).Error; err != nil {
				return err
			}
			if err := tx.Model(post).Association("Topics").Replace(topics); err != nil {
				return err
			}
		}

		return nil
	})
}

func savePost(tx *gorm.DB, post *db.Post) error {
	if post.Status == "" {
		post.Status = db.PostStatusUnpublished
	}

	// Publishing without a pub date means "now".
	if post.IsPublished() && post.PubDate == nil {
		now := time.Now()
		post.PubDate = &now
	}

	// Publishing without a slug allocates one, unique among published posts
	// sharing the same calendar day.
	if post.IsPublished() && (post.Slug == nil || *post.Slug == "") {
		start, end := dayWindow(*post.PubDate)
		allocated, err := slug.Allocate(post.Title, db.PostSlugMaxLength, func(candidate string) (bool, error) {
			var count int64
			query := tx.Model(&db.Post{}).
				Where("status = ?", db.PostStatusPublished).
				Where("pub_date >= ? AND pub_date < ?", start, end).
				Where("slug = ?", candidate)
			if post.ID != 0 {
				query = query.Where("id <> ?", post.ID)
			}
			if err := query.Count(&count).Error; err != nil {
				return false, err
			}
			return count > 0, nil
		})
		if err != nil {
			return err
		}
		post.Slug = &allocated
	}

	// A slug, however it was set, must not collide with another post on the
	// same day. Dateless posts collide only with other dateless posts.
	if post.Slug != nil && *post.Slug != "" {
		query := tx.Model(&db.Post{}).Where("slug = ?", *post.Slug)
		if post.ID != 0 {
			query = query.Where("id <> ?", post.ID)
		}
		if post.PubDate != nil {
			start, end := dayWindow(*post.PubDate)
			query = query.Where("pub_date >= ? AND pub_date < ?", start, end)
		} else {
			query = query.Where("pub_date IS NULL")
		}

		var count int64
		if err := query.Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrDuplicateSlug
		}
	}

	return tx.Save(post).Error
}

func publishedScope(gdb *gorm.DB, asOf *time.Time) *gorm.DB {
	at := time.Now()
	if asOf != nil {
		at = *asOf
	}
	return gdb.Model(&db.Post{}).
		Where("posts.status = ?", db.PostStatusPublished).
		Where("posts.pub_date IS NOT NULL").
		Where("posts.pub_date <= ?", at)
}

// dayWindow returns the [start, end) bounds of the calendar day holding t.
func dayWindow(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 1)
}
