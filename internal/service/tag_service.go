package service

import (
	"errors"
	"strings"
	"time"

	"github.com/metarho/internal/db"
	"github.com/metarho/internal/slug"
	"gorm.io/gorm"
)

var (
	ErrTagExists   = errors.New("tag already exists")
	ErrTagInUse    = errors.New("tag is associated with posts")
	ErrTagNotFound = errors.New("tag not found")
)

// TagService wraps tag related operations.
type TagService struct {
	db *gorm.DB
}

// TagWeight 描述标签在已发布文章中的占比
type TagWeight struct {
	ID     uint
	Text   string
	Slug   string
	Weight float64
}

// NewTagService creates a TagService instance.
func NewTagService(gdb *gorm.DB) *TagService {
	return &TagService{db: gdb}
}

// List returns all tags ordered by text.
func (s *TagService) List() ([]db.Tag, error) {
	var tags []db.Tag
	if err := s.db.Order("text asc").Find(&tags).Error; err != nil {
		return nil, err
	}
	return tags, nil
}

// GetBySlug fetches a tag by its slug.
func (s *TagService) GetBySlug(slugValue string) (*db.Tag, error) {
	var tag db.Tag
	if err := s.db.Where("slug = ?", slugValue).First(&tag).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTagNotFound
		}
		return nil, err
	}
	return &tag, nil
}

// Create inserts a new tag with unique text, allocating a globally unique
// slug from the text.
func (s *TagService) Create(text string) (*db.Tag, error) {
	tag, created, err := s.GetOrCreate(text, "")
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, ErrTagExists
	}
	return tag, nil
}

// GetOrCreate returns the tag with the given text, creating it when missing.
// preferredSlug seeds slug allocation; collisions fall back to numeric
// suffixes as usual.
func (s *TagService) GetOrCreate(text, preferredSlug string) (*db.Tag, bool, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, false, errors.New("tag text is required")
	}

	var existing db.Tag
	err := s.db.Where("text = ?", text).First(&existing).Error
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	seed := preferredSlug
	if seed == "" {
		seed = text
	}

	var tag db.Tag
	txErr := s.db.Transaction(func(tx *gorm.DB) error {
		allocated, err := slug.Allocate(seed, db.TagSlugMaxLength, func(candidate string) (bool, error) {
			var count int64
			if err := tx.Model(&db.Tag{}).Where("slug = ?", candidate).Count(&count).Error; err != nil {
				return false, err
			}
			return count > 0, nil
		})
		if err != nil {
			return err
		}

		tag = db.Tag{Text: text, Slug: allocated}
		return tx.Create(&tag).Error
	})
	if txErr != nil {
		return nil, false, txErr
	}
	return &tag, true, nil
}

// Update changes the tag text while keeping uniqueness and the existing slug.
func (s *TagService) Update(id uint, text string) (*db.Tag, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("tag text is required")
	}

	var tag db.Tag
	if err := s.db.First(&tag, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTagNotFound
		}
		return nil, err
	}

	var existing db.Tag
	if err := s.db.Where("text = ? AND id <> ?", text, id).First(&existing).Error; err == nil {
		return nil, ErrTagExists
	}

	tag.Text = text
	if err := s.db.Save(&tag).Error; err != nil {
		return nil, err
	}
	return &tag, nil
}

// Delete removes a tag if it is not associated with posts.
func (s *TagService) Delete(id uint) error {
	var tag db.Tag
	if err := s.db.First(&tag, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTagNotFound
		}
		return err
	}

	var count int64
	if err := s.db.Table("post_tags").Where("tag_id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrTagInUse
	}

	return s.db.Unscoped().Delete(&tag).Error
}

// Published returns tags attached to at least one currently published post.
func (s *TagService) Published(asOf *time.Time) ([]db.Tag, error) {
	at := time.Now()
	if asOf != nil {
		at = *asOf
	}

	var tags []db.Tag
	if err := s.db.
		Distinct("tags.*").
		Joins("JOIN post_tags ON post_tags.tag_id = tags.id").
		Joins("JOIN posts ON posts.id = post_tags.post_id").
		Where("posts.status = ?", db.PostStatusPublished).
		Where("posts.pub_date IS NOT NULL AND posts.pub_date <= ?", at).
		Order("tags.text asc").
		Find(&tags).Error; err != nil {
		return nil, err
	}
	return tags, nil
}

// Weight returns the fraction of published posts carrying the tag. It is
// computed on demand, never stored.
func (s *TagService) Weight(tagID uint) (float64, error) {
	var total int64
	if err := publishedScope(s.db, nil).Count(&total).Error; err != nil {
		return 0, err
	}
	if total == 0 {
		return 0, nil
	}

	var tagged int64
	if err := publishedScope(s.db, nil).
		Joins("JOIN post_tags ON post_tags.post_id = posts.id").
		Where("post_tags.tag_id = ?", tagID).
		Count(&tagged).Error; err != nil {
		return 0, err
	}

	return float64(tagged) / float64(total), nil
}
