package service

import (
	"errors"
	"strings"

	"github.com/metarho/internal/db"
	"github.com/metarho/internal/slug"
	"gorm.io/gorm"
)

var ErrPublicationNotFound = errors.New("publication not found")

// PublicationService wraps publication related operations.
type PublicationService struct {
	db *gorm.DB
}

// PublicationInput represents fields accepted when creating a publication.
type PublicationInput struct {
	Title       string
	Description string
	Copyright   string
	OwnerID     uint
	Default     bool
}

// NewPublicationService creates a PublicationService instance.
func NewPublicationService(gdb *gorm.DB) *PublicationService {
	return &PublicationService{db: gdb}
}

// Create persists a new publication through the validating save path.
func (s *PublicationService) Create(input PublicationInput) (*db.Publication, error) {
	pub := db.Publication{
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		Copyright:   input.Copyright,
		OwnerID:     input.OwnerID,
		Default:     input.Default,
	}
	if err := s.Save(&pub); err != nil {
		return nil, err
	}
	return &pub, nil
}

// Save persists a publication. Saving a default publication clears the flag
// on every other row inside the same transaction, so at most one default
// exists at any time. A missing slug is allocated from the title.
func (s *PublicationService) Save(pub *db.Publication) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if pub.Title == "" {
			return errors.New("publication title is required")
		}

		if pub.Default {
			query := tx.Model(&db.Publication{})
			if pub.ID != 0 {
				query = query.Where("id <> ?", pub.ID)
			}
			if err := query.Where("is_default = ?", true).Update("is_default", false).Error; err != nil {
				return err
			}
		}

		if pub.Slug == "" {
			allocated, err := slug.Allocate(pub.Title, db.PublicationSlugMaxLength, func(candidate string) (bool, error) {
				var count int64
				query := tx.Model(&db.Publication{}).Where("slug = ?", candidate)
				if pub.ID != 0 {
					query = query.Where("id <> ?", pub.ID)
				}
				if err := query.Count(&count).Error; err != nil {
					return false, err
				}
				return count > 0, nil
			})
			if err != nil {
				return err
			}
			pub.Slug = allocated
		}

		return tx.Save(pub).Error
	})
}

// Default returns the publication currently flagged as default.
func (s *PublicationService) Default() (*db.Publication, error) {
	var pub db.Publication
	if err := s.db.Where("is_default = ?", true).First(&pub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPublicationNotFound
		}
		return nil, err
	}
	return &pub, nil
}

// List returns all publications ordered by title.
func (s *PublicationService) List() ([]db.Publication, error) {
	var pubs []db.Publication
	if err := s.db.Order("title asc").Find(&pubs).Error; err != nil {
		return nil, err
	}
	return pubs, nil
}
