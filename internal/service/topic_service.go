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
	ErrTopicNotFound      = errors.New("topic not found")
	ErrDuplicateSibling   = errors.New("topic text and slug must be unique under one parent")
	ErrCyclicHierarchy    = errors.New("topic parent chain loops")
	errTopicParentMissing = errors.New("topic parent does not exist")
)

// TopicService maintains the topic forest and its materialized paths.
type TopicService struct {
	db *gorm.DB
}

// TopicInput represents fields accepted when creating or updating a topic.
type TopicInput struct {
	Text        string
	Description string
	Slug        string
	ParentID    *uint
}

// NewTopicService creates a TopicService instance.
func NewTopicService(gdb *gorm.DB) *TopicService {
	return &TopicService{db: gdb}
}

// Create persists a new topic through the validating save path.
func (s *TopicService) Create(input TopicInput) (*db.Topic, error) {
	topic := db.Topic{
		Text:        strings.TrimSpace(input.Text),
		Description: input.Description,
		Slug:        strings.TrimSpace(input.Slug),
		ParentID:    input.ParentID,
	}
	if err := s.Save(&topic); err != nil {
		return nil, err
	}
	return &topic, nil
}

// Update applies updates to an existing topic through the validating save path.
func (s *TopicService) Update(id uint, input TopicInput) (*db.Topic, error) {
	var topic db.Topic
	if err := s.db.First(&topic, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTopicNotFound
		}
		return nil, err
	}

	topic.Text = strings.TrimSpace(input.Text)
	topic.Description = input.Description
	topic.Slug = strings.TrimSpace(input.Slug)
	topic.ParentID = input.ParentID

	if err := s.Save(&topic); err != nil {
		return nil, err
	}
	return &topic, nil
}

// Save validates and persists a topic in one transaction: a missing slug is
// allocated unique among siblings, duplicate sibling slug or text is
// rejected, and the materialized path is rebuilt from the parent chain.
//
// Rebuilding happens on every save but does not cascade: renaming an
// ancestor's slug leaves descendant paths stale until they are re-saved or
// RebuildSubtree is called.
func (s *TopicService) Save(topic *db.Topic) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if topic.Text == "" {
			return errors.New("topic text is required")
		}

		if topic.Slug == "" {
			allocated, err := slug.Allocate(topic.Text, db.TopicSlugMaxLength, func(candidate string) (bool, error) {
				var count int64
				query := siblingScope(tx, topic.ParentID).Where("slug = ?", candidate)
				if topic.ID != 0 {
					query = query.Where("id <> ?", topic.ID)
				}
				if err := query.Count(&count).Error; err != nil {
					return false, err
				}
				return count > 0, nil
			})
			if err != nil {
				return err
			}
			topic.Slug = allocated
		}

		var count int64
		query := siblingScope(tx, topic.ParentID).Where("slug = ? OR text = ?", topic.Slug, topic.Text)
		if topic.ID != 0 {
			query = query.Where("id <> ?", topic.ID)
		}
		if err := query.Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrDuplicateSibling
		}

		path, err := buildTopicPath(tx, topic)
		if err != nil {
			return err
		}
		topic.Path = path

		return tx.Save(topic).Error
	})
}

// RebuildSubtree recomputes the materialized path of a topic and all of its
// descendants. This is the explicit cascade step to run after renaming an
// ancestor's slug.
func (s *TopicService) RebuildSubtree(rootID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var topics []db.Topic
		if err := tx.Find(&topics).Error; err != nil {
			return err
		}

		byID := make(map[uint]*db.Topic, len(topics))
		children := make(map[uint][]*db.Topic)
		for i := range topics {
			t := &topics[i]
			byID[t.ID] = t
			if t.ParentID != nil {
				children[*t.ParentID] = append(children[*t.ParentID], t)
			}
		}

		root, ok := byID[rootID]
		if !ok {
			return ErrTopicNotFound
		}

		rootPath, err := buildTopicPath(tx, root)
		if err != nil {
			return err
		}

		paths := map[uint]string{root.ID: rootPath}
		visited := map[uint]bool{root.ID: true}
		queue := []*db.Topic{root}
		for len(queue) > 0 {
			current := queue[0]
			queue = queue[1:]

			if err := tx.Model(&db.Topic{}).Where("id = ?", current.ID).Update("path", paths[current.ID]).Error; err != nil {
				return err
			}

			for _, child := range children[current.ID] {
				if visited[child.ID] {
					return ErrCyclicHierarchy
				}
				visited[child.ID] = true
				paths[child.ID] = paths[current.ID] + child.Slug + "/"
				queue = append(queue, child)
			}
		}

		return nil
	})
}

// Get fetches a topic by id.
func (s *TopicService) Get(id uint) (*db.Topic, error) {
	var topic db.Topic
	if err := s.db.First(&topic, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTopicNotFound
		}
		return nil, err
	}
	return &topic, nil
}

// List returns all topics in path order, which groups subtrees together.
func (s *TopicService) List() ([]db.Topic, error) {
	var topics []db.Topic
	if err := s.db.Order("path asc").Find(&topics).Error; err != nil {
		return nil, err
	}
	return topics, nil
}

// FindByPath resolves a topic by its materialized path. A missing trailing
// slash is tolerated.
func (s *TopicService) FindByPath(path string) (*db.Topic, error) {
	path = strings.TrimPrefix(path, "/")
	if path != "" && !strings.HasSuffix(path, "/") {
		path += "/"
	}

	var topic db.Topic
	if err := s.db.Where("path = ?", path).First(&topic).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTopicNotFound
		}
		return nil, err
	}
	return &topic, nil
}

// FindByTextAndParent resolves a topic by display text under a parent.
func (s *TopicService) FindByTextAndParent(text string, parentID *uint) (*db.Topic, error) {
	var topic db.Topic
	if err := siblingScope(s.db, parentID).Where("text = ?", text).First(&topic).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTopicNotFound
		}
		return nil, err
	}
	return &topic, nil
}

// Published returns topics attached to at least one currently published post.
func (s *TopicService) Published(asOf *time.Time) ([]db.Topic, error) {
	at := time.Now()
	if asOf != nil {
		at = *asOf
	}

	var topics []db.Topic
	if err := s.db.
		Distinct("topics.*").
		Joins("JOIN post_topics ON post_topics.topic_id = topics.id").
		Joins("JOIN posts ON posts.id = post_topics.post_id").
		Where("posts.status = ?", db.PostStatusPublished).
		Where("posts.pub_date IS NOT NULL AND posts.pub_date <= ?", at).
		Order("topics.path asc").
		Find(&topics).Error; err != nil {
		return nil, err
	}
	return topics, nil
}

// buildTopicPath walks the parent chain root to leaf, joining ancestor slugs
// with slashes plus a trailing slash. Parent chains are author-controlled, so
// the walk tracks visited ids and fails on loops instead of spinning.
func buildTopicPath(tx *gorm.DB, topic *db.Topic) (string, error) {
	slugs := []string{topic.Slug}
	visited := map[uint]bool{}
	if topic.ID != 0 {
		visited[topic.ID] = true
	}

	parentID := topic.ParentID
	for parentID != nil {
		if visited[*parentID] {
			return "", ErrCyclicHierarchy
		}
		visited[*parentID] = true

		var parent db.Topic
		if err := tx.Select("id", "parent_id", "slug").First(&parent, *parentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return "", errTopicParentMissing
			}
			return "", err
		}
		slugs = append(slugs, parent.Slug)
		parentID = parent.ParentID
	}

	for i, j := 0, len(slugs)-1; i < j; i, j = i+1, j-1 {
		slugs[i], slugs[j] = slugs[j], slugs[i]
	}
	return strings.Join(slugs, "/") + "/", nil
}

func siblingScope(tx *gorm.DB, parentID *uint) *gorm.DB {
	query := tx.Model(&db.Topic{})
	if parentID == nil {
		return query.Where("parent_id IS NULL")
	}
	return query.Where("parent_id = ?", *parentID)
}
