package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/metarho/internal/db"
	"github.com/metarho/internal/wordpress"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Import phases, in the order they run.
const (
	importPhaseParse      = "parse"
	importPhaseCategories = "categories"
	importPhaseTags       = "tags"
	importPhasePosts      = "posts"
)

// ImportService drives a parsed export document into the content store:
// categories become topics, then tags, then posts with their meta rows.
// Topics and tags are idempotent by natural key across runs; posts and meta
// are not and re-importing duplicates them.
type ImportService struct {
	db     *gorm.DB
	topics *TopicService
	tags   *TagService
	posts  *PostService
	pubs   *PublicationService
	log    zerolog.Logger
}

// ImportFailure records one item that could not be imported, with enough
// context to find the offending record in the source document.
type ImportFailure struct {
	Phase  string
	Item   string
	Reason string
}

// ImportReport aggregates the outcome of one import run.
type ImportReport struct {
	RunID         string
	TopicsCreated int
	TopicsSkipped int
	TagsCreated   int
	TagsSkipped   int
	PostsCreated  int
	PostsFailed   int
	MetaCreated   int
	Failures      []ImportFailure
}

// NewImportService creates an ImportService instance.
func NewImportService(gdb *gorm.DB, logger zerolog.Logger) *ImportService {
	return &ImportService{
		db:     gdb,
		topics: NewTopicService(gdb),
		tags:   NewTagService(gdb),
		posts:  NewPostService(gdb),
		pubs:   NewPublicationService(gdb),
		log:    logger.With().Str("service", "import").Logger(),
	}
}

// Run imports a parsed document, attributing every post to author. Per-item
// failures are recorded in the report and do not stop the batch; only
// structural failures (a broken category tree walk, storage errors outside a
// single post) abort the run.
func (s *ImportService) Run(doc *wordpress.Document, author *db.User) (*ImportReport, error) {
	report := &ImportReport{RunID: uuid.New().String()}

	s.log.Info().
		Str("run_id", report.RunID).
		Int("categories", len(doc.Categories)).
		Int("tags", len(doc.Tags)).
		Int("items", len(doc.Items)).
		Msg("starting import")

	for _, failure := range doc.Failures {
		report.Failures = append(report.Failures, ImportFailure{
			Phase:  importPhaseParse,
			Item:   failureLabel(failure.Title, failure.Index),
			Reason: failure.Reason,
		})
	}

	topicsByName, err := s.importCategories(doc, report)
	if err != nil {
		return report, err
	}

	tagsByName, err := s.importTags(doc, report)
	if err != nil {
		return report, err
	}

	if err := s.importPosts(doc, author, topicsByName, tagsByName, report); err != nil {
		return report, err
	}

	s.log.Info().
		Str("run_id", report.RunID).
		Int("topics_created", report.TopicsCreated).
		Int("topics_skipped", report.TopicsSkipped).
		Int("tags_created", report.TagsCreated).
		Int("tags_skipped", report.TagsSkipped).
		Int("posts_created", report.PostsCreated).
		Int("posts_failed", report.PostsFailed).
		Int("meta_created", report.MetaCreated).
		Int("failures", len(report.Failures)).
		Msg("import finished")

	return report, nil
}

// importCategories creates a topic per category, parent-first. The source
// order is not trusted: unresolved children are swept again until a pass
// makes no progress, at which point the leftovers reference parents that are
// not in the document and are reported as failures.
func (s *ImportService) importCategories(doc *wordpress.Document, report *ImportReport) (map[string]*db.Topic, error) {
	byName := make(map[string]*db.Topic)
	byNiceName := make(map[string]*db.Topic)

	pending := make([]wordpress.Category, len(doc.Categories))
	copy(pending, doc.Categories)

	for len(pending) > 0 {
		progress := false
		var unresolved []wordpress.Category

		for _, cat := range pending {
			var parentID *uint
			if cat.ParentNiceName != "" {
				parent, ok := byNiceName[cat.ParentNiceName]
				if !ok {
					unresolved = append(unresolved, cat)
					continue
				}
				parentID = &parent.ID
			}

			topic, created, err := s.ensureTopic(cat, parentID)
			progress = true
			if err != nil {
				report.Failures = append(report.Failures, ImportFailure{
					Phase:  importPhaseCategories,
					Item:   cat.Name,
					Reason: err.Error(),
				})
				continue
			}

			if created {
				report.TopicsCreated++
			} else {
				report.TopicsSkipped++
			}
			byName[cat.Name] = topic
			byNiceName[cat.NiceName] = topic
		}

		if !progress {
			for _, cat := range unresolved {
				report.Failures = append(report.Failures, ImportFailure{
					Phase:  importPhaseCategories,
					Item:   cat.Name,
					Reason: fmt.Sprintf("parent category %q not found in export", cat.ParentNiceName),
				})
			}
			break
		}
		pending = unresolved
	}

	return byName, nil
}

// ensureTopic finds a topic by (text, parent) or creates it, seeding the
// slug with the export's nice name so legacy permalinks survive.
func (s *ImportService) ensureTopic(cat wordpress.Category, parentID *uint) (*db.Topic, bool, error) {
	existing, err := s.topics.FindByTextAndParent(cat.Name, parentID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrTopicNotFound) {
		return nil, false, err
	}

	topic, err := s.topics.Create(TopicInput{
		Text:        cat.Name,
		Description: cat.Description,
		Slug:        cat.NiceName,
		ParentID:    parentID,
	})
	if err != nil {
		return nil, false, err
	}
	return topic, true, nil
}

func (s *ImportService) importTags(doc *wordpress.Document, report *ImportReport) (map[string]*db.Tag, error) {
	byName := make(map[string]*db.Tag, len(doc.Tags))

	for _, exportTag := range doc.Tags {
		tag, created, err := s.tags.GetOrCreate(exportTag.Name, exportTag.Slug)
		if err != nil {
			report.Failures = append(report.Failures, ImportFailure{
				Phase:  importPhaseTags,
				Item:   exportTag.Name,
				Reason: err.Error(),
			})
			continue
		}
		if created {
			report.TagsCreated++
		} else {
			report.TagsSkipped++
		}
		byName[exportTag.Name] = tag
	}

	return byName, nil
}

// importPosts creates a post per item. Items referencing a category or tag
// missing from the document are attached to nothing for that reference.
// A failure on one post is recorded and the batch continues.
func (s *ImportService) importPosts(doc *wordpress.Document, author *db.User, topicsByName map[string]*db.Topic, tagsByName map[string]*db.Tag, report *ImportReport) error {
	var publicationID *uint
	if pub, err := s.pubs.Default(); err == nil {
		publicationID = &pub.ID
	} else if !errors.Is(err, ErrPublicationNotFound) {
		return err
	}

	for _, item := range doc.Items {
		status := db.PostStatusUnpublished
		if item.Status == wordpress.StatusPublished {
			status = db.PostStatusPublished
		}

		post := db.Post{
			Title:         item.Title,
			Content:       item.Content,
			Teaser:        item.Excerpt,
			Status:        status,
			PubDate:       item.PubDate,
			AuthorID:      author.ID,
			PublicationID: publicationID,
		}

		if err := s.posts.Save(&post); err != nil {
			report.PostsFailed++
			report.Failures = append(report.Failures, ImportFailure{
				Phase:  importPhasePosts,
				Item:   item.Title,
				Reason: err.Error(),
			})
			s.log.Warn().Str("title", item.Title).Err(err).Msg("skipping post")
			continue
		}

		var topics []db.Topic
		for _, name := range item.Categories {
			if topic, ok := topicsByName[name]; ok {
				topics = append(topics, *topic)
			}
		}
		if len(topics) > 0 {
			if err := s.db.Model(&post).Association("Topics").Append(topics); err != nil {
				return err
			}
		}

		var tags []db.Tag
		for _, name := range item.TagNames {
			if tag, ok := tagsByName[name]; ok {
				tags = append(tags, *tag)
			}
		}
		if len(tags) > 0 {
			if err := s.db.Model(&post).Association("Tags").Append(tags); err != nil {
				return err
			}
		}

		if item.PostID != "" {
			if _, err := s.posts.AddMeta(post.ID, db.MetaKeyWordPressID, item.PostID); err != nil {
				return err
			}
			report.MetaCreated++
		}
		for _, meta := range item.Meta {
			if _, err := s.posts.AddMeta(post.ID, meta.Key, meta.Value); err != nil {
				return err
			}
			report.MetaCreated++
		}

		report.PostsCreated++
	}

	return nil
}

func failureLabel(title string, index int) string {
	if title != "" {
		return title
	}
	return fmt.Sprintf("item #%d", index)
}
