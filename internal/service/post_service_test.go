package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/metarho/internal/db"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupPostServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:post-service-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	if err := gdb.Create(&db.User{Username: "author", Password: "hashed"}).Error; err != nil {
		t.Fatalf("failed to seed author: %v", err)
	}
	return gdb
}

func TestCreatePublishedAssignsSlugAndDate(t *testing.T) {
	gdb := setupPostServiceTestDB(t)
	svc := NewPostService(gdb)

	post, err := svc.Create(PostInput{
		Title:    "Test Title (1)",
		Content:  "body",
		Status:   db.PostStatusPublished,
		AuthorID: 1,
	})
	if err != nil {
		t.Fatalf("failed to create post: %v", err)
	}

	if post.PubDate == nil {
		t.Fatal("expected publish to assign a pub date")
	}
	if post.Slug == nil || *post.Slug != "test-title-1" {
		t.Fatalf("expected slug %q, got %v", "test-title-1", post.Slug)
	}
}

func TestCreateUnpublishedKeepsSlugAndDateEmpty(t *testing.T) {
	gdb := setupPostServiceTestDB(t)
	svc := NewPostService(gdb)

	post, err := svc.Create(PostInput{Title: "Draft Thoughts", AuthorID: 1})
	if err != nil {
		t.Fatalf("failed to create post: %v", err)
	}

	if post.Status != db.PostStatusUnpublished {
		t.Fatalf("expected default status %q, got %q", db.PostStatusUnpublished, post.Status)
	}
	if post.Slug != nil {
		t.Fatalf("expected no slug on unpublished post, got %q", *post.Slug)
	}
	if post.PubDate != nil {
		t.Fatalf("expected no pub date on unpublished post, got %v", post.PubDate)
	}
}

func TestSameTitleSameDayGetsSuffixedSlug(t *testing.T) {
	gdb := setupPostServiceTestDB(t)
	svc := NewPostService(gdb)

	day := time.Date(2009, time.April, 8, 12, 0, 0, 0, time.Local)

	first, err := svc.Create(PostInput{Title: "Morning Notes", Status: db.PostStatusPublished, PubDate: &day, AuthorID: 1})
	if err != nil {
		t.Fatalf("failed to create first post: %v", err)
	}
	later := day.Add(2 * time.Hour)
	second, err := svc.Create(PostInput{Title: "Morning Notes", Status: db.PostStatusPublished, PubDate: &later, AuthorID: 1})
	if err != nil {
		t.Fatalf("failed to create second post: %v", err)
	}

	if *first.Slug != "morning-notes" {
		t.Fatalf("expected first slug %q, got %q", "morning-notes", *first.Slug)
	}
	if *second.Slug != "morning-notes-2" {
		t.Fatalf("expected second slug %q, got %q", "morning-notes-2", *second.Slug)
	}
}

func TestSameTitleDifferentDayReusesSlug(t *testing.T) {
	gdb := setupPostServiceTestDB(t)
	svc := NewPostService(gdb)

	monday := time.Date(2009, time.April, 6, 9, 0, 0, 0, time.Local)
	tuesday := monday.AddDate(0, 0, 1)

	first, err := svc.Create(PostInput{Title: "Weekly Recap", Status: db.PostStatusPublished, PubDate: &monday, AuthorID: 1})
	if err != nil {
		t.Fatalf("failed to create first post: %v", err)
	}
	second, err := svc.Create(PostInput{Title: "Weekly Recap", Status: db.PostStatusPublished, PubDate: &tuesday, AuthorID: 1})
	if err != nil {
		t.Fatalf("failed to create second post: %v", err)
	}

	if *first.Slug != *second.Slug {
		t.Fatalf("expected matching slugs on different days, got %q and %q", *first.Slug, *second.Slug)
	}
}

func TestExplicitDuplicateSlugRejected(t *testing.T) {
	gdb := setupPostServiceTestDB(t)
	svc := NewPostService(gdb)

	day := time.Date(2009, time.April, 8, 12, 0, 0, 0, time.Local)
	if _, err := svc.Create(PostInput{Title: "Original", Status: db.PostStatusPublished, PubDate: &day, AuthorID: 1}); err != nil {
		t.Fatalf("failed to create first post: %v", err)
	}

	dup := "original"
	later := day.Add(time.Hour)
	intruder := db.Post{Title: "Impostor", Status: db.PostStatusPublished, Slug: &dup, PubDate: &later, AuthorID: 1}
	if err := svc.Save(&intruder); !errors.Is(err, ErrDuplicateSlug) {
		t.Fatalf("expected ErrDuplicateSlug, got %v", err)
	}

	var count int64
	if err := gdb.Model(&db.Post{}).Count(&count).Error; err != nil {
		t.Fatalf("failed to count posts: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected rejected save to leave one post, got %d", count)
	}
}

func TestPublishTransitionAllocatesOnce(t *testing.T) {
	gdb := setupPostServiceTestDB(t)
	svc := NewPostService(gdb)

	draft, err := svc.Create(PostInput{Title: "Pending Piece", AuthorID: 1})
	if err != nil {
		t.Fatalf("failed to create draft: %v", err)
	}

	published, err := svc.Publish(draft.ID)
	if err != nil {
		t.Fatalf("failed to publish: %v", err)
	}
	if published.Slug == nil || published.PubDate == nil {
		t.Fatal("expected publish to assign slug and pub date")
	}

	firstSlug := *published.Slug
	firstDate := *published.PubDate

	unpublished, err := svc.Unpublish(published.ID)
	if err != nil {
		t.Fatalf("failed to unpublish: %v", err)
	}
	if unpublished.Slug == nil || *unpublished.Slug != firstSlug {
		t.Fatal("expected unpublish to keep the slug")
	}

	republished, err := svc.Publish(published.ID)
	if err != nil {
		t.Fatalf("failed to republish: %v", err)
	}
	if *republished.Slug != firstSlug || !republished.PubDate.Equal(firstDate) {
		t.Fatal("expected republish to keep the original slug and pub date")
	}
}

func TestPublishedExcludesFutureAndDrafts(t *testing.T) {
	gdb := setupPostServiceTestDB(t)
	svc := NewPostService(gdb)

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(24 * time.Hour)

	if _, err := svc.Create(PostInput{Title: "Visible", Status: db.PostStatusPublished, PubDate: &past, AuthorID: 1}); err != nil {
		t.Fatalf("failed to create visible post: %v", err)
	}
	if _, err := svc.Create(PostInput{Title: "Scheduled", Status: db.PostStatusPublished, PubDate: &future, AuthorID: 1}); err != nil {
		t.Fatalf("failed to create scheduled post: %v", err)
	}
	if _, err := svc.Create(PostInput{Title: "Draft", AuthorID: 1}); err != nil {
		t.Fatalf("failed to create draft: %v", err)
	}

	posts, err := svc.Published(nil)
	if err != nil {
		t.Fatalf("failed to list published posts: %v", err)
	}
	if len(posts) != 1 || posts[0].Title != "Visible" {
		t.Fatalf("expected only the visible post, got %d posts", len(posts))
	}

	asOf := future.Add(time.Hour)
	posts, err = svc.Published(&asOf)
	if err != nil {
		t.Fatalf("failed to list posts as of future time: %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("expected scheduled post to appear as of %v, got %d posts", asOf, len(posts))
	}
}

func TestGetBySlugAndDay(t *testing.T) {
	gdb := setupPostServiceTestDB(t)
	svc := NewPostService(gdb)

	day := time.Date(2009, time.April, 8, 21, 30, 0, 0, time.Local)
	created, err := svc.Create(PostInput{Title: "Here We Go", Status: db.PostStatusPublished, PubDate: &day, AuthorID: 1})
	if err != nil {
		t.Fatalf("failed to create post: %v", err)
	}

	found, err := svc.GetBySlugAndDay(2009, time.April, 8, *created.Slug)
	if err != nil {
		t.Fatalf("failed to resolve post by slug and day: %v", err)
	}
	if found.ID != created.ID {
		t.Fatalf("expected post %d, got %d", created.ID, found.ID)
	}

	if _, err := svc.GetBySlugAndDay(2009, time.April, 9, *created.Slug); !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("expected ErrPostNotFound on the wrong day, got %v", err)
	}
}

func TestFindByLegacyID(t *testing.T) {
	gdb := setupPostServiceTestDB(t)
	svc := NewPostService(gdb)

	past := time.Now().Add(-time.Hour)
	post, err := svc.Create(PostInput{Title: "Imported Piece", Status: db.PostStatusPublished, PubDate: &past, AuthorID: 1})
	if err != nil {
		t.Fatalf("failed to create post: %v", err)
	}
	if _, err := svc.AddMeta(post.ID, db.MetaKeyWordPressID, "4"); err != nil {
		t.Fatalf("failed to add meta: %v", err)
	}

	found, err := svc.FindByLegacyID("4")
	if err != nil {
		t.Fatalf("failed to resolve legacy id: %v", err)
	}
	if found.ID != post.ID {
		t.Fatalf("expected post %d, got %d", post.ID, found.ID)
	}

	if _, err := svc.FindByLegacyID("999"); !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("expected ErrPostNotFound for unknown legacy id, got %v", err)
	}

	draft, err := svc.Create(PostInput{Title: "Hidden Import", AuthorID: 1})
	if err != nil {
		t.Fatalf("failed to create draft: %v", err)
	}
	if _, err := svc.AddMeta(draft.ID, db.MetaKeyWordPressID, "7"); err != nil {
		t.Fatalf("failed to add meta: %v", err)
	}
	if _, err := svc.FindByLegacyID("7"); !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("expected unpublished posts to stay unresolvable, got %v", err)
	}
}

func TestDatelessSlugScope(t *testing.T) {
	gdb := setupPostServiceTestDB(t)
	svc := NewPostService(gdb)

	shared := "shared-slug"

	first := db.Post{Title: "First Draft", Slug: &shared, AuthorID: 1}
	if err := svc.Save(&first); err != nil {
		t.Fatalf("failed to save first draft: %v", err)
	}

	second := db.Post{Title: "Second Draft", Slug: &shared, AuthorID: 1}
	if err := svc.Save(&second); !errors.Is(err, ErrDuplicateSlug) {
		t.Fatalf("expected dateless drafts to collide on slug, got %v", err)
	}

	day := time.Date(2009, time.April, 8, 12, 0, 0, 0, time.Local)
	dated := db.Post{Title: "Dated Draft", Slug: &shared, PubDate: &day, AuthorID: 1}
	if err := svc.Save(&dated); err != nil {
		t.Fatalf("expected dated post to avoid the dateless scope, got %v", err)
	}
}
