package handler

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/metarho/internal/db"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	markdownEngine = goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Linkify, extension.Table),
		goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML(), html.WithUnsafe()),
	)
	sanitizer = bluemonday.UGCPolicy()
)

type postListItem struct {
	ID      uint       `json:"id"`
	Title   string     `json:"title"`
	Slug    string     `json:"slug"`
	PubDate *time.Time `json:"pub_date"`
	Teaser  string     `json:"teaser"`
	URL     string     `json:"url"`
	Tags    []string   `json:"tags"`
	Topics  []string   `json:"topics"`
}

func postToListItem(post db.Post) postListItem {
	item := postListItem{
		ID:      post.ID,
		Title:   post.Title,
		PubDate: post.PubDate,
		Teaser:  post.Teaser,
		URL:     post.PermalinkPath(),
		Tags:    []string{},
		Topics:  []string{},
	}
	if post.Slug != nil {
		item.Slug = *post.Slug
	}
	for _, tag := range post.Tags {
		item.Tags = append(item.Tags, tag.Text)
	}
	for _, topic := range post.Topics {
		item.Topics = append(item.Topics, topic.Path)
	}
	return item
}

func postList(posts []db.Post) []postListItem {
	items := make([]postListItem, 0, len(posts))
	for _, post := range posts {
		items = append(items, postToListItem(post))
	}
	return items
}

// renderContent converts stored content to sanitized HTML.
func renderContent(content string) string {
	var buf bytes.Buffer
	if err := markdownEngine.Convert([]byte(content), &buf); err != nil {
		return sanitizer.Sanitize(content)
	}
	return sanitizer.Sanitize(buf.String())
}

// ListPosts returns all published posts. A wordpress-era query string like
// ?p=4 is resolved through the imported wp_post_id meta row and answered
// with a permanent redirect to the canonical permalink.
func (a *API) ListPosts(c *gin.Context) {
	if legacyID := c.Query("p"); legacyID != "" {
		post, err := a.posts.FindByLegacyID(legacyID)
		if err != nil {
			respondError(c, http.StatusNotFound, "post not found")
			return
		}
		c.Redirect(http.StatusMovedPermanently, post.PermalinkPath())
		return
	}

	posts, err := a.posts.Published(nil)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to list posts")
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": postList(posts)})
}

// PostsByYear returns the published posts of one year.
func (a *API) PostsByYear(c *gin.Context) {
	year, err := parseYearParam(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.Local)
	a.respondArchive(c, start, start.AddDate(1, 0, 0))
}

// PostsByMonth returns the published posts of one month.
func (a *API) PostsByMonth(c *gin.Context) {
	year, err := parseYearParam(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	month, err := parseMonthParam(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.Local)
	a.respondArchive(c, start, start.AddDate(0, 1, 0))
}

// PostsByDay returns the published posts of one day.
func (a *API) PostsByDay(c *gin.Context) {
	year, err := parseYearParam(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	month, err := parseMonthParam(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	day, err := parseDayParam(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	start := time.Date(year, month, day, 0, 0, 0, 0, time.Local)
	a.respondArchive(c, start, start.AddDate(0, 0, 1))
}

func (a *API) respondArchive(c *gin.Context, start, end time.Time) {
	posts, err := a.posts.PublishedBetween(start, end)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to list posts")
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": postList(posts)})
}

// PostDetail returns one published post by its date and slug. Unpublished
// posts are indistinguishable from missing ones.
func (a *API) PostDetail(c *gin.Context) {
	year, err := parseYearParam(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	month, err := parseMonthParam(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	day, err := parseDayParam(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	post, err := a.posts.GetBySlugAndDay(year, month, day, c.Param("slug"))
	if err != nil {
		respondError(c, http.StatusNotFound, "post not found")
		return
	}

	item := postToListItem(*post)
	c.JSON(http.StatusOK, gin.H{
		"post":    item,
		"content": renderContent(post.Content),
		"author":  post.Author.Username,
	})
}

// ListTags returns the tags of published posts together with their weight.
func (a *API) ListTags(c *gin.Context) {
	tags, err := a.tags.Published(nil)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to list tags")
		return
	}

	type tagItem struct {
		Text   string  `json:"text"`
		Slug   string  `json:"slug"`
		Weight float64 `json:"weight"`
	}
	items := make([]tagItem, 0, len(tags))
	for _, tag := range tags {
		weight, err := a.tags.Weight(tag.ID)
		if err != nil {
			respondError(c, http.StatusInternalServerError, "failed to compute tag weight")
			return
		}
		items = append(items, tagItem{Text: tag.Text, Slug: tag.Slug, Weight: weight})
	}
	c.JSON(http.StatusOK, gin.H{"tags": items})
}

// PostsByTag returns published posts carrying one tag.
func (a *API) PostsByTag(c *gin.Context) {
	tag, err := a.tags.GetBySlug(c.Param("slug"))
	if err != nil {
		respondError(c, http.StatusNotFound, "tag not found")
		return
	}

	posts, err := a.posts.PublishedByTagSlug(tag.Slug)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to list posts")
		return
	}
	c.JSON(http.StatusOK, gin.H{"tag": tag.Text, "posts": postList(posts)})
}

// ListTopics returns the full topic forest in path order.
func (a *API) ListTopics(c *gin.Context) {
	topics, err := a.topics.List()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to list topics")
		return
	}

	type topicItem struct {
		Text        string `json:"text"`
		Slug        string `json:"slug"`
		Path        string `json:"path"`
		Description string `json:"description"`
	}
	items := make([]topicItem, 0, len(topics))
	for _, topic := range topics {
		items = append(items, topicItem{
			Text:        topic.Text,
			Slug:        topic.Slug,
			Path:        topic.Path,
			Description: topic.Description,
		})
	}
	c.JSON(http.StatusOK, gin.H{"topics": items})
}

// PostsByTopic returns published posts filed under the topic addressed by
// its materialized path.
func (a *API) PostsByTopic(c *gin.Context) {
	topic, err := a.topics.FindByPath(c.Param("path"))
	if err != nil {
		respondError(c, http.StatusNotFound, "topic not found")
		return
	}

	posts, err := a.posts.PublishedByTopic(topic.ID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to list posts")
		return
	}
	c.JSON(http.StatusOK, gin.H{"topic": topic.Text, "path": topic.Path, "posts": postList(posts)})
}
