package handler

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/metarho/internal/db"
	"github.com/metarho/internal/service"
	"github.com/metarho/internal/wordpress"
	"golang.org/x/crypto/bcrypt"
)

// Login 处理管理员登录请求
func (a *API) Login(c *gin.Context) {
	var payload struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !bindJSON(c, &payload, "invalid login payload") {
		return
	}

	var user db.User
	if err := a.db.Where("username = ?", payload.Username).First(&user).Error; err != nil {
		respondError(c, http.StatusUnauthorized, "invalid username or password")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(payload.Password)); err != nil {
		respondError(c, http.StatusUnauthorized, "invalid username or password")
		return
	}

	session := sessions.Default(c)
	session.Set("user_id", user.ID)
	session.Set("username", user.Username)
	if err := session.Save(); err != nil {
		respondError(c, http.StatusInternalServerError, "failed to save session")
		return
	}

	c.JSON(http.StatusOK, gin.H{"username": user.Username})
}

// Logout 处理管理员登出
func (a *API) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Save()
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// AuthRequired 是一个简单的认证中间件
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		if session.Get("user_id") == nil {
			respondError(c, http.StatusUnauthorized, "authentication required")
			c.Abort()
			return
		}
		c.Next()
	}
}

type postPayload struct {
	Title         string     `json:"title"`
	Content       string     `json:"content"`
	Teaser        string     `json:"teaser"`
	Status        string     `json:"status"`
	PubDate       *time.Time `json:"pub_date"`
	PublicationID *uint      `json:"publication_id"`
	TagIDs        []uint     `json:"tag_ids"`
	TopicIDs      []uint     `json:"topic_ids"`
}

func (a *API) sessionUserID(c *gin.Context) (uint, bool) {
	session := sessions.Default(c)
	raw := session.Get("user_id")
	userID, ok := raw.(uint)
	return userID, ok
}

// CreatePost creates a post owned by the logged-in user.
func (a *API) CreatePost(c *gin.Context) {
	var payload postPayload
	if !bindJSON(c, &payload, "invalid post payload") {
		return
	}

	userID, ok := a.sessionUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "authentication required")
		return
	}

	post, err := a.posts.Create(service.PostInput{
		Title:         payload.Title,
		Content:       payload.Content,
		Teaser:        payload.Teaser,
		Status:        payload.Status,
		PubDate:       payload.PubDate,
		AuthorID:      userID,
		PublicationID: payload.PublicationID,
		TagIDs:        payload.TagIDs,
		TopicIDs:      payload.TopicIDs,
	})
	if err != nil {
		a.respondPostError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": post.ID, "status": post.Status})
}

// UpdatePost applies updates to an existing post.
func (a *API) UpdatePost(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	var payload postPayload
	if !bindJSON(c, &payload, "invalid post payload") {
		return
	}

	userID, ok := a.sessionUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "authentication required")
		return
	}

	post, err := a.posts.Update(id, service.PostInput{
		Title:         payload.Title,
		Content:       payload.Content,
		Teaser:        payload.Teaser,
		Status:        payload.Status,
		PubDate:       payload.PubDate,
		AuthorID:      userID,
		PublicationID: payload.PublicationID,
		TagIDs:        payload.TagIDs,
		TopicIDs:      payload.TopicIDs,
	})
	if err != nil {
		a.respondPostError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": post.ID, "status": post.Status})
}

// PublishPost transitions a post to the published state.
func (a *API) PublishPost(c *gin.Context) {
	a.transitionPost(c, a.posts.Publish)
}

// UnpublishPost transitions a post back to the unpublished state.
func (a *API) UnpublishPost(c *gin.Context) {
	a.transitionPost(c, a.posts.Unpublish)
}

func (a *API) transitionPost(c *gin.Context, transition func(uint) (*db.Post, error)) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	post, err := transition(id)
	if err != nil {
		a.respondPostError(c, err)
		return
	}

	response := gin.H{"id": post.ID, "status": post.Status, "pub_date": post.PubDate}
	if post.Slug != nil {
		response["slug"] = *post.Slug
	}
	c.JSON(http.StatusOK, response)
}

func (a *API) respondPostError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPostNotFound):
		respondError(c, http.StatusNotFound, "post not found")
	case errors.Is(err, service.ErrDuplicateSlug):
		respondError(c, http.StatusConflict, err.Error())
	default:
		respondError(c, http.StatusInternalServerError, "failed to save post")
	}
}

// CreateTag creates a tag.
func (a *API) CreateTag(c *gin.Context) {
	var payload struct {
		Text string `json:"text"`
	}
	if !bindJSON(c, &payload, "invalid tag payload") {
		return
	}

	tag, err := a.tags.Create(payload.Text)
	if err != nil {
		if errors.Is(err, service.ErrTagExists) {
			respondError(c, http.StatusConflict, err.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, "failed to create tag")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": tag.ID, "text": tag.Text, "slug": tag.Slug})
}

// UpdateTag renames a tag. The slug is kept so existing URLs stay valid.
func (a *API) UpdateTag(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	var payload struct {
		Text string `json:"text"`
	}
	if !bindJSON(c, &payload, "invalid tag payload") {
		return
	}

	tag, err := a.tags.Update(id, payload.Text)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTagNotFound):
			respondError(c, http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrTagExists):
			respondError(c, http.StatusConflict, err.Error())
		default:
			respondError(c, http.StatusInternalServerError, "failed to update tag")
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": tag.ID, "text": tag.Text, "slug": tag.Slug})
}

// DeleteTag removes an unused tag.
func (a *API) DeleteTag(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := a.tags.Delete(id); err != nil {
		switch {
		case errors.Is(err, service.ErrTagNotFound):
			respondError(c, http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrTagInUse):
			respondError(c, http.StatusConflict, err.Error())
		default:
			respondError(c, http.StatusInternalServerError, "failed to delete tag")
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type topicPayload struct {
	Text        string `json:"text"`
	Description string `json:"description"`
	Slug        string `json:"slug"`
	ParentID    *uint  `json:"parent_id"`
}

// CreateTopic creates a topic.
func (a *API) CreateTopic(c *gin.Context) {
	var payload topicPayload
	if !bindJSON(c, &payload, "invalid topic payload") {
		return
	}

	topic, err := a.topics.Create(service.TopicInput{
		Text:        payload.Text,
		Description: payload.Description,
		Slug:        payload.Slug,
		ParentID:    payload.ParentID,
	})
	if err != nil {
		a.respondTopicError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": topic.ID, "slug": topic.Slug, "path": topic.Path})
}

// UpdateTopic applies updates to an existing topic. Descendant paths are not
// rebuilt here; call RebuildTopicSubtree afterwards when the slug changed.
func (a *API) UpdateTopic(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	var payload topicPayload
	if !bindJSON(c, &payload, "invalid topic payload") {
		return
	}

	topic, err := a.topics.Update(id, service.TopicInput{
		Text:        payload.Text,
		Description: payload.Description,
		Slug:        payload.Slug,
		ParentID:    payload.ParentID,
	})
	if err != nil {
		a.respondTopicError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": topic.ID, "slug": topic.Slug, "path": topic.Path})
}

// RebuildTopicSubtree recomputes cached paths below a topic.
func (a *API) RebuildTopicSubtree(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := a.topics.RebuildSubtree(id); err != nil {
		a.respondTopicError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (a *API) respondTopicError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrTopicNotFound):
		respondError(c, http.StatusNotFound, "topic not found")
	case errors.Is(err, service.ErrDuplicateSibling):
		respondError(c, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrCyclicHierarchy):
		respondError(c, http.StatusConflict, err.Error())
	default:
		respondError(c, http.StatusInternalServerError, "failed to save topic")
	}
}

// ImportExport accepts an uploaded WXR export document and runs the import,
// attributing posts to the logged-in user.
func (a *API) ImportExport(c *gin.Context) {
	userID, ok := a.sessionUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "authentication required")
		return
	}

	var author db.User
	if err := a.db.First(&author, userID).Error; err != nil {
		respondError(c, http.StatusUnauthorized, "authentication required")
		return
	}

	file, _, err := c.Request.FormFile("file")
	if err != nil {
		respondError(c, http.StatusBadRequest, "export file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(c, http.StatusBadRequest, "failed to read export file")
		return
	}

	doc, err := wordpress.Parse(data)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	report, err := a.importer.Run(doc, &author)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "import failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"run_id":         report.RunID,
		"topics_created": report.TopicsCreated,
		"topics_skipped": report.TopicsSkipped,
		"tags_created":   report.TagsCreated,
		"tags_skipped":   report.TagsSkipped,
		"posts_created":  report.PostsCreated,
		"posts_failed":   report.PostsFailed,
		"meta_created":   report.MetaCreated,
		"failures":       report.Failures,
	})
}
