package router

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/metarho/internal/handler"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Setup 配置 Gin 引擎和路由
func Setup(gdb *gorm.DB, sessionSecret string, logger zerolog.Logger) *gin.Engine {
	r := gin.Default()

	store := cookie.NewStore([]byte(sessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
	})
	r.Use(sessions.Sessions("metarho_session", store))

	api := handler.NewAPI(gdb, logger)

	// 对外的只读内容接口，?p= 形式的旧链接在首页处理
	r.GET("/", api.ListPosts)
	r.GET("/posts", api.ListPosts)
	r.GET("/posts/:year", api.PostsByYear)
	r.GET("/posts/:year/:month", api.PostsByMonth)
	r.GET("/posts/:year/:month/:day", api.PostsByDay)
	r.GET("/posts/:year/:month/:day/:slug", api.PostDetail)

	r.GET("/tags", api.ListTags)
	r.GET("/tags/:slug", api.PostsByTag)

	r.GET("/topics", api.ListTopics)
	r.GET("/topics/*path", api.PostsByTopic)

	// 后台管理路由
	admin := r.Group("/admin")
	{
		admin.POST("/login", api.Login)
		admin.GET("/logout", api.Logout)

		auth := admin.Group("/api")
		auth.Use(handler.AuthRequired())
		{
			auth.POST("/posts", api.CreatePost)
			auth.PUT("/posts/:id", api.UpdatePost)
			auth.POST("/posts/:id/publish", api.PublishPost)
			auth.POST("/posts/:id/unpublish", api.UnpublishPost)

			auth.POST("/tags", api.CreateTag)
			auth.PUT("/tags/:id", api.UpdateTag)
			auth.DELETE("/tags/:id", api.DeleteTag)

			auth.POST("/topics", api.CreateTopic)
			auth.PUT("/topics/:id", api.UpdateTopic)
			auth.POST("/topics/:id/rebuild", api.RebuildTopicSubtree)

			auth.POST("/import", api.ImportExport)
		}
	}

	return r
}
