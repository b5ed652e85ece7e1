package handler

import (
	"github.com/metarho/internal/service"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// API bundles shared dependencies for HTTP handlers.
type API struct {
	db           *gorm.DB
	posts        *service.PostService
	tags         *service.TagService
	topics       *service.TopicService
	publications *service.PublicationService
	importer     *service.ImportService
}

// NewAPI constructs a handler set with shared services.
func NewAPI(gdb *gorm.DB, logger zerolog.Logger) *API {
	return &API{
		db:           gdb,
		posts:        service.NewPostService(gdb),
		tags:         service.NewTagService(gdb),
		topics:       service.NewTopicService(gdb),
		publications: service.NewPublicationService(gdb),
		importer:     service.NewImportService(gdb, logger),
	}
}

// DB exposes the underlying gorm instance.
func (a *API) DB() *gorm.DB {
	return a.db
}
