package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/metarho/internal/db"
	"github.com/metarho/internal/service"
	"github.com/metarho/internal/wordpress"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

func main() {
	var dbPath string
	var file string
	var author string
	flag.StringVar(&dbPath, "db", "metarho.db", "sqlite db path")
	flag.StringVar(&file, "file", "", "wordpress export xml file")
	flag.StringVar(&author, "author", "", "username to attribute imported posts to")
	flag.Parse()

	if file == "" || author == "" {
		fmt.Fprintln(os.Stderr, "usage: blogimport -db <path> -file <export.xml> -author <username>")
		os.Exit(2)
	}

	if err := db.Init(dbPath); err != nil {
		fmt.Fprintf(os.Stderr, "init db: %v\n", err)
		os.Exit(1)
	}

	var user db.User
	if err := db.DB.Where("username = ?", author).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fmt.Fprintf(os.Stderr, "author %q does not exist\n", author)
		} else {
			fmt.Fprintf(os.Stderr, "look up author: %v\n", err)
		}
		os.Exit(1)
	}

	doc, err := wordpress.ParseFile(file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse export: %v\n", err)
		os.Exit(1)
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	importer := service.NewImportService(db.DB, logger)

	report, err := importer.Run(doc, &user)
	if err != nil {
		fmt.Fprintf(os.Stderr, "import: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("run %s\n", report.RunID)
	fmt.Printf("topics: %d created, %d skipped\n", report.TopicsCreated, report.TopicsSkipped)
	fmt.Printf("tags: %d created, %d skipped\n", report.TagsCreated, report.TagsSkipped)
	fmt.Printf("posts: %d created, %d failed\n", report.PostsCreated, report.PostsFailed)
	fmt.Printf("meta rows: %d created\n", report.MetaCreated)

	if len(report.Failures) > 0 {
		fmt.Printf("\n%d item(s) need attention:\n", len(report.Failures))
		for _, failure := range report.Failures {
			fmt.Printf("  [%s] %s: %s\n", failure.Phase, failure.Item, failure.Reason)
		}
	}
}
