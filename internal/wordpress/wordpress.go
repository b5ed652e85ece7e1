// Package wordpress parses WordPress eXtended RSS (WXR) export documents
// into normalized in-memory records. It performs no writes; feeding the
// result into the content store is the import pipeline's job.
package wordpress

import (
	"encoding/xml"
	"fmt"
	"os"
	"strings"
	"time"
)

// Publish status of a parsed item. Any status marker outside the recognized
// set maps to unpublished.
const (
	StatusPublished   = "published"
	StatusUnpublished = "unpublished"
)

// post_date layout used by WordPress exports. Drafts carry an all-zero date.
const (
	dateLayout = "2006-01-02 15:04:05"
	zeroDate   = "0000-00-00 00:00:00"
)

var statusByMarker = map[string]string{
	"publish": StatusPublished,
	"draft":   StatusUnpublished,
	"pending": StatusUnpublished,
	"private": StatusUnpublished,
	"inherit": StatusUnpublished,
}

// Document is a fully parsed export: channel-level categories and tags plus
// the content items, with per-item failures collected instead of aborting.
type Document struct {
	Title      string
	Link       string
	Categories []Category
	Tags       []Tag
	Items      []Item
	Failures   []ItemFailure
}

// Category is one channel-level category. Parent linkage is expressed by
// nice name: ParentNiceName is empty for roots.
type Category struct {
	Name           string
	NiceName       string
	ParentNiceName string
	Description    string
}

// Tag is one channel-level tag.
type Tag struct {
	Name string
	Slug string
}

// Meta is one arbitrary named field attached to an item.
type Meta struct {
	Key   string
	Value string
}

// Item is one normalized content item.
type Item struct {
	Title      string
	Status     string
	PubDate    *time.Time
	Content    string
	Excerpt    string
	PostID     string
	Categories []string
	TagNames   []string
	Meta       []Meta
}

// ItemFailure records one item the parser could not normalize.
type ItemFailure struct {
	Index  int
	Title  string
	Reason string
}

type export struct {
	XMLName xml.Name `xml:"rss"`
	Channel struct {
		Title      string        `xml:"title"`
		Link       string        `xml:"link"`
		Categories []rawCategory `xml:"category"`
		Tags       []rawTag      `xml:"tag"`
		Items      []rawItem     `xml:"item"`
	} `xml:"channel"`
}

type rawCategory struct {
	Name        string `xml:"cat_name"`
	NiceName    string `xml:"category_nicename"`
	Parent      string `xml:"category_parent"`
	Description string `xml:"category_description"`
}

type rawTag struct {
	Name string `xml:"tag_name"`
	Slug string `xml:"tag_slug"`
}

type rawItem struct {
	Title      string         `xml:"title"`
	PostID     string         `xml:"post_id"`
	PostDate   string         `xml:"post_date"`
	Status     string         `xml:"status"`
	Encoded    []encodedField `xml:"encoded"`
	Categories []itemCategory `xml:"category"`
	Meta       []rawMeta      `xml:"postmeta"`
}

// encodedField captures both content:encoded and excerpt:encoded, which
// share a local name and differ only by namespace.
type encodedField struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}

type itemCategory struct {
	Domain   string `xml:"domain,attr"`
	NiceName string `xml:"nicename,attr"`
	Value    string `xml:",chardata"`
}

type rawMeta struct {
	Key   string `xml:"meta_key"`
	Value string `xml:"meta_value"`
}

// ParseFile reads and parses an export document from disk.
func ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("wordpress: read export: %w", err)
	}
	return Parse(data)
}

// Parse decodes an export document. A document that cannot be decoded at all
// is a fatal error; malformed individual items are recorded in
// Document.Failures and parsing continues.
func Parse(data []byte) (*Document, error) {
	var raw export
	if err := xml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("wordpress: decode export: %w", err)
	}

	doc := &Document{
		Title: strings.TrimSpace(raw.Channel.Title),
		Link:  strings.TrimSpace(raw.Channel.Link),
	}

	for _, cat := range raw.Channel.Categories {
		name := strings.TrimSpace(cat.Name)
		if name == "" {
			continue
		}
		doc.Categories = append(doc.Categories, Category{
			Name:           name,
			NiceName:       strings.TrimSpace(cat.NiceName),
			ParentNiceName: strings.TrimSpace(cat.Parent),
			Description:    strings.TrimSpace(cat.Description),
		})
	}

	for _, tag := range raw.Channel.Tags {
		name := strings.TrimSpace(tag.Name)
		if name == "" {
			continue
		}
		doc.Tags = append(doc.Tags, Tag{
			Name: name,
			Slug: strings.TrimSpace(tag.Slug),
		})
	}

	for i, item := range raw.Channel.Items {
		parsed, err := normalizeItem(item)
		if err != nil {
			doc.Failures = append(doc.Failures, ItemFailure{
				Index:  i,
				Title:  strings.TrimSpace(item.Title),
				Reason: err.Error(),
			})
			continue
		}
		doc.Items = append(doc.Items, parsed)
	}

	return doc, nil
}

func normalizeItem(raw rawItem) (Item, error) {
	item := Item{
		Title:  strings.TrimSpace(raw.Title),
		PostID: strings.TrimSpace(raw.PostID),
	}

	if item.Title == "" {
		return Item{}, fmt.Errorf("item is missing a title")
	}

	status, ok := statusByMarker[strings.TrimSpace(raw.Status)]
	if !ok {
		status = StatusUnpublished
	}
	item.Status = status

	if date := strings.TrimSpace(raw.PostDate); date != "" && date != zeroDate {
		parsed, err := time.ParseInLocation(dateLayout, date, time.Local)
		if err != nil {
			return Item{}, fmt.Errorf("malformed post date %q", date)
		}
		item.PubDate = &parsed
	}

	for _, field := range raw.Encoded {
		if strings.Contains(field.XMLName.Space, "excerpt") {
			item.Excerpt = field.Value
		} else {
			item.Content = field.Value
		}
	}

	seenCategories := map[string]bool{}
	seenTags := map[string]bool{}
	for _, ref := range raw.Categories {
		value := strings.TrimSpace(ref.Value)
		if value == "" {
			continue
		}
		// Old exports repeat references with and without a domain attribute.
		if ref.Domain == "tag" {
			if !seenTags[value] {
				seenTags[value] = true
				item.TagNames = append(item.TagNames, value)
			}
			continue
		}
		if !seenCategories[value] {
			seenCategories[value] = true
			item.Categories = append(item.Categories, value)
		}
	}

	for _, meta := range raw.Meta {
		key := strings.TrimSpace(meta.Key)
		if key == "" {
			continue
		}
		item.Meta = append(item.Meta, Meta{Key: key, Value: meta.Value})
	}

	return item, nil
}
