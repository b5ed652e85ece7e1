package wordpress

import (
	"testing"
	"time"
)

const fixtureWXR = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"
	xmlns:content="http://purl.org/rss/1.0/modules/content/"
	xmlns:excerpt="http://wordpress.org/export/1.0/excerpt/"
	xmlns:wp="http://wordpress.org/export/1.0/">
<channel>
	<title>Lorem Blog</title>
	<link>http://example.org</link>
	<wp:category>
		<wp:category_nicename>vestibulum-ante</wp:category_nicename>
		<wp:category_parent>consectetur</wp:category_parent>
		<wp:cat_name><![CDATA[Vestibulum Ante]]></wp:cat_name>
	</wp:category>
	<wp:category>
		<wp:category_nicename>consectetur</wp:category_nicename>
		<wp:category_parent></wp:category_parent>
		<wp:cat_name><![CDATA[Consectetur]]></wp:cat_name>
	</wp:category>
	<wp:tag>
		<wp:tag_slug>ligula</wp:tag_slug>
		<wp:tag_name><![CDATA[ligula]]></wp:tag_name>
	</wp:tag>
	<item>
		<title>Here We Go</title>
		<category domain="category" nicename="vestibulum-ante"><![CDATA[Vestibulum Ante]]></category>
		<category><![CDATA[Vestibulum Ante]]></category>
		<category domain="tag"><![CDATA[ligula]]></category>
		<content:encoded><![CDATA[<p>body</p>]]></content:encoded>
		<excerpt:encoded><![CDATA[teaser]]></excerpt:encoded>
		<wp:post_id>4</wp:post_id>
		<wp:post_date>2009-04-08 21:30:00</wp:post_date>
		<wp:status>publish</wp:status>
		<wp:postmeta>
			<wp:meta_key>_edit_last</wp:meta_key>
			<wp:meta_value>1</wp:meta_value>
		</wp:postmeta>
	</item>
	<item>
		<title>Still Cooking</title>
		<content:encoded><![CDATA[draft body]]></content:encoded>
		<wp:post_id>7</wp:post_id>
		<wp:post_date>0000-00-00 00:00:00</wp:post_date>
		<wp:status>draft</wp:status>
	</item>
	<item>
		<title>From The Future</title>
		<wp:post_id>9</wp:post_id>
		<wp:post_date>2010-01-02 08:00:00</wp:post_date>
		<wp:status>futuristic</wp:status>
	</item>
	<item>
		<title>Bad Clock</title>
		<wp:post_id>11</wp:post_id>
		<wp:post_date>yesterday-ish</wp:post_date>
		<wp:status>publish</wp:status>
	</item>
	<item>
		<wp:post_id>13</wp:post_id>
		<wp:status>publish</wp:status>
	</item>
</channel>
</rss>`

func TestParseChannel(t *testing.T) {
	doc, err := Parse([]byte(fixtureWXR))
	if err != nil {
		t.Fatalf("failed to parse fixture: %v", err)
	}

	if doc.Title != "Lorem Blog" || doc.Link != "http://example.org" {
		t.Fatalf("unexpected channel header: %q %q", doc.Title, doc.Link)
	}

	if len(doc.Categories) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(doc.Categories))
	}
	child := doc.Categories[0]
	if child.Name != "Vestibulum Ante" || child.NiceName != "vestibulum-ante" || child.ParentNiceName != "consectetur" {
		t.Fatalf("unexpected child category: %+v", child)
	}
	if doc.Categories[1].ParentNiceName != "" {
		t.Fatalf("expected root category without parent, got %+v", doc.Categories[1])
	}

	if len(doc.Tags) != 1 || doc.Tags[0].Name != "ligula" || doc.Tags[0].Slug != "ligula" {
		t.Fatalf("unexpected tags: %+v", doc.Tags)
	}
}

func TestParseItemContentAndExcerpt(t *testing.T) {
	doc, err := Parse([]byte(fixtureWXR))
	if err != nil {
		t.Fatalf("failed to parse fixture: %v", err)
	}
	if len(doc.Items) < 1 {
		t.Fatal("expected at least one item")
	}

	item := doc.Items[0]
	if item.Title != "Here We Go" || item.PostID != "4" {
		t.Fatalf("unexpected item header: %+v", item)
	}
	if item.Status != StatusPublished {
		t.Fatalf("expected published status, got %q", item.Status)
	}
	if item.Content != "<p>body</p>" {
		t.Fatalf("unexpected content: %q", item.Content)
	}
	if item.Excerpt != "teaser" {
		t.Fatalf("unexpected excerpt: %q", item.Excerpt)
	}

	want := time.Date(2009, time.April, 8, 21, 30, 0, 0, time.Local)
	if item.PubDate == nil || !item.PubDate.Equal(want) {
		t.Fatalf("unexpected pub date: %v", item.PubDate)
	}

	// The domain-less repeat of the category reference must be collapsed.
	if len(item.Categories) != 1 || item.Categories[0] != "Vestibulum Ante" {
		t.Fatalf("unexpected category refs: %+v", item.Categories)
	}
	if len(item.TagNames) != 1 || item.TagNames[0] != "ligula" {
		t.Fatalf("unexpected tag refs: %+v", item.TagNames)
	}
	if len(item.Meta) != 1 || item.Meta[0].Key != "_edit_last" || item.Meta[0].Value != "1" {
		t.Fatalf("unexpected meta: %+v", item.Meta)
	}
}

func TestParseZeroDateMeansNoDate(t *testing.T) {
	doc, err := Parse([]byte(fixtureWXR))
	if err != nil {
		t.Fatalf("failed to parse fixture: %v", err)
	}

	var draft *Item
	for i := range doc.Items {
		if doc.Items[i].Title == "Still Cooking" {
			draft = &doc.Items[i]
		}
	}
	if draft == nil {
		t.Fatal("draft item missing")
	}
	if draft.Status != StatusUnpublished {
		t.Fatalf("expected draft to map to unpublished, got %q", draft.Status)
	}
	if draft.PubDate != nil {
		t.Fatalf("expected zero date to mean no date, got %v", draft.PubDate)
	}
}

func TestParseUnknownStatusMapsToUnpublished(t *testing.T) {
	doc, err := Parse([]byte(fixtureWXR))
	if err != nil {
		t.Fatalf("failed to parse fixture: %v", err)
	}

	for _, item := range doc.Items {
		if item.Title == "From The Future" {
			if item.Status != StatusUnpublished {
				t.Fatalf("expected unknown status to map to unpublished, got %q", item.Status)
			}
			return
		}
	}
	t.Fatal("item with unknown status missing")
}

func TestParseCollectsItemFailures(t *testing.T) {
	doc, err := Parse([]byte(fixtureWXR))
	if err != nil {
		t.Fatalf("failed to parse fixture: %v", err)
	}

	if len(doc.Items) != 3 {
		t.Fatalf("expected 3 parsed items, got %d", len(doc.Items))
	}
	if len(doc.Failures) != 2 {
		t.Fatalf("expected 2 failures, got %+v", doc.Failures)
	}

	badDate := doc.Failures[0]
	if badDate.Title != "Bad Clock" || badDate.Index != 3 {
		t.Fatalf("unexpected first failure: %+v", badDate)
	}

	untitled := doc.Failures[1]
	if untitled.Title != "" || untitled.Index != 4 {
		t.Fatalf("unexpected second failure: %+v", untitled)
	}
}

func TestParseBrokenDocument(t *testing.T) {
	if _, err := Parse([]byte("<rss><channel>")); err == nil {
		t.Fatal("expected a decode error for a truncated document")
	}
}
