package ingest

import (
	"net/url"
	"strings"
	"testing"
)

const articleHTML = `<!DOCTYPE html>
<html>
<head><title>Understanding Sundowning - Caregiver Guide</title></head>
<body>
<article>
<h1>Understanding Sundowning</h1>
<p>Sundowning refers to increased confusion, anxiety, and agitation that can occur in people with dementia during the late afternoon and evening. Many caregivers notice a consistent daily pattern.</p>
<p>Keeping a predictable routine, limiting caffeine, and increasing daytime light exposure are commonly recommended strategies that can reduce the severity of symptoms for many families.</p>
<p>If symptoms appear suddenly or worsen quickly, talk to a clinician to rule out pain, infection, or medication side effects before attributing the change to the disease itself.</p>
</article>
</body>
</html>`

func TestExtractArticle(t *testing.T) {
	pageURL, _ := url.Parse("https://example.org/guides/sundowning")

	article, err := extractArticle([]byte(articleHTML), pageURL)
	if err != nil {
		t.Fatalf("extractArticle() error: %v", err)
	}
	if !strings.Contains(article.Title, "Sundowning") {
		t.Errorf("Title = %q", article.Title)
	}
	if !strings.Contains(article.Text, "predictable routine") {
		t.Errorf("Text missing article body: %q", article.Text)
	}
	if strings.Contains(article.Text, "<p>") {
		t.Error("Text contains raw markup")
	}
}

func TestExtractParagraphsFallback(t *testing.T) {
	html := `<html><head><title>Forum thread</title></head><body>
<div class="post"><p>My mom keeps asking the same question every few minutes.</p></div>
<div class="post"><p>That happened with my dad too. Short answers and redirection helped us.</p></div>
</body></html>`

	article, err := extractParagraphs([]byte(html))
	if err != nil {
		t.Fatalf("extractParagraphs() error: %v", err)
	}
	if article.Title != "Forum thread" {
		t.Errorf("Title = %q", article.Title)
	}
	if !strings.Contains(article.Text, "same question") || !strings.Contains(article.Text, "redirection") {
		t.Errorf("Text = %q", article.Text)
	}
}

func TestExtractParagraphsNoContent(t *testing.T) {
	if _, err := extractParagraphs([]byte("<html><body><div>nav only</div></body></html>")); err == nil {
		t.Fatal("expected error for page without paragraphs")
	}
}
