package news

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"Aktiemotor/internal/domain/models"
	"Aktiemotor/internal/service/upstream"
	"Aktiemotor/pkg/logger"

	"github.com/mmcdole/gofeed"
)

const defaultSource = "Google News"

// GoogleNews searches the Google News RSS feed in Swedish.
type GoogleNews struct {
	base    *upstream.Base
	baseURL string
	parser  *gofeed.Parser
	log     *logger.Logger
}

func NewGoogleNews(base *upstream.Base, baseURL string, l *logger.Logger) *GoogleNews {
	if l == nil {
		l = logger.Nop()
	}
	return &GoogleNews{base: base, baseURL: baseURL, parser: gofeed.NewParser(), log: l.With("news")}
}

// Headlines returns up to limit items for "<company> aktie", in feed order.
func (g *GoogleNews) Headlines(ctx context.Context, company string, limit int) ([]models.NewsItem, error) {
	q := url.Values{
		"q":    {company + " aktie"},
		"hl":   {"sv"},
		"gl":   {"SE"},
		"ceid": {"SE:sv"},
	}
	var body []byte
	if err := g.base.GetJSON(ctx, g.baseURL, q, &body); err != nil {
		return nil, fmt.Errorf("news %s: %w", company, err)
	}
	feed, err := g.parser.ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse news feed %s: %w", company, err)
	}

	items := make([]models.NewsItem, 0, limit)
	for _, it := range feed.Items {
		if limit > 0 && len(items) >= limit {
			break
		}
		title, source := splitPublisher(it.Title)
		if title == "" {
			continue
		}
		n := models.NewsItem{Title: title, Link: it.Link, Source: source}
		if it.PublishedParsed != nil {
			n.Published = it.PublishedParsed.UTC()
		}
		items = append(items, n)
	}
	g.log.Debug("headlines fetched", logger.String("company", company), logger.Int("items", len(items)))
	return items, nil
}

// splitPublisher turns "Headline - Publisher" into its parts.
func splitPublisher(title string) (string, string) {
	title = strings.TrimSpace(title)
	if i := strings.LastIndex(title, " - "); i > 0 {
		if src := strings.TrimSpace(title[i+3:]); src != "" {
			return strings.TrimSpace(title[:i]), src
		}
	}
	return title, defaultSource
}
