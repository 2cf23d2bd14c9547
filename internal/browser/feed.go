// File: internal/browser/feed.go
package browser

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xKony/x-automate/api/schemas"
)

// collectTimelineJS scrapes the visible timeline articles into a flat array.
// Counters come off the action buttons' inner text; missing pieces come back
// empty and are filtered on the Go side.
const collectTimelineJS = `(() => {
	const posts = [];
	for (const article of document.querySelectorAll('article[data-testid="tweet"]')) {
		const link = article.querySelector('a[href*="/status/"]');
		const textEl = article.querySelector('div[data-testid="tweetText"]');
		const counter = (testid) => {
			const el = article.querySelector('button[data-testid="' + testid + '"]');
			return el ? el.innerText.trim() : '';
		};
		posts.push({
			href: link ? link.getAttribute('href') : '',
			text: textEl ? textEl.innerText : '',
			replies: counter('reply'),
			reposts: counter('retweet'),
			likes: counter('like'),
		});
	}
	return posts;
})()`

// rawPost is the wire shape handed back by collectTimelineJS.
type rawPost struct {
	Href    string `json:"href"`
	Text    string `json:"text"`
	Replies string `json:"replies"`
	Reposts string `json:"reposts"`
	Likes   string `json:"likes"`
}

// XFeed supplies candidates scraped from the home timeline. Each Next call
// reloads the timeline, so repeat calls surface fresh content; the consumer
// is responsible for deduplication.
type XFeed struct {
	surf    *XSurface
	baseURL string
	now     func() time.Time
	log     *zap.Logger
}

// NewFeed builds a feed over the account's surface.
func NewFeed(surf *XSurface, baseURL string, logger *zap.Logger) *XFeed {
	return &XFeed{
		surf:    surf,
		baseURL: baseURL,
		now:     time.Now,
		log:     logger.Named("feed"),
	}
}

// Next returns up to limit candidates from the home timeline. An empty batch
// is not an error; the next call may find fresh content.
func (f *XFeed) Next(ctx context.Context, limit int) ([]schemas.Candidate, error) {
	if err := f.surf.Navigate(ctx, f.baseURL+"/home"); err != nil {
		return nil, fmt.Errorf("failed to load timeline: %w", err)
	}

	var raw []rawPost
	if err := f.surf.Evaluate(ctx, collectTimelineJS, &raw); err != nil {
		return nil, fmt.Errorf("failed to collect timeline posts: %w", err)
	}

	observedAt := f.now()
	candidates := make([]schemas.Candidate, 0, limit)
	for _, p := range raw {
		if len(candidates) >= limit {
			break
		}
		c, ok := parseCandidate(p, observedAt)
		if !ok {
			continue
		}
		candidates = append(candidates, c)
	}

	f.log.Debug("Timeline batch collected",
		zap.Int("scraped", len(raw)),
		zap.Int("candidates", len(candidates)))
	return candidates, nil
}

// parseCandidate converts a scraped post into a candidate. Posts without a
// parseable permalink or body text are dropped.
func parseCandidate(p rawPost, observedAt time.Time) (schemas.Candidate, bool) {
	author, id, ok := parseStatusHref(p.Href)
	if !ok {
		return schemas.Candidate{}, false
	}
	text := strings.TrimSpace(p.Text)
	if text == "" {
		return schemas.Candidate{}, false
	}
	return schemas.Candidate{
		ID:     id,
		Author: author,
		Text:   text,
		Engagement: schemas.Engagement{
			Replies: parseCounter(p.Replies),
			Reposts: parseCounter(p.Reposts),
			Likes:   parseCounter(p.Likes),
		},
		ObservedAt: observedAt,
	}, true
}

// parseStatusHref splits "/author/status/123..." into its author and ID.
func parseStatusHref(href string) (author, id string, ok bool) {
	parts := strings.Split(strings.TrimPrefix(href, "/"), "/")
	for i := 0; i+1 < len(parts); i++ {
		if parts[i] == "status" && i > 0 {
			id = parts[i+1]
			author = parts[i-1]
			break
		}
	}
	if author == "" || id == "" {
		return "", "", false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return "", "", false
		}
	}
	return author, id, true
}

// parseCounter reads an abbreviated engagement counter ("1,024", "3.4K", "2M").
func parseCounter(s string) int64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0
	}

	multiplier := float64(1)
	switch {
	case strings.HasSuffix(s, "K"):
		multiplier = 1e3
		s = strings.TrimSuffix(s, "K")
	case strings.HasSuffix(s, "M"):
		multiplier = 1e6
		s = strings.TrimSuffix(s, "M")
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int64(v * multiplier)
}
