// Package collect fetches candidate documents from the remote trending-papers
// feed and maps them onto the domain model.
package collect

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/book-expert/logger"

	"github.com/papercast-dev/papercast/internal/core"
)

// documentURLFormat builds the public page URL for a collected document.
const documentURLFormat = "https://huggingface.co/papers/%s"

const unknownAuthor = "Unknown"

// feedEntry is one element of the trending-papers feed. The feed nests the
// paper object inside each entry and duplicates some fields at the top level;
// top-level values win when present.
type feedEntry struct {
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	PublishedAt string    `json:"publishedAt"`
	NumComments int       `json:"numComments"`
	Thumbnail   string    `json:"thumbnail"`
	Paper       feedPaper `json:"paper"`
}

type feedPaper struct {
	ID       string       `json:"id"`
	Title    string       `json:"title"`
	Abstract string       `json:"summary"`
	Authors  []feedAuthor `json:"authors"`
	Upvotes  int          `json:"upvotes"`
	Tags     []string     `json:"tags"`
}

type feedAuthor struct {
	Name string `json:"name"`
}

// FeedClient is the DocumentSource implementation backed by the HTTP feed.
type FeedClient struct {
	httpClient *http.Client
	feedURL    string
	log        *logger.Logger
	now        func() time.Time
}

// New creates a feed client with the given endpoint and per-call timeout.
func New(feedURL string, timeout time.Duration, log *logger.Logger) *FeedClient {
	return &FeedClient{
		httpClient: &http.Client{Timeout: timeout},
		feedURL:    feedURL,
		log:        log,
		now:        time.Now,
	}
}

// Fetch returns up to count documents in feed order. Network failures, rate
// limiting, and 5xx responses are transient; other non-OK responses and an
// empty feed are permanent. Entries that fail to parse are skipped with a
// warning; the call fails only when nothing parses.
func (c *FeedClient) Fetch(ctx context.Context, count int) ([]core.Document, error) {
	entries, err := c.fetchEntries(ctx)
	if err != nil {
		return nil, err
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: document feed returned no entries", core.ErrPermanent)
	}

	c.log.Info("Feed returned %d entries, taking up to %d", len(entries), count)

	documents := make([]core.Document, 0, count)

	for _, entry := range entries {
		if len(documents) == count {
			break
		}

		doc, parseErr := c.parseEntry(entry)
		if parseErr != nil {
			c.log.Warn("Skipping unparseable feed entry: %v", parseErr)

			continue
		}

		documents = append(documents, doc)
	}

	if len(documents) == 0 {
		return nil, fmt.Errorf("%w: no feed entries could be parsed", core.ErrPermanent)
	}

	return documents, nil
}

func (c *FeedClient) fetchEntries(ctx context.Context) ([]feedEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.feedURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create feed request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: document feed unreachable: %w", core.ErrTransient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf(
			"%w: document feed returned status %s",
			core.ErrTransient,
			resp.Status,
		)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf(
			"%w: document feed returned status %s",
			core.ErrPermanent,
			resp.Status,
		)
	}

	var entries []feedEntry

	err = json.NewDecoder(resp.Body).Decode(&entries)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed feed response: %w", core.ErrPermanent, err)
	}

	return entries, nil
}

func (c *FeedClient) parseEntry(entry feedEntry) (core.Document, error) {
	if entry.Paper.ID == "" {
		return core.Document{}, fmt.Errorf("%w: entry has no paper id", core.ErrValidation)
	}

	title := entry.Title
	if title == "" {
		title = entry.Paper.Title
	}

	if title == "" {
		return core.Document{}, fmt.Errorf(
			"%w: entry %s has no title",
			core.ErrValidation,
			entry.Paper.ID,
		)
	}

	abstract := entry.Summary
	if abstract == "" {
		abstract = entry.Paper.Abstract
	}

	authors := make([]string, 0, len(entry.Paper.Authors))

	for _, author := range entry.Paper.Authors {
		if author.Name != "" {
			authors = append(authors, author.Name)
		}
	}

	if len(authors) == 0 {
		authors = []string{unknownAuthor}
	}

	return core.Document{
		ID:            entry.Paper.ID,
		Title:         title,
		Authors:       authors,
		Abstract:      abstract,
		URL:           fmt.Sprintf(documentURLFormat, entry.Paper.ID),
		PublishedDate: parsePublishedDate(entry.PublishedAt),
		Upvotes:       entry.Paper.Upvotes,
		Categories:    entry.Paper.Tags,
		ThumbnailURL:  entry.Thumbnail,
		CollectedAt:   c.now().UTC(),
	}, nil
}

// parsePublishedDate normalizes the feed timestamp to a date key; an
// unparseable value is dropped rather than failing the entry.
func parsePublishedDate(raw string) string {
	if raw == "" {
		return ""
	}

	published, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return ""
	}

	return published.Format(core.EpisodeIDFormat)
}
