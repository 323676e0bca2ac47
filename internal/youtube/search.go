package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"

	"go.uber.org/zap"

	"trackclip/internal/core"
	"trackclip/pkg/fuzzy"
	"trackclip/pkg/musiclink"
)

var videoIDRegex = regexp.MustCompile(`"videoId":"([a-zA-Z0-9_-]{11})"`)

// searchPhrasings returns the queries tried in order, most specific first.
func searchPhrasings(query string) []string {
	return []string{
		`"` + query + `" official`,
		query + " official",
		query,
	}
}

// extractVideoIDs returns up to limit distinct ids in order of appearance.
func extractVideoIDs(html string, limit int) []string {
	seen := make(map[string]struct{})
	var ids []string

	for _, match := range videoIDRegex.FindAllStringSubmatch(html, -1) {
		id := match[1]
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
		if len(ids) == limit {
			break
		}
	}
	return ids
}

// SearchVideo finds the official video for query. Phrasings are tried in
// order; for each, the first candidates of the results page are resolved and
// the first one the matcher accepts wins.
func (r *Resolver) SearchVideo(ctx context.Context, query string) (*Resolution, error) {
	for _, phrasing := range searchPhrasings(query) {
		res, err := r.searchPhrasing(ctx, query, phrasing)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %w", core.ErrSourceUnavailable, ctx.Err())
			}
			r.logger.Debug("Search phrasing failed", zap.String("phrasing", phrasing), zap.Error(err))
			continue
		}
		if res != nil {
			return res, nil
		}
	}

	r.logger.Info("No suitable music video found", zap.String("query", query))
	return nil, fmt.Errorf("%w: %q", core.ErrNoMatchFound, query)
}

func (r *Resolver) searchPhrasing(ctx context.Context, query, phrasing string) (*Resolution, error) {
	pageCtx, cancel := context.WithTimeout(ctx, r.config.SearchTimeout)
	html, err := r.backends.Search.FetchResults(pageCtx, phrasing)
	cancel()
	if err != nil {
		return nil, err
	}

	ids := extractVideoIDs(html, r.config.MaxCandidates)
	if len(ids) == 0 {
		return nil, errors.New("no video IDs in results page")
	}

	for _, id := range ids {
		candidateCtx, cancel := context.WithTimeout(ctx, r.config.CandidateTimeout)
		res, err := r.Resolve(candidateCtx, id)
		cancel()
		if err != nil {
			r.logger.Debug("Skipping candidate", zap.String("video_id", id), zap.Error(err))
			continue
		}

		verdict := fuzzy.Evaluate(fuzzy.Candidate{Title: res.Info.Title, Duration: res.Info.Duration}, query)
		if verdict.Accepted {
			r.logger.Info("Found valid video",
				zap.String("video_id", id),
				zap.String("title", res.Info.Title),
				zap.Duration("duration", res.Info.Duration),
				zap.String("phrasing", phrasing))
			return res, nil
		}

		r.logger.Debug("Candidate rejected",
			zap.String("video_id", id),
			zap.String("title", res.Info.Title),
			zap.String("reason", verdict.Reason))
	}

	return nil, nil
}

// resultsPage fetches the public search results page.
type resultsPage struct {
	client *http.Client
}

func (p *resultsPage) FetchResults(ctx context.Context, query string) (string, error) {
	return musiclink.FetchPage(ctx, p.client, searchResultsURL+url.QueryEscape(query), "YouTube search", maxResultsPageSize)
}
