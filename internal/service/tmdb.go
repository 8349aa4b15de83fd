package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/user/movienest/internal/config"
	"github.com/user/movienest/internal/logger"
	"github.com/user/movienest/internal/model"
)

// MinQueryLength 搜索关键词最小长度，不足时不请求 TMDB
const MinQueryLength = 2

type TMDBService struct {
	baseURL    string
	apiKey     string
	language   string
	region     string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *logrus.Entry
}

func NewTMDBService(cfg config.TMDBConfig) *TMDBService {
	limit := rate.Inf
	burst := 1
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
		burst = int(cfg.RateLimit)
		if burst < 1 {
			burst = 1
		}
	}
	return &TMDBService{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		language:   cfg.Language,
		region:     cfg.Region,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    rate.NewLimiter(limit, burst),
		log:        logger.Component("tmdb"),
	}
}

// Search 搜索电影
func (s *TMDBService) Search(ctx context.Context, query string, page int) (*model.MoviePage, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < MinQueryLength {
		return model.EmptyMoviePage(), nil
	}
	if page < 1 {
		page = 1
	}

	params := url.Values{
		"query":         {query},
		"language":      {s.language},
		"include_adult": {"false"},
		"page":          {strconv.Itoa(page)},
	}

	var result model.MoviePage
	if err := s.get(ctx, "/search/movie", params, &result); err != nil {
		return nil, err
	}
	normalizePage(&result)
	return &result, nil
}

// Trending 今日热门
func (s *TMDBService) Trending(ctx context.Context) (*model.MoviePage, error) {
	var result model.MoviePage
	if err := s.get(ctx, "/trending/movie/day", url.Values{"language": {s.language}}, &result); err != nil {
		return nil, err
	}
	normalizePage(&result)
	return &result, nil
}

type tmdbProvidersResponse struct {
	Results map[string]json.RawMessage `json:"results"`
}

type tmdbReleaseDatesResponse struct {
	Results []struct {
		ISO31661     string `json:"iso_3166_1"`
		ReleaseDates []struct {
			Certification string `json:"certification"`
		} `json:"release_dates"`
	} `json:"results"`
}

// Details 电影详情：详情、观看渠道、演职员表、分级四个请求并发，任一失败则整体失败
func (s *TMDBService) Details(ctx context.Context, id int) (*model.MovieDetails, error) {
	var (
		details   model.MovieDetails
		providers tmdbProvidersResponse
		credits   model.Credits
		releases  tmdbReleaseDatesResponse
	)

	base := fmt.Sprintf("/movie/%d", id)
	lang := url.Values{"language": {s.language}}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.get(gctx, base, lang, &details) })
	g.Go(func() error { return s.get(gctx, base+"/watch/providers", nil, &providers) })
	g.Go(func() error { return s.get(gctx, base+"/credits", lang, &credits) })
	g.Go(func() error { return s.get(gctx, base+"/release_dates", nil, &releases) })
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if raw, ok := providers.Results[s.region]; ok && len(raw) > 0 {
		details.WatchProviders = raw
	} else {
		details.WatchProviders = json.RawMessage(`{}`)
	}
	details.Credits = credits
	details.Certification = s.certification(&releases)
	if details.Genres == nil {
		details.Genres = []model.Genre{}
	}

	return &details, nil
}

// certification 所在地区第一个非空分级
func (s *TMDBService) certification(r *tmdbReleaseDatesResponse) *string {
	for _, country := range r.Results {
		if country.ISO31661 != s.region {
			continue
		}
		for _, rd := range country.ReleaseDates {
			if rd.Certification != "" {
				c := rd.Certification
				return &c
			}
		}
		return nil
	}
	return nil
}

func (s *TMDBService) get(ctx context.Context, path string, params url.Values, result any) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	q.Set("api_key", s.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.log.WithError(err).WithField("path", path).Warn("请求失败")
		return &UpstreamError{Service: "tmdb", Op: path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("tmdb %s: %w", path, ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		s.log.WithFields(logrus.Fields{"path": path, "status": resp.StatusCode}).Warn("响应状态异常")
		return &UpstreamError{Service: "tmdb", Op: path, StatusCode: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return &UpstreamError{Service: "tmdb", Op: path, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func normalizePage(p *model.MoviePage) {
	if p.Results == nil {
		p.Results = []model.MovieSummary{}
	}
}
