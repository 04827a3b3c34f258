package justwatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"mubi1000/internal/logging"
)

// DefaultBaseURL is the public JustWatch GraphQL endpoint.
const DefaultBaseURL = "https://apis.justwatch.com/graphql"

const searchQuery = `query GetSearchTitles(
  $searchTitlesFilter: TitleFilter!,
  $country: Country!,
  $language: Language!,
  $first: Int!,
  $filter: OfferFilter!,
) {
  popularTitles(
    country: $country
    filter: $searchTitlesFilter
    first: $first
    sortBy: POPULAR
    sortRandomSeed: 0
  ) {
    edges {
      node {
        id
        objectType
        content(country: $country, language: $language) {
          title
          originalReleaseYear
        }
        offers(country: $country, platform: WEB, filter: $filter) {
          monetizationType
          package {
            technicalName
            clearName
          }
        }
      }
    }
  }
}`

// Searcher is the catalog operation used by the resolver.
type Searcher interface {
	Search(ctx context.Context, title, country string) ([]Candidate, error)
}

// Client talks to the JustWatch GraphQL API.
type Client struct {
	baseURL    string
	language   string
	count      int
	bestOnly   bool
	httpClient *http.Client
	pacer      *Pacer
	retry      RetryPolicy
	sleep      Sleeper
	logger     *slog.Logger
}

var _ Searcher = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLanguage sets the content language (default "en").
func WithLanguage(language string) Option {
	return func(c *Client) {
		if language = strings.TrimSpace(language); language != "" {
			c.language = language
		}
	}
}

// WithResultsPerQuery caps the number of hits requested per search.
func WithResultsPerQuery(count int) Option {
	return func(c *Client) {
		if count > 0 {
			c.count = count
		}
	}
}

// WithBestOnly asks the catalog to return only the best offer per service.
func WithBestOnly(bestOnly bool) Option {
	return func(c *Client) {
		c.bestOnly = bestOnly
	}
}

// WithMinInterval sets the minimum spacing between calls.
func WithMinInterval(interval time.Duration) Option {
	return func(c *Client) {
		c.pacer = NewPacer(interval)
	}
}

// WithRetryPolicy overrides the retry budget.
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(c *Client) {
		c.retry = policy
	}
}

// WithSleeper replaces the blocking sleep used for pacing and backoff.
func WithSleeper(sleep Sleeper) Option {
	return func(c *Client) {
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

// WithLogger attaches a logger for retry warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logging.NewComponentLogger(logger, "justwatch")
	}
}

// New creates a catalog client.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("justwatch base url required")
	}
	client := &Client{
		baseURL:    baseURL,
		language:   "en",
		count:      5,
		bestOnly:   true,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		pacer:      NewPacer(DefaultMinInterval),
		retry:      DefaultRetryPolicy(),
		sleep:      SleepWithContext,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	client.pacer.sleep = client.sleep
	return client, nil
}

// Search looks up title in the given country's catalog. A search with no hits
// returns an empty slice and a nil error.
func (c *Client) Search(ctx context.Context, title, country string) ([]Candidate, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, errors.New("title must not be empty")
	}
	country = strings.ToUpper(strings.TrimSpace(country))
	if country == "" {
		return nil, errors.New("country must not be empty")
	}

	attempt := 0
	for {
		if err := c.pacer.Wait(ctx); err != nil {
			return nil, err
		}
		candidates, err := c.search(ctx, title, country)
		c.pacer.Mark()
		if err == nil {
			return candidates, nil
		}
		if !IsRetriable(err) || attempt >= c.retry.MaxRetries {
			return nil, fmt.Errorf("%w: search %q: %w", ErrCatalogUnavailable, title, err)
		}
		attempt++
		backoff := c.retry.Backoff(attempt)
		logging.WarnWithContext(c.logger, "justwatch request failed, retrying", "catalog_retry",
			logging.String(logging.FieldMovie, title),
			logging.Duration("backoff", backoff),
			logging.Int("attempt", attempt),
			logging.Int("max_attempts", c.retry.MaxRetries),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "wait for rate limits or check network connectivity"),
			logging.String(logging.FieldImpact, "lookup delayed"),
		)
		if err := c.sleep(ctx, backoff); err != nil {
			return nil, err
		}
	}
}

type searchRequest struct {
	OperationName string         `json:"operationName"`
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables"`
}

type searchResponse struct {
	Data struct {
		PopularTitles struct {
			Edges []struct {
				Node titleNode `json:"node"`
			} `json:"edges"`
		} `json:"popularTitles"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

type titleNode struct {
	ID         string `json:"id"`
	ObjectType string `json:"objectType"`
	Content    struct {
		Title               string `json:"title"`
		OriginalReleaseYear *int   `json:"originalReleaseYear"`
	} `json:"content"`
	Offers []struct {
		MonetizationType string `json:"monetizationType"`
		Package          struct {
			TechnicalName string `json:"technicalName"`
			ClearName     string `json:"clearName"`
		} `json:"package"`
	} `json:"offers"`
}

func (c *Client) search(ctx context.Context, title, country string) ([]Candidate, error) {
	body, err := json.Marshal(searchRequest{
		OperationName: "GetSearchTitles",
		Query:         searchQuery,
		Variables: map[string]any{
			"searchTitlesFilter": map[string]any{"searchQuery": title},
			"country":            country,
			"language":           c.language,
			"first":              c.count,
			"filter":             map[string]any{"bestOnly": c.bestOnly},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return nil, fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(snippet))}
	}

	var payload searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode justwatch response: %w", err)
	}
	if len(payload.Errors) > 0 {
		messages := make([]string, 0, len(payload.Errors))
		for _, e := range payload.Errors {
			messages = append(messages, e.Message)
		}
		return nil, &graphQLError{messages: messages}
	}

	edges := payload.Data.PopularTitles.Edges
	candidates := make([]Candidate, 0, len(edges))
	for _, edge := range edges {
		candidates = append(candidates, edge.Node.candidate())
	}
	return candidates, nil
}

func (n titleNode) candidate() Candidate {
	candidate := Candidate{
		EntryID:    n.ID,
		ObjectType: n.ObjectType,
		Title:      n.Content.Title,
	}
	if n.Content.OriginalReleaseYear != nil {
		candidate.ReleaseYear = *n.Content.OriginalReleaseYear
	}
	for _, offer := range n.Offers {
		candidate.Offers = append(candidate.Offers, Offer{
			ServiceName:      offer.Package.ClearName,
			TechnicalName:    offer.Package.TechnicalName,
			MonetizationType: offer.MonetizationType,
		})
	}
	return candidate
}
