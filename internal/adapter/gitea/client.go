// Package gitea is a typed pass-through client for the Gitea v1 REST API.
// It owns no state machine: every method is one rate-limited, circuit-broken
// request whose body is schema-checked before decoding.
package gitea

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"time"

	"github.com/kaptinlin/jsonschema"
	"github.com/oklog/ulid/v2"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"github.com/M3kH/gigi-sub006/internal/domain"
	"github.com/M3kH/gigi-sub006/internal/infra/tracer"
)

const (
	defaultTimeout     = 30 * time.Second
	defaultMaxBodySize = 4 * 1024 * 1024 // 4MB
	defaultRatePerMin  = 120.0
	defaultBurst       = 10

	defaultCBMaxFailures uint32 = 5
	defaultCBTimeout            = 30 * time.Second
	defaultCBInterval           = 60 * time.Second
)

// Options configures the client. Zero values get the documented defaults.
type Options struct {
	BaseURL        string
	Token          string
	RequestsPerMin float64
	Burst          int
	CBMaxFailures  uint32
	CBTimeout      time.Duration
	CBInterval     time.Duration
	HTTPClient     *http.Client
}

// Client talks to one Gitea instance.
type Client struct {
	base    *url.URL
	token   string
	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[[]byte]
	schemas *schemaSet
	logger  *slog.Logger
	entropy *ulid.MonotonicEntropy
}

// NewClient creates a Gitea API client.
func NewClient(opts Options, logger *slog.Logger) (*Client, error) {
	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse gitea base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("gitea base url %q must be absolute", opts.BaseURL)
	}

	schemas, err := compileSchemas()
	if err != nil {
		return nil, err
	}

	perMin := opts.RequestsPerMin
	if perMin <= 0 {
		perMin = defaultRatePerMin
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = defaultBurst
	}
	maxFailures := opts.CBMaxFailures
	if maxFailures == 0 {
		maxFailures = defaultCBMaxFailures
	}
	cbTimeout := opts.CBTimeout
	if cbTimeout == 0 {
		cbTimeout = defaultCBTimeout
	}
	cbInterval := opts.CBInterval
	if cbInterval == 0 {
		cbInterval = defaultCBInterval
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "gitea:" + base.Host,
		MaxRequests: 1, // one probe in half-open state
		Interval:    cbInterval,
		Timeout:     cbTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})

	return &Client{
		base:    base,
		token:   opts.Token,
		http:    httpClient,
		limiter: rate.NewLimiter(rate.Limit(perMin)/60.0, burst),
		breaker: breaker,
		schemas: schemas,
		logger:  logger,
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}, nil
}

// GetRepository fetches a single repository.
func (c *Client) GetRepository(ctx context.Context, owner, repo string) (*Repository, error) {
	return getTyped[Repository](ctx, c, c.schemas.repository,
		fmt.Sprintf("repos/%s/%s", url.PathEscape(owner), url.PathEscape(repo)), nil)
}

// ListRepositories lists the repositories of a user or organization.
func (c *Client) ListRepositories(ctx context.Context, owner string, opts ListOptions) ([]Repository, error) {
	out, err := getTyped[[]Repository](ctx, c, c.schemas.repositoryList,
		fmt.Sprintf("users/%s/repos", url.PathEscape(owner)), opts.query())
	if err != nil {
		return nil, err
	}
	return *out, nil
}

// GetIssue fetches one issue by number.
func (c *Client) GetIssue(ctx context.Context, owner, repo string, number int64) (*Issue, error) {
	return getTyped[Issue](ctx, c, c.schemas.issue,
		fmt.Sprintf("repos/%s/%s/issues/%d", url.PathEscape(owner), url.PathEscape(repo), number), nil)
}

// ListIssues lists a repository's issues.
func (c *Client) ListIssues(ctx context.Context, owner, repo string, opts ListOptions) ([]Issue, error) {
	out, err := getTyped[[]Issue](ctx, c, c.schemas.issueList,
		fmt.Sprintf("repos/%s/%s/issues", url.PathEscape(owner), url.PathEscape(repo)), opts.query())
	if err != nil {
		return nil, err
	}
	return *out, nil
}

// GetPullRequest fetches one pull request by number.
func (c *Client) GetPullRequest(ctx context.Context, owner, repo string, number int64) (*PullRequest, error) {
	return getTyped[PullRequest](ctx, c, c.schemas.pullRequest,
		fmt.Sprintf("repos/%s/%s/pulls/%d", url.PathEscape(owner), url.PathEscape(repo), number), nil)
}

// ListPullRequests lists a repository's pull requests.
func (c *Client) ListPullRequests(ctx context.Context, owner, repo string, opts ListOptions) ([]PullRequest, error) {
	out, err := getTyped[[]PullRequest](ctx, c, c.schemas.pullList,
		fmt.Sprintf("repos/%s/%s/pulls", url.PathEscape(owner), url.PathEscape(repo)), opts.query())
	if err != nil {
		return nil, err
	}
	return *out, nil
}

func (o ListOptions) query() url.Values {
	q := url.Values{}
	if o.Page > 0 {
		q.Set("page", fmt.Sprint(o.Page))
	}
	if o.Limit > 0 {
		q.Set("limit", fmt.Sprint(o.Limit))
	}
	if o.State != "" {
		q.Set("state", o.State)
	}
	return q
}

// getTyped runs one GET, validates the body against schema, and decodes into T.
func getTyped[T any](ctx context.Context, c *Client, schema *jsonschema.Schema, path string, query url.Values) (*T, error) {
	body, err := c.get(ctx, path, query)
	if err != nil {
		return nil, err
	}
	if err := validateBody(schema, body); err != nil {
		return nil, fmt.Errorf("gitea %s: %w", path, err)
	}
	out := new(T)
	if err := json.Unmarshal(body, out); err != nil {
		return nil, fmt.Errorf("gitea %s: decode: %w", path, err)
	}
	return out, nil
}

func validateBody(schema *jsonschema.Schema, body []byte) error {
	var value any
	if err := json.Unmarshal(body, &value); err != nil {
		return fmt.Errorf("%w: body is not JSON: %v", domain.ErrSchemaInvalid, err)
	}
	result := schema.Validate(value)
	if !result.IsValid() {
		return fmt.Errorf("%w: %s", domain.ErrSchemaInvalid, result.Error())
	}
	return nil
}

// get performs one rate-limited, circuit-broken GET and returns the raw body.
func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	requestID := ulid.MustNew(ulid.Timestamp(time.Now()), c.entropy).String()
	ctx, span := tracer.StartSpan(ctx, "gitea.get")
	defer span.End()
	span.SetAttributes(
		attribute.String("gitea.path", path),
		attribute.String("request.id", requestID),
	)

	endpoint := c.base.JoinPath("api", "v1", path)
	if len(query) > 0 {
		endpoint.RawQuery = query.Encode()
	}

	body, err := c.breaker.Execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if c.token != "" {
			req.Header.Set("Authorization", "token "+c.token)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, defaultMaxBodySize))
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("%w: %d for %s", domain.ErrAPIStatus, resp.StatusCode, path)
		}
		return data, nil
	})
	if err != nil {
		tracer.RecordError(span, err)
		c.logger.Warn("gitea request failed", "path", path, "request_id", requestID, "error", err)
		return nil, err
	}

	tracer.SetOK(span)
	c.logger.Debug("gitea request", "path", path, "request_id", requestID, "bytes", len(body))
	return body, nil
}
