package xclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// User is the subset of X user fields the importer needs.
type User struct {
	ID       string
	Username string
	Name     string
}

// Post is the subset of X tweet fields the importer needs.
type Post struct {
	ID           string
	AuthorID     string
	Text         string
	CreatedAt    time.Time
	LikeCount    int
	ReplyCount   int
	RetweetCount int
}

// Client defines the methods the importer uses from the X API.
type Client interface {
	GetUserByUsername(ctx context.Context, username string) (User, error)
	GetUserTweets(ctx context.Context, userID string, limit int) ([]Post, error)
	GetLikedTweets(ctx context.Context, userID string, limit int) ([]Post, error)
}

// HTTPClient is a simple bearer-token client for X API v2.
type HTTPClient struct {
	baseURL     string
	bearerToken string
	httpClient  *http.Client
	limiter     *rate.Limiter
	maxAttempts int
	baseBackoff time.Duration
}

func NewHTTPClient(bearerToken string) *HTTPClient {
	return &HTTPClient{
		baseURL:     "https://api.twitter.com/2",
		bearerToken: bearerToken,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		limiter:     newDefaultLimiter(),
		maxAttempts: getEnvInt("X_API_MAX_ATTEMPTS", 5),
		baseBackoff: time.Duration(getEnvInt("X_API_BASE_BACKOFF_MS", 500)) * time.Millisecond,
	}
}

func (c *HTTPClient) auth(req *http.Request) {
	if c.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearerToken)
	}
	req.Header.Set("Accept", "application/json")
}

type rawPost struct {
	ID            string    `json:"id"`
	Text          string    `json:"text"`
	AuthorID      string    `json:"author_id"`
	CreatedAt     time.Time `json:"created_at"`
	PublicMetrics struct {
		LikeCount    int `json:"like_count"`
		ReplyCount   int `json:"reply_count"`
		RetweetCount int `json:"retweet_count"`
	} `json:"public_metrics"`
}

func (r rawPost) toPost(fallbackAuthor string) Post {
	author := r.AuthorID
	if author == "" {
		author = fallbackAuthor
	}
	return Post{
		ID:           r.ID,
		AuthorID:     author,
		Text:         r.Text,
		CreatedAt:    r.CreatedAt,
		LikeCount:    r.PublicMetrics.LikeCount,
		ReplyCount:   r.PublicMetrics.ReplyCount,
		RetweetCount: r.PublicMetrics.RetweetCount,
	}
}

func (c *HTTPClient) GetUserByUsername(ctx context.Context, username string) (User, error) {
	var out User
	if username == "" {
		return out, errors.New("empty username")
	}
	u := fmt.Sprintf("%s/users/by/username/%s", c.baseURL, url.PathEscape(username))
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	c.auth(req)
	if err := c.limiter.Wait(ctx); err != nil { return out, err }
	resp, err := c.doWithRetry(ctx, req)
	if err != nil {
		return out, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return out, fmt.Errorf("x api status %d", resp.StatusCode)
	}
	var raw struct {
		Data struct {
			ID       string `json:"id"`
			Name     string `json:"name"`
			Username string `json:"username"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return out, err
	}
	return User{ID: raw.Data.ID, Username: raw.Data.Username, Name: raw.Data.Name}, nil
}

// GetUserTweets returns recent original tweets for a user.
func (c *HTTPClient) GetUserTweets(ctx context.Context, userID string, limit int) ([]Post, error) {
	u := fmt.Sprintf("%s/users/%s/tweets?max_results=%d&tweet.fields=created_at,public_metrics&exclude=retweets,replies",
		c.baseURL, url.PathEscape(userID), clamp(limit, 5, 100))
	return c.fetchPosts(ctx, u, userID)
}

// GetLikedTweets returns tweets liked by the user.
func (c *HTTPClient) GetLikedTweets(ctx context.Context, userID string, limit int) ([]Post, error) {
	u := fmt.Sprintf("%s/users/%s/liked_tweets?max_results=%d&tweet.fields=created_at,public_metrics,author_id",
		c.baseURL, url.PathEscape(userID), clamp(limit, 10, 100))
	return c.fetchPosts(ctx, u, "")
}

func (c *HTTPClient) fetchPosts(ctx context.Context, u, fallbackAuthor string) ([]Post, error) {
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	c.auth(req)
	if err := c.limiter.Wait(ctx); err != nil { return nil, err }
	resp, err := c.doWithRetry(ctx, req)
	if err != nil { return nil, err }
	defer resp.Body.Close()
	if resp.StatusCode >= 400 { return nil, fmt.Errorf("x api status %d", resp.StatusCode) }
	var raw struct {
		Data []rawPost `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil { return nil, err }
	out := make([]Post, 0, len(raw.Data))
	for _, d := range raw.Data {
		out = append(out, d.toPost(fallbackAuthor))
	}
	return out, nil
}

func clamp(v, min, max int) int { if v < min { return min }; if v > max { return max }; return v }

func (c *HTTPClient) doWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	backoff := c.baseBackoff
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		resp, err := c.httpClient.Do(req.Clone(ctx))
		if err == nil {
			if resp.StatusCode == http.StatusTooManyRequests || (resp.StatusCode >= 500 && resp.StatusCode <= 599) {
				lastErr = fmt.Errorf("status %d", resp.StatusCode)
				ra := resp.Header.Get("Retry-After")
				_ = resp.Body.Close()
				wait := backoff
				if ra != "" {
					if secs, err := strconv.Atoi(ra); err == nil {
						wait = time.Duration(secs) * time.Second
					} else if t, err := http.ParseTime(ra); err == nil {
						if d := time.Until(t); d > 0 { wait = d }
					}
				}
				// jitter +/-20%
				jitter := time.Duration(float64(wait) * 0.2)
				if jitter > 0 {
					wait = wait - jitter + time.Duration(time.Now().UnixNano()%int64(2*jitter))
				}
				select {
				case <-time.After(wait):
				case <-ctx.Done():
					return nil, ctx.Err()
				}
				backoff *= 2
				continue
			}
			return resp, nil
		}
		lastErr = err
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		backoff *= 2
	}
	return nil, fmt.Errorf("request failed after %d attempts: %v", c.maxAttempts, lastErr)
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" { return def }
	if i, err := strconv.Atoi(v); err == nil && i > 0 { return i }
	return def
}
