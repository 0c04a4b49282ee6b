package xclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func testClient(srv *httptest.Server) *HTTPClient {
	return &HTTPClient{
		baseURL:     srv.URL,
		bearerToken: "test-token",
		httpClient:  srv.Client(),
		limiter:     rate.NewLimiter(rate.Inf, 1),
		maxAttempts: 3,
		baseBackoff: time.Millisecond,
	}
}

func TestGetUserByUsername(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("auth header = %q", got)
		}
		if r.URL.Path != "/users/by/username/someone" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`{"data":{"id":"42","name":"Some One","username":"someone"}}`))
	}))
	defer srv.Close()

	u, err := testClient(srv).GetUserByUsername(context.Background(), "someone")
	if err != nil {
		t.Fatal(err)
	}
	if u.ID != "42" || u.Username != "someone" {
		t.Errorf("got %+v", u)
	}
}

func TestGetUserTweets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/42/tweets" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`{"data":[
			{"id":"t1","text":"first","created_at":"2026-08-01T10:00:00Z","public_metrics":{"like_count":3,"reply_count":1,"retweet_count":2}},
			{"id":"t2","text":"second"}
		]}`))
	}))
	defer srv.Close()

	posts, err := testClient(srv).GetUserTweets(context.Background(), "42", 50)
	if err != nil {
		t.Fatal(err)
	}
	if len(posts) != 2 {
		t.Fatalf("got %d posts", len(posts))
	}
	if posts[0].LikeCount != 3 || posts[0].RetweetCount != 2 {
		t.Errorf("metrics not parsed: %+v", posts[0])
	}
	if posts[0].AuthorID != "42" {
		t.Errorf("missing author_id should fall back to the requested user, got %q", posts[0].AuthorID)
	}
}

func TestDoWithRetryHandles429(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"data":[{"id":"t1","text":"ok"}]}`))
	}))
	defer srv.Close()

	posts, err := testClient(srv).GetUserTweets(context.Background(), "42", 10)
	if err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want retry then success", calls)
	}
	if len(posts) != 1 {
		t.Errorf("got %d posts", len(posts))
	}
}

func TestDoWithRetryGivesUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := testClient(srv).GetUserTweets(context.Background(), "42", 10)
	if err == nil {
		t.Fatal("persistent 5xx should surface an error")
	}
	if !strings.Contains(err.Error(), "status 500") {
		t.Errorf("error should carry the last status seen, got %q", err)
	}
}

func TestGetUserTweetsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := testClient(srv).GetUserTweets(context.Background(), "42", 10)
	if err == nil {
		t.Fatal("401 should not be retried into success")
	}
}
