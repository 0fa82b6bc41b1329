package platform

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"beacon/internal/retry"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := NewClient(server.URL, "page-1", "token-1", 5*time.Second, nil)
	client.retryPolicy = retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}
	return client
}

func TestPublishWithoutImageUsesFeed(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/page-1/feed" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.PostForm.Get("message") != "hello world" {
			t.Errorf("message = %q", r.PostForm.Get("message"))
		}
		if r.PostForm.Get("access_token") != "token-1" {
			t.Errorf("token = %q", r.PostForm.Get("access_token"))
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "post-9"})
	}))

	postID, err := client.Publish(context.Background(), "hello world", "")
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if postID != "post-9" {
		t.Fatalf("post id = %q", postID)
	}
}

func TestPublishWithImageUsesPhotos(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/page-1/photos" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_ = r.ParseForm()
		if r.PostForm.Get("url") != "https://img.example/1.jpg" {
			t.Errorf("image url = %q", r.PostForm.Get("url"))
		}
		if r.PostForm.Get("caption") != "caption text" {
			t.Errorf("caption = %q", r.PostForm.Get("caption"))
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "photo-1", "post_id": "post-10"})
	}))

	postID, err := client.Publish(context.Background(), "caption text", "https://img.example/1.jpg")
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if postID != "post-10" {
		t.Fatalf("post id = %q, want the post_id field", postID)
	}
}

func TestPublishRetriesTransientFailures(t *testing.T) {
	attempts := 0
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			http.Error(w, "try later", http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "post-1"})
	}))

	if _, err := client.Publish(context.Background(), "msg", ""); err != nil {
		t.Fatalf("publish after retries: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
}

func TestPublishDoesNotRetryPermanentFailures(t *testing.T) {
	attempts := 0
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		http.Error(w, "bad request", http.StatusBadRequest)
	}))

	if _, err := client.Publish(context.Background(), "msg", ""); err == nil {
		t.Fatal("permanent failure must surface")
	}
	if attempts != 1 {
		t.Fatalf("attempts = %d, want 1 (no retry on 4xx)", attempts)
	}
}

func TestListComments(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/post-9/comments" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("filter"); got != "stream" {
			t.Errorf("filter = %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{
					"id":            "c1",
					"message":       "How much does it cost?",
					"created_time":  "2026-08-20T10:00:00+0000",
					"from":          map[string]any{"name": "Alice"},
					"comment_count": 0,
				},
				{
					"id":            "c2",
					"message":       "Nice!",
					"created_time":  "2026-08-21T09:30:00+0000",
					"from":          map[string]any{"name": "Bob"},
					"comment_count": 2,
				},
			},
		})
	}))

	comments, err := client.ListComments(context.Background(), "post-9")
	if err != nil {
		t.Fatalf("list comments: %v", err)
	}
	if len(comments) != 2 {
		t.Fatalf("comments = %d, want 2", len(comments))
	}
	if comments[0].Author != "Alice" || comments[0].PostID != "post-9" {
		t.Fatalf("first comment = %+v", comments[0])
	}
	if comments[0].CreatedAt.IsZero() {
		t.Fatal("created time must parse")
	}
	if !comments[1].HasReply() {
		t.Fatal("comment with replies must report HasReply")
	}
}

func TestReply(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/c1/comments" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_ = r.ParseForm()
		if r.PostForm.Get("message") != "thanks!" {
			t.Errorf("message = %q", r.PostForm.Get("message"))
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "reply-1"})
	}))

	replyID, err := client.Reply(context.Background(), "c1", "thanks!")
	if err != nil {
		t.Fatalf("reply: %v", err)
	}
	if replyID != "reply-1" {
		t.Fatalf("reply id = %q", replyID)
	}
}

func TestCountReactions(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/post-9/reactions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"summary": map[string]any{"total_count": 17},
		})
	}))

	count, err := client.CountReactions(context.Background(), "post-9")
	if err != nil {
		t.Fatalf("count reactions: %v", err)
	}
	if count != 17 {
		t.Fatalf("reactions = %d, want 17", count)
	}
}

func TestPublishWithoutCredentials(t *testing.T) {
	client := NewClient("http://example.invalid", "", "", time.Second, nil)
	if _, err := client.Publish(context.Background(), "msg", ""); err == nil {
		t.Fatal("missing credentials must fail before any request")
	}
}
