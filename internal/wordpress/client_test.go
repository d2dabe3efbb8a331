package wordpress

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nordvik/plume/internal/apperr"
)

func testConfig(baseURL string) Config {
	return Config{BaseURL: baseURL, Username: "admin", Password: "pw"}
}

func TestNotConfigured(t *testing.T) {
	cases := []Config{
		{},
		{BaseURL: "https://blog.example"},
		{BaseURL: "https://blog.example", Username: "admin"},
		{Username: "admin", Password: "pw"},
	}
	for _, cfg := range cases {
		c := New(cfg, time.Second)
		if _, err := c.ListCategories(context.Background()); !errors.Is(err, apperr.ErrNotConfigured) {
			t.Errorf("ListCategories(%+v) err = %v, want ErrNotConfigured", cfg, err)
		}
		if _, err := c.CreatePost(context.Background(), Post{}); !errors.Is(err, apperr.ErrNotConfigured) {
			t.Errorf("CreatePost(%+v) err = %v, want ErrNotConfigured", cfg, err)
		}
		if _, err := c.UploadMedia(context.Background(), []byte("x"), "x.png", "image/png"); !errors.Is(err, apperr.ErrNotConfigured) {
			t.Errorf("UploadMedia(%+v) err = %v, want ErrNotConfigured", cfg, err)
		}
	}
}

func TestListCategories(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/wp-json/wp/v2/categories" {
			t.Errorf("path = %s", r.URL.Path)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "admin" || pass != "pw" {
			t.Errorf("basic auth = %q/%q ok=%v", user, pass, ok)
		}
		_, _ = w.Write([]byte(`[{"id":3,"name":"News"},{"id":7,"name":"Guides"}]`))
	}))
	defer srv.Close()

	cats, err := New(testConfig(srv.URL), time.Second).ListCategories(context.Background())
	if err != nil {
		t.Fatalf("ListCategories: %v", err)
	}
	if len(cats) != 2 || cats[0].ID != 3 || cats[1].Name != "Guides" {
		t.Errorf("cats = %+v", cats)
	}
}

func TestCreatePost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/wp-json/wp/v2/posts" || r.Method != http.MethodPost {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":42,"link":"https://blog.example/?p=42"}`))
	}))
	defer srv.Close()

	res, err := New(testConfig(srv.URL), time.Second).CreatePost(context.Background(), Post{
		Title: "T", Content: "<p>b</p>", Status: "publish", Categories: []int{3},
	})
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	if res.ID != 42 || res.Link == "" {
		t.Errorf("result = %+v", res)
	}
}

func TestCreatePostUpstreamBodyPreserved(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"code":"rest_cannot_create"}`))
	}))
	defer srv.Close()

	_, err := New(testConfig(srv.URL), time.Second).CreatePost(context.Background(), Post{Title: "T"})
	ue := apperr.Upstream(err)
	if ue == nil {
		t.Fatalf("err = %v, want UpstreamError", err)
	}
	if ue.Status != http.StatusForbidden || ue.Body != `{"code":"rest_cannot_create"}` {
		t.Errorf("upstream = %+v", ue)
	}
}

func TestUploadMedia(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/wp-json/wp/v2/media" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Content-Type"); got != "image/png" {
			t.Errorf("content type = %q", got)
		}
		if got := r.Header.Get("Content-Disposition"); got != `attachment; filename="pic.png"` {
			t.Errorf("disposition = %q", got)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":7,"source_url":"https://blog.example/pic.png"}`))
	}))
	defer srv.Close()

	media, err := New(testConfig(srv.URL), time.Second).UploadMedia(context.Background(), []byte("png-bytes"), "pic.png", "image/png")
	if err != nil {
		t.Fatalf("UploadMedia: %v", err)
	}
	if media.ID != 7 || media.SourceURL != "https://blog.example/pic.png" {
		t.Errorf("media = %+v", media)
	}
}

func TestUploadMediaParseFailureDespite2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"unexpected":"shape"}`))
	}))
	defer srv.Close()

	_, err := New(testConfig(srv.URL), time.Second).UploadMedia(context.Background(), []byte("x"), "x.png", "image/png")
	if !errors.Is(err, apperr.ErrParse) {
		t.Errorf("err = %v, want ErrParse", err)
	}
}

func TestUploadMediaRateLimitCarriesRetryAfter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "5")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("slow down"))
	}))
	defer srv.Close()

	_, err := New(testConfig(srv.URL), time.Second).UploadMedia(context.Background(), []byte("x"), "x.png", "image/png")
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want StatusError", err)
	}
	if se.Status != http.StatusTooManyRequests || se.RetryAfter != "5" {
		t.Errorf("status error = %+v", se)
	}
	// The embedded upstream error is still reachable.
	if ue := apperr.Upstream(err); ue == nil || ue.Body != "slow down" {
		t.Errorf("Upstream(err) = %+v", ue)
	}
}
