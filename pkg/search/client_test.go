package search

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/grantinsight/gisearch/pkg/config"
)

func newTestEndpoint(t *testing.T, handler http.HandlerFunc) (*AjaxClient, *httptest.Server) {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	client := NewAjaxClient(config.EndpointConfig{AjaxURL: ts.URL, Nonce: "abc123"})
	return client, ts
}

func TestAjaxClientSearchPostsForm(t *testing.T) {
	var got Params
	client, _ := newTestEndpoint(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
			t.Errorf("Content-Type = %q", ct)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if r.PostForm.Get("action") != "gi_unified_search" || r.PostForm.Get("nonce") != "abc123" {
			t.Errorf("unexpected action/nonce: %v", r.PostForm)
		}
		got = ParseParams(r.PostForm)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"data":{"grants":[{"id":7,"title":"事業再構築補助金"}],"pagination":""}}`))
	})

	want := Params{Search: "IT補助金", Amount: "0-100,100-500", OrderBy: "date_desc", PostsPerPage: 12, Page: 2}
	resp, err := client.Search(context.Background(), want)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if got != want {
		t.Errorf("server saw %+v, want %+v", got, want)
	}
	if !resp.Success || resp.Data == nil || len(resp.Data.Grants) != 1 {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.Data.Grants[0].Card().ID != "7" {
		t.Errorf("grant id = %q", resp.Data.Grants[0].Card().ID)
	}
}

func TestAjaxClientErrorReplies(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		expectError bool
		message     string
	}{
		{name: "json error with 400", status: http.StatusBadRequest, body: `{"success":false,"data":"invalid filter"}`, message: "invalid filter"},
		{name: "html error page", status: http.StatusInternalServerError, body: `<h1>Internal Server Error</h1>`, expectError: true},
		{name: "ok with garbage", status: http.StatusOK, body: `not json`, expectError: true},
		{name: "wordpress -1", status: http.StatusForbidden, body: `-1`, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestEndpoint(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			resp, err := client.Search(context.Background(), DefaultParams())
			if tt.expectError {
				if err == nil {
					t.Fatal("Expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if resp.Success {
				t.Error("expected an unsuccessful response")
			}
			if resp.ErrorText() != tt.message {
				t.Errorf("ErrorText() = %q, want %q", resp.ErrorText(), tt.message)
			}
		})
	}
}

func TestAjaxClientHonorsContext(t *testing.T) {
	release := make(chan struct{})
	client, _ := newTestEndpoint(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := client.Search(ctx, DefaultParams())
	if err == nil {
		t.Fatal("expected an error from a cancelled request")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want deadline exceeded", err)
	}
}

func TestAjaxClientSuggest(t *testing.T) {
	client, _ := newTestEndpoint(t, func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.PostForm.Get("action") != "gi_search_suggest" {
			w.Write([]byte(`{"success":false}`))
			return
		}
		kw := r.PostForm.Get("keyword")
		if !strings.HasPrefix("補助金", kw) {
			w.Write([]byte(`{"success":true,"data":[]}`))
			return
		}
		w.Write([]byte(`{"success":true,"data":["補助金","補助金 IT",""]}`))
	})

	got, err := client.Suggest(context.Background(), "補助")
	if err != nil {
		t.Fatalf("Suggest failed: %v", err)
	}
	if want := []string{"補助金", "補助金 IT"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Suggest = %v, want %v", got, want)
	}

	got, err = client.Suggest(context.Background(), "xyz")
	if err != nil || len(got) != 0 {
		t.Errorf("Suggest(xyz) = %v, %v", got, err)
	}
}
