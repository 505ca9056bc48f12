package leetcode

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestRecentAcceptedFiltersStatus(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req gqlRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Variables["username"] != "alice" {
			t.Errorf("username = %v", req.Variables["username"])
		}
		_, _ = w.Write([]byte(`{"data":{"recentSubmissionList":[
			{"title":"Two Sum","titleSlug":"two-sum","timestamp":"1700000000","statusDisplay":"Accepted","lang":"go"},
			{"title":"Add Two","titleSlug":"add-two","timestamp":"1700000100","statusDisplay":"Wrong Answer","lang":"go"},
			{"title":"Three Sum","titleSlug":"three-sum","timestamp":"1700000200","statusDisplay":"Accepted","lang":"cpp"}
		]}}`))
	}))
	defer srv.Close()

	c := New(Config{Endpoint: srv.URL}, discardLogger())
	subs, err := c.RecentAccepted(context.Background(), "alice")
	if err != nil {
		t.Fatalf("RecentAccepted: %v", err)
	}
	if len(subs) != 2 {
		t.Fatalf("got %d submissions, want 2 accepted", len(subs))
	}
	if subs[0].ProblemID != "two-sum" || subs[0].Lang != "go" {
		t.Fatalf("unexpected first submission: %+v", subs[0])
	}
	if subs[0].AcceptedAt.Unix() != 1700000000 {
		t.Fatalf("timestamp = %v", subs[0].AcceptedAt)
	}
	if subs[1].ProblemID != "three-sum" {
		t.Fatalf("unexpected second submission: %+v", subs[1])
	}
}

func TestRecentAcceptedErrors(t *testing.T) {
	t.Parallel()
	t.Run("http status", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()
		c := New(Config{Endpoint: srv.URL}, discardLogger())
		if _, err := c.RecentAccepted(context.Background(), "alice"); err == nil {
			t.Fatal("expected error on 429")
		}
	})
	t.Run("graphql error", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"errors":[{"message":"user not found"}]}`))
		}))
		defer srv.Close()
		c := New(Config{Endpoint: srv.URL}, discardLogger())
		if _, err := c.RecentAccepted(context.Background(), "ghost"); err == nil {
			t.Fatal("expected error from graphql errors")
		}
	})
}

func TestLanguageCatalog(t *testing.T) {
	t.Parallel()
	if LangName("cpp") != "C++" || LangValue("C++") != "cpp" {
		t.Fatal("cpp mapping wrong")
	}
	if !KnownLang("go") || KnownLang("brainfuck") {
		t.Fatal("KnownLang wrong")
	}
	if LangName("nope") != "" {
		t.Fatal("unknown language mapped")
	}
}
