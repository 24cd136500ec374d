package notification

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"trading-analytics/internal/report"
)

func sampleReport() report.Report {
	v := 1.08
	return report.Report{
		RunID:     "run-1",
		Series:    "NSE:99926000:60s",
		Strategy:  "SMA_Crossover_9_21",
		Bars:      375,
		Positions: 4,
		Results: []report.Result{
			{Criterion: "gross-return", Value: &v, Text: "1.08"},
			{Criterion: "sortino", Text: "NaN"},
		},
	}
}

func TestSummary(t *testing.T) {
	got := Summary(sampleReport())
	want := "SMA_Crossover_9_21 on NSE:99926000:60s: 4 positions over 375 bars\n" +
		"gross-return = 1.08\nsortino = NaN\nrun run-1"
	if got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestWebhook_PostsReport(t *testing.T) {
	var got struct {
		RunID   string          `json:"run_id"`
		Results []report.Result `json:"results"`
		SentAt  string          `json:"sent_at"`
	}
	var header string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header = r.Header.Get("X-Run-ID")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Error(err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	if err := NewWebhookNotifier(srv.URL).Save(context.Background(), sampleReport()); err != nil {
		t.Fatal(err)
	}
	if header != "run-1" || got.RunID != "run-1" || got.SentAt == "" {
		t.Errorf("payload: %+v header=%q", got, header)
	}
	if len(got.Results) != 2 || got.Results[1].Value != nil {
		t.Errorf("results: %+v", got.Results)
	}
}

func TestWebhook_Non2xxFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()
	err := NewWebhookNotifier(srv.URL).Save(context.Background(), sampleReport())
	if err == nil || !strings.Contains(err.Error(), "502") {
		t.Errorf("got %v", err)
	}
}

func TestTelegram_SendsEscapedSummary(t *testing.T) {
	var path string
	var body map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		json.NewDecoder(r.Body).Decode(&body)
	}))
	defer srv.Close()

	n := NewTelegramNotifier("TOKEN", "42")
	n.apiBase = srv.URL
	if err := n.Save(context.Background(), sampleReport()); err != nil {
		t.Fatal(err)
	}
	if path != "/botTOKEN/sendMessage" {
		t.Errorf("path: %s", path)
	}
	if body["chat_id"] != "42" || body["parse_mode"] != "MarkdownV2" {
		t.Errorf("body: %+v", body)
	}
	if !strings.HasPrefix(body["text"], "*SMA\\_Crossover\\_9\\_21 on") || !strings.Contains(body["text"], "1\\.08") {
		t.Errorf("text: %q", body["text"])
	}
}

func TestEscapeMarkdown(t *testing.T) {
	if got := escapeMarkdown("a_b.c!"); got != `a\_b\.c\!` {
		t.Errorf("got %q", got)
	}
}

func TestLogNotifier(t *testing.T) {
	var buf strings.Builder
	n := &LogNotifier{Logger: slog.New(slog.NewTextHandler(io.MultiWriter(&buf), nil))}
	if err := n.Save(context.Background(), sampleReport()); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "run_id=run-1") {
		t.Errorf("log: %s", buf.String())
	}
}
