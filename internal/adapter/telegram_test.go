package adapter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/safetycheck/safetycheck/internal/logger"
)

const telegramEmbedHTML = `<!DOCTYPE html>
<html><body>
<div class="tgme_widget_message">
  <div class="tgme_widget_message_owner_name">Crypto Signals</div>
  <a class="tgme_widget_message_photo_wrap" style="width:800px;background-image:url('https://cdn.telesco.pe/file/photo.jpg')"></a>
  <div class="tgme_widget_message_text">Guaranteed 10x returns, join at https://pump.example/join</div>
  <span class="tgme_widget_message_views">3.4K</span>
  <span class="tgme_widget_message_date"><time datetime="2024-05-01T10:30:00+00:00"></time></span>
</div>
</body></html>`

func TestTelegramAdapter_CanHandle(t *testing.T) {
	a := NewTelegramAdapter(TelegramConfig{}, logger.NewNop())

	tests := []struct {
		url  string
		want bool
	}{
		{"https://t.me/channel/123", true},
		{"https://t.me/s/channel/123", true},
		{"https://t.me/channel", false},
		{"https://telegram.org/channel/123", false},
	}
	for _, tt := range tests {
		if got := a.CanHandle(tt.url); got != tt.want {
			t.Errorf("CanHandle(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

func TestTelegramAdapter_Extract(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cryptosignals/456" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		_, _ = w.Write([]byte(telegramEmbedHTML))
	}))
	defer srv.Close()

	a := NewTelegramAdapter(TelegramConfig{BaseURL: srv.URL}, logger.NewNop())
	post, err := a.Extract(context.Background(), "https://t.me/cryptosignals/456")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if post.PostID != "telegram_cryptosignals_456" {
		t.Errorf("PostID = %q", post.PostID)
	}
	if post.PostText != "Guaranteed 10x returns, join at https://pump.example/join" {
		t.Errorf("PostText = %q", post.PostText)
	}
	if post.AuthorMetadata == nil || post.AuthorMetadata.AuthorType != "organization" {
		t.Errorf("AuthorMetadata = %+v", post.AuthorMetadata)
	}
	if len(post.MediaItems) != 1 || post.MediaItems[0].URL != "https://cdn.telesco.pe/file/photo.jpg" {
		t.Errorf("MediaItems = %+v", post.MediaItems)
	}
	if post.EngagementMetrics == nil || *post.EngagementMetrics.Views != 3400 {
		t.Errorf("EngagementMetrics = %+v", post.EngagementMetrics)
	}
	if len(post.ExternalLinks) != 1 || post.ExternalLinks[0] != "https://pump.example/join" {
		t.Errorf("ExternalLinks = %v", post.ExternalLinks)
	}
	if post.Timestamp == nil {
		t.Error("Timestamp missing")
	}
}

func TestTelegramAdapter_Extract_EmptyMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body>nothing here</body></html>`))
	}))
	defer srv.Close()

	a := NewTelegramAdapter(TelegramConfig{BaseURL: srv.URL}, logger.NewNop())
	_, err := a.Extract(context.Background(), "https://t.me/ghost/1")
	if !IsContentExtraction(err) {
		t.Errorf("Extract() error = %v, want ContentExtractionError", err)
	}
}

func TestTelegramAdapter_Extract_PrivateChannel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body>This channel is private</body></html>`))
	}))
	defer srv.Close()

	a := NewTelegramAdapter(TelegramConfig{BaseURL: srv.URL}, logger.NewNop())
	_, err := a.Extract(context.Background(), "https://t.me/secret/1")
	if !IsContentExtraction(err) {
		t.Errorf("Extract() error = %v, want ContentExtractionError", err)
	}
}

func TestParseApproxCount(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"987", 987},
		{"3.4K", 3400},
		{"1.2M", 1200000},
		{"12K", 12000},
		{"garbage", -1},
		{"", -1},
	}
	for _, tt := range tests {
		if got := parseApproxCount(tt.in); got != tt.want {
			t.Errorf("parseApproxCount(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
