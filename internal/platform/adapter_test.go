package platform

import (
	"strings"
	"testing"

	config "github.com/postpilothq/postpilot/configs"
)

func testRegistry() *Registry {
	cfg := config.Config{}
	return NewRegistry(
		NewLinkedinAdapter(cfg),
		NewTwitterAdapter(cfg),
		NewFacebookAdapter(cfg),
	)
}

func TestRegistry_Lookup(t *testing.T) {
	reg := testRegistry()

	for _, name := range []string{"linkedin", "twitter", "facebook"} {
		adapter, ok := reg.Get(name)
		if !ok {
			t.Fatalf("adapter %q should be registered", name)
		}
		if adapter.Platform() != name {
			t.Errorf("adapter reports platform %q, want %q", adapter.Platform(), name)
		}
	}

	if _, ok := reg.Get("tiktok"); ok {
		t.Error("unregistered platform should not resolve")
	}
}

func TestRegistry_Capabilities(t *testing.T) {
	reg := testRegistry()

	tests := []struct {
		platform     string
		wantUploader bool
		wantRefresh  bool
	}{
		{"linkedin", true, true},
		{"twitter", false, true},
		{"facebook", true, false},
	}

	for _, tt := range tests {
		adapter, _ := reg.Get(tt.platform)
		if _, ok := adapter.(MediaUploader); ok != tt.wantUploader {
			t.Errorf("%s: MediaUploader = %v, want %v", tt.platform, ok, tt.wantUploader)
		}
		if _, ok := adapter.(TokenRefresher); ok != tt.wantRefresh {
			t.Errorf("%s: TokenRefresher = %v, want %v", tt.platform, ok, tt.wantRefresh)
		}
	}
}

func TestTwitterAdapter_AdaptContent(t *testing.T) {
	a := NewTwitterAdapter(config.Config{})

	short := "just a tweet"
	if got := a.AdaptContent(short, ContentOptions{}); got != short {
		t.Errorf("short content should pass through, got %q", got)
	}

	long := strings.Repeat("word ", 100)
	got := a.AdaptContent(long, ContentOptions{})
	if n := len([]rune(got)); n > twitterMaxLength {
		t.Errorf("adapted content is %d runes, want <= %d", n, twitterMaxLength)
	}
	if !strings.HasSuffix(got, "…") {
		t.Errorf("truncated content should end with ellipsis, got %q", got)
	}
}

func TestLinkedinAdapter_AdaptContent(t *testing.T) {
	a := NewLinkedinAdapter(config.Config{})

	got := a.AdaptContent("  padded  ", ContentOptions{})
	if got != "padded" {
		t.Errorf("content should be trimmed, got %q", got)
	}

	long := strings.Repeat("x", linkedinMaxLength+50)
	got = a.AdaptContent(long, ContentOptions{})
	if n := len([]rune(got)); n > linkedinMaxLength {
		t.Errorf("adapted content is %d runes, want <= %d", n, linkedinMaxLength)
	}
}
