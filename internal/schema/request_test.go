package schema

import (
	"errors"
	"strings"
	"testing"
)

func TestAnalyzeRequest_ExactlyOneInput(t *testing.T) {
	var empty AnalyzeRequest
	if err := empty.Validate(); !errors.Is(err, ErrMissingInput) {
		t.Errorf("Validate() error = %v, want ErrMissingInput", err)
	}

	both := AnalyzeRequest{URL: "https://example.com", Text: "hi"}
	if err := both.Validate(); !errors.Is(err, ErrBothInputs) {
		t.Errorf("Validate() error = %v, want ErrBothInputs", err)
	}
}

func TestAnalyzeRequest_URLValidation(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"valid https", "https://reddit.com/r/news/comments/abc/title/", false},
		{"valid http", "http://example.com/post", false},
		{"ftp scheme", "ftp://example.com/file", true},
		{"no host", "https://", true},
		{"localhost", "https://localhost/admin", true},
		{"loopback ip", "http://127.0.0.1:8080/", true},
		{"private ip", "http://10.0.0.5/internal", true},
		{"link local", "http://169.254.169.254/latest/meta-data", true},
		{"unspecified", "http://0.0.0.0/", true},
		{"too long", "https://example.com/" + strings.Repeat("a", MaxRequestURLLen), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := AnalyzeRequest{URL: tt.url}
			err := req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAnalyzeRequest_TextValidation(t *testing.T) {
	ok := AnalyzeRequest{Text: "some pasted content"}
	if err := ok.Validate(); err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}

	blank := AnalyzeRequest{Text: "   \n\t "}
	if err := blank.Validate(); err == nil {
		t.Error("expected error for blank text")
	}

	nullByte := AnalyzeRequest{Text: "hello\x00world"}
	if err := nullByte.Validate(); err == nil {
		t.Error("expected error for text with null byte")
	}

	long := AnalyzeRequest{Text: strings.Repeat("a", MaxRequestTextLen+1)}
	if err := long.Validate(); err == nil {
		t.Error("expected error for oversized text")
	}
}

func TestAnalyzeRequest_PlatformHint(t *testing.T) {
	req := AnalyzeRequest{Text: "hi", PlatformHint: "Reddit"}
	if err := req.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if req.PlatformHint != "reddit" {
		t.Errorf("PlatformHint = %q, want normalized %q", req.PlatformHint, "reddit")
	}

	bad := AnalyzeRequest{Text: "hi", PlatformHint: "myspace"}
	if err := bad.Validate(); err == nil {
		t.Error("expected error for unknown platform hint")
	}
}
