package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/ad-tracker/video-moderation-go/internal/models"
)

func TestValidator_ValidateVideoID(t *testing.T) {
	v := New()

	tests := []struct {
		name    string
		id      string
		wantErr bool
		errIs   error
	}{
		{name: "dailymotion id", id: "x8abc12"},
		{name: "numeric id", id: "123456"},
		{name: "underscore and dash", id: "not_spam-0"},
		{name: "empty", id: "", wantErr: true, errIs: ErrEmptyVideoID},
		{name: "space", id: "x8 abc", wantErr: true},
		{name: "slash", id: "x8/abc", wantErr: true},
		{name: "unicode", id: "vidéo", wantErr: true},
		{name: "too long", id: strings.Repeat("a", MaxVideoIDLength+1), wantErr: true},
		{name: "max length", id: strings.Repeat("a", MaxVideoIDLength)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateVideoID(tt.id)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateVideoID(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
			}
			if tt.errIs != nil && !errors.Is(err, tt.errIs) {
				t.Errorf("ValidateVideoID(%q) error = %v, want %v", tt.id, err, tt.errIs)
			}
			if got := v.IsValidVideoID(tt.id); got == tt.wantErr {
				t.Errorf("IsValidVideoID(%q) = %v", tt.id, got)
			}
		})
	}
}

func TestValidator_IsResolvableVideoID(t *testing.T) {
	v := New()

	tests := []struct {
		id   string
		want bool
	}{
		{"x8abc12", true},
		{"test4040", true},
		{"test404", false},
		{"404", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := v.IsResolvableVideoID(tt.id); got != tt.want {
			t.Errorf("IsResolvableVideoID(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}

func TestValidator_ValidateModerator(t *testing.T) {
	v := New()

	tests := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{name: "plain", in: "john.doe"},
		{name: "email", in: "alice@example.com"},
		{name: "empty", in: "", wantErr: true},
		{name: "blank", in: "   ", wantErr: true},
		{name: "control character", in: "bob\n", wantErr: true},
		{name: "nul byte", in: "bob\x00", wantErr: true},
		{name: "invalid utf-8", in: "\xff\xfe", wantErr: true},
		{name: "utf-8 name", in: "zoé"},
		{name: "too long", in: strings.Repeat("m", MaxModeratorLength+1), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := v.ValidateModerator(tt.in); (err != nil) != tt.wantErr {
				t.Errorf("ValidateModerator(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
		})
	}
}

func TestValidator_ValidateFlagRequest(t *testing.T) {
	v := New()

	tests := []struct {
		name    string
		req     *models.FlagVideoRequest
		wantErr bool
	}{
		{name: "valid", req: &models.FlagVideoRequest{VideoID: "x8abc12", Status: "spam"}},
		{name: "unknown status passes shape check", req: &models.FlagVideoRequest{VideoID: "x8abc12", Status: "maybe"}},
		{name: "missing status", req: &models.FlagVideoRequest{VideoID: "x8abc12"}, wantErr: true},
		{name: "bad id", req: &models.FlagVideoRequest{VideoID: "bad id", Status: "spam"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := v.ValidateFlagRequest(tt.req); (err != nil) != tt.wantErr {
				t.Errorf("ValidateFlagRequest() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
