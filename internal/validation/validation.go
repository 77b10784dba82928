// Package validation checks the format of identifiers supplied by callers.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ad-tracker/video-moderation-go/internal/models"
)

const (
	// MaxVideoIDLength matches the width of videos.id.
	MaxVideoIDLength = 64
	// MaxModeratorLength matches the width of moderation_log.moderator.
	MaxModeratorLength = 100

	// unresolvableSuffix marks ids the metadata provider is known not to serve.
	unresolvableSuffix = "404"
)

var videoIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

var (
	// ErrEmptyVideoID is returned when no video id was supplied.
	ErrEmptyVideoID = errors.New("video ID is required")
	// ErrEmptyModerator is returned when no moderator identity was supplied.
	ErrEmptyModerator = errors.New("moderator is required")
)

// Validator validates video ids and moderator names.
type Validator struct {
	maxVideoIDLength   int
	maxModeratorLength int
}

// New creates a Validator using the storage column widths.
func New() *Validator {
	return &Validator{
		maxVideoIDLength:   MaxVideoIDLength,
		maxModeratorLength: MaxModeratorLength,
	}
}

// ValidateVideoID checks that id is a non-empty provider id of allowed characters.
func (v *Validator) ValidateVideoID(id string) error {
	if id == "" {
		return ErrEmptyVideoID
	}
	if len(id) > v.maxVideoIDLength {
		return fmt.Errorf("video ID exceeds %d characters", v.maxVideoIDLength)
	}
	if !videoIDRegex.MatchString(id) {
		return fmt.Errorf("invalid video ID format: %s", id)
	}
	return nil
}

// IsValidVideoID reports whether ValidateVideoID accepts id.
func (v *Validator) IsValidVideoID(id string) bool {
	return v.ValidateVideoID(id) == nil
}

// IsResolvableVideoID reports whether metadata can be requested for id.
// Ids ending in "404" are rejected up front.
func (v *Validator) IsResolvableVideoID(id string) bool {
	return v.IsValidVideoID(id) && !strings.HasSuffix(id, unresolvableSuffix)
}

// ValidateModerator checks a resolved moderator identity.
func (v *Validator) ValidateModerator(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyModerator
	}
	if len(name) > v.maxModeratorLength {
		return fmt.Errorf("moderator exceeds %d characters", v.maxModeratorLength)
	}
	if !utf8.ValidString(name) {
		return errors.New("moderator is not valid UTF-8")
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return fmt.Errorf("moderator contains control characters")
		}
	}
	return nil
}

// ValidateFlagRequest checks the shape of a verdict request. Whether the
// status is an allowed verdict is decided by the moderation service.
func (v *Validator) ValidateFlagRequest(req *models.FlagVideoRequest) error {
	if err := v.ValidateVideoID(req.VideoID); err != nil {
		return err
	}
	if req.Status == "" {
		return errors.New("status is required")
	}
	return nil
}
