package storage

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrUnsupportedContentType = errors.New("unsupported image content type")

// ScoreboardKey builds "<tournament>/<team>/map_<n>_<unixmilli><ext>".
func ScoreboardKey(tournamentID, teamID uuid.UUID, mapNumber int, at time.Time, ext string) string {
	return fmt.Sprintf("%s/%s/map_%d_%d%s", tournamentID, teamID, mapNumber, at.UnixMilli(), ext)
}

// ScoreboardKeyBelongsTo reports whether key was produced for this tournament and team.
func ScoreboardKeyBelongsTo(key string, tournamentID, teamID uuid.UUID) bool {
	prefix := tournamentID.String() + "/" + teamID.String() + "/"
	return strings.HasPrefix(key, prefix) && len(key) > len(prefix) && !strings.Contains(key[len(prefix):], "/")
}

// ExtensionForImage maps an image content type to a file extension.
func ExtensionForImage(contentType string) (string, error) {
	mediaType := strings.TrimSpace(strings.ToLower(strings.SplitN(contentType, ";", 2)[0]))
	switch mediaType {
	case "image/jpeg", "image/jpg":
		return ".jpg", nil
	case "image/png":
		return ".png", nil
	case "image/webp":
		return ".webp", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedContentType, contentType)
	}
}
