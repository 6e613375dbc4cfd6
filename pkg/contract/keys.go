package contract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/mesh-intelligence/confsched/pkg/types"
)

var (
	parenRun      = regexp.MustCompile(`\(.*?\)`)
	whitespaceRun = regexp.MustCompile(`\s+`)
	disallowed    = regexp.MustCompile(`[^a-z0-9_-]`)
)

// SanitizeID turns free text into a stable key fragment: lowercase, each run
// of whitespace collapsed to "-", anything outside [a-z0-9_-] removed. With
// stripParen, parenthesized text is dropped first.
func SanitizeID(input string, stripParen bool) string {
	if stripParen {
		input = parenRun.ReplaceAllString(input, "")
	}
	s := strings.ToLower(strings.TrimSpace(input))
	s = whitespaceRun.ReplaceAllString(s, "-")
	return disallowed.ReplaceAllString(s, "")
}

// DeriveKey computes the content-derived natural key of an entity so that
// repeated syncs of the same logical entity land on the same row.
//
// Blocks take (startMillis, endMillis). Tracks, rooms, sessions and speakers
// take a display name. Sandbox companies take the company name.
func DeriveKey(t Table, fields ...string) (string, error) {
	var key string
	switch t {
	case TableBlocks:
		if len(fields) != 2 {
			return "", fmt.Errorf("%w: block key needs start and end, got %d fields", types.ErrInvalidArgs, len(fields))
		}
		start, err := strconv.ParseInt(strings.TrimSpace(fields[0]), 10, 64)
		if err != nil {
			return "", fmt.Errorf("%w: block start: %v", types.ErrInvalidArgs, err)
		}
		end, err := strconv.ParseInt(strings.TrimSpace(fields[1]), 10, 64)
		if err != nil {
			return "", fmt.Errorf("%w: block end: %v", types.ErrInvalidArgs, err)
		}
		key = SanitizeID(strconv.FormatInt(start/1000, 10)+"-"+strconv.FormatInt(end/1000, 10), false)
	case TableTracks, TableRooms, TableSessions, TableSpeakers, TableSandbox:
		if len(fields) != 1 {
			return "", fmt.Errorf("%w: %s key needs one name, got %d fields", types.ErrInvalidArgs, t, len(fields))
		}
		key = SanitizeID(fields[0], false)
	default:
		return "", fmt.Errorf("%w: no derived key for %s", types.ErrUnsupportedResource, t)
	}
	if key == "" {
		return "", fmt.Errorf("%w: %s key is empty after sanitizing", types.ErrInvalidArgs, t)
	}
	return key, nil
}
