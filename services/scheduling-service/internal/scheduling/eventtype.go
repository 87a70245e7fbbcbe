package scheduling

import (
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// parseEventType accepts a bare event type UUID or a provider resource URI
// ending in /event_types/<uuid>.
func parseEventType(raw string) (string, error) {
	id := strings.TrimSpace(raw)
	if id == "" {
		return "", invalid("event_type", "required")
	}
	if _, err := uuid.Parse(id); err == nil && !strings.ContainsAny(id, "{}:") {
		return id, nil
	}

	u, err := url.Parse(id)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" ||
		u.User != nil || u.RawQuery != "" || u.Fragment != "" || u.RawPath != "" {
		return "", invalid("event_type", "malformed")
	}
	segments := strings.Split(strings.TrimPrefix(u.Path, "/"), "/")
	n := len(segments)
	if n < 2 || segments[n-2] != "event_types" {
		return "", invalid("event_type", "malformed")
	}
	for _, seg := range segments[:n-1] {
		if seg == "" || seg == "." || seg == ".." {
			return "", invalid("event_type", "malformed")
		}
	}
	if _, err := uuid.Parse(segments[n-1]); err != nil || strings.ContainsAny(segments[n-1], "{}:") {
		return "", invalid("event_type", "malformed")
	}
	return id, nil
}
