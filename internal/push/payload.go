package push

import (
	"net/url"
	"strings"
)

var reservedDataKeys = map[string]struct{}{
	"from":         {},
	"notification": {},
	"message_type": {},
	"collapse_key": {},
}

// ReservedDataKey reports whether FCM refuses key in a data payload.
func ReservedDataKey(key string) bool {
	k := strings.ToLower(strings.TrimSpace(key))
	if _, ok := reservedDataKeys[k]; ok {
		return true
	}
	return k == "" || strings.HasPrefix(k, "google") || strings.HasPrefix(k, "gcm")
}

// PayloadData copies data without reserved keys. It returns nil for an empty result.
func PayloadData(data map[string]string) map[string]string {
	var out map[string]string
	for k, v := range data {
		if ReservedDataKey(k) {
			continue
		}
		if out == nil {
			out = make(map[string]string, len(data))
		}
		out[k] = v
	}
	return out
}

// CleanImageURL returns raw when it is an absolute http(s) URL and "" otherwise.
func CleanImageURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ""
	}
	return raw
}
