package security

import (
	"net/url"
	"regexp"
	"strings"
)

// sensitiveParams are query parameters whose values are always masked.
var sensitiveParams = map[string]bool{
	"key":          true,
	"api_key":      true,
	"apikey":       true,
	"token":        true,
	"access_token": true,
	"secret":       true,
	"password":     true,
	"sig":          true,
	"signature":    true,
}

// Long opaque path segments, as in hook URLs that carry their secret in the path.
var tokenSegment = regexp.MustCompile(`^[A-Za-z0-9_\-]{20,}$`)

// MaskCredential masks a credential value for logging.
func MaskCredential(value string) string {
	if len(value) == 0 {
		return ""
	}
	if len(value) <= 4 {
		return strings.Repeat("*", len(value))
	}
	if len(value) <= 8 {
		return value[:2] + strings.Repeat("*", len(value)-2)
	}
	return value[:4] + strings.Repeat("*", len(value)-8) + value[len(value)-4:]
}

// MaskURL hides the password, secret query values and token-like path
// segments of a URL. Unparseable input is masked whole.
func MaskURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return MaskCredential(raw)
	}

	if u.User != nil {
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), "***")
		}
	}

	segments := strings.Split(u.Path, "/")
	for i, seg := range segments {
		if tokenSegment.MatchString(seg) {
			segments[i] = MaskCredential(seg)
		}
	}
	u.Path = strings.Join(segments, "/")
	u.RawPath = ""

	if u.RawQuery != "" {
		q := u.Query()
		for k, vs := range q {
			if sensitiveParams[strings.ToLower(k)] {
				for i := range vs {
					vs[i] = MaskCredential(vs[i])
				}
			}
		}
		u.RawQuery = q.Encode()
	}

	return u.String()
}
