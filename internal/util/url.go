package util

import (
	"net/url"
	"strings"
)

// IsRedirectSafe reports whether the login form may send the browser to
// redirectURL afterwards: a local path, or an http(s) URL on the issuer's own
// host. An empty value is safe and means the landing page.
func IsRedirectSafe(redirectURL, baseURL string) bool {
	switch {
	case redirectURL == "":
		return true
	case strings.ContainsAny(redirectURL, "\r\n\\"):
		return false
	case strings.HasPrefix(redirectURL, "//"):
		return false
	case strings.HasPrefix(redirectURL, "/"):
		return true
	}

	u, err := url.Parse(redirectURL)
	if err != nil {
		return false
	}
	if u.Scheme != "" && u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	if u.Host == "" {
		return true
	}
	base, err := url.Parse(baseURL)
	return err == nil && u.Host == base.Host
}

// AppendQuery adds params to rawURL, preserving any query it already carries.
// Empty values are skipped.
func AppendQuery(rawURL string, params map[string]string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	for k, v := range params {
		if v != "" {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
