// Package auth consumes the credentials produced by the external
// browser login step: a Netscape-format cookie file and a small
// settings document holding the account's SteamID64. It performs no
// authentication itself.
package auth

import (
	"bufio"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strings"
)

// LoadCookies parses a Netscape HTTP cookie file into cookies usable
// with an http.CookieJar. Malformed lines are skipped.
func LoadCookies(path string) ([]*http.Cookie, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open cookie file: %w", err)
	}
	defer f.Close()

	var cookies []*http.Cookie
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		// domain, include_subdomains, path, secure, expires, name, value
		fields := strings.Split(line, "\t")
		if len(fields) < 7 {
			continue
		}
		cookies = append(cookies, &http.Cookie{
			Domain: fields[0],
			Path:   fields[2],
			Secure: strings.EqualFold(fields[3], "TRUE"),
			Name:   fields[5],
			Value:  fields[6],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read cookie file: %w", err)
	}
	return cookies, nil
}

// NewJar builds a cookie jar holding the given cookies for host. The
// jar is shared by the inventory and market clients so the session is
// presented consistently to the marketplace.
func NewJar(host string, cookies []*http.Cookie) (http.CookieJar, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	u := &url.URL{Scheme: "https", Host: host}
	jar.SetCookies(u, cookies)
	return jar, nil
}
