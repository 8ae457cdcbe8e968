package utils

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/idna"
)

var urlRegex = regexp.MustCompile(`https?://[^\s]+`)

var inviteRegex = regexp.MustCompile(`(?i)(https?://)?(www\.)?(discord\.(gg|io|me|li)|discordapp\.com/invite)/.+`)

func ExtractURLs(content string) []string {
	return urlRegex.FindAllString(content, -1)
}

func ContainsLink(content string) bool {
	return urlRegex.MatchString(content)
}

func ContainsInvite(content string) bool {
	return inviteRegex.MatchString(content)
}

// FindInvite returns the first invite in content.
func FindInvite(content string) string {
	return inviteRegex.FindString(content)
}

// Host returns the lowercase ASCII host of raw. Internationalized names are
// converted to punycode so lookalike domains show up in logs as they resolve.
func Host(raw string) (string, error) {
	if !strings.HasPrefix(strings.ToLower(raw), "http://") && !strings.HasPrefix(strings.ToLower(raw), "https://") {
		raw = "https://" + raw
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", err
	}

	host := strings.ToLower(parsed.Hostname())
	if asciiHost, err := idna.ToASCII(host); err == nil {
		host = asciiHost
	}
	return host, nil
}

// LinkHosts returns the distinct hosts of every link in content.
func LinkHosts(content string) []string {
	var hosts []string
	seen := make(map[string]struct{})
	for _, raw := range ExtractURLs(content) {
		host, err := Host(raw)
		if err != nil || host == "" {
			continue
		}
		if _, ok := seen[host]; ok {
			continue
		}
		seen[host] = struct{}{}
		hosts = append(hosts, host)
	}
	return hosts
}
