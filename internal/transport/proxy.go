package transport

import (
	"bufio"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"valauth/internal/autherr"
)

// ParseProxy normalizes an outbound proxy line to an http:// URL and a
// display form without credentials.
// Supported formats:
//   - ip:port
//   - ip:port:username:password
//   - http://[username:password@]ip:port
//   - https://[username:password@]ip:port
func ParseProxy(line string) (proxyURL, display string, err error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", "", fmt.Errorf("empty proxy")
	}

	if strings.HasPrefix(line, "http://") || strings.HasPrefix(line, "https://") {
		parsed, err := url.Parse(line)
		if err != nil {
			return "", "", errors.New("invalid proxy URL")
		}
		if parsed.Host == "" {
			return "", "", fmt.Errorf("proxy URL has no host")
		}

		u := &url.URL{Scheme: "http", Host: parsed.Host, User: parsed.User}
		return u.String(), parsed.Host, nil
	}

	parts := strings.Split(line, ":")
	switch len(parts) {
	case 2:
		host, port := parts[0], parts[1]
		display = host + ":" + port
		return "http://" + display, display, nil

	case 4:
		host, port, user, pass := parts[0], parts[1], parts[2], parts[3]
		display = host + ":" + port
		u := &url.URL{Scheme: "http", Host: display, User: url.UserPassword(user, pass)}
		return u.String(), display, nil

	default:
		return "", "", fmt.Errorf("unrecognized proxy format (want ip:port, ip:port:user:pass or a URL)")
	}
}

// LoadProxyFile reads one proxy per line in any format ParseProxy accepts.
// Blank lines and lines starting with '#' are skipped.
func LoadProxyFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, autherr.New(autherr.ConfigurationError, "transport", fmt.Errorf("open proxy file: %w", err))
	}
	defer file.Close()

	var proxies []string
	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if _, _, err := ParseProxy(line); err != nil {
			return nil, autherr.New(autherr.ConfigurationError, "transport",
				fmt.Errorf("%s line %d: %w", path, lineNum, err))
		}
		proxies = append(proxies, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, autherr.New(autherr.ConfigurationError, "transport", fmt.Errorf("read proxy file: %w", err))
	}

	if len(proxies) == 0 {
		return nil, autherr.New(autherr.ConfigurationError, "transport", fmt.Errorf("no proxies in %s", path))
	}
	return proxies, nil
}
