package tool

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultSetupPort = 8443
	setupPathPrefix  = "/setup"
)

// BuildSetupBaseURL builds https://<host>:<port>/setup.
// host may already carry a port, in which case port is ignored.
func BuildSetupBaseURL(host string, port int) (string, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return "", fmt.Errorf("device address is empty")
	}
	if port <= 0 {
		port = DefaultSetupPort
	}
	hostPort := host
	if _, _, err := net.SplitHostPort(host); err != nil {
		hostPort = net.JoinHostPort(strings.Trim(host, "[]"), strconv.Itoa(port))
	}
	u := url.URL{Scheme: "https", Host: hostPort, Path: setupPathPrefix}
	return u.String(), nil
}

// BuildSetupURL joins a setup base URL and an endpoint name such as "eureka_info".
func BuildSetupURL(baseURL, endpoint string) string {
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(endpoint, "/")
}
