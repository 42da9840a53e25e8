package wsgateway

import (
	"net"
	"net/http"
	"sort"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// orderHosts sorts hosts by priority for origin-allowlist construction:
// custom hostnames first, then localhost, then bare IP addresses.
func orderHosts(hosts map[string]string) []string {
	var hostnames, localhosts, ips []string

	for host := range hosts {
		switch {
		case host == "localhost":
			localhosts = append(localhosts, host)
		case net.ParseIP(host) != nil:
			ips = append(ips, host)
		default:
			hostnames = append(hostnames, host)
		}
	}

	sort.Strings(hostnames)
	sort.Strings(localhosts)
	sort.Strings(ips)

	result := make([]string, 0, len(hosts))
	result = append(result, hostnames...)
	result = append(result, localhosts...)
	result = append(result, ips...)
	return result
}

func isOriginAllowed(origin string, allowedOrigins []string) bool {
	for _, allowed := range allowedOrigins {
		if strings.TrimSpace(allowed) == origin {
			return true
		}
	}
	return false
}

// newUpgrader builds a websocket.Upgrader whose CheckOrigin enforces
// allowedOrigins; an empty list admits no origin. Every origin is admitted
// only when devMode is set, the explicit opt-in a caller (cmd/server)
// selects via config.Config.EnableDevMode, never a silent default.
func newUpgrader(allowedOrigins []string, devMode bool) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if devMode {
				return true
			}
			origin := r.Header.Get("Origin")
			allowed := isOriginAllowed(origin, allowedOrigins)
			if !allowed {
				logrus.WithFields(logrus.Fields{
					"origin":         origin,
					"allowedOrigins": allowedOrigins,
				}).Warn("websocket connection rejected: origin not allowed")
			}
			return allowed
		},
	}
}
