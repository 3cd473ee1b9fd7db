package config

import (
	"fmt"
	"net/url"

	"github.com/iamasit07/4-in-a-row/client/internal/domain"
)

// Endpoints maps the host a client is served from to its game server.
var Endpoints = map[string]string{
	"smartnature.github.io": "wss://websocket-tutorial-smartine.herokuapp.com/",
	"localhost:8000":        "ws://localhost:8001/",
}

// ResolveEndpoint returns override when set, otherwise the endpoint registered
// for pageHost. An unknown host is ErrUnsupportedEnvironment.
func ResolveEndpoint(pageHost, override string) (string, error) {
	if override != "" {
		u, err := url.Parse(override)
		if err != nil {
			return "", fmt.Errorf("%w: server url %q: %v", domain.ErrUnsupportedEnvironment, override, err)
		}
		if u.Scheme != "ws" && u.Scheme != "wss" {
			return "", fmt.Errorf("%w: server url %q must use ws or wss", domain.ErrUnsupportedEnvironment, override)
		}
		return override, nil
	}

	endpoint, ok := Endpoints[pageHost]
	if !ok {
		return "", fmt.Errorf("%w: unsupported host %q", domain.ErrUnsupportedEnvironment, pageHost)
	}
	return endpoint, nil
}
