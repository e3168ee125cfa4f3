package options

import (
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/spf13/pflag"
)

// IOptions is implemented by every configuration group.
type IOptions interface {
	// Validate checks the options and returns every problem found.
	Validate() []error

	// AddFlags binds the options to a flag set.
	AddFlags(fs *pflag.FlagSet, prefixes ...string)
}

// ValidateAddress checks that addr is a host:port pair with a usable port.
func ValidateAddress(addr string) error {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid address %q: %w", addr, err)
	}
	p, err := strconv.Atoi(port)
	if err != nil || p < 0 || p > 65535 {
		return fmt.Errorf("invalid port %q in address %q", port, addr)
	}
	return nil
}

// ValidateEndpoint checks that endpoint is an absolute http(s) URL.
func ValidateEndpoint(name, endpoint string) error {
	if endpoint == "" {
		return fmt.Errorf("%s endpoint is required", name)
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("invalid %s endpoint %q: %w", name, endpoint, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid %s endpoint %q: scheme must be http or https", name, endpoint)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid %s endpoint %q: missing host", name, endpoint)
	}
	return nil
}
