package options

import (
	"errors"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*IronicOptions)(nil)

// IronicOptions configures the hardware authority client.
type IronicOptions struct {
	// Endpoint is the bare metal API root, e.g. https://ironic.example:6385.
	Endpoint string `json:"endpoint" mapstructure:"endpoint"`

	// Token is a pre-issued auth token sent as X-Auth-Token.
	Token string `json:"token" mapstructure:"token"`

	// Microversion is sent as X-OpenStack-Ironic-API-Version.
	Microversion string `json:"microversion" mapstructure:"microversion"`

	// Timeout bounds a single HTTP request.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// PollInterval is the delay between state polls while waiting on a transition.
	PollInterval time.Duration `json:"poll-interval" mapstructure:"poll-interval"`

	// MaxRetryElapsed bounds retries of transient request failures. Zero disables retries.
	MaxRetryElapsed time.Duration `json:"max-retry-elapsed" mapstructure:"max-retry-elapsed"`
}

func NewIronicOptions() *IronicOptions {
	return &IronicOptions{
		Microversion:    "1.82",
		Timeout:         30 * time.Second,
		PollInterval:    10 * time.Second,
		MaxRetryElapsed: time.Minute,
	}
}

func (o *IronicOptions) Validate() []error {
	errs := []error{}
	if err := ValidateEndpoint("ironic", o.Endpoint); err != nil {
		errs = append(errs, err)
	}
	if o.PollInterval <= 0 {
		errs = append(errs, errors.New("ironic.poll-interval must be positive"))
	}
	if o.Timeout <= 0 {
		errs = append(errs, errors.New("ironic.timeout must be positive"))
	}
	return errs
}

func (o *IronicOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Endpoint, "ironic.endpoint", o.Endpoint, "Bare metal (Ironic) API endpoint. Required.")
	fs.StringVar(&o.Token, "ironic.token", o.Token, "Auth token for the bare metal API.")
	fs.StringVar(&o.Microversion, "ironic.microversion", o.Microversion, "Bare metal API microversion.")
	fs.DurationVar(&o.Timeout, "ironic.timeout", o.Timeout, "Timeout for a single bare metal API request.")
	fs.DurationVar(&o.PollInterval, "ironic.poll-interval", o.PollInterval, "Interval between node state polls while waiting for a transition.")
	fs.DurationVar(&o.MaxRetryElapsed, "ironic.max-retry-elapsed", o.MaxRetryElapsed, "Give up retrying transient request failures after this long (0 disables retries).")
}
