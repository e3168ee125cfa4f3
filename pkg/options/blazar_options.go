package options

import (
	"errors"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*BlazarOptions)(nil)

// BlazarOptions configures the reservation authority client.
type BlazarOptions struct {
	Endpoint string        `json:"endpoint" mapstructure:"endpoint"`
	Token    string        `json:"token" mapstructure:"token"`
	Timeout  time.Duration `json:"timeout" mapstructure:"timeout"`

	// QPS and Burst limit per-host lookups made while resolving allocations.
	QPS   float64 `json:"qps" mapstructure:"qps"`
	Burst int     `json:"burst" mapstructure:"burst"`

	MaxRetryElapsed time.Duration `json:"max-retry-elapsed" mapstructure:"max-retry-elapsed"`
}

func NewBlazarOptions() *BlazarOptions {
	return &BlazarOptions{
		Timeout:         30 * time.Second,
		QPS:             20,
		Burst:           10,
		MaxRetryElapsed: time.Minute,
	}
}

func (o *BlazarOptions) Validate() []error {
	errs := []error{}
	if err := ValidateEndpoint("blazar", o.Endpoint); err != nil {
		errs = append(errs, err)
	}
	if o.QPS <= 0 || o.Burst <= 0 {
		errs = append(errs, errors.New("blazar.qps and blazar.burst must be positive"))
	}
	return errs
}

func (o *BlazarOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Endpoint, "blazar.endpoint", o.Endpoint, "Reservation (Blazar) API endpoint. Required.")
	fs.StringVar(&o.Token, "blazar.token", o.Token, "Auth token for the reservation API.")
	fs.DurationVar(&o.Timeout, "blazar.timeout", o.Timeout, "Timeout for a single reservation API request.")
	fs.Float64Var(&o.QPS, "blazar.qps", o.QPS, "Maximum host lookups per second.")
	fs.IntVar(&o.Burst, "blazar.burst", o.Burst, "Burst size for host lookups.")
	fs.DurationVar(&o.MaxRetryElapsed, "blazar.max-retry-elapsed", o.MaxRetryElapsed, "Give up retrying transient request failures after this long (0 disables retries).")
}
