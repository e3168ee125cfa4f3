package options

import (
	"errors"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*InspectOptions)(nil)

// InspectOptions holds the eligibility policy and dispatch settings of a pass.
type InspectOptions struct {
	DryRun            bool          `json:"dry-run" mapstructure:"dry-run"`
	Parallel          int           `json:"parallel" mapstructure:"parallel"`
	Limit             int           `json:"limit" mapstructure:"limit"`
	Shuffle           bool          `json:"shuffle" mapstructure:"shuffle"`
	ExpireDays        int           `json:"expire-days" mapstructure:"expire-days"`
	LeaseBuffer       time.Duration `json:"lease-buffer" mapstructure:"lease-buffer"`
	Timeout           time.Duration `json:"timeout" mapstructure:"timeout"`
	InspectReserved   bool          `json:"inspect-reserved" mapstructure:"inspect-reserved"`
	ReinspectFailed   bool          `json:"reinspect-failed" mapstructure:"reinspect-failed"`
	ProvideManageable bool          `json:"provide-manageable" mapstructure:"provide-manageable"`

	// Interval between passes. Zero runs a single pass and exits.
	Interval time.Duration `json:"interval" mapstructure:"interval"`
}

func NewInspectOptions() *InspectOptions {
	return &InspectOptions{
		Parallel:    1,
		Limit:       1,
		Shuffle:     true,
		ExpireDays:  31,
		LeaseBuffer: 4 * time.Hour,
		Timeout:     900 * time.Second,
	}
}

func (o *InspectOptions) Validate() []error {
	errs := []error{}
	if o.Parallel < 1 {
		errs = append(errs, errors.New("inspect.parallel must be at least 1"))
	}
	if o.ExpireDays < 0 {
		errs = append(errs, errors.New("inspect.expire-days must not be negative"))
	}
	if o.LeaseBuffer < 0 {
		errs = append(errs, errors.New("inspect.lease-buffer must not be negative"))
	}
	if o.Timeout <= 0 {
		errs = append(errs, errors.New("inspect.timeout must be positive"))
	}
	if o.Interval < 0 {
		errs = append(errs, errors.New("inspect.interval must not be negative"))
	}
	return errs
}

func (o *InspectOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.BoolVar(&o.DryRun, "inspect.dry-run", o.DryRun, "Print out which nodes would be inspected, but take no action.")
	fs.IntVarP(&o.Parallel, "inspect.parallel", "p", o.Parallel, "Maximum number of nodes to inspect in parallel.")
	fs.IntVar(&o.Limit, "inspect.limit", o.Limit, "Maximum number of nodes to inspect per pass (<= 0 means no limit).")
	fs.BoolVar(&o.Shuffle, "inspect.shuffle", o.Shuffle, "Randomize the order of eligible nodes before applying the limit.")
	fs.IntVar(&o.ExpireDays, "inspect.expire-days", o.ExpireDays, "Re-inspect a node whose previous inspection is older than this many days.")
	fs.DurationVar(&o.LeaseBuffer, "inspect.lease-buffer", o.LeaseBuffer, "Do not touch a node whose next reservation starts within this window.")
	fs.DurationVar(&o.Timeout, "inspect.timeout", o.Timeout, "Maximum time to wait for a single inspection.")
	fs.BoolVar(&o.InspectReserved, "inspect.inspect-reserved", o.InspectReserved, "Has no effect. A node inside an active reservation window is never inspected; reserved nodes outside a window are already handled by --inspect.lease-buffer.")
	_ = fs.MarkDeprecated("inspect.inspect-reserved", "nodes inside an active reservation window are never inspected")
	fs.BoolVar(&o.ReinspectFailed, "inspect.reinspect-failed", o.ReinspectFailed, "Re-inspect nodes in provision state 'inspect failed'.")
	fs.BoolVar(&o.ProvideManageable, "inspect.provide-manageable", o.ProvideManageable, "Move freshly inspected nodes found in 'manageable' back to 'available'.")
	fs.DurationVar(&o.Interval, "inspect.interval", o.Interval, "Delay between passes. 0 runs a single pass and exits.")
}
