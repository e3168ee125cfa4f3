package options

import (
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	cliflag "k8s.io/component-base/cli/flag"

	"github.com/hwfleet/hwfleet/internal/inspector"
	"github.com/hwfleet/hwfleet/pkg/app"
	"github.com/hwfleet/hwfleet/pkg/log"
	genericoptions "github.com/hwfleet/hwfleet/pkg/options"
)

type InspectorOptions struct {
	Inspect *genericoptions.InspectOptions `json:"inspect" mapstructure:"inspect"`
	Ironic  *genericoptions.IronicOptions  `json:"ironic" mapstructure:"ironic"`
	Blazar  *genericoptions.BlazarOptions  `json:"blazar" mapstructure:"blazar"`
	Http    *genericoptions.HttpOptions    `json:"http" mapstructure:"http"`
	Mqtt    *genericoptions.MqttOptions    `json:"mqtt" mapstructure:"mqtt"`
	S3      *genericoptions.S3Options      `json:"s3" mapstructure:"s3"`
	Log     *log.Options                   `json:"log" mapstructure:"log"`
}

var _ app.NamedFlagSetOptions = (*InspectorOptions)(nil)

func NewInspectorOptions() *InspectorOptions {
	return &InspectorOptions{
		Inspect: genericoptions.NewInspectOptions(),
		Ironic:  genericoptions.NewIronicOptions(),
		Blazar:  genericoptions.NewBlazarOptions(),
		Http:    genericoptions.NewHttpOptions(),
		Mqtt:    genericoptions.NewMqttOptions(),
		S3:      genericoptions.NewS3Options(),
		Log:     log.NewOptions(),
	}
}

func (o *InspectorOptions) Flags() cliflag.NamedFlagSets {
	fss := cliflag.NamedFlagSets{}

	o.Inspect.AddFlags(fss.FlagSet("Inspect"))
	o.Ironic.AddFlags(fss.FlagSet("Ironic"))
	o.Blazar.AddFlags(fss.FlagSet("Blazar"))
	o.Http.AddFlags(fss.FlagSet("HTTP"))
	o.Mqtt.AddFlags(fss.FlagSet("MQTT"))
	o.S3.AddFlags(fss.FlagSet("S3"))
	o.Log.AddFlags(fss.FlagSet("Log"))
	return fss
}

func (o *InspectorOptions) Complete() error {
	return nil
}

func (o *InspectorOptions) Validate() error {
	errs := []error{}

	errs = append(errs, o.Inspect.Validate()...)
	errs = append(errs, o.Ironic.Validate()...)
	errs = append(errs, o.Blazar.Validate()...)
	errs = append(errs, o.Http.Validate()...)
	errs = append(errs, o.Mqtt.Validate()...)
	errs = append(errs, o.S3.Validate()...)
	errs = append(errs, o.Log.Validate()...)

	return utilerrors.NewAggregate(errs)
}

func (o *InspectorOptions) Config() (*inspector.Config, error) {
	return &inspector.Config{
		InspectOptions: o.Inspect,
		IronicOptions:  o.Ironic,
		BlazarOptions:  o.Blazar,
		HttpOptions:    o.Http,
		MqttOptions:    o.Mqtt,
		S3Options:      o.S3,
	}, nil
}
