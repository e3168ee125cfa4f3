package app

import (
	"fmt"

	genericapiserver "k8s.io/apiserver/pkg/server"

	"github.com/hwfleet/hwfleet/cmd/hwfleet-inspector/app/options"
	"github.com/hwfleet/hwfleet/pkg/app"
	"github.com/hwfleet/hwfleet/pkg/log"
)

const (
	commandName = "hwfleet-inspector"
	commandDesc = `The hwfleet inspector reconciles the bare metal fleet against the
reservation calendar. Nodes whose last inspection is stale and which are
not leased soon are put through hardware inspection, a bounded number at
a time.`
)

func NewApp() *app.App {
	opts := options.NewInspectorOptions()
	application := app.NewApp(
		commandName,
		"Launch the hwfleet node inspector",
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithDefaultValidArgs(),
		app.WithEnvPrefix("HWFLEET"),
		app.WithWatchConfig(),
		app.WithRunFunc(run(opts)),
	)
	return application
}

func run(opts *options.InspectorOptions) app.RunFunc {
	return func() error {
		log.Init(opts.Log)
		defer log.Std().Sync()

		ctx := genericapiserver.SetupSignalContext()

		cfg, err := opts.Config()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		inspector, err := cfg.NewInspector(ctx)
		if err != nil {
			return fmt.Errorf("failed to create inspector: %w", err)
		}

		return inspector.Run(ctx)
	}
}
