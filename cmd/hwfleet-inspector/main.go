package main

import (
	_ "go.uber.org/automaxprocs"

	"github.com/hwfleet/hwfleet/cmd/hwfleet-inspector/app"
)

func main() {
	app.NewApp().Run()
}
