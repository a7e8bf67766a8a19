package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"runtime"

	"github.com/gekko3d/light/volumert/rt/app"
	"github.com/gekko3d/light/volumert/rt/logging"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	cfg, err := app.ParseArgs(os.Args[0], os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		logging.NewDefaultLogger("light", false).Errorf("%v", err)
		os.Exit(2)
	}
	log := logging.NewDefaultLogger("light", cfg.Debug)

	if cfg.Headless > 0 {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		if _, err := app.RunHeadless(ctx, cfg, nil, log); err != nil {
			log.Errorf("%v", err)
			stop()
			os.Exit(1)
		}
		return
	}

	if err := app.RunWindowed(cfg, log); err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}
}
