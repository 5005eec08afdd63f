package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/wansing/mvv/auth"
	"github.com/wansing/mvv/config"
	"github.com/wansing/mvv/core"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {

	var fl config.Flags // registered in both FlagSets

	// default FlagSet

	fl.Register(flag.CommandLine)
	fl.RegisterServer(flag.CommandLine)

	// init FlagSet

	var initFlags = flag.NewFlagSet("init", flag.ExitOnError)
	fl.Register(initFlags)

	var cmd initCommand
	cmd.register(initFlags)

	var fs = flag.CommandLine
	if len(os.Args) > 1 && os.Args[1] == "init" {
		fs = initFlags
		_ = initFlags.Parse(os.Args[2:])
	} else {
		flag.Parse()
	}

	cfg, err := fl.Config(fs)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if initFlags.Parsed() {
		if err := runInit(cfg, &cmd); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	fx.New(
		fx.Supply(cfg),
		fx.WithLogger(zapEventLogger),
		coreModule,
		serverModule,
		fx.Invoke(func(*http.Server) {}),
	).Run()
}

func zapEventLogger(log *zap.Logger) fxevent.Logger {
	return &fxevent.ZapLogger{Logger: log}
}

// runInit runs cmd as a start hook of a short-lived application and stops it afterwards.
func runInit(cfg *config.Config, cmd *initCommand) error {

	var app = fx.New(
		fx.Supply(cfg),
		fx.WithLogger(zapEventLogger),
		coreModule,
		fx.Invoke(func(lc fx.Lifecycle, db *core.CoreDB, _ auth.PermissionProvider[core.Role], log *zap.Logger) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					return cmd.run(ctx, db, log, readPassword)
				},
			})
		}),
	)

	startCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute) // includes typing the password
	defer cancel()
	var startErr = app.Start(startCtx)

	stopCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := app.Stop(stopCtx); err != nil && startErr == nil {
		return err
	}
	return startErr
}
