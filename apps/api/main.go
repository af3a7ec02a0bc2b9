package main

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/robfig/cron/v3"

	echoapi "github.com/24vibes/vibes/apps/api/echo"
	"github.com/24vibes/vibes/apps/container"
	"github.com/24vibes/vibes/core"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()
	logger := container.NewLogger("API : ", conf)

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deps, err := container.New(ctx, conf, logger)
	if err != nil {
		logger.Error(fmt.Sprintf("setting up dependencies: %v", err), err)
		return err
	}
	defer func() {
		if err := deps.Close(); err != nil {
			logger.Error(fmt.Sprintf("releasing dependencies: %v", err), err)
		}
	}()

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("dbEngine").Set(conf.Database.Engine)

	if conf.Server.DebugHost != "" {
		go func() {
			if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
				logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
			}
		}()
	}

	// =========================================================================
	// Start Scheduler

	scheduler := cron.New()
	if conf.Slack.DigestSchedule != "" && deps.MessengerSvc.Enabled() {
		_, err = scheduler.AddFunc(conf.Slack.DigestSchedule, func() {
			if err := deps.MessengerSvc.PostDigest(ctx); err != nil {
				logger.Error(fmt.Sprintf("posting leaderboard digest: %v", err), err)
			}
		})
		if err != nil {
			logger.Error(fmt.Sprintf("scheduling leaderboard digest: %v", err), err)
			return err
		}
	}
	scheduler.Start()
	defer func() { <-scheduler.Stop().Done() }()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:           conf,
		Logger:         logger,
		Validate:       deps.Validate,
		Translator:     deps.Translator,
		UserSvc:        deps.UserSvc,
		ColleagueSvc:   deps.ColleagueSvc,
		VibeSvc:        deps.VibeSvc,
		LeaderboardSvc: deps.LeaderboardSvc,
		MessengerSvc:   deps.MessengerSvc,
		UploadSvc:      deps.UploadSvc,
		MediaDir:       deps.MediaDir,
	})

	go func() {
		logger.Info(fmt.Sprintf("API listening on %s", conf.Server.Address()))
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Error(fmt.Sprintf("server error: %v", err), err)
		return err

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancelShutdown()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(shutdownCtx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Error(fmt.Sprintf("could not force stop server: %v", err), err)
				return err
			}
		}
	}
	return nil
}
