package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"cityops/internal/activity"
	"cityops/internal/chat"
	"cityops/internal/geo"
	"cityops/internal/insights"
	"cityops/internal/logging"
	"cityops/internal/mapsync"
	"cityops/internal/metrics"
	"cityops/internal/server"
	"cityops/internal/session"
)

var (
	servePrintOnly bool
	serveAddr      string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard",
	Long:  "serve runs the dashboard web server with per-visitor sessions, the JSON API and Prometheus metrics.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		log := logging.FromContext(ctx)

		reg, err := loadRegistry(cfg)
		if err != nil {
			return err
		}
		sink, cleanup, err := newActivityWriter(cfg.Activity, servePrintOnly, os.Stdout)
		if err != nil {
			return err
		}
		defer cleanup()
		buffered := activity.NewBuffered(sink, cfg.Activity.BatchSize)

		m := metrics.NewRegistry()
		frame := frameOptions()
		var store *session.Store
		store = session.NewStore(session.Options{
			Registry:        reg,
			DefaultScenario: cfg.DefaultScenario,
			Responder:       newResponder(),
			Frame:           frame,
			Focus:           cfg.Map.DefaultFocus,
			ProcessingDelay: cfg.Wizard.ProcessingDelay,
			IdleTimeout:     cfg.Session.IdleTimeout,
			OnReap: func(n int) {
				m.SessionsReaped.Add(float64(n))
				m.SessionsActive.Set(float64(store.Len()))
			},
		})

		srv := server.New(server.Options{
			BasePath: cfg.BasePath,
			Registry: reg,
			Sessions: store,
			Insights: insights.Default(),
			Activity: buffered,
			Metrics:  m,
			Logger:   log,
			Basemap: mapsync.BasemapConfig{
				TileURL:     cfg.Basemap.TileURL,
				Attribution: cfg.Basemap.Attribution,
				TileSize:    cfg.Basemap.TileSize,
				MaxZoom:     cfg.Basemap.MaxZoom,
			},
			Frame: frame,
		})

		bgCtx, cancelBg := context.WithCancel(ctx)
		done := make(chan struct{}, 2)
		go func() {
			store.Run(bgCtx, cfg.Session.ReapInterval)
			done <- struct{}{}
		}()
		go func() {
			buffered.Run(bgCtx, cfg.Activity.FlushInterval)
			done <- struct{}{}
		}()

		addr := cfg.ListenAddr
		if serveAddr != "" {
			addr = serveAddr
		}
		err = srv.Start(ctx, addr)
		cancelBg()
		<-done
		<-done
		log.Info("dashboard stopped")
		return err
	},
}

func init() {
	serveCmd.Flags().BoolVar(&servePrintOnly, "print-only", false, "Print activity to STDOUT instead of writing to GreptimeDB")
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address override")
}

func frameOptions() geo.FrameOptions {
	return geo.FrameOptions{
		Epsilon:         cfg.Map.BoundsEpsilon,
		SinglePointZoom: cfg.Map.SinglePointZoom,
		Padding:         cfg.Map.FitPadding,
	}
}

func newResponder() *chat.Responder {
	return chat.NewResponder(chat.Options{
		ResponseDelay: cfg.Chat.ResponseDelay,
		RefineDelay:   cfg.Chat.RefineDelay,
	})
}
