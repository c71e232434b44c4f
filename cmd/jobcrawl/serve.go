package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"jobcrawl-engine/internal/events"
	"jobcrawl-engine/internal/httpapi"
	"jobcrawl-engine/internal/scheduler"
)

func serveCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and run scheduled crawls",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := loadApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			r, cleanup, err := a.newRunner(ctx, false)
			if err != nil {
				return err
			}
			defer cleanup()

			hub := events.NewHub()
			r.Events = hub

			sched := scheduler.New(a.log)
			if err := r.Schedule(sched); err != nil {
				return err
			}

			if addr == "" {
				addr = fmt.Sprintf("127.0.0.1:%d", a.cfg.App.Port)
			}
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return err
			}
			srv := &http.Server{
				Handler: httpapi.NewHandler(httpapi.Deps{
					Store:       a.store,
					Hub:         hub,
					Crawler:     r,
					Log:         a.log,
					Cfg:         a.cfg,
					UserCfgPath: a.cfgPath,
					BaseCtx:     ctx,
				}),
				ReadHeaderTimeout: 5 * time.Second,
			}
			a.log.Info("engine listening", "addr", "http://"+ln.Addr().String(), "schedule", a.cfg.Crawl.Schedule)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				sched.Run(gctx)
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return srv.Shutdown(shutCtx)
			})
			return g.Wait()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default 127.0.0.1:<app.port>)")
	return cmd
}
