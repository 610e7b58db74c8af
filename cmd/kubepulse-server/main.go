package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/HaPhanBaoMinh/kubepulse/internal/config"
	"github.com/HaPhanBaoMinh/kubepulse/internal/domain"
	kk "github.com/HaPhanBaoMinh/kubepulse/internal/infrastructure/k8s"
	"github.com/HaPhanBaoMinh/kubepulse/internal/infrastructure/mock"
	"github.com/HaPhanBaoMinh/kubepulse/internal/logger"
	"github.com/HaPhanBaoMinh/kubepulse/internal/server"
)

func main() {
	cfg, err := config.LoadServer(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logs, err := logger.Setup(cfg.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logs.Close()

	if err := run(cfg); err != nil {
		logrus.WithError(err).Fatal("server failed")
	}
}

func run(cfg config.Server) error {
	var src domain.SnapshotSource
	if cfg.Mock {
		logrus.Info("serving a synthetic cluster")
		src = mock.New()
	} else {
		repo, err := kk.New(cfg.Kubeconfig, cfg.Context)
		if err != nil {
			return err
		}
		src = repo
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	srv := server.New(server.Options{Source: src, Interval: cfg.Interval})
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(ctx) })
	g.Go(func() error { return srv.ListenAndServe(ctx, cfg.Addr) })
	return g.Wait()
}
