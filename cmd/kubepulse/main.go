package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/HaPhanBaoMinh/kubepulse/internal/app"
	"github.com/HaPhanBaoMinh/kubepulse/internal/config"
	"github.com/HaPhanBaoMinh/kubepulse/internal/domain"
	"github.com/HaPhanBaoMinh/kubepulse/internal/infrastructure/ws"
	"github.com/HaPhanBaoMinh/kubepulse/internal/logger"
	"github.com/HaPhanBaoMinh/kubepulse/internal/mirror"
	"github.com/HaPhanBaoMinh/kubepulse/internal/stream"
)

func main() {
	cfg, err := config.LoadClient(os.Args[1:])
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

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// The program is created below; callbacks only fire after it runs.
	var p *tea.Program
	m := mirror.New(func(domain.ClusterData) { p.Send(app.SnapshotMsg{}) })
	mgr := stream.New(stream.Options{
		URL:            cfg.URL,
		Dialer:         ws.NewDialer(),
		Sink:           m,
		ReconnectDelay: cfg.ReconnectDelay,
		OnState:        func(s stream.State) { p.Send(app.ConnStateMsg{State: s}) },
	})

	model := app.New(
		app.WithMirror(m),
		app.WithStart(func() { mgr.Start(ctx) }),
		app.WithSource(cfg.URL),
	)
	p = tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseAllMotion(), tea.WithContext(ctx))

	logrus.WithField("url", cfg.URL).Info("starting dashboard")
	_, err = p.Run()
	mgr.Stop()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		logrus.WithError(err).Error("dashboard exited")
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
