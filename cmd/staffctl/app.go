package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/quiby-ai/staffdesk/pkg/config"
	"github.com/quiby-ai/staffdesk/pkg/editor"
	"github.com/quiby-ai/staffdesk/pkg/employeeapi"
	"github.com/quiby-ai/staffdesk/pkg/events"
	"github.com/quiby-ai/staffdesk/pkg/obs"
)

type publisher interface {
	editor.Publisher
	Close() error
}

type nopCloser struct{ events.NopPublisher }

func (nopCloser) Close() error { return nil }

// app carries what every subcommand needs. It is filled in by setup.
type app struct {
	cfg     config.Config
	api     *employeeapi.Client
	pub     publisher
	obs     *obs.Observability
	metrics *http.Server
	in      io.Reader
	out     io.Writer
	errOut  io.Writer
}

func newRootCommand(in io.Reader, out, errOut io.Writer) *cli.Command {
	a := &app{in: in, out: out, errOut: errOut}

	return &cli.Command{
		Name:      "staffctl",
		Usage:     "list and edit employee records",
		Reader:    in,
		Writer:    out,
		ErrWriter: errOut,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to a config file (yaml, json or toml)",
				Sources: cli.EnvVars("STAFFDESK_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "base-url",
				Usage: "employees API base URL, overrides the config file",
			},
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "serve Prometheus metrics on this address, e.g. :9090",
			},
		},
		Before: a.setup,
		After:  a.teardown,
		// main reports errors and picks the exit code.
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "list every employee",
				Action: a.list,
			},
			{
				Name:      "show",
				Usage:     "show one employee",
				ArgsUsage: "<id>",
				Action:    a.show,
			},
			{
				Name:      "edit",
				Usage:     "edit an employee, or create one with id 0",
				ArgsUsage: "[id]",
				Action:    a.edit,
			},
			{
				Name:      "delete",
				Usage:     "delete an employee after confirmation",
				ArgsUsage: "<id>",
				Action:    a.delete,
			},
			{
				Name:   "watch",
				Usage:  "print employee change events from Kafka",
				Action: a.watch,
			},
		},
	}
}

func (a *app) setup(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return ctx, err
	}
	if u := cmd.String("base-url"); u != "" {
		cfg.API.BaseURL = u
		if err := cfg.Validate(); err != nil {
			return ctx, err
		}
	}
	cfg.Obs.LogOutput = a.errOut
	cfg.Obs.MetricsEnabled = cfg.Obs.MetricsEnabled || cmd.String("metrics-addr") != ""
	a.cfg = cfg

	if a.obs, err = obs.Init(ctx, cfg.Obs); err != nil {
		return ctx, err
	}

	if a.api, err = employeeapi.New(cfg.EmployeeAPI()); err != nil {
		return ctx, err
	}

	if cfg.Kafka.Enabled() {
		a.pub = events.NewKafkaProducer(cfg.Kafka.Brokers)
	} else {
		a.pub = nopCloser{}
	}

	if addr := cmd.String("metrics-addr"); addr != "" {
		if err := a.serveMetrics(ctx, addr); err != nil {
			return ctx, err
		}
	}
	return ctx, nil
}

func (a *app) serveMetrics(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.obs.MetricsHandler())
	a.metrics = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := a.metrics.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			obs.Error(ctx, "metrics server stopped", err)
		}
	}()
	obs.Info(ctx, "serving metrics", "addr", ln.Addr().String())
	return nil
}

func (a *app) teardown(ctx context.Context, _ *cli.Command) error {
	var errs []error
	if a.metrics != nil {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		errs = append(errs, a.metrics.Shutdown(shutdownCtx))
		cancel()
	}
	if a.pub != nil {
		errs = append(errs, a.pub.Close())
	}
	if a.obs != nil {
		errs = append(errs, a.obs.Shutdown(context.WithoutCancel(ctx)))
	}
	return errors.Join(errs...)
}

// exitNavigator records the route the controller asked for. staffctl has
// a single view, so any navigation ends the edit session.
type exitNavigator struct {
	done chan string
}

func newExitNavigator() *exitNavigator {
	return &exitNavigator{done: make(chan string, 1)}
}

func (n *exitNavigator) Navigate(route string) {
	select {
	case n.done <- route:
	default:
	}
}

// programOptions runs a terminal program on the command's streams. The
// command context stands in for signal handling.
func programOptions(ctx context.Context, in io.Reader, out io.Writer) []tea.ProgramOption {
	return []tea.ProgramOption{
		tea.WithContext(ctx),
		tea.WithInput(in),
		tea.WithOutput(out),
		tea.WithoutSignalHandler(),
	}
}
