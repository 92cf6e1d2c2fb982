package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"naptime/internal/metrics"
	"naptime/pkg/naptime"
)

const metricsShutdownTimeout = 5 * time.Second

func (a *app) evolveCmd() *cobra.Command {
	var (
		req         naptime.RunRequest
		configPath  string
		metricsAddr string
	)
	cmd := &cobra.Command{
		Use:   "evolve",
		Short: "Evolve a strategy against a fixed baseline",
		Long: `Evolves a population seeded from the progenitor strategy. Every individual
is scored by forage matches against the baseline. One line per generation is
printed to stdout: generation, mean fitness and max fitness separated by tabs.
The fittest strategy found is written to --out as 1.sexp, 2.sexp, ...`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath != "" {
				file, err := loadRunFile(configPath)
				if err != nil {
					return err
				}
				file.apply(&req, cmd.Flags())
			}
			if err := validateRunRequest(req); err != nil {
				return err
			}

			var recorder *metrics.Recorder
			if metricsAddr != "" {
				recorder = metrics.NewRecorder()
				stop, err := a.serveMetrics(metricsAddr, recorder)
				if err != nil {
					return err
				}
				defer stop()
			}

			client, err := a.client(recorder)
			if err != nil {
				return err
			}
			defer client.Close()

			summary, err := client.Evolve(cmd.Context(), req, func(g naptime.Generation) {
				fmt.Fprintf(a.stdout, "%d\t%f\t%f\n", g.Index, g.Mean, g.Max)
			})
			if err != nil {
				return err
			}
			a.logger.Info("fittest strategy written",
				zap.String("run_id", summary.RunID),
				zap.String("out", req.OutDir),
				zap.Float64("fitness", summary.BestFitness),
			)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&req.Baseline, "baseline", "", "baseline strategy file or directory")
	flags.StringVar(&req.Progenitor, "progenitor", "", "progenitor strategy file or directory")
	flags.IntVar(&req.Population, "pop", 100, "population size (even)")
	flags.Float64Var(&req.MutationRate, "rate", 0.05, "mutation rate in [0, 1]")
	flags.IntVar(&req.Repeats, "repeats", 1, "matches per individual and generation")
	flags.IntVar(&req.Generations, "gens", 10, "number of generations")
	flags.StringVar(&req.OutDir, "out", "", "directory for the fittest strategy")
	flags.Int64Var(&req.Seed, "seed", 1, "random seed")
	flags.IntVar(&req.Workers, "workers", 1, "parallel fitness evaluations")
	flags.StringVar(&req.Selection, "selection", "roulette", "parent selection: roulette|tournament")
	flags.IntVar(&req.TournamentSize, "tournament-size", 3, "tournament size for --selection tournament")
	flags.IntVar(&req.Arena.MaxSteps, "max-steps", 0, "match step limit (0 keeps the arena default)")
	flags.IntVar(&req.Arena.Treats, "treats", 0, "treats per match (0 keeps the arena default)")
	flags.StringVar(&configPath, "config", "", "YAML run config; explicit flags override it")
	flags.StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics at this address under /metrics")
	return cmd
}

func validateRunRequest(req naptime.RunRequest) error {
	switch {
	case req.Baseline == "":
		return usagef("--baseline is required")
	case req.Progenitor == "":
		return usagef("--progenitor is required")
	case req.OutDir == "":
		return usagef("--out is required")
	case req.Population <= 0 || req.Population%2 != 0:
		return usagef("--pop must be even and > 0, got %d", req.Population)
	case !(req.MutationRate >= 0 && req.MutationRate <= 1):
		return usagef("--rate must be in [0, 1], got %v", req.MutationRate)
	case req.Repeats < 1:
		return usagef("--repeats must be >= 1, got %d", req.Repeats)
	case req.Generations < 1:
		return usagef("--gens must be >= 1, got %d", req.Generations)
	case req.Workers < 1:
		return usagef("--workers must be >= 1, got %d", req.Workers)
	case req.Selection != "roulette" && req.Selection != "tournament":
		return usagef("--selection must be roulette or tournament, got %q", req.Selection)
	}
	return nil
}

// serveMetrics listens on addr and returns a function that shuts the server
// down. The served registry also carries the Go runtime and process
// collectors.
func (a *app) serveMetrics(addr string, recorder *metrics.Recorder) (func(), error) {
	for _, c := range []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := recorder.Registry().Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				return nil, fmt.Errorf("register collector: %w", err)
			}
		}
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", recorder.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	a.logger.Info("serving metrics", zap.String("addr", listener.Addr().String()))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(ctx)
		<-done
	}, nil
}
