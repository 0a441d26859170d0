package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof/* on DefaultServeMux
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// envPrefix prefixes every environment override, e.g. BEANCORE_WORKERS.
const envPrefix = "BEANCORE"

// env holds what every subcommand shares once PersistentPreRunE ran.
type env struct {
	v      *viper.Viper
	logger *log.Logger
	reg    *prometheus.Registry
}

func newRootCmd() *cobra.Command {
	e := &env{v: viper.New()}

	root := &cobra.Command{
		Use:           "bench",
		Short:         "Synthetic workloads for the bounded map and the bean registry",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return e.init(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "config file (yaml, toml or json; env: BEANCORE_CONFIG)")
	pf.BoolP("verbose", "v", false, "debug logging")
	pf.Int("workers", 0, "worker goroutines (0 = 2*GOMAXPROCS)")
	pf.Duration("duration", 10*time.Second, "workload duration")
	pf.Int64("seed", 0, "random seed (0 = time based)")
	pf.String("http", "", "serve Prometheus metrics at addr (e.g. :8080); empty = disabled")
	pf.String("pprof", "", "serve pprof at addr (e.g. :6060); empty = disabled")

	root.AddCommand(newMapCmd(e), newResolveCmd(e))
	return root
}

// init loads flags, env and the optional config file into viper, then sets
// up logging and the metrics endpoints. Precedence: flag > env > file >
// default.
func (e *env) init(cmd *cobra.Command) error {
	e.v.SetEnvPrefix(envPrefix)
	e.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	e.v.AutomaticEnv()

	var bindErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if err := e.v.BindPFlag(f.Name, f); err != nil && bindErr == nil {
			bindErr = fmt.Errorf("binding flag %q: %w", f.Name, err)
		}
	})
	if bindErr != nil {
		return bindErr
	}

	if file := e.v.GetString("config"); file != "" {
		e.v.SetConfigFile(file)
		if err := e.v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !os.IsNotExist(err) {
				return fmt.Errorf("reading config file: %w", err)
			}
		}
	}

	level := log.InfoLevel
	if e.v.GetBool("verbose") {
		level = log.DebugLevel
	}
	e.logger = log.NewWithOptions(os.Stderr, log.Options{
		Level:           level,
		ReportTimestamp: true,
		Prefix:          cmd.Name(),
	})

	e.reg = prometheus.NewRegistry()
	e.serve(cmd.Context(), "http", "/metrics", promhttp.HandlerFor(e.reg, promhttp.HandlerOpts{}))
	e.serve(cmd.Context(), "pprof", "", nil)
	return nil
}

// serve starts an HTTP listener for the address in flag key, if any. A nil
// handler serves DefaultServeMux.
func (e *env) serve(ctx context.Context, key, path string, h http.Handler) {
	addr := e.v.GetString(key)
	if addr == "" {
		return
	}
	var handler http.Handler = http.DefaultServeMux
	if h != nil {
		mux := http.NewServeMux()
		mux.Handle(path, h)
		handler = mux
	}
	srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		e.logger.Info("serving", "what", key, "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.logger.Error("server stopped", "what", key, "err", err)
		}
	}()
	if ctx != nil {
		go func() {
			<-ctx.Done()
			_ = srv.Close()
		}()
	}
}

func (e *env) seed() uint64 {
	if s := e.v.GetInt64("seed"); s != 0 {
		return uint64(s)
	}
	return uint64(time.Now().UnixNano())
}
