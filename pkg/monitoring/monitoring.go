// Package monitoring serves prometheus metrics and pprof.
package monitoring

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"

	"github.com/giongto35/retrocore/pkg/config"
	"github.com/giongto35/retrocore/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Monitoring struct {
	conf     config.Monitoring
	registry *prometheus.Registry
	server   *http.Server
	log      *logger.Logger
}

// New creates the monitoring server, the metrics go into reg.
func New(conf config.Monitoring, reg *prometheus.Registry, log *logger.Logger) *Monitoring {
	m := &Monitoring{conf: conf, registry: reg, log: log.Extend(log.With().Str("m", "monitoring"))}
	m.server = &http.Server{Addr: fmt.Sprintf(":%d", conf.Port)}
	m.server.Handler = m.Handler()
	return m
}

// NewRegistry is a registry with the process and Go runtime collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	return reg
}

func (m *Monitoring) Handler() http.Handler {
	h := http.NewServeMux()
	if m.conf.ProfilingEnabled {
		prefix := m.conf.URLPrefix + "/debug/pprof"
		m.log.Info().Msgf("Profiling is enabled at %v", m.server.Addr+prefix)
		h.HandleFunc(prefix+"/", pprof.Index)
		h.HandleFunc(prefix+"/cmdline", pprof.Cmdline)
		h.HandleFunc(prefix+"/profile", pprof.Profile)
		h.HandleFunc(prefix+"/symbol", pprof.Symbol)
		h.HandleFunc(prefix+"/trace", pprof.Trace)
		// named profiles under a custom prefix aren't reached through Index
		for _, p := range []string{"allocs", "block", "goroutine", "heap", "mutex", "threadcreate"} {
			h.Handle(prefix+"/"+p, pprof.Handler(p))
		}
	}
	if m.conf.MetricEnabled {
		path := m.conf.URLPrefix + "/metrics"
		m.log.Info().Msgf("Prometheus metric is enabled at %v", m.server.Addr+path)
		h.Handle(path, promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	}
	return h
}

// Run starts serving in the background.
func (m *Monitoring) Run() error {
	l, err := net.Listen("tcp", m.server.Addr)
	if err != nil {
		return err
	}
	m.log.Info().Msgf("Starting monitoring server at %v", l.Addr())
	go func() {
		if err := m.server.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.log.Error().Err(err).Msg("Monitoring server failed")
		}
	}()
	return nil
}

func (m *Monitoring) Shutdown(ctx context.Context) error {
	m.log.Info().Msg("Shutting down monitoring server")
	return m.server.Shutdown(ctx)
}

func (m *Monitoring) String() string {
	return fmt.Sprintf("monitoring::%s:%d", m.conf.URLPrefix, m.conf.Port)
}
