package atsreport

import (
	"context"
	"io"
	"net/http"

	"github.com/hnakamur/ltsvlog"

	"github.com/masa23/atsreport/internal/exporter"
)

// Error text printed in debug mode
const (
	ATSConnErr = "ERR - unable to get data from ATS [%s]"
	ZBXConnErr = "ERR - unable to send data to Zabbix [%s]"
)

// SenderFactory builds the collector client of a run
type SenderFactory func(opts *Options) (exporter.Sender, error)

// Runner polls one TrafficServer node and pushes its stats to a collector.
type Runner struct {
	Options   *Options
	NewSender SenderFactory

	// HTTPClient defaults to a client bounded by Options.Timeout
	HTTPClient *http.Client
	// ResolveHostname defaults to the package ResolveHostname. It is called
	// with a context bounded by Options.Timeout.
	ResolveHostname func(ctx context.Context, host string) string
}

// Run executes init, fetch, format and send in order. The first failing
// stage ends the run with a *StageError.
func (r *Runner) Run(ctx context.Context) error {
	opts := r.Options
	resolve := r.ResolveHostname
	if resolve == nil {
		resolve = ResolveHostname
	}
	hostname := r.resolveHostname(ctx, resolve)
	ltsvlog.Logger.Debug().String("msg", "resolved hostname").String("hostname", hostname).Log()

	// Step 1: init collector client
	sender, err := r.NewSender(opts)
	if err != nil {
		ltsvlog.Logger.Debug().Fmt("msg", "failed to init %s collector err=%s", opts.Collector, err.Error()).Log()
		return &StageError{Stage: StageInit, Err: err}
	}
	if c, ok := sender.(io.Closer); ok {
		defer func() {
			if err := c.Close(); err != nil {
				ltsvlog.Logger.Err(err)
			}
		}()
	}

	// Step 2: get data
	stats, err := FetchStats(ctx, r.httpClient(), StatsURL(opts.Host, opts.Port))
	if err != nil {
		ltsvlog.Logger.Debug().Fmt("msg", ATSConnErr, err.Error()).Log()
		return &StageError{Stage: StageFetch, Err: err}
	}

	// Step 3: format & load data into the sender
	items, err := FormatItems(stats, hostname)
	if err != nil {
		ltsvlog.Logger.Debug().Fmt("msg", "failed to format stats err=%s", err.Error()).Log()
		return &StageError{Stage: StageFormat, Err: err}
	}
	for _, item := range items {
		sender.AddItem(item.Host, item.Key, item.Value)
	}
	ltsvlog.Logger.Debug().Fmt("msg", "loaded %d items", len(items)).Log()

	// Step 4: send to the collector
	if err := sender.Send(ctx); err != nil {
		ltsvlog.Logger.Debug().Fmt("msg", ZBXConnErr, err.Error()).Log()
		return &StageError{Stage: StageSend, Err: err}
	}
	return nil
}

func (r *Runner) resolveHostname(ctx context.Context, resolve func(ctx context.Context, host string) string) string {
	if r.Options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Options.Timeout)
		defer cancel()
	}
	return resolve(ctx, r.Options.Host)
}

func (r *Runner) httpClient() *http.Client {
	if r.HTTPClient != nil {
		return r.HTTPClient
	}
	return &http.Client{Timeout: r.Options.Timeout}
}
