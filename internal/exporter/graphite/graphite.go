package graphite

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hnakamur/errstack"
	"github.com/hnakamur/ltsvlog"
	"github.com/marpaia/graphite-golang"

	"github.com/masa23/atsreport/internal/exporter"
)

type GraphiteSender struct {
	exporter.Batch
	config *GraphiteSenderConfig
	g      *graphite.Graphite
	now    func() time.Time
}

var _ exporter.Sender = (*GraphiteSender)(nil)

type GraphiteSenderConfig struct {
	Prefix  string
	Host    string
	Port    int
	DryRun  bool
	Debug   bool
	Verbose bool
}

// NewGraphiteSender connects to the carbon receiver. In dry run mode no
// connection is opened.
func NewGraphiteSender(config *GraphiteSenderConfig) (*GraphiteSender, error) {
	var g *graphite.Graphite
	if config.DryRun {
		g = graphite.NewGraphiteNop(config.Host, config.Port)
	} else {
		var err error
		g, err = graphite.NewGraphite(config.Host, config.Port)
		if err != nil {
			return nil, errstack.WithLV(errstack.Errorf("failed to connect graphite host=%s port=%d err=%+v", config.Host, config.Port, err))
		}
	}
	return &GraphiteSender{
		config: config,
		g:      g,
		now:    time.Now,
	}, nil
}

func (e *GraphiteSender) Send(ctx context.Context) error {
	defer e.Reset()
	metrics := e.convertGraphiteMetrics(e.Items())
	if len(metrics) == 0 {
		return nil
	}
	if e.config.DryRun {
		ltsvlog.Logger.Debug().Fmt("msg", "dry run, %d metrics not sent to Graphite", len(metrics)).Log()
		return nil
	}
	if !e.config.Debug {
		ltsvlog.Logger.Debug().Fmt("msg", "Sending %d metrics to Graphite", len(metrics)).Log()
		if err := e.g.SendMetrics(metrics); err != nil {
			return errstack.WithLV(errstack.Errorf("failed to graphite.SendMetrics err=%+v", err))
		}
		return nil
	}

	for _, m := range metrics {
		ev := ltsvlog.Logger.Debug().String("name", m.Name)
		if e.config.Verbose {
			ev = ev.String("value", m.Value)
		}
		if err := e.g.SendMetric(m); err != nil {
			ev.String("msg", "metric rejected").String("err", err.Error()).Log()
			return errstack.WithLV(errstack.Errorf("failed to graphite.SendMetric name=%s err=%+v", m.Name, err))
		}
		ev.String("msg", "metric sent").Log()
	}
	return nil
}

// Close disconnects from the carbon receiver
func (e *GraphiteSender) Close() error {
	if e.config.DryRun {
		return nil
	}
	return e.g.Disconnect()
}

// convertGraphiteMetrics keeps numeric items only, carbon has no use for
// other values.
func (e *GraphiteSender) convertGraphiteMetrics(items []exporter.Item) []graphite.Metric {
	ts := e.now().Unix()
	gmetrics := make([]graphite.Metric, 0, len(items))
	for _, item := range items {
		if _, err := strconv.ParseFloat(item.Value, 64); err != nil {
			ltsvlog.Logger.Debug().String("msg", "skip non numeric item").String("key", item.Key).Log()
			continue
		}
		gmetrics = append(gmetrics, graphite.Metric{
			Name:      MetricName(e.config.Prefix, item.Host, item.Key),
			Value:     item.Value,
			Timestamp: ts,
		})
	}
	return gmetrics
}

// MetricName builds <prefix>.<host>.<key>. Dots of the host name would
// split it into several graphite nodes, they become underscores.
func MetricName(prefix, host, key string) string {
	host = strings.ReplaceAll(host, ".", "_")
	if prefix == "" {
		return fmt.Sprintf("%s.%s", host, key)
	}
	return fmt.Sprintf("%s.%s.%s", prefix, host, key)
}
