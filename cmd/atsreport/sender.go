package main

import (
	"github.com/hnakamur/errstack"

	"github.com/masa23/atsreport"
	"github.com/masa23/atsreport/internal/exporter"
	"github.com/masa23/atsreport/internal/exporter/graphite"
	"github.com/masa23/atsreport/internal/exporter/zabbix"
)

func newSender(opts *atsreport.Options) (exporter.Sender, error) {
	switch opts.Collector {
	case atsreport.CollectorZabbix:
		s, err := zabbix.NewZabbixSender(&zabbix.ZabbixSenderConfig{
			Host:    opts.ZabbixServer,
			Port:    opts.ZabbixPort,
			Timeout: opts.Timeout,
			DryRun:  opts.Dry,
			Debug:   opts.Debug,
			Verbose: opts.Verbose,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case atsreport.CollectorGraphite:
		s, err := graphite.NewGraphiteSender(&graphite.GraphiteSenderConfig{
			Prefix:  opts.GraphitePrefix,
			Host:    opts.GraphiteServer,
			Port:    opts.GraphitePort,
			DryRun:  opts.Dry,
			Debug:   opts.Debug,
			Verbose: opts.Verbose,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, errstack.WithLV(errstack.Errorf("collector %s is unsupported", opts.Collector))
}
