package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hnakamur/ltsvlog"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/masa23/atsreport"
)

func main() {
	opts, err := atsreport.ParseArgs(os.Args[1:])
	if err != nil {
		kingpin.Fatalf("%s, try --help", err)
	}
	ret := run(opts)
	fmt.Println(ret)
	os.Exit(ret)
}

func run(opts *atsreport.Options) int {
	ltsvlog.Logger = ltsvlog.NewLTSVLogger(os.Stdout, opts.Debug)
	ltsvlog.Logger.Debug().Fmt("msg", "start atsreport pid=%d", os.Getpid()).
		String("host", opts.Host).Int("port", opts.Port).String("collector", opts.Collector).Log()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := &atsreport.Runner{
		Options:   opts,
		NewSender: newSender,
	}
	return atsreport.ExitCode(r.Run(ctx))
}
