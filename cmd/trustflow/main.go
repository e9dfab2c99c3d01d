package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	// various formatters
	_ "github.com/netsampler/trustflow/format/binary"
	_ "github.com/netsampler/trustflow/format/csv"
	_ "github.com/netsampler/trustflow/format/json"
	_ "github.com/netsampler/trustflow/format/text"

	// various transports
	_ "github.com/netsampler/trustflow/transport/file"
	_ "github.com/netsampler/trustflow/transport/http"
	_ "github.com/netsampler/trustflow/transport/kafka"
	_ "github.com/netsampler/trustflow/transport/nats"

	"github.com/netsampler/trustflow/pkg/app"
	"github.com/netsampler/trustflow/pkg/config"
)

var (
	version    = ""
	buildinfos = ""
	AppVersion = "TrustFlow " + version + " " + buildinfos
)

func main() {
	printVersion := flag.Bool("v", false, "Print version")
	cfg, err := config.Load(flag.CommandLine, os.Args[1:])
	if *printVersion {
		fmt.Println(AppVersion)
		os.Exit(0)
	}
	if err != nil {
		logrus.WithError(err).Fatal("error loading configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		logrus.WithError(err).Fatal("error initializing")
	}
	if err := a.Run(ctx); err != nil {
		logrus.WithError(err).Fatal("error running")
	}
}
