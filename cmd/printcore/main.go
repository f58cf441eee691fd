// Command printcore is a minimal demonstration client: it submits one
// job end-to-end against a configured printer and prints every status
// transition to stdout via the job's callback, following
// cmd/airprint-bridge/main.go's flag-plus-YAML configuration pattern.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mopria/printcore/internal/config"
	"github.com/mopria/printcore/internal/jobmanager"
	"github.com/mopria/printcore/internal/media"
	"github.com/mopria/printcore/internal/plugin"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	var (
		configPath  = flag.String("config", "/etc/printcore/printcore.yaml", "path to config file")
		addr        = flag.String("addr", "", "printer host (default: localhost)")
		port        = flag.Int("port", 0, "printer port (default: 631)")
		docPath     = flag.String("doc", "", "path to the document to print")
		mimeType    = flag.String("mime", "application/pdf", "document MIME type")
		copies      = flag.Int("copies", 0, "number of copies (default: 1)")
		logLevel    = flag.String("log-level", "", "log level: debug, info, warn, error")
		showVersion = flag.Bool("version", false, "show version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("printcore version %s (commit %s)\n", version, commit)
		os.Exit(0)
	}

	cfg := config.DefaultConfig()
	if f, err := config.Load(*configPath); err == nil {
		config.Apply(&cfg, f)
	} else if !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "warning: failed to load config file: %v\n", err)
	}
	if *addr != "" {
		cfg.PrinterAddr = *addr
	}
	if *port != 0 {
		cfg.PrinterPort = *port
	}

	level := zerolog.InfoLevel
	if *logLevel != "" {
		level = parseLogLevel(*logLevel)
	}
	zerolog.SetGlobalLevel(level)
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	if *docPath == "" {
		fmt.Fprintln(os.Stderr, "usage: printcore -doc <file> [-mime <type>]")
		os.Exit(2)
	}

	registry := plugin.NewRegistry()
	registry.Register("application/pdf", plugin.WireFormatPDF, 100, plugin.NewPassthroughFactory())
	for _, mime := range []string{"image/jpeg", "image/png"} {
		registry.Register(mime, plugin.WireFormatPWG, 100, plugin.NewPWGFactory())
		registry.Register(mime, plugin.WireFormatPCLm, 50, plugin.NewPCLmFactory())
	}

	mgr := jobmanager.NewManager(log, registry)
	mgr.SetMediaProfiles(media.NewRegistry())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pluginCount, err := mgr.Init(ctx, cfg.DebugDir)
	if err != nil {
		log.Fatal().Err(err).Msg("init failed")
	}
	log.Info().Int("plugin_count", pluginCount).Msg("job manager started")
	defer mgr.Exit()

	connect := jobmanager.ConnectInfo{
		Addr: cfg.PrinterAddr, Port: cfg.PrinterPort,
		URIPath: cfg.URIPath, Scheme: cfg.Scheme, TimeoutMS: cfg.TimeoutMS,
	}

	caps, err := mgr.GetCapabilities(ctx, connect)
	if err != nil {
		log.Fatal().Err(err).Msg("get-printer-attributes failed")
	}

	params := mgr.GetDefaultParams()
	if *copies > 0 {
		params.Copies = *copies
	}
	params.StripHeight = cfg.ClampStripHeight(params.StripHeight)
	params = mgr.FinalizeParams(params, caps)

	done := make(chan struct{})
	cb := func(ev jobmanager.CallbackEvent) {
		fmt.Printf("job %d: state=%s done=%d blocked=%v\n", ev.Handle, ev.State, ev.Done, ev.BlockedReasons)
		if ev.State == jobmanager.StateCompleted || ev.State == jobmanager.StateError ||
			ev.State == jobmanager.StateCancelled || ev.State == jobmanager.StateCorrupted {
			close(done)
		}
	}

	handle, err := mgr.StartJob(connect, *mimeType, params, caps, cfg.DebugDir, cb)
	if err != nil {
		log.Fatal().Err(err).Msg("start_job failed")
	}

	if err := mgr.Page(handle, jobmanager.PageQueueEntry{
		PageNum:  0,
		PDFPage:  *mimeType == "application/pdf",
		LastPage: true,
		Pathname: *docPath,
	}); err != nil {
		log.Fatal().Err(err).Msg("page failed")
	}

	<-done
	if err := mgr.EndJob(handle); err != nil {
		log.Error().Err(err).Msg("end_job failed")
	}
}

func parseLogLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
