package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/XiaoConstantine/spark-go/pkg/config"
	"github.com/XiaoConstantine/spark-go/pkg/executor"
	"github.com/XiaoConstantine/spark-go/pkg/llms"
	"github.com/XiaoConstantine/spark-go/pkg/loader"
	"github.com/XiaoConstantine/spark-go/pkg/logging"
	"github.com/XiaoConstantine/spark-go/pkg/parser"
	"github.com/XiaoConstantine/spark-go/pkg/pipeline"
	"github.com/XiaoConstantine/spark-go/pkg/vault"
)

// sparkd wires the engine together and consumes change events as JSON
// lines on stdin. The watcher/debouncer that produces those events, and
// full process lifecycle management, are external collaborators.
func main() {
	var (
		configPath    = flag.String("config", "spark.yaml", "path to configuration file")
		vaultRoot     = flag.String("vault", "", "vault root (overrides config)")
		logLevel      = flag.String("log-level", "INFO", "log severity")
		errorLog      = flag.String("error-log", "spark-errors.jsonl", "error report artifact")
		notifyLog     = flag.String("notify-log", "spark-notifications.jsonl", "notification stream")
		maxConcurrent = flag.Int("max-concurrent", 4, "max concurrent pipeline runs")
	)
	flag.Parse()

	logger := logging.NewLogger(logging.Config{
		Severity: logging.ParseSeverity(*logLevel),
		Outputs:  []logging.Output{logging.NewConsoleOutput(true)},
	})
	logging.SetLogger(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sparkd: %v\n", err)
		os.Exit(1)
	}
	if *vaultRoot != "" {
		cfg.Vault.Root = *vaultRoot
	}
	if cfg.Vault.Root == "" {
		fmt.Fprintln(os.Stderr, "sparkd: vault root is required (config vault.root or -vault)")
		os.Exit(1)
	}

	manager := config.NewManager(cfg)

	registry := llms.NewRegistry(logger)
	registry.LoadConfigs(cfg.AI.Providers)

	store := vault.NewOSStore()
	resolver := vault.NewPathResolver(cfg.Vault.Root, cfg.Vault.AgentsDir)
	ld := loader.NewLoader(store, resolver, cfg.Vault.NearbyFileLimit, logger)

	results := executor.NewResultWriter(store, cfg.Results.AddBlankLines, logger)
	errWriter := executor.NewErrorWriter(*errorLog, *notifyLog, logger)
	exec := executor.New(ld, registry, results, errWriter, manager, logger)

	fp := parser.NewFileParser(logger)
	pipe := pipeline.New(fp, exec, store, *maxConcurrent, logger)

	ctx := context.Background()
	logger.Info(ctx, "sparkd watching vault %s with default provider %s", cfg.Vault.Root, cfg.AI.DefaultProvider)

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var ev pipeline.ChangeEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			logger.Warn(ctx, "ignoring malformed change event: %v", err)
			continue
		}
		pipe.HandleEvent(ctx, ev)
	}
	if err := scanner.Err(); err != nil {
		logger.Error(ctx, "event stream error: %v", err)
	}

	pipe.Wait()
}
