package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/eugenenazirov/confpack/internal/config"
	"github.com/eugenenazirov/confpack/internal/logging"
	"github.com/eugenenazirov/confpack/internal/pipeline"
	"github.com/eugenenazirov/confpack/internal/tree"
)

func main() {
	kingpinApp := kingpin.New("confpack", "Configuration package compiler - resolves layered config packages into a service-scoped document")
	packagePath1 := kingpinApp.Arg("package-path", "Path to first configuration package").Required().String()
	packagePath2 := kingpinApp.Arg("package-path2", "Path to second configuration package (optional)").String()
	environment := kingpinApp.Flag("environment", "Environment name (e.g. \"perf\")").Short('e').Required().String()
	service := kingpinApp.Flag("service", "Service name (e.g. \"MyApplication\")").Short('s').Required().String()
	configFile := kingpinApp.Flag("config", "Path to YAML configuration file").String()
	mainConfig := kingpinApp.Flag("main-config", "Main configuration filename (default: resources.yaml)").String()
	outputFile1 := kingpinApp.Flag("output-file1", "Output file path for first package result").String()
	outputFile2 := kingpinApp.Flag("output-file2", "Output file path for second package result").String()
	scope := kingpinApp.Flag("substitution-scope", "Placeholder substitution scope: document or service").String()
	maxIterations := kingpinApp.Flag("max-iterations", "Maximum placeholder substitution passes").Default("-1").Int()
	logLevel := kingpinApp.Flag("log-level", "Logging level (debug, info, warn, error)").String()

	kingpin.MustParse(kingpinApp.Parse(os.Args[1:]))

	overrides := &config.CLIOverrides{
		ConfigFile: *configFile,
	}

	if *mainConfig != "" {
		overrides.MainConfig = mainConfig
	}

	if *scope != "" {
		overrides.SubstitutionScope = scope
	}

	if *maxIterations >= 1 {
		overrides.MaxIterations = maxIterations
	}

	if *logLevel != "" {
		overrides.LogLevel = logLevel
	}

	cfg, err := config.Load(overrides)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() {
		_ = logger.Sync()
	}()

	processor := pipeline.New(logger, pipeline.Options{
		MainConfig:    cfg.MainConfig,
		MaxIterations: cfg.MaxIterations,
		Scope:         pipeline.SubstitutionScope(cfg.SubstitutionScope),
	})

	// With a second package, the first result goes out compact and the
	// second indented; a lone package is always indented.
	firstIndented := *packagePath2 == ""

	logger.Info("processing first package", zap.String("package", *packagePath1))
	result1, err := processor.Process(*packagePath1, *environment, *service)
	if err != nil {
		logger.Fatal("error processing configuration package",
			zap.String("package", *packagePath1), zap.Error(err))
	}
	if err := writeOutput(result1, *outputFile1, firstIndented); err != nil {
		logger.Fatal("failed to write output", zap.Error(err))
	}

	if *packagePath2 == "" {
		return
	}

	logger.Info("processing second package", zap.String("package", *packagePath2))
	result2, err := processor.Process(*packagePath2, *environment, *service)
	if err != nil {
		logger.Fatal("error processing configuration package",
			zap.String("package", *packagePath2), zap.Error(err))
	}
	if err := writeOutput(result2, *outputFile2, true); err != nil {
		logger.Fatal("failed to write output", zap.Error(err))
	}
}

// writeOutput renders the result as JSON to the given file, or to stdout
// when the path is empty.
func writeOutput(result *tree.Mapping, outputFile string, indented bool) error {
	var (
		data []byte
		err  error
	)
	if indented {
		data, err = json.MarshalIndent(result, "", "  ")
	} else {
		data, err = json.Marshal(result)
	}
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	if outputFile == "" {
		_, err = fmt.Println(string(data))
		return err
	}
	return os.WriteFile(outputFile, append(data, '\n'), 0o644)
}
