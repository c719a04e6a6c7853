package main

import (
	"log/slog"

	"github.com/giygas/substance-mapper/atc"
	"github.com/giygas/substance-mapper/config"
	"github.com/giygas/substance-mapper/interfaces"
	"github.com/giygas/substance-mapper/mapper"
	"github.com/giygas/substance-mapper/matching"
	"github.com/giygas/substance-mapper/output"
	"github.com/giygas/substance-mapper/terminology"
	"github.com/giygas/substance-mapper/tools"
	"github.com/giygas/substance-mapper/validation"
)

// app holds the components shared by the CLI, the tools command and the
// tool server
type app struct {
	cfg         *config.Config
	logger      *slog.Logger
	terminology *terminology.Client
	matcher     *matching.Engine
	atc         *atc.Resolver
	mapper      *mapper.Mapper
	validator   interfaces.DataValidator
	registry    *tools.Registry
	namer       *output.Namer
}

func newApp(cfg *config.Config, logger *slog.Logger) *app {
	client := terminology.NewClient(terminology.Options{
		BaseURL:  cfg.TerminologyBaseURL,
		Branch:   cfg.TerminologyBranch,
		Timeout:  cfg.TerminologyTimeout,
		RetryMax: cfg.TerminologyRetryMax,
		Rate:     cfg.OutboundRate,
		Logger:   logger,
	})
	engine := matching.NewEngine(client, logger)
	resolver := atc.NewResolver(atc.NewHTTPFetcher(cfg.ATCTimeout, cfg.OutboundRate), cfg.ATCBaseURL, logger)
	m := mapper.New(engine, resolver, logger)
	validator := validation.NewValidator(cfg.MaxRequestBody)
	registry := tools.NewDefaultRegistry(tools.Services{
		Mapper:    m,
		Matcher:   engine,
		ATC:       resolver,
		Validator: validator,
	}, logger)

	return &app{
		cfg:         cfg,
		logger:      logger,
		terminology: client,
		matcher:     engine,
		atc:         resolver,
		mapper:      m,
		validator:   validator,
		registry:    registry,
		namer:       output.NewNamer(cfg.OutputDir, logger),
	}
}
