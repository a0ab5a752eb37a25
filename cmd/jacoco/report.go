package main

import (
	"context"
	"io"

	"github.com/jenkins-x-apps/jacoco-go/internal/analysis"
	"github.com/jenkins-x-apps/jacoco-go/internal/config"
	"github.com/jenkins-x-apps/jacoco-go/internal/data"
	"github.com/jenkins-x-apps/jacoco-go/internal/report"
	"github.com/jenkins-x-apps/jacoco-go/internal/report/console"
	"github.com/jenkins-x-apps/jacoco-go/internal/report/html"
	"github.com/jenkins-x-apps/jacoco-go/internal/report/xml"
	"github.com/jenkins-x-apps/jacoco-go/internal/storage"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var showLines bool

var reportCmd = &cobra.Command{
	Use:   "report [DUMP...]",
	Short: "Analyze execution data and render coverage reports",
	Long: `report analyzes the class definitions of the definitions directory against
the execution data of the data file and of the given dumps. HTML and XML
reports are written to the output directory; a summary is printed unless
disabled with JACOCO_CONSOLE=false.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()
		return generate(ctx, configuration, args, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().BoolVar(&showLines, "lines", false, "print the status of every line in the console summary")
}

// generate runs a complete analysis and renders all configured reports.
func generate(ctx context.Context, cfg config.Configuration, dumps []string, stdout io.Writer) error {
	definitions, err := analysis.LoadDefinitionsDir(cfg.DefinitionsDir())
	if err != nil {
		return errors.Wrap(err, "unable to load class definitions")
	}

	store, sessions, err := loadExecutionData(ctx, cfg, dumps)
	if err != nil {
		return err
	}

	filter, err := analysis.NewFilter(cfg.Includes(), cfg.Excludes())
	if err != nil {
		return err
	}
	builder := analysis.NewCoverageBuilder()
	opts := []analysis.Option{analysis.WithFilter(filter), analysis.WithWorkers(cfg.Workers())}
	if progress := progressOption(definitions, filter); progress != nil {
		opts = append(opts, progress)
	}
	analyzer := analysis.NewAnalyzer(store, opts...)
	failures, err := analyzer.AnalyzeAll(ctx, definitions, builder)
	if err != nil {
		return err
	}
	if len(failures) > 0 {
		logger.Warnf("%d classes could not be analyzed", len(failures))
	}

	locator, err := report.NewDirectorySourceLocator(cfg.SourceDirs(), cfg.Encoding(), cfg.TabWidth())
	if err != nil {
		return err
	}
	defer locator.Close()

	out, err := report.NewDirectoryOutput(cfg.OutputDir())
	if err != nil {
		return err
	}
	defer out.Close()

	formatter, err := html.NewFormatter(
		html.WithLocale(cfg.Locale()),
		html.WithFooter(cfg.Footer()),
		html.WithOutputEncoding(cfg.Encoding()),
	)
	if err != nil {
		return err
	}
	visitors := []report.Visitor{formatter.CreateVisitor(out), xml.NewVisitor(out)}
	if cfg.Console() {
		var opts []console.Option
		if showLines {
			opts = append(opts, console.WithLines())
		}
		visitors = append(visitors, console.NewVisitor(stdout, opts...))
	}

	bundle := builder.Bundle(cfg.ReportName())
	if err := report.Render(ctx, report.NewMultiVisitor(visitors...), sessions.Infos(), store.All(), bundle, locator); err != nil {
		return err
	}
	logger.Infof("coverage report for %d classes written to %s", len(builder.Classes()), cfg.OutputDir())
	return out.Close()
}

// loadExecutionData merges the data file, if present, and the given dumps.
func loadExecutionData(ctx context.Context, cfg config.Configuration, dumps []string) (*data.Store, *data.SessionInfoStore, error) {
	store := data.NewStore()
	sessions := data.NewSessionInfoStore()

	if exists(cfg.DataFile()) {
		db, err := storage.Open(cfg.DataFile())
		if err != nil {
			return nil, nil, err
		}
		defer db.Close()
		failures, err := db.Load(ctx, store, sessions)
		if err != nil {
			return nil, nil, err
		}
		for id, err := range failures {
			logger.Warnf("stored execution data for %s not loaded: %s", id, err)
		}
	}

	for _, source := range dumps {
		dump, err := loadDump(cfg.Namespace(), source)
		if err != nil {
			return nil, nil, err
		}
		for id, err := range dump.Merge(store, sessions) {
			logger.Warnf("execution data for %s from %s not merged: %s", id, source, err)
		}
	}
	logger.Debugf("loaded %d execution records of %d sessions", store.Len(), len(sessions.Infos()))
	return store, sessions, nil
}
