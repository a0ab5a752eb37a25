package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jenkins-x-apps/jacoco-go/internal/config"
	"github.com/jenkins-x-apps/jacoco-go/internal/logging"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	logger = logging.AppLogger().WithFields(log.Fields{"component": "main"})

	propertiesFile string
	configuration  config.Configuration
)

var rootCmd = &cobra.Command{
	Use:   "jacoco",
	Short: "Code coverage analysis and reporting",
	Long: `jacoco merges execution data recorded by instrumented classes, analyzes it
against the class definitions and renders HTML, XML and console reports.

Every setting can be given as environment variable or in a properties file.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.NewConfiguration(propertiesFile)
		if err != nil {
			return err
		}
		configuration = c
		logging.SetLevel(configuration.Level())
		logger.Debugf("starting %s %s with config: %s", logging.AppName, cmd.Name(), configuration)
		return nil
	},
}

func init() {
	// Output to stdout instead of the default stderr
	log.SetOutput(os.Stdout)

	rootCmd.PersistentFlags().StringVarP(&propertiesFile, "properties", "p", "", "properties file with settings (environment variables take precedence)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setupSignalChannel registers a listener for Unix signals for a ordered shutdown
func setupSignalChannel(shutdown func()) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, os.Interrupt)

	go func() {
		logger.Debug("waiting for shutdown signal in the background")
		<-sigChan
		logger.Info("received shutdown signal - initiating shutdown")
		shutdown()
	}()
}

// signalContext returns a context which is cancelled on SIGTERM or interrupt.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	setupSignalChannel(cancel)
	return ctx, cancel
}
