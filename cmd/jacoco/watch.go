package main

import (
	"context"
	"net/http"
	"sync"

	"github.com/jenkins-x-apps/jacoco-go/internal/cluster"
	"github.com/jenkins-x-apps/jacoco-go/internal/logging"
	"github.com/jenkins-x/jx/pkg/jx/cmd/clients"
	"github.com/spf13/cobra"
)

var healthAddr string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Publish coverage facts for pipeline activities",
	Long: `watch observes the PipelineActivities of the configured namespace. For every
activity carrying 'jacoco' attachments the attached class definitions and
execution data dumps are retrieved, analyzed and published as coverage Fact.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVar(&healthAddr, "health-addr", ":8080", "address of the health endpoint")
}

func runWatch(cmd *cobra.Command, args []string) error {
	factory := clients.NewFactory()
	jxClient, _, err := factory.CreateJXClient()
	if err != nil {
		return err
	}

	eventHandler, err := cluster.NewEventHandler(jxClient, configuration)
	if err != nil {
		return err
	}

	var (
		wg   sync.WaitGroup
		once sync.Once
	)
	done := make(chan struct{})
	shutdown := func() {
		once.Do(func() { close(done) })
	}
	setupSignalChannel(shutdown)

	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info("starting event handler for pipelineactivites")
		eventHandler.Start(done)
		logger.Info("event handler has shut down")
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		startHTTPServer(healthAddr, done, shutdown)
		logger.Info("HTTP server has shut down")
	}()

	wg.Wait()
	logger.Infof("%s has successfully shut down", logging.AppName)
	return nil
}

func startHTTPServer(addr string, done chan struct{}, shutdown func()) {
	server := &http.Server{Addr: addr}
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
	})
	server.Handler = mux

	go func() {
		// returns ErrServerClosed on graceful close
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			logger.Errorf("ListenAndServe(): %s", err)
			shutdown()
		}
	}()

	<-done
	server.Shutdown(context.TODO())
}
