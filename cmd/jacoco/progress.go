package main

import (
	"fmt"
	"os"
	"time"

	"github.com/jenkins-x-apps/jacoco-go/internal/analysis"
	"github.com/jenkins-x-apps/jacoco-go/internal/data"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
)

// progressOption returns an analyzer option drawing a progress bar on stderr,
// or nil when stderr is not a terminal.
func progressOption(definitions []analysis.ClassDefinition, filter *analysis.Filter) analysis.Option {
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		return nil
	}
	total := 0
	for _, def := range definitions {
		if filter.Accept(def.Name) {
			total++
		}
	}
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("Analyzing classes"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(os.Stderr)
		}),
	)
	return analysis.WithProgress(func(data.ID) {
		bar.Add(1)
	})
}
