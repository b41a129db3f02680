package main

import (
	"fmt"
	"time"

	"github.com/bobinette/research/pipeline"
)

// cliPrinter gives Docker-style phase/step/summary output to the indexer CLI, the same
// texture as the reference indexer's own cli package, minus the progress bar itself
// (progressbar/v3 owns that for phase1/run).
type cliPrinter struct {
	quiet bool
}

func newCLIPrinter(quiet bool) *cliPrinter {
	return &cliPrinter{quiet: quiet}
}

func (p *cliPrinter) Phase(name string) {
	if p.quiet {
		return
	}
	fmt.Println()
	fmt.Printf("==> %s\n", name)
}

func (p *cliPrinter) Step(msg string) {
	if p.quiet {
		return
	}
	fmt.Printf(" ---> %s\n", msg)
}

func (p *cliPrinter) Warn(msg string) {
	fmt.Printf(" ---> [WARNING] %s\n", msg)
}

func (p *cliPrinter) Status(snap pipeline.Snapshot) string {
	status := ""
	add := func(part string) {
		if status != "" {
			status += " -> "
		}
		status += part
	}
	if snap.BatchesInFetch > 0 {
		add("fetch")
	}
	if snap.BatchesInEmbed > 0 || snap.DocsInEmbed > 0 {
		add(fmt.Sprintf("embed:%d", snap.DocsInEmbed))
	}
	if snap.BatchesInIndex > 0 || snap.DocsInIndex > 0 {
		add(fmt.Sprintf("index:%d", snap.DocsInIndex))
	}
	if snap.BatchesInSync > 0 || snap.DocsInSync > 0 {
		add(fmt.Sprintf("sync:%d", snap.DocsInSync))
	}
	if status == "" {
		return "starting..."
	}
	return status
}

// Summary prints a final box, the same shape as the reference indexer's completion
// banner: success/errors/elapsed/rate.
func (p *cliPrinter) Summary(title string, success, errCount int64, elapsed time.Duration) {
	if p.quiet {
		return
	}

	rate := float64(success) / elapsed.Seconds()
	fmt.Println()
	fmt.Println("==========================================================")
	fmt.Printf("  %s\n", title)
	fmt.Println("----------------------------------------------------------")
	fmt.Printf("  Successful:     %d\n", success)
	fmt.Printf("  Errors:         %d\n", errCount)
	fmt.Printf("  Elapsed:        %s\n", elapsed.Round(time.Millisecond))
	fmt.Printf("  Rate:           %.1f docs/sec\n", rate)
	fmt.Println("==========================================================")
}
