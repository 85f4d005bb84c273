package main

import (
	"fmt"

	"infernalforge/core"

	"github.com/fatih/color"
)

// printBanner writes the startup banner to stdout. Skipped output is fine
// when running non-interactively; fatih/color disables itself when stdout
// is not a terminal.
func printBanner(cfg *core.Config) {
	title := color.New(color.FgRed, color.Bold)
	dim := color.New(color.FgHiBlack)
	value := color.New(color.FgCyan)

	title.Println(`
  ___        __                        _ _____
 |_ _|_ __  / _| ___ _ __ _ __   __ _| |  ___|__  _ __ __ _  ___
  | || '_ \| |_ / _ \ '__| '_ \ / _' | | |_ / _ \| '__/ _' |/ _ \
  | || | | |  _|  __/ |  | | | | (_| | |  _| (_) | | | (_| |  __/
 |___|_| |_|_|  \___|_|  |_| |_|\__,_|_|_|  \___/|_|  \__, |\___|
                                                      |___/`)

	dim.Print("  listen        ")
	value.Printf("%s:%d\n", cfg.Host, cfg.Port)
	dim.Print("  backend       ")
	value.Println(cfg.DispatchBackend)
	if cfg.DispatchBackend == core.BackendHTTP {
		dim.Print("  inference     ")
		value.Println(cfg.AIServiceURL)
	}
	dim.Print("  rate limits   ")
	value.Printf("%d/user, %d/global per %s\n",
		cfg.UserRateLimit, cfg.GlobalRateLimit, cfg.RateLimitWindow)
	dim.Print("  concurrency   ")
	value.Printf("%d per user\n", cfg.MaxConcurrentJobs)
	fmt.Println()
}
