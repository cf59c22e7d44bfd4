package main

import (
	"os"

	"github.com/HamedShams/groona-pulse/internal/jobs"
)

func main() {
	force := false
	for _, arg := range os.Args[1:] {
		if arg == "--force" || arg == "-force" { force = true }
	}
	os.Exit(jobs.Main("sprint-health", force))
}
