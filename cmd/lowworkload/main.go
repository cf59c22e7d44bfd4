package main

import (
	"os"

	"github.com/HamedShams/groona-pulse/internal/jobs"
)

func main() {
	os.Exit(jobs.Main("low-workload", false))
}
