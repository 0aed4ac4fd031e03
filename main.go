// @title SkillTrack API
// @version 1.0
// @description Attempt tracking, progress and error analytics for wheelchair skill training.

// @host localhost:8080
// @BasePath /

package main

import (
	"fmt"
	"os"

	"skilltrack_backend/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
