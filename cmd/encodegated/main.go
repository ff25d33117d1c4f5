// Command encodegated runs the encodegate daemon. The configuration file is
// located the same way as for the CLI; ENCODEGATE_CONFIG overrides it.
package main

import (
	"context"
	"log"
	"os"

	"encodegate/internal/config"
	"encodegate/internal/daemonrun"
)

func main() {
	cfg, _, _, err := config.Load(os.Getenv("ENCODEGATE_CONFIG"))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := daemonrun.Run(context.Background(), cfg, daemonrun.Options{}); err != nil {
		log.Fatalf("encodegated: %v", err)
	}
}
