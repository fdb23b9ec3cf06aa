package cmd

import (
	"fmt"

	"github.com/hakulabs/haku/internal/i18n"
)

// Version information, injected at build time via ldflags.
var (
	Version   = "development"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// runVersion displays version and build information.
func runVersion() {
	fmt.Println(i18n.Sprintf("app.version", Version))
	fmt.Printf("  build:  %s\n", BuildTime)
	fmt.Printf("  commit: %s\n", GitCommit)
}
