package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// Version is overridden at build time via -ldflags.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "tokencert",
	Short: "TokenCert manages certificates and CSRs on security tokens",
	Long: `A certificate lifecycle service for keys held on security tokens:
CSR generation against approved CA profiles, certificate import,
activation, registration with the central authority and deletion.
Complete documentation is available at https://github.com/jmcleod/tokencert`,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
