// Command hl7bridge transforms HL7 v2 messages to XML or JSON documents and
// back, driven by a mapping configuration.
//
//	hl7bridge validate --config mapping.yaml
//	hl7bridge transform --config mapping.yaml --out results/ messages/
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "hl7bridge",
		Short: "Transform HL7 v2 messages to and from XML or JSON documents",
		Long: `hl7bridge converts delimited HL7 v2 messages into XML or JSON documents,
and documents back into HL7 v2, according to a YAML or JSON mapping
configuration. The direction follows the configuration's input_format and
output_format.`,
		SilenceUsage: true,
	}

	root.AddCommand(newTransformCmd(), newValidateCmd(), newVersionCmd())

	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "hl7bridge %s\n", version)
		},
	}
}
