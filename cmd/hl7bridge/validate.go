package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"hl7bridge/internal/mapping"
)

var errInvalidConfig = errors.New("configuration has errors")

func newValidateCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a mapping configuration and print every diagnostic",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runValidate(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "mapping configuration (YAML or JSON)")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}

func runValidate(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	f, err := mapping.LoadFile(configPath)
	if err != nil {
		fmt.Fprintln(out, err)
		return errInvalidConfig
	}

	plan, diags := mapping.Compile(f)

	for _, d := range diags.Errors {
		fmt.Fprintf(out, "error: %s\n", d)
	}

	for _, d := range diags.Warnings {
		fmt.Fprintf(out, "warning: %s\n", d)
	}

	if diags.HasErrors() {
		return fmt.Errorf("%w: %d error(s)", errInvalidConfig, len(diags.Errors))
	}

	fmt.Fprintf(out, "ok: %s\n", plan.Describe())

	return nil
}
