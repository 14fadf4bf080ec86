// Package main is the entry point for the numchain server and CLI.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/logrusorgru/aurora/v4"
	"github.com/spf13/cobra"
	"github.com/tidwall/pretty"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:           "numchain",
	Short:         "Dual-domain numeric engine and optional-chain navigator",
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	rootCmd.Version = version + " (commit=" + commit + ", built=" + date + ")"
	rootCmd.SetVersionTemplate("numchain version {{.Version}}\n")
	rootCmd.PersistentFlags().Bool("color", false, "Colorize JSON output")

	rootCmd.AddCommand(serveCmd, calcCmd, classifyCmd, constantsCmd, parseCmd, callCmd, chainCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, colorizeError("error: "+err.Error()))
		os.Exit(1)
	}
}

func colorizeError(message string) string {
	return aurora.Colorize(message, aurora.RedFg|aurora.BrightFg|aurora.BoldFm).String()
}

// printJSON writes v as indented JSON to the command's output.
func printJSON(cmd *cobra.Command, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	out := pretty.Pretty(b)
	if f := cmd.Flag("color"); f != nil && f.Value.String() == "true" {
		out = pretty.Color(out, pretty.TerminalStyle)
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
