package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "ledgerctl",
	Short:         "Administración del ledger de stock del bar",
	Long:          "ledgerctl aplica el schema, verifica el historial de cada botella y emite tokens de desarrollo.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Base de datos
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(verifyCmd)

	// Desarrollo
	rootCmd.AddCommand(tokenCmd)
}
