package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ormasoftchile/mapgen/pkg/kernel/plan"
)

var schemaRequestVersion int

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Export JSON Schemas",
}

var schemaRunRequestCmd = &cobra.Command{
	Use:   "run-request",
	Short: "Export the run request JSON Schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := plan.GenerateRunRequestJSONSchema(schemaRequestVersion)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

var schemaPlanCmd = &cobra.Command{
	Use:   "plan",
	Short: "Export the execution plan JSON Schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := plan.GeneratePlanJSONSchema()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

func init() {
	schemaRunRequestCmd.Flags().IntVar(&schemaRequestVersion, "version", 2, "Run request schema version (1 or 2)")
	schemaCmd.AddCommand(schemaRunRequestCmd)
	schemaCmd.AddCommand(schemaPlanCmd)
	rootCmd.AddCommand(schemaCmd)
}
