// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pdiddy/convertly/internal/batch"
)

var workflowsCmd = &cobra.Command{
	Use:   "workflows",
	Short: "List the available workflows",
	RunE: func(cmd *cobra.Command, args []string) error {
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tENDPOINT\tACCEPTS\tDESCRIPTION")
		for _, wf := range batch.Workflows() {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", wf.Name, wf.Endpoint, wf.Accepts, wf.Description)
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(workflowsCmd)
}
