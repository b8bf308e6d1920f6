// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/convertly/internal/convert"
	"github.com/pdiddy/convertly/internal/service"
)

var convertCmd = &cobra.Command{
	Use:   "convert <endpoint> <file>",
	Short: "Convert a single file through a service endpoint",
	Long: `Convert sends one file to the named endpoint (for example compress-pdf or
pdf-editor) and saves the result. Extra form fields are passed with --field,
e.g. --field action=rotate --field angle=90.`,
	Args: cobra.ExactArgs(2),
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().String("out", ".", "directory for the converted file")
	convertCmd.Flags().String("name", "", "file name for binary results")
	convertCmd.Flags().StringToString("field", nil, "form field sent with the file (repeatable)")

	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client, err := service.NewClient(cfg.Service)
	if err != nil {
		return err
	}

	outDir, _ := cmd.Flags().GetString("out")
	name, _ := cmd.Flags().GetString("name")
	fields, _ := cmd.Flags().GetStringToString("field")

	_, err = convert.File(cmd.Context(), client, service.Endpoint(args[0]), args[1], outDir, os.Stdout, convert.Options{
		Fields:       fields,
		DownloadName: name,
	})
	return err
}
