package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opencolorado/datamap/internal/catalog"
)

var datasetsLimit int

var datasetsCmd = &cobra.Command{
	Use:   "datasets",
	Short: "List catalog packages that carry a shapefile resource",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer e.Close()

		pkgs, err := e.Engine.Datasets(cmd.Context(), datasetsLimit)
		if err != nil {
			return err
		}

		for _, pkg := range pkgs {
			res, _ := pkg.ShapefileResource()
			fmt.Printf("%-40s %s\n", pkg.Name, resourceLabel(res))
		}
		fmt.Printf("\n%d shapefile dataset(s)\n", len(pkgs))
		return nil
	},
}

func resourceLabel(res catalog.Resource) string {
	if res.Format != "" {
		return res.Format
	}
	return res.URL
}

func init() {
	datasetsCmd.Flags().IntVar(&datasetsLimit, "limit", 0, "list at most N datasets (0 = all)")
	rootCmd.AddCommand(datasetsCmd)
}
