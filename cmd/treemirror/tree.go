package main

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/viant/treemirror"
	"gopkg.in/yaml.v3"
)

var treeCmd = &cobra.Command{
	Use:   "tree <rootURL> [path]",
	Short: "Sweep rootURL once and print the tree as YAML",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		srv, err := newService(func(cfg *treemirror.Config) {
			cfg.Tree.Scheduled = false
			cfg.Store.Type = treemirror.StoreMemory
		})
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		defer srv.Shutdown(context.Background())
		if err = srv.Init(ctx, args[0]); err != nil {
			return err
		}
		location := "/"
		if len(args) == 2 {
			location = args[1]
		}
		node, err := srv.Mirror().View(ctx, location)
		if err != nil {
			return err
		}
		data, err := yaml.Marshal(node)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}
