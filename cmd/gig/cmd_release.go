package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/SmartSoftDev/git-info-generator/pkg/engine"
	"github.com/SmartSoftDev/git-info-generator/pkg/pack"
)

func newChangelogCmd(g *globals) *cobra.Command {
	var full bool
	var format, ref string

	cmd := &cobra.Command{
		Use:   "changelog",
		Short: "List the commits touching the component since its latest tag",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := g.open(cmd)
			if err != nil {
				return err
			}
			cl, err := eng.Changelog(cmd.Context(), ref, full)
			if err != nil {
				return err
			}
			return cl.Write(cmd.OutOrStdout(), format)
		},
	}

	cmd.Flags().BoolVar(&full, "full", false, "include the whole history, not only commits since the latest tag")
	cmd.Flags().StringVar(&format, "format", "yaml", "output format: yaml or json")
	cmd.Flags().StringVar(&ref, "ref", "HEAD", "last commit of the changelog")
	return cmd
}

func newPackCmd(g *globals) *cobra.Command {
	var typ, storage, forced string
	var keep, publish bool

	cmd := &cobra.Command{
		Use:   "pack",
		Short: "Build the component package archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := g.open(cmd)
			if err != nil {
				return err
			}
			opts := engine.PackOptions{
				Type:         typ,
				StorageDir:   storage,
				KeepDir:      keep,
				ForceVersion: forced,
				Scripts:      g.shell(cmd, eng),
			}
			if publish {
				cfg, ok := pack.S3ConfigFromEnv()
				if !ok {
					return fmt.Errorf("pack: --publish needs GIG_S3_ENDPOINT")
				}
				pub, err := pack.NewS3Publisher(cfg)
				if err != nil {
					return err
				}
				opts.Publisher = pub
			}
			res, err := eng.Pack(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if res == nil {
				return nil
			}
			if res.Existed {
				eng.Log().Infof("Package %s already exists", res.Label)
			}
			for _, f := range res.Files() {
				fmt.Fprintln(cmd.OutOrStdout(), f)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&typ, "type", "t", "", "archive type: none, tgz, zip or tzst (default package-archive-type)")
	cmd.Flags().StringVarP(&storage, "storage", "s", "", "directory receiving the package (default package-storage)")
	cmd.Flags().BoolVarP(&keep, "keep-dir", "k", false, "keep the unarchived package directory")
	cmd.Flags().BoolVar(&publish, "publish", false, "upload the package to the bucket named by GIG_S3_* variables")
	cmd.Flags().StringVar(&forced, "force-version", "", "package under this version instead of the resolved one")
	return cmd
}
