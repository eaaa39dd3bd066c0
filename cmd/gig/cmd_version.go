package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/SmartSoftDev/git-info-generator/pkg/semver"
)

type versionJSON struct {
	Version    string `json:"version"`
	Tag        string `json:"tag,omitempty"`
	TagVersion string `json:"tag_version,omitempty"`
	BuildCount int    `json:"build_count"`
	Commit     string `json:"commit,omitempty"`
	Release    bool   `json:"release"`
	Forced     bool   `json:"forced,omitempty"`
	Dirty      bool   `json:"dirty,omitempty"`
}

func newVersionCmd(g *globals) *cobra.Command {
	var ref, forced string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the component version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := g.open(cmd)
			if err != nil {
				return err
			}
			res, err := eng.Version(cmd.Context(), ref, forced)
			if err != nil {
				return err
			}
			if !asJSON {
				fmt.Fprintln(cmd.OutOrStdout(), res.Spec)
				return nil
			}
			out := versionJSON{
				Version:    res.Spec.String(),
				Tag:        res.Spec.TagName,
				BuildCount: res.Spec.BuildCount,
				Commit:     res.Spec.CommitRef,
				Release:    res.Spec.IsRelease,
				Forced:     res.Spec.Forced != "",
				Dirty:      res.Dirty != nil,
			}
			if !out.Forced {
				out.TagVersion = res.Spec.TagVersion.String()
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}

	cmd.Flags().StringVar(&ref, "ref", "HEAD", "commit to version")
	cmd.Flags().StringVar(&forced, "force-version", "", "use this version verbatim (semver or describe format)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the version details as JSON")
	return cmd
}

func newNextVersionCmd(g *globals) *cobra.Command {
	var minor, major bool
	var ref string

	cmd := &cobra.Command{
		Use:   "next-version",
		Short: "Print the next patch, minor or major version (see https://semver.org)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if minor && major {
				return fmt.Errorf("next-version: --minor and --major are exclusive")
			}
			part := semver.Patch
			switch {
			case major:
				part = semver.Major
			case minor:
				part = semver.Minor
			}
			eng, err := g.open(cmd)
			if err != nil {
				return err
			}
			next, err := eng.NextVersion(cmd.Context(), ref, part)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), next)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&minor, "minor", "m", false, "bump the minor version")
	cmd.Flags().BoolVarP(&major, "major", "M", false, "bump the major version")
	cmd.Flags().StringVar(&ref, "ref", "HEAD", "commit whose latest tag is bumped")
	return cmd
}
