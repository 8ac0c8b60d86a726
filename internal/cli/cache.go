package cli

import (
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/mvnkit/pkg/errors"
	"github.com/matzehuels/mvnkit/pkg/maven"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the local artifact cache",
	}

	cmd.AddCommand(c.cachePathCommand())
	cmd.AddCommand(c.cacheListCommand())
	cmd.AddCommand(c.cachePurgeCommand())
	cmd.AddCommand(c.cacheClearCommand())

	return cmd
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, _, err := c.openCache()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cc.Root())
			return nil
		},
	}
}

// cacheListCommand creates the "cache list" subcommand.
func (c *CLI) cacheListCommand() *cobra.Command {
	var prefix string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cached files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, _, err := c.openCache()
			if err != nil {
				return err
			}
			return listCache(cmd.OutOrStdout(), cc.Walk, prefix)
		},
	}
	cmd.Flags().StringVar(&prefix, "group", "", "only list files of this group id")
	return cmd
}

func listCache(w io.Writer, walk func(func(string, fs.FileInfo) error) error, group string) error {
	dir := strings.ReplaceAll(group, ".", "/")
	if dir != "" {
		dir += "/"
	}
	return walk(func(rel string, info fs.FileInfo) error {
		if !strings.HasPrefix(rel, dir) {
			return nil
		}
		_, err := fmt.Fprintf(w, "%s\t%d\n", rel, info.Size())
		return err
	})
}

// cachePurgeCommand creates the "cache purge" subcommand.
func (c *CLI) cachePurgeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "purge <group:artifact:version>...",
		Short: "Remove the cached files of coordinates",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, _, err := c.openCache()
			if err != nil {
				return err
			}
			for _, arg := range args {
				dep, err := maven.ParseDependency(arg)
				if err != nil {
					return err
				}
				if !dep.IsMavenObject() || dep.Version == "" {
					return errors.New(errors.ErrCodeInvalidInput, "purge needs group:artifact:version, got %q", arg)
				}
				n, err := cc.Purge(dep)
				if err != nil {
					return err
				}
				newPrinter(cmd.ErrOrStderr()).success("Purged %d files of %s", n, dep)
			}
			return nil
		},
	}
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, _, err := c.openCache()
			if err != nil {
				return err
			}
			n, err := cc.Clear()
			if err != nil {
				return errors.Wrap(errors.ErrCodeInternal, err, "clear cache")
			}
			status := newPrinter(cmd.ErrOrStderr())
			if n == 0 {
				status.info("Cache is empty")
				return nil
			}
			status.success("Cleared %d cached files", n)
			status.detail("Directory: %s", cc.Root())
			return nil
		},
	}
}
