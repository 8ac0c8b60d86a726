package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/matzehuels/mvnkit/pkg/classpath"
	"github.com/matzehuels/mvnkit/pkg/errors"
)

const (
	formatPath    = "path"
	formatEclipse = "eclipse"
)

type classpathOpts struct {
	projectOpts
	scope  string
	format string
	output string
}

// classpathCommand creates the classpath command.
func (c *CLI) classpathCommand() *cobra.Command {
	opts := classpathOpts{scope: "runtime", format: formatPath}

	cmd := &cobra.Command{
		Use:   "classpath",
		Short: "Print the classpath of a scope",
		Long: `Classpath resolves one scope and prints the cached artifact paths, either
joined with the platform's path list separator or as an Eclipse .classpath
document.

Examples:
  java -cp "$(mvnkit classpath)" com.example.Main
  mvnkit classpath --scope test --format eclipse --sources -o .classpath`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runClasspath(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	opts.register(cmd)
	cmd.Flags().StringVarP(&opts.scope, "scope", "s", opts.scope, "scope to print")
	cmd.Flags().StringVar(&opts.format, "format", opts.format, "output format: path, eclipse")
	cmd.Flags().BoolVar(&opts.sources, "sources", false, "attach sources jars (eclipse)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (stdout if empty)")
	_ = cmd.RegisterFlagCompletionFunc("scope", completeScopes)
	_ = cmd.RegisterFlagCompletionFunc("format", completeFormats)

	return cmd
}

func (c *CLI) runClasspath(ctx context.Context, stdout io.Writer, opts classpathOpts) error {
	if opts.format != formatPath && opts.format != formatEclipse {
		return errors.New(errors.ErrCodeInvalidInput, "unknown format %q (want %s or %s)", opts.format, formatPath, formatEclipse)
	}
	scopes, err := parseScopes(opts.scope)
	if err != nil {
		return err
	}
	if len(scopes) != 1 {
		return errors.New(errors.ErrCodeInvalidInput, "classpath takes exactly one scope")
	}

	p, err := c.openProject(ctx, opts.projectOpts)
	if err != nil {
		return err
	}
	artifacts, err := p.solver.RetrieveArtifacts(ctx, scopes[0])
	if err != nil {
		return err
	}
	entries := classpath.FromArtifacts(artifacts)

	out, err := openOutput(stdout, opts.output)
	if err != nil {
		return err
	}
	defer out.Close()

	switch opts.format {
	case formatEclipse:
		err = classpath.Write(out, entries, classpath.Options{})
	default:
		_, err = fmt.Fprintln(out, classpath.Join(entries))
	}
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write classpath")
	}
	if opts.output != "" {
		loggerFromContext(ctx).Infof("Wrote %d entries to %s", len(entries), opts.output)
	}
	return nil
}
