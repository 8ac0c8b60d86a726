package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/matzehuels/mvnkit/pkg/errors"
	"github.com/matzehuels/mvnkit/pkg/pom"
)

type pomOpts struct {
	projectOpts
	noProperties bool
	output       string
}

// pomCommand creates the pom command, which prints the effective descriptor:
// the project after inheritance, interpolation and dependency management.
func (c *CLI) pomCommand() *cobra.Command {
	var opts pomOpts

	cmd := &cobra.Command{
		Use:   "pom",
		Short: "Print the effective project descriptor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runPOM(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	opts.register(cmd)
	cmd.Flags().BoolVar(&opts.noProperties, "no-properties", false, "omit the properties section")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (stdout if empty)")

	return cmd
}

func (c *CLI) runPOM(ctx context.Context, stdout io.Writer, opts pomOpts) error {
	p, err := c.openProject(ctx, opts.projectOpts)
	if err != nil {
		return err
	}

	repos := make([]pom.Repository, len(p.settings.Repositories))
	for i, r := range p.settings.Repositories {
		repos[i] = pom.Repository{ID: r.ID, URL: r.URL}
	}

	out, err := openOutput(stdout, opts.output)
	if err != nil {
		return err
	}
	defer out.Close()

	err = p.root.WriteXML(out, pom.WriteOptions{
		IncludeProperties: !opts.noProperties,
		Repositories:      repos,
	})
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write descriptor")
	}
	return nil
}
