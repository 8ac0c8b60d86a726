package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/matzehuels/mvnkit/pkg/solver"
)

// resolveOpts holds the command-line flags for the resolve command.
type resolveOpts struct {
	projectOpts
	scopes string
	quiet  bool
}

// resolveCommand creates the resolve command. It fetches every descriptor
// the project needs, then downloads the artifacts of each requested scope.
func (c *CLI) resolveCommand() *cobra.Command {
	opts := resolveOpts{scopes: "compile,runtime,test"}

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Download the dependencies of a project",
		Long: `Resolve reads the project descriptor, fetches the descriptors of all
transitive dependencies and downloads the artifacts of each scope into the
local cache.

Examples:
  mvnkit resolve
  mvnkit resolve -f app/pom.xml --scope runtime --sources
  mvnkit resolve --offline`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runResolve(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), opts)
		},
	}

	opts.register(cmd)
	cmd.Flags().StringVarP(&opts.scopes, "scope", "s", opts.scopes, "comma-separated scopes to resolve")
	cmd.Flags().BoolVar(&opts.sources, "sources", false, "also download sources jars")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "do not list artifacts")
	_ = cmd.RegisterFlagCompletionFunc("scope", completeScopes)

	return cmd
}

func (c *CLI) runResolve(ctx context.Context, stdout, stderr io.Writer, opts resolveOpts) error {
	scopes, err := parseScopes(opts.scopes)
	if err != nil {
		return err
	}
	logger := loggerFromContext(ctx)

	p, err := c.openProject(ctx, opts.projectOpts)
	if err != nil {
		return err
	}
	logger.Infof("Resolving %s", p.root.Dependency())

	prog := newProgress(logger)
	status := newPrinter(stderr)
	spinner := newSpinner(ctx, stderr, "Fetching descriptors...")
	spinner.Start()
	results := make([][]solver.Artifact, len(scopes))
	err = p.solver.RetrievePOMs(ctx)
	for i, scope := range scopes {
		if err != nil {
			break
		}
		spinner.Update("Downloading %s artifacts...", scope)
		results[i], err = p.solver.RetrieveArtifacts(ctx, scope)
	}
	spinner.Stop()
	if err != nil {
		return err
	}

	total, missing := 0, 0
	for i, artifacts := range results {
		total += len(artifacts)
		missing += countMissing(artifacts)
		if !opts.quiet {
			newPrinter(stdout).scope(scopes[i], artifacts)
		}
	}
	prog.done(fmt.Sprintf("Resolved %d artifacts in %d scopes", total, len(scopes)))

	if missing > 0 {
		status.warning("%d artifacts could not be downloaded", missing)
		return nil
	}
	status.nextStep("Print the runtime classpath", "mvnkit classpath --scope runtime")
	return nil
}

func countMissing(artifacts []solver.Artifact) int {
	n := 0
	for _, a := range artifacts {
		if a.Path == "" {
			n++
		}
	}
	return n
}
