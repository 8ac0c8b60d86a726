package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/matzehuels/mvnkit/pkg/buildinfo"
	"github.com/matzehuels/mvnkit/pkg/cache"
	"github.com/matzehuels/mvnkit/pkg/config"
	"github.com/matzehuels/mvnkit/pkg/errors"
	"github.com/matzehuels/mvnkit/pkg/maven"
	"github.com/matzehuels/mvnkit/pkg/observability"
	"github.com/matzehuels/mvnkit/pkg/pom"
	"github.com/matzehuels/mvnkit/pkg/solver"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "mvnkit"

	// defaultPOM is the descriptor read when -f is not given.
	defaultPOM = "pom.xml"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	settingsPath string
	metricsFile  string
	registry     *prometheus.Registry
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "mvnkit resolves and caches Maven dependencies",
		Long:         `mvnkit reads a project's pom.xml, computes the transitive dependencies of each build scope, downloads them from Maven repositories into a verified local cache and prints classpaths for build tools and IDEs.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			if c.metricsFile != "" {
				c.registry = prometheus.NewRegistry()
				m := observability.NewPrometheus(c.registry)
				observability.SetResolveHooks(m)
				observability.SetCacheHooks(m)
				observability.SetHTTPHooks(m)
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return c.writeMetrics()
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.settingsPath, "settings", "", "settings file (default: $MVNKIT_SETTINGS or ~/.config/mvnkit/settings.toml)")
	root.PersistentFlags().StringVar(&c.metricsFile, "metrics-file", "", "write Prometheus metrics in text format to this file")

	// Register all subcommands
	root.AddCommand(c.resolveCommand())
	root.AddCommand(c.classpathCommand())
	root.AddCommand(c.pomCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.completionCommand())

	return root
}

func (c *CLI) writeMetrics() error {
	if c.metricsFile == "" || c.registry == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(c.metricsFile, c.registry); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write metrics %s", c.metricsFile)
	}
	c.Logger.Debugf("wrote metrics to %s", c.metricsFile)
	return nil
}

// =============================================================================
// Project Factory
// =============================================================================

// project is an opened build: settings, cache and a solver with the root
// descriptor loaded.
type project struct {
	settings *config.Settings
	cache    *cache.Cache
	solver   *solver.Solver
	root     *pom.Pom
}

// projectOpts are the flags shared by commands that read a descriptor.
type projectOpts struct {
	file    string
	offline bool
	sources bool
}

func (o *projectOpts) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.file, "file", "f", defaultPOM, "project descriptor")
	cmd.Flags().BoolVar(&o.offline, "offline", false, "use the local cache only")
}

func (c *CLI) loadSettings() (*config.Settings, error) {
	return config.Load(c.settingsPath)
}

func (c *CLI) openCache() (*cache.Cache, *config.Settings, error) {
	settings, err := c.loadSettings()
	if err != nil {
		return nil, nil, err
	}
	cc, err := settings.OpenCache()
	if err != nil {
		return nil, nil, err
	}
	return cc, settings, nil
}

// openProject loads the settings, the .env file next to the descriptor and
// the descriptor itself, fetching its parent and imports as needed.
func (c *CLI) openProject(ctx context.Context, o projectOpts) (*project, error) {
	path, err := filepath.Abs(o.file)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "descriptor path %s", o.file)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrap(errors.ErrCodeNotFound, err, "descriptor %s", o.file)
	}
	if err := config.LoadEnv(filepath.Dir(path)); err != nil {
		return nil, err
	}

	cc, settings, err := c.openCache()
	if err != nil {
		return nil, err
	}
	logger := loggerFromContext(ctx)
	opts := settings.SolverOptions(logger)
	opts.Offline = opts.Offline || o.offline
	opts.Sources = opts.Sources || o.sources

	s, err := solver.New(solver.Build{
		Cache:        cc,
		Repositories: settings.NewRepositories(cc, logger),
		Options:      opts,
	})
	if err != nil {
		return nil, err
	}
	root, err := s.ReadRoot(ctx, path)
	if err != nil {
		return nil, err
	}
	return &project{settings: settings, cache: cc, solver: s, root: root}, nil
}

// =============================================================================
// Options Helpers
// =============================================================================

// parseScopes parses a comma-separated scope list.
func parseScopes(s string) ([]maven.Scope, error) {
	var scopes []maven.Scope
	for _, name := range strings.Split(s, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		scope, ok := maven.ParseScope(name)
		if !ok || scope == maven.ScopeImport || scope == maven.ScopeSystem {
			return nil, errors.New(errors.ErrCodeInvalidInput, "invalid scope %q", name)
		}
		scopes = append(scopes, scope)
	}
	if len(scopes) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "no scope given")
	}
	return scopes, nil
}
