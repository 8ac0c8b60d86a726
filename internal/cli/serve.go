package cli

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/mvnkit/pkg/errors"
	"github.com/matzehuels/mvnkit/pkg/server"
)

const shutdownTimeout = 5 * time.Second

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	addr := ":8080"

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the cache as a Maven repository",
		Long: `Serve exposes the local cache over HTTP in the maven2 layout so other
machines can list it as a repository. Only files already in the cache are
served; nothing is fetched on demand.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return errors.Wrap(errors.ErrCodeInvalidInput, err, "listen on %s", addr)
			}
			return c.serve(ctx, ln)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", addr, "listen address")

	return cmd
}

// serve runs the repository server on ln until ctx is cancelled.
func (c *CLI) serve(ctx context.Context, ln net.Listener) error {
	logger := loggerFromContext(ctx)
	cc, _, err := c.openCache()
	if err != nil {
		ln.Close()
		return err
	}

	srv := &http.Server{
		Handler:           server.New(cc, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	logger.Infof("Serving %s on http://%s", cc.Root(), ln.Addr())

	select {
	case err := <-errc:
		return errors.Wrap(errors.ErrCodeNetwork, err, "serve")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "shutdown")
	}
	if err := <-errc; err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(errors.ErrCodeNetwork, err, "serve")
	}
	logger.Info("Server stopped")
	return nil
}
