package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/livetemplate/scrollfollow/internal/server"
	"github.com/livetemplate/scrollfollow/internal/session"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve <file.md>",
		Short: "Serve a live preview that scrolls with the source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if _, err := os.Stat(path); err != nil {
				return fmt.Errorf("file does not exist: %s", path)
			}

			cfg, err := loadConfig(cmd, path)
			if err != nil {
				return err
			}

			// CLI flags override config
			if cmd.Flags().Changed("port") {
				cfg.Server.Port, _ = cmd.Flags().GetInt("port")
			}
			if cmd.Flags().Changed("host") {
				cfg.Server.Host, _ = cmd.Flags().GetString("host")
			}
			if cmd.Flags().Changed("watch") {
				cfg.Watch.Enabled, _ = cmd.Flags().GetBool("watch")
			}
			if cmd.Flags().Changed("debug") {
				cfg.Server.Debug, _ = cmd.Flags().GetBool("debug")
			}

			sess, err := session.Open(path, cfg)
			if err != nil {
				return err
			}
			defer sess.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "📚 scrollfollow preview\n\n")
			fmt.Fprintf(out, "Serving: %s (%d sections)\n", path, len(sess.Sections()))
			if err := sess.Err(); err != nil {
				fmt.Fprintf(out, "⚠️  %v\n", err)
			}

			srv := server.New(sess, cfg)
			if cfg.Watch.Enabled {
				if err := srv.EnableWatch(); err != nil {
					return fmt.Errorf("failed to enable watch mode: %w", err)
				}
				defer srv.StopWatch()
				fmt.Fprintf(out, "👀 Watch mode enabled - the preview reloads on save\n")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			httpServer := &http.Server{
				Addr:              cfg.Server.Addr(),
				Handler:           srv.Handler(ctx),
				ReadHeaderTimeout: 10 * time.Second,
			}

			fmt.Fprintf(out, "\n🌐 Server running at http://%s\n", cfg.Server.Addr())
			fmt.Fprintf(out, "Press Ctrl+C to stop\n\n")

			errCh := make(chan error, 1)
			go func() {
				errCh <- httpServer.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("server error: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	cmd.Flags().String("host", "localhost", "Host to bind")
	cmd.Flags().BoolP("watch", "w", true, "Reload the preview when the file changes")
	cmd.Flags().Bool("debug", false, "Verbose server logging")
	return cmd
}
