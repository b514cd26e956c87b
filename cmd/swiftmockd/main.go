// Command swiftmockd runs the mock FIN server and its HTTP control plane.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"swiftmock/internal/control"
	"swiftmock/internal/server"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "swiftmockd",
		Short: "Mock SWIFT FIN back-office server",
		RunE:  runServe,
	}

	flags := cmd.Flags()
	flags.String("host", "0.0.0.0", "TCP bind address for the FIN listener")
	flags.Int("port", 10103, "TCP port for the FIN listener")
	flags.Int("control-port", 8888, "HTTP port for the control plane")
	flags.String("state-file", "", "path to a JSON file used to persist session state (disabled if empty)")
	flags.Bool("debug", false, "enable debug-level logging")

	viper.BindPFlags(flags)
	viper.SetEnvPrefix("SWIFTMOCK")
	viper.AutomaticEnv()

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	if viper.GetBool("debug") {
		log.SetLevel(logrus.DebugLevel)
	}
	entry := logrus.NewEntry(log)

	addr := fmt.Sprintf("%s:%d", viper.GetString("host"), viper.GetInt("port"))
	srv, err := server.New(server.Config{
		Addr:      addr,
		StatePath: viper.GetString("state-file"),
	}, entry)
	if err != nil {
		return fmt.Errorf("build server: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe(ctx)
	}()

	hook := &control.Hook{Registry: srv.Registry, Store: srv.Store, Log: entry}
	controlAddr := fmt.Sprintf("%s:%d", viper.GetString("host"), viper.GetInt("control-port"))
	controlSrv := &http.Server{Addr: controlAddr, Handler: hook.Routes()}

	go func() {
		entry.WithField("addr", controlAddr).Info("control plane listening")
		if err := controlSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			entry.WithError(err).Error("control plane stopped")
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			entry.WithError(err).Error("FIN listener stopped")
		}
	}

	controlSrv.Shutdown(context.Background())
	srv.Shutdown()
	return nil
}
