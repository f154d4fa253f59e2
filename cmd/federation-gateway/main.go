package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/n9te9/federation-gateway-bootstrap/gateway"
	"github.com/n9te9/federation-gateway-bootstrap/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const version = "v0.1.0"

var configPath string

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of Federation Gateway",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "Federation Gateway "+version)
	},
}

var initPath string

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default gateway configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := server.Init(initPath); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", initPath)
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Compose the subgraphs and start the Federation Gateway server",
	RunE: func(cmd *cobra.Command, args []string) error {
		opt, err := loadOption()
		if err != nil {
			return err
		}

		logger, err := server.NewLogger(opt.LogLevel)
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, os.Interrupt)
		defer stop()

		if err := server.Run(ctx, opt, server.Settings{Out: cmd.OutOrStdout(), Logger: logger}); err != nil {
			logger.Error("gateway stopped", zap.Error(err))
			return err
		}
		return nil
	},
}

var composeCmd = &cobra.Command{
	Use:   "compose",
	Short: "Print the supergraph SDL composed from the subgraphs",
	RunE: func(cmd *cobra.Command, args []string) error {
		opt, err := loadOption()
		if err != nil {
			return err
		}

		sdl, err := server.Compose(cmd.Context(), opt)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), sdl)
		return nil
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Probe every subgraph for its SDL",
	RunE: func(cmd *cobra.Command, args []string) error {
		opt, err := loadOption()
		if err != nil {
			return err
		}
		return server.Check(cmd.Context(), opt, cmd.OutOrStdout())
	},
}

// loadOption reads --config, falling back to the default config file when it exists.
func loadOption() (gateway.GatewayOption, error) {
	path := configPath
	if path == "" {
		if _, err := os.Stat(server.DefaultConfigPath); err == nil {
			path = server.DefaultConfigPath
		}
	}
	return gateway.LoadOption(path)
}

func main() {
	rootCmd := cobra.Command{
		Use:           "federation-gateway",
		Short:         "GraphQL federation gateway over a fixed set of subgraphs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the gateway yaml config")
	initCmd.Flags().StringVar(&initPath, "path", server.DefaultConfigPath, "where to write the config")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(composeCmd)
	rootCmd.AddCommand(checkCmd)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
