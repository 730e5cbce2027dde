package main

import (
	"errors"
	"io/fs"
	"log"

	"github.com/absmach/flaas"
	"github.com/absmach/flaas/cli"
	"github.com/absmach/flaas/pkg/sdk"
	"github.com/spf13/cobra"
)

const defConfigPath = "config.toml"

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "flaas-cli",
		Short: "FLaaS CLI",
		Long:  `FLaaS CLI is a command line interface for managing federated learning projects and devices.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := applyConfig(cmd, configPath); err != nil {
				return err
			}

			sdkConf := sdk.Config{
				ManagerURL:      cli.DefManagerURL,
				TLSVerification: cli.DefTLSVerification,
			}
			cli.SetSDK(sdk.NewSDK(sdkConf))

			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defConfigPath, "Config file")

	rootCmd.AddCommand(
		cli.NewProjectsCmd(),
		cli.NewDevicesCmd(),
		cli.NewTickCmd(),
		cli.NewQuestionnairesCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

// applyConfig fills in settings from the config file that were not given as
// flags. A missing default config file is not an error.
func applyConfig(cmd *cobra.Command, path string) error {
	cfg, err := flaas.LoadConfig(path)
	switch {
	case errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("config"):
		return nil
	case err != nil:
		return err
	}

	if cfg.Manager.URL != "" && !cmd.Flags().Changed("manager-url") {
		cli.DefManagerURL = cfg.Manager.URL
	}
	cli.DefTLSVerification = cfg.Manager.TLSVerification
	if !cmd.Flags().Changed("offset") && !cmd.Flags().Changed("limit") {
		cli.SetPage(cfg.Manager.Offset, cfg.Manager.Limit)
	}
	if cfg.Devices.UsernamePrefix != "" && !cmd.Flags().Changed("prefix") {
		cli.UsernamePrefix = cfg.Devices.UsernamePrefix
	}

	return nil
}
