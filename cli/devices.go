package cli

import (
	"errors"
	"strings"

	"github.com/absmach/flaas/pkg/device"
	"github.com/spf13/cobra"
)

var (
	errNoDevices = errors.New("no devices match")

	UsernamePrefix string
)

func NewDevicesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devices [register|view|list|delete|assign|unassign]",
		Short: "Devices manager",
		Long:  `Register, view, delete devices and enroll them into projects.`,
	}

	var d device.Device

	registerCmd := &cobra.Command{
		Use:   "register <username>",
		Short: "Register device",
		Long:  `Register a device under a unique username.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			d.Username = args[0]
			created, err := fsdk.RegisterDevice(d)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, created)
		},
	}

	var osName string
	registerCmd.Flags().StringVar(&osName, "os", "", "Operating system (android or ios)")
	registerCmd.Flags().StringVar(&d.Model, "model", "", "Device model")
	registerCmd.Flags().StringVar(&d.Manufacturer, "manufacturer", "", "Device manufacturer")
	registerCmd.PreRun = func(_ *cobra.Command, _ []string) {
		d.OS = device.OS(osName)
	}

	viewCmd := &cobra.Command{
		Use:   "view <id>",
		Short: "View device",
		Long:  `View device.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			d, err := fsdk.GetDevice(args[0])
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, d)
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List devices",
		Long:  `List devices.`,
		Run: func(cmd *cobra.Command, _ []string) {
			page, err := fsdk.ListDevices(defOffset, defLimit)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, page)
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete device",
		Long:  `Delete device.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			if err := fsdk.DeleteDevice(args[0]); err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logOKCmd(*cmd)
		},
	}

	assignCmd := &cobra.Command{
		Use:   "assign <project_id> [device_id...]",
		Short: "Enroll devices into a project",
		Long: `Enroll devices into a project. Without device ids every device whose
username starts with the configured prefix is enrolled.

Examples:
  # Enroll two devices
  flaas-cli devices assign b1d10738-c5d7-4ff1-8f4d-b9328ce6f040 d1 d2

  # Enroll every device named hobbit*
  flaas-cli devices assign b1d10738-c5d7-4ff1-8f4d-b9328ce6f040 --prefix hobbit`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) < 1 || (len(args) == 1 && UsernamePrefix == "") {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			ids := args[1:]
			if len(ids) == 0 {
				var err error
				if ids, err = devicesByPrefix(UsernamePrefix); err != nil {
					logErrorCmd(*cmd, err)

					return
				}
			}

			devices, err := fsdk.AssignDevices(args[0], ids)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, devices)
		},
	}
	assignCmd.Flags().StringVarP(&UsernamePrefix, "prefix", "p", UsernamePrefix, "Username prefix selecting devices to enroll")

	unassignCmd := &cobra.Command{
		Use:   "unassign <device_id...>",
		Short: "Unenroll devices",
		Long:  `Remove devices from whatever project they are enrolled in.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) == 0 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			devices, err := fsdk.AssignDevices("", args)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, devices)
		},
	}

	cmd.AddCommand(registerCmd, viewCmd, listCmd, deleteCmd, assignCmd, unassignCmd)

	cmd.PersistentFlags().StringVarP(
		&DefManagerURL,
		"manager-url",
		"m",
		DefManagerURL,
		"Manager URL",
	)

	cmd.PersistentFlags().Uint64VarP(
		&defOffset,
		"offset",
		"o",
		defOffset,
		"Offset",
	)

	cmd.PersistentFlags().Uint64VarP(
		&defLimit,
		"limit",
		"l",
		defLimit,
		"Limit",
	)

	return cmd
}

// devicesByPrefix pages through every registered device.
func devicesByPrefix(prefix string) ([]string, error) {
	var (
		ids    []string
		offset uint64
	)
	for {
		page, err := fsdk.ListDevices(offset, maxPageSize)
		if err != nil {
			return nil, err
		}
		for _, d := range page.Devices {
			if strings.HasPrefix(d.Username, prefix) {
				ids = append(ids, d.ID)
			}
		}

		offset += uint64(len(page.Devices))
		if len(page.Devices) == 0 || offset >= page.Total {
			break
		}
	}

	if len(ids) == 0 {
		return nil, errNoDevices
	}

	return ids, nil
}
