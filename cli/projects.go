package cli

import (
	"encoding/json"
	"os"
	"strconv"

	"github.com/absmach/flaas/pkg/project"
	"github.com/absmach/flaas/pkg/sdk"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

const filePermission = 0o644

var (
	DefTLSVerification        = false
	DefManagerURL             = "http://localhost:7070"
	defOffset          uint64 = 0
	defLimit           uint64 = 10
)

var fsdk sdk.SDK

func SetSDK(s sdk.SDK) {
	fsdk = s
}

// SetPage overrides the default pagination of list commands.
func SetPage(offset, limit uint64) {
	defOffset = offset
	if limit > 0 {
		defLimit = limit
	}
}

func NewProjectsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects [create|view|list|update|delete|start|stop|reset|rounds|round|report|joined|model]",
		Short: "Projects manager",
		Long:  `Create, view, update, delete, start, stop and reset training projects and inspect their rounds.`,
	}

	var (
		p                         project.Project
		trainingMode, datasetType string
		interactive               bool
	)

	createCmd := &cobra.Command{
		Use:   "create <title>",
		Short: "Create project",
		Long: `Create a training project. Unset parameters take the manager defaults.

Examples:
  # Create a baseline CIFAR10 project
  flaas-cli projects create cifar10-baseline

  # Create a 5 round project that averages device models
  flaas-cli projects create mnist --model MNIST_DNN --dataset MNIST --training-mode JOINT_MODELS --rounds 5

  # Fill in the main parameters from a form
  flaas-cli projects create --interactive`,
		Run: func(cmd *cobra.Command, args []string) {
			switch {
			case interactive && len(args) == 0:
				if err := projectForm(&p).Run(); err != nil {
					logErrorCmd(*cmd, err)

					return
				}
			case len(args) == 1:
				p.Title = args[0]
			default:
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			created, err := fsdk.CreateProject(p)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, created)
		},
	}

	createCmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Prompt for project parameters")
	createCmd.Flags().StringVar(&p.Description, "description", "", "Project description")
	createCmd.Flags().StringVar(&p.Model, "model", "", "Model template name")
	createCmd.Flags().StringVar(&p.Dataset, "dataset", "", "Dataset name")
	createCmd.Flags().StringVar(&datasetType, "dataset-type", "", "Dataset split (IID or NonIID)")
	createCmd.Flags().StringVar(&trainingMode, "training-mode", "", "Training mode (BASELINE, JOINT_SAMPLES or JOINT_MODELS)")
	createCmd.Flags().Uint64Var(&p.NumberOfRounds, "rounds", 0, "Number of complete rounds to train")
	createCmd.Flags().Uint64Var(&p.NumberOfApps, "apps", 0, "Number of devices per round")
	createCmd.Flags().Uint64Var(&p.NumberOfSamples, "samples", 0, "Samples per device")
	createCmd.Flags().Uint64Var(&p.NumberOfEpochs, "epochs", 0, "Epochs per round")
	createCmd.Flags().Int64Var(&p.Seed, "seed", 0, "Random seed")
	createCmd.Flags().Uint64Var(&p.MaxTrainingTime, "max-training-time", 0, "Round deadline in minutes")
	createCmd.Flags().Float64Var(&p.ResponsesRatioThreshold, "responses-ratio", 0, "Eligible device ratio required to start a round")
	createCmd.Flags().Float64Var(&p.ValidRoundTrainingThreshold, "valid-round-ratio", 0, "Replying device ratio required for a valid round")
	createCmd.Flags().Float64Var(&p.BatteryLevelThreshold, "battery-level", 0, "Minimum battery level of unplugged devices")
	createCmd.Flags().BoolVar(&p.PowerPluggedOnly, "power-plugged-only", false, "Only admit plugged-in devices")
	createCmd.PreRun = func(_ *cobra.Command, _ []string) {
		p.TrainingMode = project.TrainingMode(trainingMode)
		p.DatasetType = project.DatasetType(datasetType)
	}

	viewCmd := &cobra.Command{
		Use:   "view <id>",
		Short: "View project",
		Long:  `View project.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			p, err := fsdk.GetProject(args[0])
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, p)
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		Long:  `List projects.`,
		Run: func(cmd *cobra.Command, _ []string) {
			page, err := fsdk.ListProjects(defOffset, defLimit)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, page)
		},
	}

	updateCmd := &cobra.Command{
		Use:   "update <id> <JSON_project>",
		Short: "Update project",
		Long: `Update the parameters of a project. Rounds already created keep their values.

Example:
  flaas-cli projects update b1d10738-c5d7-4ff1-8f4d-b9328ce6f040 '{"title":"mnist","number_of_rounds":10}'`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 2 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			var p project.Project
			if err := json.Unmarshal([]byte(args[1]), &p); err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			p.ID = args[0]

			updated, err := fsdk.UpdateProject(p)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, updated)
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete project",
		Long:  `Delete project together with its rounds and model artifacts.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			if err := fsdk.DeleteProject(args[0]); err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logOKCmd(*cmd)
		},
	}

	roundsCmd := &cobra.Command{
		Use:   "rounds <id>",
		Short: "List rounds",
		Long:  `List the rounds of a project in round order.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			rounds, err := fsdk.ListRounds(args[0])
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, rounds)
		},
	}

	roundCmd := newRoundCmd("round", "View round", func(projectID string, number uint64) (any, error) {
		return fsdk.GetRound(projectID, number)
	})
	reportCmd := newRoundCmd("report", "View round accuracy report", func(projectID string, number uint64) (any, error) {
		return fsdk.GetRoundReport(projectID, number)
	})
	joinedCmd := newRoundCmd("joined", "List devices that joined a round", func(projectID string, number uint64) (any, error) {
		return fsdk.ListJoined(projectID, number)
	})

	modelCmd := &cobra.Command{
		Use:   "model <id> <round_number> <file>",
		Short: "Download round model",
		Long:  `Download the encoded base weights of a round into a file.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 3 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			number, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}

			weights, err := fsdk.GetModel(args[0], number)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}

			if err := os.WriteFile(args[2], weights, filePermission); err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logSuccessCmd(*cmd, "Saved model to "+args[2])
		},
	}

	cmd.AddCommand(
		createCmd,
		viewCmd,
		listCmd,
		updateCmd,
		deleteCmd,
		newProjectActionCmd("start", "Start project", sdk.SDK.StartProject),
		newProjectActionCmd("stop", "Stop project", sdk.SDK.StopProject),
		newProjectActionCmd("reset", "Reset project to round 0", sdk.SDK.ResetProject),
		roundsCmd,
		roundCmd,
		reportCmd,
		joinedCmd,
		modelCmd,
	)

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

// newProjectActionCmd takes a method expression since fsdk is only set by
// the root command's pre-run hook.
func newProjectActionCmd(use, short string, action func(sdk.SDK, string) (project.Project, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Long:  short + ".",
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			p, err := action(fsdk, args[0])
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, p)
		},
	}
}

func newRoundCmd(use, short string, get func(projectID string, number uint64) (any, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id> <round_number>",
		Short: short,
		Long:  short + ".",
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 2 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			number, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}

			res, err := get(args[0], number)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, res)
		},
	}
}

func projectForm(p *project.Project) *huh.Form {
	if p.TrainingMode == "" {
		p.TrainingMode = project.Baseline
	}
	if p.DatasetType == "" {
		p.DatasetType = project.IID
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Value(&p.Title),
			huh.NewInput().
				Title("Model template").
				Placeholder(project.DefaultModel).
				Value(&p.Model),
			huh.NewInput().
				Title("Dataset").
				Placeholder(project.DefaultDataset).
				Value(&p.Dataset),
		),
		huh.NewGroup(
			huh.NewSelect[project.TrainingMode]().
				Title("Training mode").
				Options(
					huh.NewOption("Baseline", project.Baseline),
					huh.NewOption("Joint samples", project.JointSamples),
					huh.NewOption("Joint models", project.JointModels),
				).
				Value(&p.TrainingMode),
			huh.NewSelect[project.DatasetType]().
				Title("Dataset split").
				Options(
					huh.NewOption("IID", project.IID),
					huh.NewOption("Non IID", project.NonIID),
				).
				Value(&p.DatasetType),
			huh.NewConfirm().
				Title("Only train on plugged-in devices?").
				Value(&p.PowerPluggedOnly),
		),
	)
}
