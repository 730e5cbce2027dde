package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

const maxPageSize = 100

func NewTickCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tick",
		Short: "Advance active projects",
		Long:  `Run one controller tick over every project in progress.`,
		Run: func(cmd *cobra.Command, _ []string) {
			processed, err := fsdk.Tick()
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logSuccessCmd(*cmd, fmt.Sprintf("Processed %d projects", processed))
		},
	}

	cmd.Flags().StringVarP(&DefManagerURL, "manager-url", "m", DefManagerURL, "Manager URL")

	return cmd
}

func NewQuestionnairesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "questionnaires",
		Short: "Send daily questionnaires",
		Long:  `Schedule the daily questionnaire notifications unless they were already sent.`,
		Run: func(cmd *cobra.Command, _ []string) {
			n, err := fsdk.SendQuestionnaires()
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			if n.ID == "" {
				logSuccessCmd(*cmd, "Questionnaires already sent")

				return
			}
			logJSONCmd(*cmd, n)
		},
	}

	cmd.Flags().StringVarP(&DefManagerURL, "manager-url", "m", DefManagerURL, "Manager URL")

	return cmd
}
