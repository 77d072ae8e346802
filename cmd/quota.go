package cmd

import (
	"fmt"

	"github.com/shouni/gemini-headshot-kit/internal/builder"
	"github.com/shouni/gemini-headshot-kit/pkg/orchestrator"

	"github.com/spf13/cobra"
)

var quotaCmd = &cobra.Command{
	Use:   "quota",
	Short: "今日の残り生成回数を表示します。",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		throttle, err := builder.BuildThrottle(cfg.StateFile)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), orchestrator.QuotaMessage(throttle.Remaining()))
		return nil
	},
}
