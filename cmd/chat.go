package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/shouni/gemini-headshot-kit/internal/builder"

	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "ヘッドショットについて AI アシスタントと会話します。",
	Long:  `標準入力から1行ずつ読み込み、会話ログ全体を送って返答を表示します。EOF で終了します。`,
	RunE:  chatCommand,
}

func chatCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	appCtx, err := builder.NewAppContext(loadConfig())
	if err != nil {
		return err
	}
	session, err := builder.BuildChatSession(ctx, appCtx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(cmd.ErrOrStderr(), "メッセージを入力してください (Ctrl+D で終了)")

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		reply, err := session.Send(ctx, line)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s: %s\n", reply.Role, reply.Text)
	}
	return scanner.Err()
}
