package orchestrator

import (
	"fmt"
	"time"
)

// ProgressInterval は生成中の進捗メッセージを切り替える間隔です。
const ProgressInterval = 2500 * time.Millisecond

// ProgressMessages は生成中に順番に表示するメッセージを返します。
func ProgressMessages(styleName string) []string {
	if styleName == "" {
		styleName = "selected"
	}
	return []string{
		"Analyzing your facial structure...",
		fmt.Sprintf("Applying the %q style...", styleName),
		"Adjusting lighting and shadows...",
		"Enhancing details for a professional finish...",
		"Finalizing your headshot...",
	}
}

// QuotaMessage は残り回数の案内文を返します。
func QuotaMessage(remaining int) string {
	switch {
	case remaining <= 0:
		return "You have no generations left today."
	case remaining == 1:
		return "You have 1 generation left today."
	default:
		return fmt.Sprintf("You have %d generations left today.", remaining)
	}
}
