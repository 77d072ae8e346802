package cmd

import (
	"bytes"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/shouni/gemini-headshot-kit/pkg/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	out := new(bytes.Buffer)
	rootCmd.SetOut(out)
	rootCmd.SetErr(new(bytes.Buffer))
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestStylesCommand(t *testing.T) {
	out := execute(t, "styles")
	assert.Contains(t, out, "corporate-grey")
	assert.Contains(t, out, "name-badge")
	assert.Contains(t, out, "Your Name")
}

func TestQuotaCommand(t *testing.T) {
	t.Setenv("HEADSHOT_STATE_FILE", filepath.Join(t.TempDir(), "state.json"))
	out := execute(t, "quota")
	assert.Equal(t, "You have 20 generations left today.\n", out)
}

func TestCaptureCommand_RequiresCameraURL(t *testing.T) {
	rootCmd.SetOut(new(bytes.Buffer))
	rootCmd.SetErr(new(bytes.Buffer))
	rootCmd.SetArgs([]string{"capture", "--camera-url", ""})
	assert.Error(t, rootCmd.Execute())
}

func TestUserFacingError(t *testing.T) {
	t.Run("待機中の拒否はその理由を返す", func(t *testing.T) {
		err := userFacingError(domain.ErrCoolingDown)
		assert.Equal(t, domain.ErrCoolingDown.Error(), err.Error())
	})

	t.Run("生成失敗は表示用メッセージを返す", func(t *testing.T) {
		cause := domain.NewUserError(domain.ErrValidation, "The model refused the request.")
		err := userFacingError(fmt.Errorf("%w: %w", domain.ErrGeneration, cause))
		assert.Equal(t, "The model refused the request.", err.Error())
	})
}
