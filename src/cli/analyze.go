package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"moodmusic-server-go/src/configs"
	"moodmusic-server-go/src/core/pipeline"
	"moodmusic-server-go/src/core/utils"

	"github.com/spf13/cobra"
)

var (
	imagePath  string
	jsonOutput bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze one image file and print the music recommendation",
	RunE: func(cmd *cobra.Command, args []string) error {
		config, _, err := configs.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("加载配置失败: %w", err)
		}
		data, err := readImage(imagePath, cmd.InOrStdin())
		if err != nil {
			return err
		}
		logger := utils.NewWriterLogger(config.Log.LogLevel, cmd.ErrOrStderr())
		analyzer := pipeline.New(config, logger)
		defer analyzer.Cleanup()

		outcome, err := analyzer.Analyze(cmd.Context(), data)
		return printOutcome(cmd.OutOrStdout(), outcome, err, jsonOutput)
	},
}

func init() {
	analyzeCmd.Flags().StringVarP(&imagePath, "image", "i", "", "image file to analyze, - for stdin")
	analyzeCmd.Flags().BoolVar(&jsonOutput, "json", false, "print the result as JSON")
	_ = analyzeCmd.MarkFlagRequired("image")
}

func readImage(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取图片失败: %w", err)
	}
	return data, nil
}

// printOutcome 输出分析结果；没有检测到人脸时只输出提示，不返回错误
func printOutcome(w io.Writer, outcome *pipeline.Outcome, err error, asJSON bool) error {
	if errors.Is(err, pipeline.ErrNoFaceDetected) {
		fmt.Fprintln(w, "No face detected. Please ensure your face is clearly visible and centered in the frame, and try again.")
		return nil
	}
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(outcome)
	}

	mood := strings.ToUpper(string(outcome.Emotion))
	fmt.Fprintf(w, "Your Detected Mood: %s! %s\n", mood, outcome.Emoji)
	fmt.Fprintf(w, "Recommendation: %s\n", outcome.Recommendation.Text)
	fmt.Fprintf(w, "Playlist: %s\n", outcome.Recommendation.URL)
	return nil
}
