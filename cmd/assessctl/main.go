package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/noah-isme/gema-assessment-api/internal/config"
	"github.com/noah-isme/gema-assessment-api/pkg/ai"
	"github.com/noah-isme/gema-assessment-api/pkg/assessment"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "assessctl",
		Short:         "Parse, time and grade generated assessments offline",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().String("log-level", "warn", "Log level (debug, info, warn, error)")
	root.AddCommand(parseCmd(), durationCmd(), gradeCmd())
	return root
}

func parseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <file>",
		Short: "Print the structured form of an assessment document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := readSource(cmd, args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), assessment.Parse(body))
		},
	}
}

func durationCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "duration <text>",
		Short: "Convert a human duration such as \"1 hour 30 minutes\" to seconds",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seconds := assessment.ParseDurationSeconds(strings.Join(args, " "))
			_, err := fmt.Fprintln(cmd.OutOrStdout(), seconds)
			return err
		},
	}
}

func gradeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grade <file>",
		Short: "Grade a set of answers against an assessment document",
		Args:  cobra.ExactArgs(1),
		RunE:  runGrade,
	}
	f := cmd.Flags()
	f.StringP("answers", "a", "", "JSON file mapping question ids to answers (required)")
	f.Int("time-spent", 0, "Seconds the learner spent")
	f.String("duration", "", "Allotted time, e.g. \"30 minutes\"")
	f.String("content-type", assessment.ContentTypeAssessment, "Content type (assessment, quiz)")
	f.Bool("judge", false, "Ask the configured OpenAI-compatible judge about mismatches")
	f.Int("concurrency", 1, "Questions graded in parallel")
	_ = cmd.MarkFlagRequired("answers")
	return cmd
}

// viperForCmd binds a command's flags on top of the GEMA_* environment.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := config.NewViper()
	_ = v.BindPFlags(cmd.Flags())
	_ = v.BindPFlags(cmd.InheritedFlags())
	return v
}

func newLogger(cmd *cobra.Command, v *viper.Viper) zerolog.Logger {
	level, err := zerolog.ParseLevel(v.GetString("log-level"))
	if err != nil {
		level = zerolog.WarnLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), NoColor: true}).Level(level).With().Timestamp().Logger()
}

func runGrade(cmd *cobra.Command, args []string) error {
	v := viperForCmd(cmd)
	logger := newLogger(cmd, v)

	body, err := readSource(cmd, args[0])
	if err != nil {
		return err
	}
	parsed := assessment.Parse(body)
	if len(parsed.Questions) == 0 {
		return fmt.Errorf("no questions found in %s", args[0])
	}

	rawAnswers, err := os.ReadFile(v.GetString("answers"))
	if err != nil {
		return fmt.Errorf("read answers: %w", err)
	}
	var responses map[string]string
	if err := json.Unmarshal(rawAnswers, &responses); err != nil {
		return fmt.Errorf("decode answers: %w", err)
	}

	var judge ai.Judge
	if v.GetBool("judge") {
		cfg, err := config.LoadFrom(v)
		if err != nil {
			return err
		}
		judge, err = ai.NewOpenAIJudge(ai.OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
			Logger:  logger,
		})
		if err != nil {
			return fmt.Errorf("create judge: %w", err)
		}
	}

	grader := assessment.NewGrader(judge,
		assessment.WithConcurrency(v.GetInt("concurrency")),
		assessment.WithLogger(logger),
	)

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
	defer cancel()

	results := grader.GradeAll(ctx, parsed.Questions, responses)
	breakdown := assessment.Score(assessment.ScoreInput{
		CorrectCount:   assessment.CountCorrect(results),
		TotalQuestions: len(results),
		ContentType:    strings.ToLower(v.GetString("content-type")),
		TimeSpent:      v.GetInt("time-spent"),
		TotalDuration:  assessment.ParseDurationSeconds(v.GetString("duration")),
	})

	logger.Info().
		Float64("base_score", breakdown.BaseScore).
		Float64("time_bonus", breakdown.TimeBonus).
		Msg("graded")

	return writeJSON(cmd.OutOrStdout(), assessment.NewSubmissionResult(breakdown.FinalScore, results))
}

// readSource reads a file, or stdin when path is "-".
func readSource(cmd *cobra.Command, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

func writeJSON(w io.Writer, value interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}
