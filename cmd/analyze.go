package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/resume-analyzer/internal/analyzer"
	"github.com/spigell/resume-analyzer/internal/apperr"
	"github.com/spigell/resume-analyzer/internal/document"
	"github.com/spigell/resume-analyzer/internal/jobpost"
	"github.com/spigell/resume-analyzer/internal/prompts"
)

const (
	typeFull      = "full"
	fullTitleName = "full-evaluation"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a resume against a job description",
	Run: func(cmd *cobra.Command, _ []string) {
		analyze(cmd)
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().String("job", "", "job description text")
	analyzeCmd.Flags().String("job-file", "", "file with the job description")
	analyzeCmd.Flags().String("job-url", "", "URL of the job posting")
	analyzeCmd.Flags().StringP("resume", "r", "", "resume file (PDF or plain text)")
	analyzeCmd.Flags().String("resume-text", "", "resume as plain text")
	analyzeCmd.Flags().StringP("type", "t", "", fmt.Sprintf("analysis type: %s or %s (asked interactively when empty)", strings.Join(prompts.Names(), ", "), typeFull))
	analyzeCmd.Flags().StringP("output-dir", "o", "", "also save the result as a text file in this directory")
}

func analyze(cmd *cobra.Command) {
	l, config := bootstrap()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	generator, err := newGenerator(ctx, config.AI, l)
	if err != nil {
		l.Fatal("creating the model client", zap.Error(err))
	}

	session, err := analyzer.NewSession(*config.Pipeline, generator, prompts.MustLoad(), l)
	if err != nil {
		l.Fatal("creating an analysis session", zap.Error(err))
	}

	typeName, err := analysisType(cmd)
	if err != nil {
		l.Fatal("choosing the analysis type", zap.Error(err))
	}

	// The budget starts once the interactive choice is made.
	ctx, cancel := withRequestTimeout(ctx, config.Pipeline.RequestTimeout)
	defer cancel()

	req, err := buildRequest(ctx, cmd, l)
	if err != nil {
		fail(l, err)
	}

	var (
		text string
		name string
	)

	if typeName == typeFull {
		full, err := session.FullEvaluation(ctx, req)
		if full != nil && full.Evaluation != nil {
			text = formatResult(full.Evaluation)
			name = analyzer.DownloadName(fullTitleName, full.Evaluation.CreatedAt)
		}
		if full != nil && full.PercentageMatch != nil {
			text += "\n" + formatResult(full.PercentageMatch)
		}
		if err != nil {
			if text != "" {
				fmt.Print(text)
			}
			fail(l, err)
		}
	} else {
		typ, err := prompts.ParseType(typeName)
		if err != nil {
			fail(l, err)
		}
		req.Type = typ

		result, err := session.Analyze(ctx, req)
		if err != nil {
			fail(l, err)
		}
		text = formatResult(result)
		name = result.DownloadName()
	}

	fmt.Print(text)

	outputDir, _ := cmd.Flags().GetString("output-dir")
	if outputDir == "" {
		return
	}

	path, err := saveResult(outputDir, name, text)
	if err != nil {
		l.Fatal("saving the result", zap.Error(err))
	}
	l.Info("result saved", zap.String("filename", path), zap.Int("remaining", session.Remaining()))
}

func analysisType(cmd *cobra.Command) (string, error) {
	typeName, _ := cmd.Flags().GetString("type")
	typeName = strings.ToLower(strings.TrimSpace(typeName))
	if typeName != "" {
		return typeName, nil
	}

	items := append(prompts.Names(), typeFull)
	selectPrompt := promptui.Select{
		Label: "Choose an analysis",
		Items: items,
	}

	_, selected, err := selectPrompt.Run()
	if err != nil {
		return "", err
	}
	return selected, nil
}

func buildRequest(ctx context.Context, cmd *cobra.Command, l *zap.Logger) (analyzer.Request, error) {
	var req analyzer.Request

	job, _ := cmd.Flags().GetString("job")
	jobFile, _ := cmd.Flags().GetString("job-file")
	jobURL, _ := cmd.Flags().GetString("job-url")

	switch {
	case strings.TrimSpace(job) != "":
		req.JobDescription = job
	case jobFile != "":
		data, err := os.ReadFile(jobFile)
		if err != nil {
			return req, apperr.NewValidation("job_description", fmt.Sprintf("Could not read %s: %v", jobFile, err))
		}
		req.JobDescription = string(data)
	case jobURL != "":
		text, err := jobpost.New(l, jobpost.WithPrivateNetworks()).Fetch(ctx, jobURL)
		if err != nil {
			return req, err
		}
		req.JobDescription = text
	}

	resumePath, _ := cmd.Flags().GetString("resume")
	resumeText, _ := cmd.Flags().GetString("resume-text")

	if resumePath != "" {
		data, err := os.ReadFile(resumePath)
		if err != nil {
			return req, apperr.NewValidation("resume", fmt.Sprintf("Could not read %s: %v", resumePath, err))
		}
		req.Upload = &document.Upload{
			Name: filepath.Base(resumePath),
			Size: int64(len(data)),
			Data: data,
		}
	}
	req.ResumeText = resumeText

	return req, nil
}

func formatResult(r *analyzer.Result) string {
	return fmt.Sprintf("%s\n\n%s\n", r.Title, r.Text)
}

func saveResult(dir, name, text string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("write result: %w", err)
	}
	return path, nil
}

// fail renders err for a person and exits.
func fail(l *zap.Logger, err error) {
	d := apperr.Describe(err)
	fields := []zap.Field{
		zap.String("category", d.Category),
		zap.String("message", d.Message),
		zap.Bool("retryable", apperr.Retryable(err)),
	}
	if d.Kind != "" {
		fields = append(fields, zap.String("kind", d.Kind))
	}

	var quota *apperr.QuotaExceededError
	if errors.As(err, &quota) {
		fields = append(fields, zap.Int("limit", quota.Limit))
	}

	l.Fatal("analysis failed", append(fields, zap.Error(err))...)
}

func withRequestTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
