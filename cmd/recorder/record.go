package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/its-ammu/ai-interview-bot/internal/audio"
	"github.com/its-ammu/ai-interview-bot/internal/backend"
	"github.com/its-ammu/ai-interview-bot/internal/capability"
	"github.com/its-ammu/ai-interview-bot/internal/capture"
	"github.com/its-ammu/ai-interview-bot/internal/pipeline"
	"github.com/its-ammu/ai-interview-bot/internal/server"
)

func newRecordCmd(a *app) *cobra.Command {
	var savePath string

	cmd := &cobra.Command{
		Use:   "record <question-url|question-id>",
		Short: "Record an answer from the microphone and submit it",
		Long: "Records from the default input device until Enter is pressed, the maximum\n" +
			"duration passes or the process is interrupted, then uploads the answer as WAV\n" +
			"and prints the transcript and feedback.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			questionID, err := backend.ResolveQuestionID(args[0])
			if err != nil {
				return err
			}
			return a.record(cmd, questionID, savePath)
		},
	}
	cmd.Flags().StringVarP(&savePath, "save", "o", "", "Also write the encoded WAV to this file")

	return cmd
}

func (a *app) record(cmd *cobra.Command, questionID, savePath string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := a.newClient()
	if err != nil {
		return err
	}

	device := a.newDevice()
	capturer := capture.NewCapturer(device, a.logger, a.metrics)
	p := pipeline.New(capturer, device, audio.NewDecoder(), client, pipeline.Config{
		FormatOverride: a.cfg.Capture.FormatOverride,
		MaxDuration:    a.cfg.Capture.GetMaxDuration(),
		Encode:         audio.EncodeOptions{Clamp: a.cfg.Encoder.Clamp},
	}, a.logger, a.metrics)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	if a.cfg.HTTP.Enabled {
		httpServer := server.NewHTTPServer(a.cfg.HTTP, a.logger, server.Options{
			Config:   a.cfg,
			Capturer: capturer,
			Pipeline: p,
			Client:   client,
			Metrics:  a.metrics,
			Gatherer: a.registry,
		})
		if err := httpServer.Start(); err != nil {
			return err
		}
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			return httpServer.Stop(shutdownCtx)
		})
	}

	stderr := cmd.ErrOrStderr()
	stopCh := waitForEnter(cmd.InOrStdin())

	fmt.Fprintf(stderr, "Recording answer to question %s. Press Enter to stop.\n", questionID)
	if limit := a.cfg.Capture.GetMaxDuration(); limit > 0 {
		fmt.Fprintf(stderr, "Recording stops automatically after %s.\n", limit)
	}

	var result *pipeline.Result
	var runErr error
	g.Go(func() error {
		defer cancel()
		result, runErr = p.Run(gctx, questionID, stopCh)
		return nil
	})

	if err := g.Wait(); err != nil {
		a.logger.Error("Status server shutdown failed", slog.String("error", err.Error()))
	}

	if result != nil && savePath != "" && result.WAV != nil {
		if err := os.WriteFile(savePath, result.WAV, 0644); err != nil {
			a.logger.Error("Failed to save WAV", slog.String("path", savePath), slog.String("error", err.Error()))
		} else {
			fmt.Fprintf(stderr, "Saved %d bytes to %s\n", len(result.WAV), savePath)
		}
	}

	if runErr != nil {
		fmt.Fprintln(stderr, pipeline.UserMessage(runErr))
		return runErr
	}

	printResult(cmd.OutOrStdout(), result)
	return nil
}

// waitForEnter returns a channel closed on the first line read from r.
// The reader goroutine is not cancellable and ends with the process.
func waitForEnter(r io.Reader) <-chan struct{} {
	ch := make(chan struct{})
	go func() {
		defer close(ch)
		bufio.NewReader(r).ReadString('\n')
	}()
	return ch
}

func printResult(w io.Writer, result *pipeline.Result) {
	fmt.Fprintf(w, "Transcript: %s\n", result.Transcript)

	if result.FeedbackErr != nil {
		fmt.Fprintln(w, pipeline.UserMessage(result.FeedbackErr))
		return
	}

	fmt.Fprintf(w, "Score: %s\n", result.Feedback.ScoreText())
	fmt.Fprintf(w, "Feedback: %s\n", result.Feedback.Feedback)
}

func newProbeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Report whether the configured capture backend can record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Backend: %s\n", a.cfg.Capture.Backend)

			device := a.newDevice()
			format, err := capability.Probe(device)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), pipeline.UserMessage(err))
				return err
			}

			fmt.Fprintf(out, "Format: %s\n", format)
			if a.cfg.Capture.FormatOverride != "" {
				fmt.Fprintf(out, "Format override: %s\n", a.cfg.Capture.FormatOverride)
			}
			return nil
		},
	}
}
