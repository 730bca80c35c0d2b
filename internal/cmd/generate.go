package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmcortes/newswire/internal/config"
	"github.com/jmcortes/newswire/internal/event"
	"github.com/jmcortes/newswire/internal/logging"
)

var generateCmd = &cobra.Command{
	Use:   "generate <topic>",
	Short: "Generate one article and print it to stdout",
	Long: `Run the full pipeline for a single topic synchronously. Pipeline
events are printed to stderr as they happen; the final article goes to
stdout so it can be piped into a file.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	topic := strings.Join(args, " ")

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.NewLogger(os.Stderr, cfg.Logging.Level)
	reg, bus, pipe := buildPipeline(cfg, logger)

	sess, err := reg.Create(topic)
	if err != nil {
		return err
	}

	events, cancel := bus.Subscribe(sess.ID)
	defer cancel()

	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for ev := range events {
			printEvent(ev)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := pipe.Run(ctx, sess.ID)
	<-printed
	if err != nil {
		return err
	}

	fmt.Println(res.Article)
	return nil
}

// printEvent writes a one-line progress summary to stderr. Incremental
// model output is skipped; it would drown the progress lines.
func printEvent(ev event.Event) {
	if ev.Type == event.TypeStageThinking {
		return
	}

	var parts []string
	for _, key := range []string{"stage", "iteration", "verdict", "tool", "summary", "error"} {
		if v, ok := ev.Data[key]; ok {
			parts = append(parts, fmt.Sprintf("%s=%v", key, v))
		}
	}
	fmt.Fprintf(os.Stderr, "%-20s %s\n", ev.Type, strings.Join(parts, " "))
}
