// Command console runs the scheduling dialogue on stdin/stdout, one line per
// recognized utterance.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/voice-scheduler/internal/app"
	"github.com/spec-kit/voice-scheduler/internal/config"
	"github.com/spec-kit/voice-scheduler/internal/domain"
	"github.com/spec-kit/voice-scheduler/internal/observability"
	"github.com/spec-kit/voice-scheduler/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	// Keep stdout for the conversation.
	if cfg.Logger.Level == "info" {
		cfg.Logger.Level = "warn"
	}
	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	components, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to build components", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		components.Close(closeCtx)
	}()

	if err := converse(ctx, components.Dialogue, uuid.NewString(), os.Stdin, os.Stdout); err != nil {
		logger.Error("conversation failed", zap.Error(err))
	}
}

// converse prints the greeting and answers each input line until the caller
// says goodbye or the input ends.
func converse(ctx context.Context, dialogue *service.DialogueService, sessionID string, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, dialogue.Greeting())

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		res, err := dialogue.HandleUtterance(ctx, sessionID, scanner.Text())
		if err != nil && !errors.Is(err, domain.ErrPersistence) {
			return err
		}
		fmt.Fprintln(out, res.Reply)
		if res.Ended {
			return nil
		}
	}
	return scanner.Err()
}
