package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mukeshbadgujar/emandate-service/internal/core/events"
	"github.com/mukeshbadgujar/emandate-service/internal/dispatcher"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the job worker pool",
	Long:  `Start the dispatcher workers that execute mandate authorization and payment charge jobs`,
	Run: func(cmd *cobra.Command, args []string) {
		startWorker()
	},
}

func startWorker() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	deps.Queue.Register(dispatcher.JobTypeMandateAuthorize, deps.MandateService.Processor())
	deps.Queue.Register(dispatcher.JobTypePaymentCharge, deps.PaymentService.Processor())

	registerEventObservers(deps)

	deps.Queue.Start()

	deps.Logger.Info("worker pool running",
		"workers", deps.Config.Dispatcher.Workers,
		"max_attempts", deps.Config.Dispatcher.MaxAttempts)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	deps.Logger.Info("received signal, shutting down worker pool", "signal", sig)

	deps.Queue.Stop()
	deps.Close()

	deps.Logger.Info("worker pool shutdown complete")
}

// registerEventObservers attaches audit-log handlers for the lifecycle
// events. Notification hooks (email, downstream services) register the
// same way.
func registerEventObservers(deps *Dependencies) {
	lifecycleTypes := []string{
		events.EventTypeMandateConfirmed,
		events.EventTypeMandateFailed,
		events.EventTypeMandateCancelled,
		events.EventTypePaymentCaptured,
		events.EventTypePaymentFailed,
	}

	for _, eventType := range lifecycleTypes {
		deps.EventBus.Subscribe(eventType, func(ctx context.Context, event events.Event) error {
			deps.Logger.Info("lifecycle event",
				"event_type", event.EventType(),
				"event_id", event.EventID(),
				"occurred_at", event.OccurredAt(),
				"payload", event.Payload())
			return nil
		})
	}
}
