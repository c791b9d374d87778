// Package cli is the delivery partner's command line client.
//
//	agent simulate --relay http://localhost:8080 --token T --agent A1 --order O1
//	agent watch    --relay http://localhost:8080 --token T --order O1
//
// simulate drives the device along a jittered straight line from the order's
// pickup to its delivery point, one sample per interval, and reports the
// delivery on arrival. It stops early when the relay says tracking stopped.
// watch prints every event of an order as a JSON line.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tracking/internal/adapters/out/relayclient"
	"tracking/internal/adapters/wire"
	"tracking/internal/core/domain/model/kernel"
	"tracking/internal/core/domain/services"
	"tracking/internal/jobs"

	"github.com/spf13/cobra"
)

type connectionFlags struct {
	relay string
	token string
	cbor  bool
}

func (f *connectionFlags) register(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&f.relay, "relay", "http://localhost:8080", "Relay base URL")
	cmd.PersistentFlags().StringVar(&f.token, "token", os.Getenv("RELAY_TOKEN"), "Credential token (default $RELAY_TOKEN)")
	cmd.PersistentFlags().BoolVar(&f.cbor, "cbor", false, "Use the CBOR wire encoding")
}

// BuildCLI returns the root command.
func BuildCLI() *cobra.Command {
	var conn connectionFlags

	root := &cobra.Command{
		Use:          "agent",
		Short:        "Delivery partner client for the tracking relay",
		Version:      "1.0.0",
		SilenceUsage: true,
	}
	conn.register(root)

	root.AddCommand(buildSimulateCommand(&conn), buildWatchCommand(&conn))
	return root
}

func buildSimulateCommand(conn *connectionFlags) *cobra.Command {
	var (
		agentID string
		orderID string
		config  = services.DefaultTrajectoryConfig()
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Simulate a delivery from pickup to drop-off",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger := newLogger(cmd.ErrOrStderr())
			return simulate(ctx, *conn, agentID, orderID, config, logger)
		},
	}

	cmd.Flags().StringVar(&agentID, "agent", "", "Delivery partner id")
	cmd.Flags().StringVar(&orderID, "order", "", "Order id")
	cmd.Flags().IntVar(&config.Steps, "steps", config.Steps, "Samples between pickup and delivery")
	cmd.Flags().DurationVar(&config.Interval, "interval", config.Interval, "Time between samples")
	cmd.Flags().Float64Var(&config.JitterBound, "jitter", config.JitterBound, "Per axis jitter in degrees")
	_ = cmd.MarkFlagRequired("agent")
	_ = cmd.MarkFlagRequired("order")
	return cmd
}

func buildWatchCommand(conn *connectionFlags) *cobra.Command {
	var orderID string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print the events of an order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger := newLogger(cmd.ErrOrStderr())
			return watch(ctx, *conn, orderID, cmd.OutOrStdout(), logger)
		},
	}

	cmd.Flags().StringVar(&orderID, "order", "", "Order id")
	_ = cmd.MarkFlagRequired("order")
	return cmd
}

func simulate(
	ctx context.Context,
	conn connectionFlags,
	agentID, orderID string,
	config services.TrajectoryConfig,
	logger *slog.Logger,
) error {
	client, err := relayclient.Dial(ctx, relayclient.Config{
		BaseURL: conn.relay,
		Token:   conn.token,
		AgentID: agentID,
		CBOR:    conn.cbor,
	}, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	snapshot, err := client.Tracking(ctx, orderID)
	if err != nil {
		return err
	}
	pickup, pErr := kernel.NewLocation(snapshot.Pickup.Lat, snapshot.Pickup.Lng)
	delivery, dErr := kernel.NewLocation(snapshot.Delivery.Lat, snapshot.Delivery.Lng)
	if err = errors.Join(pErr, dErr); err != nil {
		return err
	}

	manager, err := jobs.NewSimulationManager(nil, config, nil, logger)
	if err != nil {
		return err
	}
	if err = manager.Start(); err != nil {
		return err
	}
	defer manager.Stop()

	err = manager.Begin(ctx, jobs.SimulationRequest{
		OrderID:  orderID,
		AgentID:  agentID,
		Pickup:   pickup,
		Delivery: delivery,
		Emitter:  client,
	})
	if err != nil {
		return err
	}

	logger.Info("Simulating delivery", "order", orderID, "steps", config.Steps, "interval", config.Interval)

	poll := time.NewTicker(250 * time.Millisecond)
	defer poll.Stop()

	for {
		select {
		case <-ctx.Done():
			manager.Cancel(orderID)
			return nil
		case msg, ok := <-client.Messages():
			if !ok {
				return relayclient.ErrClosed
			}
			switch m := msg.(type) {
			case *wire.TrackingStopped:
				if m.OrderID == orderID {
					manager.Cancel(orderID)
					logger.Info("Tracking stopped", "order", orderID, "status", m.Status)
					return nil
				}
			case *wire.Error:
				logger.Warn("Relay rejected a request", "code", m.Code, "message", m.Message)
			}
		case <-poll.C:
			if !manager.Running(orderID) {
				logger.Info("Simulation finished", "order", orderID)
				return nil
			}
		}
	}
}

func watch(ctx context.Context, conn connectionFlags, orderID string, out io.Writer, logger *slog.Logger) error {
	client, err := relayclient.Dial(ctx, relayclient.Config{
		BaseURL: conn.relay,
		Token:   conn.token,
		CBOR:    conn.cbor,
	}, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	if err = client.Subscribe(ctx, orderID); err != nil {
		return err
	}

	encoder := json.NewEncoder(out)
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-client.Messages():
			if !ok {
				return relayclient.ErrClosed
			}
			if err = encoder.Encode(map[string]any{"type": msg.Type(), "payload": msg}); err != nil {
				return fmt.Errorf("write event: %w", err)
			}
		}
	}
}

func newLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
}
