// internal/orders/submit.go
package orders

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/drift-terminal/internal/drift"
	"github.com/rovshanmuradov/drift-terminal/internal/logger"
)

// demoDelay simulates network latency so the demo path exercises the same
// UI-state transitions as the live one.
const demoDelay = time.Second

// Submitter dispatches built orders through the client, strictly one leg at
// a time. There is no rollback: a leg that already landed stays.
type Submitter struct {
	logger *logger.Logger
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
}

func NewSubmitter(log *logger.Logger) *Submitter {
	return &Submitter{
		logger: log,
		now:    time.Now,
		sleep:  sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SubmitDemo validates the form and reports synthetic success without any
// network call. The success message is textually identical to the live path.
func (s *Submitter) SubmitDemo(ctx context.Context, input FormInput) (*SubmissionResult, error) {
	batch, err := NewBuilder(drift.StandardConverter{}).Build(input, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.sleep(ctx, demoDelay); err != nil {
		return nil, err
	}

	s.logger.WithOperation("demo-order").Info("Demo order accepted",
		zap.String("market", batch.Market),
		zap.String("direction", batch.Direction),
		zap.String("size", batch.Size))

	return &SubmissionResult{
		Message: successMessage(batch.Direction, batch.OrderType, batch.Size, batch.Market),
		Legs:    []LegResult{{Leg: "primary"}},
		Demo:    true,
	}, nil
}

// Submit builds the batch and dispatches it sequentially: primary, then
// take-profit, then stop-loss. A primary failure aborts the batch; a later
// leg failure leaves the earlier legs in place and is reported per leg.
func (s *Submitter) Submit(ctx context.Context, client drift.Client, input FormInput) (*SubmissionResult, error) {
	batch, err := NewBuilder(client).Build(input, s.now())
	if err != nil {
		return nil, err
	}

	// Одна операция (и один correlation id) на весь батч.
	opLog := s.logger.WithOperation("place-order")
	result := &SubmissionResult{}

	sig, err := client.PlaceOrder(ctx, batch.Primary)
	if err != nil {
		subErr := &drift.SubmissionError{Leg: "primary", OriginalError: err}
		result.Legs = append(result.Legs, LegResult{Leg: "primary", Error: subErr.Error()})
		s.logger.LogError("Primary order rejected", err, zap.String("market", batch.Market))
		return result, subErr
	}
	result.Legs = append(result.Legs, LegResult{Leg: "primary", Signature: sig.String()})
	opLog.Info("Order placed",
		zap.String("market", batch.Market),
		zap.String("direction", batch.Direction),
		zap.String("signature", sig.String()))

	for _, leg := range []struct {
		name   string
		params *drift.OrderParams
	}{
		{"take-profit", batch.TakeProfit},
		{"stop-loss", batch.StopLoss},
	} {
		if leg.params == nil {
			continue
		}
		sig, err := client.PlaceOrder(ctx, *leg.params)
		if err != nil {
			subErr := &drift.SubmissionError{Leg: leg.name, OriginalError: err}
			result.Legs = append(result.Legs, LegResult{Leg: leg.name, Error: subErr.Error()})
			opLog.Warn("Exit leg rejected, placed legs stand",
				zap.String("leg", leg.name),
				zap.Error(err))
			return result, subErr
		}
		result.Legs = append(result.Legs, LegResult{Leg: leg.name, Signature: sig.String()})
	}

	result.Message = successMessage(batch.Direction, batch.OrderType, batch.Size, batch.Market)
	return result, nil
}
