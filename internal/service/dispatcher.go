package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/LeventeLantos/event-checkin/internal/client"
	"github.com/LeventeLantos/event-checkin/internal/logger"
	"github.com/LeventeLantos/event-checkin/internal/model"
	"github.com/rs/zerolog"
)

// ErrStatusNotSaved marks a message that reached WhatsApp but whose sent
// status could not be recorded.
var ErrStatusNotSaved = errors.New("whatsapp sent but invitation status not saved")

type MessageClient interface {
	Send(ctx context.Context, msg client.Message) (remoteMessageID string, err error)
}

// Produce builds the outbound message for one attendee.
type Produce func(ctx context.Context, a *model.Attendee) (client.Message, error)

// SleepFunc waits d or returns early with ctx.Err().
type SleepFunc func(ctx context.Context, d time.Duration) error

// Dispatcher sends invitations one at a time with a fixed pause between
// sends. It is sequential because the messaging API is rate limited.
type Dispatcher struct {
	client    MessageClient
	batchSize int
	delay     time.Duration
	sleep     SleepFunc
	log       zerolog.Logger

	onSent   func(ctx context.Context, a *model.Attendee, remoteMessageID string) error
	onFailed func(ctx context.Context, a *model.Attendee, reason string) error
}

func NewDispatcher(c MessageClient, batchSize int, delay time.Duration, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		client:    c,
		batchSize: batchSize,
		delay:     delay,
		sleep:     sleepContext,
		log:       logger.Component(log, "dispatcher"),
	}
}

func (d *Dispatcher) WithHooks(
	onSent func(ctx context.Context, a *model.Attendee, remoteMessageID string) error,
	onFailed func(ctx context.Context, a *model.Attendee, reason string) error,
) *Dispatcher {
	d.onSent = onSent
	d.onFailed = onFailed
	return d
}

func (d *Dispatcher) WithSleep(fn SleepFunc) *Dispatcher {
	d.sleep = fn
	return d
}

// Dispatch sends to at most batchSize eligible attendees, in the order
// given. Ineligible attendees are ignored. The rest of the eligible set is
// reported as skipped for a later batch, as are attendees left unprocessed
// when ctx ends mid-batch. Statuses already written are kept.
func (d *Dispatcher) Dispatch(ctx context.Context, attendees []model.Attendee, produce Produce) (model.DispatchResult, error) {
	eligible := make([]*model.Attendee, 0, len(attendees))
	for i := range attendees {
		if attendees[i].EligibleForDispatch() {
			eligible = append(eligible, &attendees[i])
		}
	}

	res := model.DispatchResult{Eligible: len(eligible), Errors: []string{}}
	if len(eligible) == 0 {
		return res, model.ErrNoEligibleAttendees
	}

	batch := eligible
	if len(batch) > d.batchSize {
		batch = batch[:d.batchSize]
	}
	res.Skipped = len(eligible) - len(batch)

	for i, a := range batch {
		if i > 0 {
			if err := d.sleep(ctx, d.delay); err != nil {
				res.Skipped += len(batch) - i
				d.log.Warn().Err(err).Int("remaining", len(batch)-i).Msg("dispatch interrupted")
				break
			}
		}
		if ctx.Err() != nil {
			res.Skipped += len(batch) - i
			d.log.Warn().Err(ctx.Err()).Int("remaining", len(batch)-i).Msg("dispatch interrupted")
			break
		}

		res.Attempted++
		_, err := d.Deliver(ctx, a, produce)
		if errors.Is(err, ErrStatusNotSaved) {
			res.Sent++
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", a.Name, err))
			continue
		}
		if err != nil {
			res.Failed++
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", a.Name, err))
			continue
		}
		res.Sent++
	}

	d.log.Info().
		Int("eligible", res.Eligible).
		Int("attempted", res.Attempted).
		Int("sent", res.Sent).
		Int("failed", res.Failed).
		Int("skipped", res.Skipped).
		Msg("dispatch batch finished")

	return res, nil
}

// Deliver sends one invitation and runs the matching hook. A panic while
// producing or sending is converted into a failure for this attendee only.
// When the send succeeds but the sent hook fails, the remote id is returned
// together with ErrStatusNotSaved.
func (d *Dispatcher) Deliver(ctx context.Context, a *model.Attendee, produce Produce) (remoteID string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("error sending whatsapp: panic: %v", r)
			d.log.Error().Int64("attendee_id", a.ID).Interface("panic", r).Msg("invitation send panic recovered")
			d.fail(ctx, a, err.Error())
		}
	}()

	msg, err := produce(ctx, a)
	if err != nil {
		err = fmt.Errorf("error sending whatsapp: %w", err)
		d.fail(ctx, a, err.Error())
		return "", err
	}

	remoteID, err = d.client.Send(ctx, msg)
	if err != nil {
		err = fmt.Errorf("failed to send whatsapp: %w", err)
		d.fail(ctx, a, err.Error())
		return "", err
	}

	d.log.Info().Int64("attendee_id", a.ID).Str("remote_id", remoteID).Msg("invitation sent")
	if d.onSent != nil {
		if hookErr := d.onSent(ctx, a, remoteID); hookErr != nil {
			d.log.Error().Err(hookErr).Int64("attendee_id", a.ID).Str("remote_id", remoteID).Msg("recording sent invitation failed")
			return remoteID, fmt.Errorf("%w: %v", ErrStatusNotSaved, hookErr)
		}
	}
	return remoteID, nil
}

func (d *Dispatcher) fail(ctx context.Context, a *model.Attendee, reason string) {
	d.log.Warn().Int64("attendee_id", a.ID).Str("reason", reason).Msg("invitation failed")
	if d.onFailed != nil {
		if err := d.onFailed(ctx, a, reason); err != nil {
			d.log.Error().Err(err).Int64("attendee_id", a.ID).Msg("recording failed invitation failed")
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
