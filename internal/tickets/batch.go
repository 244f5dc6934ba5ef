package tickets

import (
	"context"
	"errors"
	"fmt"

	"seatline/internal/shared/apperror"
	"seatline/internal/shared/constants"
	"seatline/pkg/redislock"
)

// SubmitBatch composes each item on its own. An item failure never aborts
// its siblings. Items carrying a local_id are deduplicated per device, so a
// batch retried after a lost response returns the original ids.
func (s *service) SubmitBatch(ctx context.Context, deviceID, installID string, items []TicketRequest, actorID int64) (*BatchResponse, error) {
	if len(items) == 0 {
		return nil, apperror.Validation(apperror.CodeEmptyBatch, "tickets[] must contain at least one ticket")
	}
	if len(items) > s.opts.MaxBatchSize {
		return nil, apperror.Validation(apperror.CodeInvalidRequest,
			fmt.Sprintf("a batch holds at most %d tickets", s.opts.MaxBatchSize))
	}

	if deviceID != "" {
		lock, err := s.opts.Locker.Obtain(ctx, constants.BuildDeviceBatchLockKey(deviceID), s.opts.BatchLockTTL)
		switch {
		case errors.Is(err, redislock.ErrNotAcquired):
			return nil, apperror.ErrBatchInProgress
		case err != nil:
			// Idempotency keys still protect the batch without the guard
			s.opts.Logger.WarnContext(ctx, "device batch lock unavailable", "device_id", deviceID, "error", err)
		default:
			defer func() {
				if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
					s.opts.Logger.WarnContext(ctx, "failed to release device batch lock", "device_id", deviceID, "error", err)
				}
			}()
		}
	}

	resp := &BatchResponse{
		DeviceID: deviceID,
		Total:    len(items),
		Results:  make([]BatchItemResult, 0, len(items)),
	}
	replayed := 0
	for _, item := range items {
		// Items already committed are replayed on the client's next attempt
		if err := ctx.Err(); err != nil {
			return nil, apperror.Internal("batch interrupted", err)
		}

		in := item.Input()
		localID := item.LocalKey()
		if deviceID != "" && localID != "" && in.TripID != nil {
			in.IdempotencyKey = IdempotencyKey(deviceID, installID, localID, *in.TripID)
			in.DeviceID = deviceID
			in.InstallID = installID
			in.LocalID = localID
		}

		out := BatchItemResult{LocalID: item.LocalID}
		result, err := s.CreateTicket(ctx, in, actorID)
		if err != nil {
			appErr := apperror.From(err)
			if appErr.Kind == apperror.KindInternal {
				s.opts.Logger.ErrorWithContext(ctx, "batch ticket failed", err, map[string]interface{}{
					"device_id": deviceID,
					"local_id":  localID,
				})
			}
			msg := apperror.PublicMessage(appErr)
			out.Error = &msg
			out.Code = appErr.Code
			resp.Failed++
		} else {
			out.OK = true
			out.ReservationID = &result.ReservationID
			out.PaymentID = result.PaymentID
			out.Replayed = result.Replayed
			if result.Replayed {
				replayed++
			}
			resp.Succeeded++
		}
		resp.Results = append(resp.Results, out)
	}

	s.opts.Logger.LogSyncBatch(ctx, deviceID, resp.Total, resp.Succeeded, replayed)
	return resp, nil
}
