package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/carwatch/pkg/logger"
	"github.com/wonny/carwatch/pkg/redis"
)

// MarkerStore takes one-shot per-key flags (pkg/redis.Marker)
type MarkerStore interface {
	Mark(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// DispatchResult reports what a dispatch did
type DispatchResult struct {
	Skipped bool     `json:"skipped"`
	Reason  string   `json:"reason,omitempty"`
	Sent    []string `json:"sent"`
	Failed  []string `json:"failed"`
}

// Dispatcher fans a summary out to every configured notifier
// ⭐ SSOT: 날짜별 알림 발송은 Dispatcher를 통해서만 (중복 발송 방지)
type Dispatcher struct {
	notifiers []Notifier
	markers   MarkerStore
	logger    *logger.Logger
}

// NewDispatcher creates a dispatcher. markers may be nil.
func NewDispatcher(markers MarkerStore, log *logger.Logger, notifiers ...Notifier) *Dispatcher {
	return &Dispatcher{
		notifiers: notifiers,
		markers:   markers,
		logger:    log.WithComponent("notify"),
	}
}

// Notifiers returns the configured channel names
func (d *Dispatcher) Notifiers() []string {
	names := make([]string, len(d.notifiers))
	for i, n := range d.notifiers {
		names[i] = n.Name()
	}
	return names
}

// Dispatch sends s once per date key. A failing channel does not stop the
// others; their errors are joined.
func (d *Dispatcher) Dispatch(ctx context.Context, s *Summary) (*DispatchResult, error) {
	result := &DispatchResult{}

	if s.Empty() {
		result.Skipped, result.Reason = true, "no differences"
		d.logger.Info("No differences, notification skipped")
		return result, nil
	}
	if len(d.notifiers) == 0 {
		result.Skipped, result.Reason = true, "no notifiers configured"
		d.logger.Warn("No notifiers configured")
		return result, nil
	}

	key := redis.NotifyKey(s.Date)
	if d.markers != nil {
		taken, err := d.markers.Mark(ctx, key, redis.TTLWeek)
		if err != nil {
			return nil, fmt.Errorf("notify marker: %w", err)
		}
		if !taken {
			result.Skipped, result.Reason = true, "already sent"
			d.logger.WithField("date", s.Date).Info("Notification already sent for date")
			return result, nil
		}
	}

	var errs []error
	for _, n := range d.notifiers {
		log := d.logger.WithField("channel", n.Name())
		if err := n.Notify(ctx, s); err != nil {
			log.WithError(err).Error("Notification failed")
			result.Failed = append(result.Failed, n.Name())
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
			continue
		}
		log.WithField("total", s.Total).Info("Notification sent")
		result.Sent = append(result.Sent, n.Name())
	}

	// 전부 실패하면 마커를 해제해 재시도 가능하게
	if len(result.Sent) == 0 && d.markers != nil {
		if err := d.markers.Release(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("release marker: %w", err))
		}
	}

	return result, errors.Join(errs...)
}
