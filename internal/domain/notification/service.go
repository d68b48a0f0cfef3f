package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Enqueuer defines the contract for scheduling delayed fan-out tasks.
// This allows the service to be decoupled from the specific queue
// implementation.
type Enqueuer interface {
	EnqueueFanout(nid string, uids []UserID, groups []string, delay time.Duration) error
}

// Service orchestrates the trigger path: create (dedup may suppress),
// then schedule fan-out after the debounce window. The delay is
// load-bearing: rapid related triggers about the same subject get
// deduplicated by the importance rule before any recipient index is
// touched, because the worker re-reads the record when the task fires.
type Service struct {
	store    *Store
	enqueuer Enqueuer

	debounce       time.Duration
	welcomeMessage string
}

// NewService creates a new notification service.
func NewService(store *Store, enqueuer Enqueuer, debounce time.Duration, welcomeMessage string) *Service {
	if debounce <= 0 {
		debounce = time.Second
	}
	return &Service{
		store:          store,
		enqueuer:       enqueuer,
		debounce:       debounce,
		welcomeMessage: welcomeMessage,
	}
}

// Notify creates a notification and schedules its delivery. A creation
// suppressed by the importance rule is reported as such, not an error:
// the earlier notification about the subject stands.
func (s *Service) Notify(ctx context.Context, req *NotifyRequest) (*NotifyResponse, error) {
	record, err := s.store.Create(ctx, &Notification{
		NID:        req.NID,
		BodyShort:  req.BodyShort,
		Path:       req.Path,
		PID:        req.PID,
		Type:       req.Type,
		Importance: req.Importance,
		Extra:      req.Extra,
	})
	if err != nil {
		return nil, err
	}
	if record == nil {
		slog.Info("notification suppressed by importance rule",
			"nid", req.NID,
			"pid", req.PID,
			"importance", req.Importance,
		)
		return &NotifyResponse{Suppressed: true, Status: "suppressed"}, nil
	}

	if len(req.UIDs) > 0 || len(req.Groups) > 0 {
		if err := s.enqueuer.EnqueueFanout(record.NID, req.UIDs, req.Groups, s.debounce); err != nil {
			return nil, fmt.Errorf("enqueuing fanout for %s: %w", record.NID, err)
		}
	}

	slog.Info("notification accepted",
		"nid", record.NID,
		"recipients", len(req.UIDs),
		"groups", len(req.Groups),
	)

	return &NotifyResponse{NID: record.NID, Status: "queued"}, nil
}

// SendWelcome delivers the configured welcome notification to a newly
// registered user. No configured message means no-op. The nid is
// derived from the uid, so repeat calls collapse onto one record.
func (s *Service) SendWelcome(ctx context.Context, uid UserID) error {
	if s.welcomeMessage == "" || uid.IsAnonymous() {
		return nil
	}

	_, err := s.Notify(ctx, &NotifyRequest{
		NID:       fmt.Sprintf("welcome_%d", uid),
		BodyShort: s.welcomeMessage,
		Path:      "/",
		UIDs:      []UserID{uid},
	})
	if err != nil {
		return fmt.Errorf("sending welcome notification to uid %d: %w", uid, err)
	}
	return nil
}
