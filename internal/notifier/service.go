package notifier

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"annwatch/internal/announce"
	"annwatch/internal/storage"
	logx "annwatch/pkg/logx"
)

// ErrNoChannels is returned by Notify when nothing is configured to deliver to.
var ErrNoChannels = errors.New("notifier has no channels")

// rateSetter is implemented by channels with an adjustable send rate.
type rateSetter interface {
	SetRate(perSec int)
}

// Service renders announcements and fans them out to every channel.
//
// It is safe for concurrent use.
type Service struct {
	mu  sync.Mutex
	cfg Config

	log      logx.Logger
	store    storage.Store
	channels []Channel
	now      func() time.Time
}

// New builds a Service. store may be nil (no delivery log).
func New(cfg Config, log logx.Logger, store storage.Store, channels ...Channel) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Service{
		log:      log,
		store:    store,
		channels: channels,
		now:      time.Now,
	}
	s.Apply(cfg)
	return s
}

// Apply updates rate limits and timeouts in place. Used on config reload.
func (s *Service) Apply(cfg Config) {
	cfg = cfg.withDefaults()
	s.mu.Lock()
	s.cfg = cfg
	chans := s.channels
	s.mu.Unlock()
	for _, ch := range chans {
		if rs, ok := ch.(rateSetter); ok {
			rs.SetRate(cfg.RatePerSec)
		}
	}
}

// SetClock replaces the clock used for the "checked at" timestamp.
func (s *Service) SetClock(now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

// ChannelNames lists configured channels in delivery order.
func (s *Service) ChannelNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.channels))
	for _, ch := range s.channels {
		out = append(out, ch.Name())
	}
	return out
}

// Notify attempts delivery of a once on every channel. The returned error
// joins per-channel failures; callers log it and move on.
func (s *Service) Notify(ctx context.Context, a announce.Announcement) error {
	s.mu.Lock()
	cfg := s.cfg
	chans := s.channels
	now := s.now
	s.mu.Unlock()

	if len(chans) == 0 {
		return ErrNoChannels
	}
	m := Message{Announcement: a, CheckedAt: now()}
	key := a.Key()

	var errs []error
	for _, ch := range chans {
		start := time.Now()
		err := s.send(ctx, cfg, ch, m)
		took := time.Since(start)

		if err != nil {
			s.log.Warn("notification failed",
				logx.String("channel", ch.Name()),
				logx.String("source", a.Source),
				logx.String("title", a.Title),
				logx.Duration("took", took),
				logx.Err(err),
			)
			errs = append(errs, fmt.Errorf("%s: %w", ch.Name(), err))
		} else {
			s.log.Info("notification sent",
				logx.String("channel", ch.Name()),
				logx.String("source", a.Source),
				logx.String("title", a.Title),
				logx.Duration("took", took),
			)
		}
		s.record(ctx, storage.Delivery{
			At:      m.CheckedAt,
			Key:     key,
			Source:  a.Source,
			Title:   a.Title,
			URL:     a.URL,
			Channel: ch.Name(),
			OK:      err == nil,
			Error:   errString(err),
			TookMS:  took.Milliseconds(),
		})
	}
	return errors.Join(errs...)
}

// Announce sends an operational text message (not recorded in the delivery log).
func (s *Service) Announce(ctx context.Context, text string) error {
	s.mu.Lock()
	cfg := s.cfg
	chans := s.channels
	now := s.now
	s.mu.Unlock()

	m := Message{Text: text, CheckedAt: now()}
	var errs []error
	for _, ch := range chans {
		if err := s.send(ctx, cfg, ch, m); err != nil {
			s.log.Warn("operational message failed", logx.String("channel", ch.Name()), logx.Err(err))
			errs = append(errs, fmt.Errorf("%s: %w", ch.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (s *Service) send(ctx context.Context, cfg Config, ch Channel, m Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in channel %s: %v", ch.Name(), r)
		}
	}()
	cctx, cancel := context.WithTimeout(ctx, cfg.SendTimeout)
	defer cancel()
	return ch.Send(cctx, m)
}

func (s *Service) record(ctx context.Context, d storage.Delivery) {
	if s.store == nil {
		return
	}
	// Use a fresh deadline so a cancelled cycle still records what was attempted.
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := s.store.AppendDelivery(cctx, d); err != nil {
		s.log.Debug("delivery log append failed", logx.Err(err))
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
