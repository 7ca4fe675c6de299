package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Dosada05/carnival-system/metrics"
	"github.com/Dosada05/carnival-system/models"
	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Mailer renders and sends one email. EmailService is the SMTP implementation.
type Mailer interface {
	SendEmail(ctx context.Context, to []string, subject string, body string) error
	GenerateEmailBody(templateName string, data interface{}) (string, error)
}

type DispatcherConfig struct {
	QueueSize   int
	RatePerSec  float64
	Timeout     time.Duration
	MaxAttempts uint
	PublicURL   string
}

const (
	notifyKindClaim     = "claim"
	notifyKindApproval  = "approval"
	notifyKindRejection = "rejection"
)

type emailJob struct {
	ID         uuid.UUID
	Kind       string
	CarnivalID int
	To         []string
	Subject    string
	Template   string
	Data       any
}

// EmailNotifier queues notification emails and delivers them on a single worker.
// Delivery is throttled, bounded by a per-attempt timeout and retried a limited number of times.
// A full queue drops the job; failures are logged and counted, never returned.
type EmailNotifier struct {
	mailer     Mailer
	cfg        DispatcherConfig
	queue      chan emailJob
	limiter    *rate.Limiter
	logger     *slog.Logger
	newBackOff func() backoff.BackOff

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewEmailNotifier(mailer Mailer, cfg DispatcherConfig, logger *slog.Logger) *EmailNotifier {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 3
	}
	return &EmailNotifier{
		mailer:  mailer,
		cfg:     cfg,
		queue:   make(chan emailJob, cfg.QueueSize),
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), 1),
		logger:  logger,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = 10 * time.Second
			return b
		},
	}
}

// Start launches the delivery worker. It runs until Stop drains the queue.
func (n *EmailNotifier) Start(ctx context.Context) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		for job := range n.queue {
			metrics.NotificationQueueDepth.Dec()
			n.deliver(ctx, job)
		}
	}()
}

// Stop refuses new jobs and waits for queued ones to be delivered.
func (n *EmailNotifier) Stop() {
	n.mu.Lock()
	if !n.closed {
		n.closed = true
		close(n.queue)
	}
	n.mu.Unlock()
	n.wg.Wait()
}

func (n *EmailNotifier) enqueue(ctx context.Context, job emailJob) {
	job.ID = uuid.New()
	log := n.logger.With(slog.String("job_id", job.ID.String()), slog.String("kind", job.Kind), slog.Int("carnival_id", job.CarnivalID))

	if len(job.To) == 0 {
		metrics.NotificationsTotal.WithLabelValues(job.Kind, "skipped").Inc()
		log.InfoContext(ctx, "notification skipped: no recipient")
		return
	}

	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed {
		metrics.NotificationsTotal.WithLabelValues(job.Kind, "dropped").Inc()
		log.WarnContext(ctx, "notification dropped: dispatcher stopped")
		return
	}
	select {
	case n.queue <- job:
		metrics.NotificationQueueDepth.Inc()
	default:
		metrics.NotificationsTotal.WithLabelValues(job.Kind, "dropped").Inc()
		log.WarnContext(ctx, "notification dropped: queue full", slog.Int("queue_size", n.cfg.QueueSize))
	}
}

func (n *EmailNotifier) deliver(ctx context.Context, job emailJob) {
	start := time.Now()
	log := n.logger.With(slog.String("job_id", job.ID.String()), slog.String("kind", job.Kind), slog.Int("carnival_id", job.CarnivalID))
	defer func() {
		metrics.NotificationDeliverySeconds.WithLabelValues(job.Kind).Observe(time.Since(start).Seconds())
	}()

	body, err := n.mailer.GenerateEmailBody(job.Template, job.Data)
	if err != nil {
		metrics.NotificationsTotal.WithLabelValues(job.Kind, "failed").Inc()
		log.WarnContext(ctx, "notification template failed", slog.String("template", job.Template), slog.Any("error", err))
		return
	}

	if err := n.limiter.Wait(ctx); err != nil {
		metrics.NotificationsTotal.WithLabelValues(job.Kind, "failed").Inc()
		log.WarnContext(ctx, "notification abandoned while throttled", slog.Any("error", err))
		return
	}

	attempt := 0
	send := func() (struct{}, error) {
		attempt++
		sendCtx, cancel := context.WithTimeout(ctx, n.cfg.Timeout)
		defer cancel()
		return struct{}{}, n.mailer.SendEmail(sendCtx, job.To, job.Subject, body)
	}
	_, err = backoff.Retry(ctx, send,
		backoff.WithBackOff(n.newBackOff()),
		backoff.WithMaxTries(n.cfg.MaxAttempts),
		backoff.WithNotify(func(err error, wait time.Duration) {
			log.WarnContext(ctx, "notification attempt failed, retrying",
				slog.Int("attempt", attempt), slog.Duration("wait", wait), slog.Any("error", err))
		}),
	)
	if err != nil {
		metrics.NotificationsTotal.WithLabelValues(job.Kind, "failed").Inc()
		log.WarnContext(ctx, "notification delivery failed", slog.Int("attempts", attempt), slog.Any("error", err))
		return
	}
	metrics.NotificationsTotal.WithLabelValues(job.Kind, "sent").Inc()
	log.InfoContext(ctx, "notification sent", slog.Int("attempts", attempt))
}

func (n *EmailNotifier) carnivalURL(c *models.Carnival) string {
	return fmt.Sprintf("%s/carnivals/%d", strings.TrimSuffix(n.cfg.PublicURL, "/"), c.ID)
}

// clubRecipients prefers the club's contact email and falls back to its primary delegate.
func clubRecipients(club *models.Club) []string {
	if club == nil {
		return nil
	}
	if club.ContactEmail != nil && strings.TrimSpace(*club.ContactEmail) != "" {
		return []string{strings.TrimSpace(*club.ContactEmail)}
	}
	if club.PrimaryDelegate != nil && club.PrimaryDelegate.Email != "" {
		return []string{club.PrimaryDelegate.Email}
	}
	return nil
}

func (n *EmailNotifier) NotifyClaim(ctx context.Context, carnival *models.Carnival, claimant *models.User, club *models.Club, originalContactEmail string) {
	data := struct {
		CarnivalTitle string
		CarnivalDate  string
		ClubName      string
		ClaimantName  string
		ClaimantEmail string
		CarnivalURL   string
	}{
		CarnivalTitle: carnival.Title,
		CarnivalDate:  carnival.Date.Format("2 January 2006"),
		ClubName:      club.Name,
		ClaimantName:  claimant.FullName(),
		ClaimantEmail: claimant.Email,
		CarnivalURL:   n.carnivalURL(carnival),
	}
	n.enqueue(ctx, emailJob{
		Kind:       notifyKindClaim,
		CarnivalID: carnival.ID,
		To:         []string{originalContactEmail},
		Subject:    fmt.Sprintf("Your carnival %q has been claimed by %s", carnival.Title, club.Name),
		Template:   "carnival_claimed.html",
		Data:       data,
	})
}

type registrationDecisionEmail struct {
	CarnivalTitle string
	CarnivalDate  string
	ClubName      string
	ApproverName  string
	Reason        string
	CarnivalURL   string
}

func (n *EmailNotifier) NotifyApproval(ctx context.Context, carnival *models.Carnival, club *models.Club, approverName string) {
	n.enqueue(ctx, emailJob{
		Kind:       notifyKindApproval,
		CarnivalID: carnival.ID,
		To:         clubRecipients(club),
		Subject:    fmt.Sprintf("Registration approved: %s", carnival.Title),
		Template:   "registration_approved.html",
		Data: registrationDecisionEmail{
			CarnivalTitle: carnival.Title,
			CarnivalDate:  carnival.Date.Format("2 January 2006"),
			ClubName:      club.Name,
			ApproverName:  approverName,
			CarnivalURL:   n.carnivalURL(carnival),
		},
	})
}

func (n *EmailNotifier) NotifyRejection(ctx context.Context, carnival *models.Carnival, club *models.Club, approverName, reason string) {
	n.enqueue(ctx, emailJob{
		Kind:       notifyKindRejection,
		CarnivalID: carnival.ID,
		To:         clubRecipients(club),
		Subject:    fmt.Sprintf("Registration not accepted: %s", carnival.Title),
		Template:   "registration_rejected.html",
		Data: registrationDecisionEmail{
			CarnivalTitle: carnival.Title,
			CarnivalDate:  carnival.Date.Format("2 January 2006"),
			ClubName:      club.Name,
			ApproverName:  approverName,
			Reason:        reason,
			CarnivalURL:   n.carnivalURL(carnival),
		},
	})
}
