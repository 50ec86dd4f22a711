package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/garyjia/perdin/internal/application/port"
	"github.com/garyjia/perdin/internal/domain/event"
)

// NotificationService tells the review chat about trip events
type NotificationService interface {
	// NotifyTripEvent formats evt and sends it. Unknown event types are ignored.
	NotifyTripEvent(ctx context.Context, evt *event.Event) error
}

type notificationServiceImpl struct {
	userRepo      port.UserRepository
	messageSender port.MessageSender
	logger        Logger
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(userRepo port.UserRepository, messageSender port.MessageSender, logger Logger) NotificationService {
	return &notificationServiceImpl{
		userRepo:      userRepo,
		messageSender: messageSender,
		logger:        logger,
	}
}

func (s *notificationServiceImpl) NotifyTripEvent(ctx context.Context, evt *event.Event) error {
	var message string
	switch evt.Type {
	case event.TypeTripSubmitted:
		message = s.submittedMessage(evt)
	case event.TypeTripApproved:
		message = s.decisionMessage(ctx, evt, "DISETUJUI")
	case event.TypeTripRejected:
		message = s.decisionMessage(ctx, evt, "DITOLAK")
	default:
		return nil
	}

	if err := s.messageSender.SendText(ctx, message); err != nil {
		s.logger.Error("Failed to send trip notification", "error", err, "trip_id", evt.TripID, "type", evt.Type)
		return fmt.Errorf("send message: %w", err)
	}

	s.logger.Info("Trip notification sent", "trip_id", evt.TripID, "type", evt.Type)
	return nil
}

func (s *notificationServiceImpl) submittedMessage(evt *event.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Pengajuan perjalanan dinas baru #%d\n", evt.TripID)
	fmt.Fprintf(&b, "Pemohon: %s\n", evt.GetPayloadString("requester_name"))
	fmt.Fprintf(&b, "Rute: %s -> %s (%d hari)\n",
		evt.GetPayloadString("origin_city"),
		evt.GetPayloadString("destination_city"),
		evt.GetPayloadInt("duration_days"))
	fmt.Fprintf(&b, "Uang saku: %s (%s)\n",
		formatRupiah(evt.GetPayloadString("total_allowance")),
		evt.GetPayloadString("allowance_rule"))
	fmt.Fprintf(&b, "Maksud: %s", evt.GetPayloadString("purpose"))
	return b.String()
}

func (s *notificationServiceImpl) decisionMessage(ctx context.Context, evt *event.Event, verdict string) string {
	reviewer := fmt.Sprintf("user #%d", evt.ActorID)
	if u, err := s.userRepo.GetByID(ctx, evt.ActorID); err == nil {
		reviewer = u.Name
	}

	return fmt.Sprintf("Perjalanan dinas #%d %s oleh %s\nMaksud: %s\nUang saku: %s",
		evt.TripID,
		verdict,
		reviewer,
		evt.GetPayloadString("purpose"),
		formatRupiah(evt.GetPayloadString("total_allowance")))
}

// formatRupiah renders an amount as "Rp 1.250.000", or "-" when it is not a number
func formatRupiah(amount string) string {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return "-"
	}

	whole := d.Truncate(0).Abs().String()
	var groups []string
	for len(whole) > 3 {
		groups = append([]string{whole[len(whole)-3:]}, groups...)
		whole = whole[:len(whole)-3]
	}
	groups = append([]string{whole}, groups...)

	sign := ""
	if d.IsNegative() {
		sign = "-"
	}
	return "Rp " + sign + strings.Join(groups, ".")
}
