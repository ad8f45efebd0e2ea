package notify

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"Aktiemotor/internal/domain/models"
	"Aktiemotor/internal/domain/repository"
	"Aktiemotor/internal/service/upstream"
	xhttp "Aktiemotor/pkg/http"
	"Aktiemotor/pkg/logger"
)

const (
	PriorityLow     = 2
	PriorityDefault = 3
	PriorityHigh    = 4
)

// Ntfy posts plain-text messages to an ntfy topic.
type Ntfy struct {
	base     *upstream.Base
	endpoint string
	clickURL string
	log      *logger.Logger
}

// NewNtfy targets <serverURL>/<topic>. clickURL, when set, is attached to
// every message as the tap action.
func NewNtfy(base *upstream.Base, serverURL, topic, clickURL string, l *logger.Logger) *Ntfy {
	if l == nil {
		l = logger.Nop()
	}
	return &Ntfy{
		base:     base,
		endpoint: strings.TrimRight(serverURL, "/") + "/" + strings.TrimLeft(topic, "/"),
		clickURL: clickURL,
		log:      l.With("ntfy"),
	}
}

func (n *Ntfy) Notify(ctx context.Context, msg repository.Notification) error {
	headers := map[string]string{"Content-Type": "text/plain; charset=utf-8"}
	if msg.Title != "" {
		headers["Title"] = msg.Title
	}
	if msg.Priority > 0 {
		headers["Priority"] = strconv.Itoa(msg.Priority)
	}
	if len(msg.Tags) > 0 {
		headers["Tags"] = strings.Join(msg.Tags, ",")
	}
	if n.clickURL != "" {
		headers["Click"] = n.clickURL
	}
	err := n.base.Do(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodPost,
		URL:     n.endpoint,
		Headers: headers,
		Body:    msg.Message,
	}, nil)
	if err != nil {
		return fmt.Errorf("ntfy: %w", err)
	}
	n.log.Debug("notification sent", logger.String("title", msg.Title))
	return nil
}

// Discard drops every notification. Used when push is disabled.
type Discard struct{}

func (Discard) Notify(context.Context, repository.Notification) error { return nil }

// ForRecommendation renders a BUY or SELL alert.
func ForRecommendation(rec *models.Recommendation) repository.Notification {
	var b strings.Builder
	switch rec.Side {
	case models.SideBuy:
		fmt.Fprintf(&b, "Köp %d st %s @ %.2f kr (%.0f kr)\n", rec.Quantity, rec.Ticker, rec.Price, rec.Value)
		if rec.StopLoss > 0 || rec.TakeProfit > 0 {
			fmt.Fprintf(&b, "Stop-loss %.2f / Take-profit %.2f\n", rec.StopLoss, rec.TakeProfit)
		}
	default:
		fmt.Fprintf(&b, "Sälj %s @ %.2f kr\n", rec.Ticker, rec.Price)
	}
	fmt.Fprintf(&b, "Signalstyrka %d/100 (tröskel %d), regim %s\n", rec.Confidence, rec.Threshold, rec.Regime)
	if rec.RotationOf != "" {
		fmt.Fprintf(&b, "Rotation: ersätter %s\n", rec.RotationOf)
	}
	if rec.Description != "" {
		b.WriteString(rec.Description)
		b.WriteString("\n")
	} else if len(rec.Reasons) > 0 {
		b.WriteString(strings.Join(rec.Reasons, ", "))
		b.WriteString("\n")
	}
	b.WriteString("ID: " + rec.ID)

	n := repository.Notification{Message: b.String()}
	if rec.Side == models.SideBuy {
		n.Title = "KOP " + rec.Ticker
		n.Priority = PriorityHigh
		n.Tags = []string{"chart_with_upwards_trend"}
	} else {
		n.Title = "SALJ " + rec.Ticker
		n.Priority = PriorityHigh
		n.Tags = []string{"chart_with_downwards_trend"}
		if rec.Kind == models.KindStopTake {
			n.Tags = append(n.Tags, "warning")
		}
	}
	if rec.Kind == models.KindRotation {
		n.Tags = append(n.Tags, "arrows_counterclockwise")
	}
	return n
}

// ForScan renders the universe scan summary.
func ForScan(r *models.ScanReport) repository.Notification {
	var b strings.Builder
	fmt.Fprintf(&b, "Skannade %d aktier, %d kvalificerade\n", r.Scanned, r.Qualified)
	for i, c := range r.Top {
		if i >= 5 {
			break
		}
		fmt.Fprintf(&b, "%d. %s (%d)\n", i+1, c.Ticker, c.Score)
	}
	if len(r.Changes) == 0 {
		b.WriteString("Inga ändringar i bevakningslistan")
	}
	for _, ch := range r.Changes {
		fmt.Fprintf(&b, "+ %s (%d) ersätter - %s (%d)\n", ch.Added, ch.AddedScore, ch.Removed, ch.RemovedScore)
	}
	return repository.Notification{
		Title:    "Skanning klar",
		Message:  strings.TrimRight(b.String(), "\n"),
		Priority: PriorityDefault,
		Tags:     []string{"mag"},
	}
}

// ForWeekly renders the Friday portfolio report.
func ForWeekly(s *models.PortfolioSummary) repository.Notification {
	var b strings.Builder
	fmt.Fprintf(&b, "Totalt %.0f kr (%+.2f%%)\n", s.TotalValue, s.TotalPct)
	fmt.Fprintf(&b, "Kassa %.0f kr, realiserat %+.0f kr, orealiserat %+.0f kr\n", s.Cash, s.RealizedPnL, s.UnrealizedPnL)
	for _, p := range s.Positions {
		fmt.Fprintf(&b, "%s %d st @ %.2f (%+.1f%%)\n", p.Ticker, p.Quantity, p.LastPrice, p.PnLPct*100)
	}
	return repository.Notification{
		Title:    "Veckorapport",
		Message:  strings.TrimRight(b.String(), "\n"),
		Priority: PriorityDefault,
		Tags:     []string{"bar_chart"},
	}
}

// ForDiscovery renders the morning discovery result.
func ForDiscovery(r *models.DiscoveryReport) repository.Notification {
	var b strings.Builder
	fmt.Fprintf(&b, "Discovery: %d aktier skannade, %d i bevakningslistan\n", r.Scanned, len(r.Selected))
	fmt.Fprintf(&b, "Marknadsregim: %s\n", r.Regime)
	for i, c := range r.Selected {
		if i >= 5 {
			break
		}
		fmt.Fprintf(&b, "%d. %s kombi %.0f (köp %d)\n", i+1, c.Ticker, c.Combined, c.BuyPre)
	}
	if len(r.Added) > 0 {
		fmt.Fprintf(&b, "Nya: %s\n", strings.Join(r.Added, ", "))
	}
	if len(r.Removed) > 0 {
		fmt.Fprintf(&b, "Borttagna: %s\n", strings.Join(r.Removed, ", "))
	}
	if r.Failed > 0 {
		fmt.Fprintf(&b, "%d aktier kunde inte analyseras\n", r.Failed)
	}
	if r.Filtered > 0 {
		fmt.Fprintf(&b, "%d aktier filtrerade (likviditet/data)\n", r.Filtered)
	}
	return repository.Notification{
		Title:    "Discovery klar",
		Message:  strings.TrimRight(b.String(), "\n"),
		Priority: PriorityDefault,
		Tags:     []string{"mag"},
	}
}

func orNone(items []string) string {
	if len(items) == 0 {
		return "Inga"
	}
	return strings.Join(items, ", ")
}

// ForMorning is pushed a quarter before the open.
func ForMorning(d *models.DailyBriefing) repository.Notification {
	msg := fmt.Sprintf("Börsen öppnar om 15 min\nPortfölj: %.0f kr (%+.1f%%)\nÖppna positioner: %d\nDagens rapporter: %s\nPausade aktier: %s",
		d.TotalValue, d.TotalPct, d.OpenPositions, orNone(d.ReportsToday), orNone(d.Paused))
	return repository.Notification{
		Title:    "Morgonsummering",
		Message:  msg,
		Priority: PriorityDefault,
		Tags:     []string{"sun"},
	}
}

// ForEvening is pushed after the close.
func ForEvening(d *models.DailyBriefing) repository.Notification {
	msg := fmt.Sprintf("Börsen stängd\nPortfölj: %.0f kr (%+.1f%%)\nSignaler idag: %d\nAffärer idag: %d",
		d.TotalValue, d.TotalPct, d.Signals, d.Trades)
	return repository.Notification{
		Title:    "Kvallssummering",
		Message:  msg,
		Priority: PriorityLow,
		Tags:     []string{"crescent_moon"},
	}
}

// ForEarningsWarning announces that buying in ticker pauses ahead of a report.
func ForEarningsWarning(ticker, company string, at time.Time, held bool) repository.Notification {
	position := "Nuvarande position: INGEN"
	if held {
		position = "Nuvarande position: ÖPPEN"
	}
	if company == "" {
		company = ticker
	}
	msg := fmt.Sprintf("RAPPORT OM 48H - %s\nAgenten pausar trading i %s\nRapport: %s\n%s",
		ticker, company, at.Format("2006-01-02"), position)
	return repository.Notification{
		Title:    "Rapport varning " + ticker,
		Message:  msg,
		Priority: PriorityDefault,
		Tags:     []string{"warning"},
	}
}
