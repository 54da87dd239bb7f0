// Package meeting produces video meeting links for scheduled interviews.
package meeting

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"interviewhub/internal/models"
)

// Linker returns a join link for an interview.
type Linker interface {
	Link(ctx context.Context, iv *models.Interview) (string, error)
}

// TemplateLinker formats a random room id into a URL template with one %s verb.
type TemplateLinker struct {
	template string
}

func NewTemplateLinker(template string) *TemplateLinker {
	return &TemplateLinker{template: template}
}

func (l *TemplateLinker) Link(_ context.Context, iv *models.Interview) (string, error) {
	room := fmt.Sprintf("%d-%s", iv.ID, strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
	return fmt.Sprintf(l.template, room), nil
}

// CalendarLinker creates a Google Calendar event with a Meet conference and
// returns its hangout link.
type CalendarLinker struct {
	svc        *calendar.Service
	calendarID string
}

// NewCalendarLinker authenticates with a service account key file.
func NewCalendarLinker(ctx context.Context, credentialsFile, calendarID string) (*CalendarLinker, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read google credentials: %w", err)
	}
	cfg, err := google.JWTConfigFromJSON(data, calendar.CalendarEventsScope)
	if err != nil {
		return nil, fmt.Errorf("parse google credentials: %w", err)
	}
	svc, err := calendar.NewService(ctx, option.WithHTTPClient(cfg.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("calendar service: %w", err)
	}
	return newCalendarLinker(svc, calendarID), nil
}

func newCalendarLinker(svc *calendar.Service, calendarID string) *CalendarLinker {
	if calendarID == "" {
		calendarID = "primary"
	}
	return &CalendarLinker{svc: svc, calendarID: calendarID}
}

func (l *CalendarLinker) Link(ctx context.Context, iv *models.Interview) (string, error) {
	ev := &calendar.Event{
		Summary:     fmt.Sprintf("Interview #%d", iv.ID),
		Description: fmt.Sprintf("Booking %d", iv.BookingID),
		Start:       &calendar.EventDateTime{DateTime: iv.StartsAt.Format(time.RFC3339), TimeZone: iv.Timezone},
		End:         &calendar.EventDateTime{DateTime: iv.EndsAt.Format(time.RFC3339), TimeZone: iv.Timezone},
		ConferenceData: &calendar.ConferenceData{
			CreateRequest: &calendar.CreateConferenceRequest{
				RequestId:             uuid.NewString(),
				ConferenceSolutionKey: &calendar.ConferenceSolutionKey{Type: "hangoutsMeet"},
			},
		},
	}

	created, err := l.svc.Events.Insert(l.calendarID, ev).ConferenceDataVersion(1).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("insert calendar event: %w", err)
	}
	if created.HangoutLink != "" {
		return created.HangoutLink, nil
	}
	if created.HtmlLink != "" {
		return created.HtmlLink, nil
	}
	return "", fmt.Errorf("calendar event %s has no link", created.Id)
}
