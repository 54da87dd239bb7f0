package meeting

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"interviewhub/internal/models"
)

func testInterview() *models.Interview {
	return &models.Interview{
		ID:        9,
		BookingID: 4,
		Timezone:  "UTC",
		StartsAt:  time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
		EndsAt:    time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC),
	}
}

func TestTemplateLinker(t *testing.T) {
	l := NewTemplateLinker("https://meet.jit.si/interviewhub-%s")
	a, err := l.Link(context.Background(), testInterview())
	require.NoError(t, err)
	b, err := l.Link(context.Background(), testInterview())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(a, "https://meet.jit.si/interviewhub-9-"))
	assert.NotEqual(t, a, b)
}

func TestCalendarLinker(t *testing.T) {
	var got calendar.Event
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, "/calendars/team/events")
		assert.Equal(t, "1", r.URL.Query().Get("conferenceDataVersion"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"ev1","hangoutLink":"https://meet.google.com/abc-defg-hij"}`))
	}))
	defer srv.Close()

	svc, err := calendar.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"), option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	link, err := newCalendarLinker(svc, "team").Link(context.Background(), testInterview())
	require.NoError(t, err)
	assert.Equal(t, "https://meet.google.com/abc-defg-hij", link)
	assert.Equal(t, "2025-06-01T10:00:00Z", got.Start.DateTime)
	assert.Equal(t, "hangoutsMeet", got.ConferenceData.CreateRequest.ConferenceSolutionKey.Type)
}

func TestCalendarLinker_Error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"code":403,"message":"forbidden"}}`, http.StatusForbidden)
	}))
	defer srv.Close()

	svc, err := calendar.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"), option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	_, err = newCalendarLinker(svc, "").Link(context.Background(), testInterview())
	assert.Error(t, err)
}
