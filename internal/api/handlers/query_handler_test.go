package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/math-agent/backend/internal/storage/models"
)

type fakeFeedbackReader struct {
	entries []models.FeedbackEntry
	err     error
}

func (f *fakeFeedbackReader) Load() ([]models.FeedbackEntry, error) {
	return f.entries, f.err
}

func newFeedbackApp(reader FeedbackReader) *fiber.App {
	app := fiber.New()
	h := &QueryHandler{feedbackLog: reader}
	app.Get("/api/v1/feedback", h.GetFeedbackHistory)
	return app
}

func TestGetFeedbackHistory(t *testing.T) {
	entries := []models.FeedbackEntry{
		{Query: "q1", Rating: 5},
		{Query: "q2", Rating: 2},
		{Query: "q3", Rating: 4},
	}
	app := newFeedbackApp(&fakeFeedbackReader{entries: entries})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/feedback", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		Feedback []models.FeedbackEntry `json:"feedback"`
		Count    int                    `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if body.Count != 3 || len(body.Feedback) != 3 {
		t.Fatalf("count = %d, entries = %d, want 3", body.Count, len(body.Feedback))
	}
	if body.Feedback[0].Query != "q1" || body.Feedback[2].Query != "q3" {
		t.Errorf("entries out of append order: %+v", body.Feedback)
	}
}

func TestGetFeedbackHistoryLimitKeepsMostRecent(t *testing.T) {
	entries := []models.FeedbackEntry{
		{Query: "q1", Rating: 5},
		{Query: "q2", Rating: 2},
		{Query: "q3", Rating: 4},
	}
	app := newFeedbackApp(&fakeFeedbackReader{entries: entries})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/feedback?limit=2", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	var body struct {
		Feedback []models.FeedbackEntry `json:"feedback"`
		Count    int                    `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if body.Count != 2 {
		t.Fatalf("count = %d, want 2", body.Count)
	}
	if body.Feedback[0].Query != "q2" || body.Feedback[1].Query != "q3" {
		t.Errorf("limit must keep the most recent entries, got %+v", body.Feedback)
	}
}

func TestGetFeedbackHistoryEmptyLog(t *testing.T) {
	app := newFeedbackApp(&fakeFeedbackReader{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/feedback", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		Feedback []models.FeedbackEntry `json:"feedback"`
		Count    int                    `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if body.Count != 0 || body.Feedback == nil {
		t.Errorf("empty log must return an empty array, got %+v", body)
	}
}

func TestGetFeedbackHistoryErrors(t *testing.T) {
	t.Run("load failure", func(t *testing.T) {
		app := newFeedbackApp(&fakeFeedbackReader{err: errors.New("disk gone")})

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/feedback", nil))
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode != http.StatusInternalServerError {
			t.Errorf("status = %d, want 500", resp.StatusCode)
		}
	})

	t.Run("log not configured", func(t *testing.T) {
		app := newFeedbackApp(nil)

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/feedback", nil))
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Errorf("status = %d, want 503", resp.StatusCode)
		}
	})
}
