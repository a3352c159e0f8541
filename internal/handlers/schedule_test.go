package handlers

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/agendaly/agendaly/internal/identity"
)

func newTestScheduleHandler() *ScheduleHandler {
	return NewScheduleHandler(nil, slog.New(slog.NewTextHandler(&strings.Builder{}, nil)))
}

func asOwner(req *http.Request) *http.Request {
	actor := identity.Actor{ID: "u1", BusinessID: "b1", Role: identity.RoleOwner}
	return req.WithContext(identity.WithActor(req.Context(), actor))
}

func TestConfigSurfaceRequiresActor(t *testing.T) {
	h := newTestScheduleHandler()
	endpoints := map[string]http.HandlerFunc{
		"/business/profile":       h.Profile,
		"/business/services":      h.Services,
		"/business/professionals": h.Professionals,
		"/business/working-hours": h.WorkingHours,
		"/business/time-off":      h.TimeOff,
	}
	for target, fn := range endpoints {
		req := httptest.NewRequest(http.MethodPost, target, strings.NewReader("{}"))
		rr := httptest.NewRecorder()
		fn(rr, req)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", target, rr.Code)
		}
	}
}

func TestConfigSurfaceForbidsStaff(t *testing.T) {
	h := newTestScheduleHandler()
	actor := identity.Actor{ID: "u1", BusinessID: "b1", Role: identity.RoleStaff}
	req := httptest.NewRequest(http.MethodPost, "/business/services", strings.NewReader("{}"))
	req = req.WithContext(identity.WithActor(req.Context(), actor))
	rr := httptest.NewRecorder()
	h.Services(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}

func TestProfileUpdateRejectsBadTimezone(t *testing.T) {
	h := newTestScheduleHandler()
	body := `{"name":"Studio Bela","timezone":"Mars/Olympus"}`
	req := asOwner(httptest.NewRequest(http.MethodPut, "/business/profile", strings.NewReader(body)))
	rr := httptest.NewRecorder()
	h.Profile(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestCreateServiceValidation(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"missing name", `{"duration_minutes":30,"price":"50.00"}`},
		{"zero duration", `{"name":"Corte","duration_minutes":0,"price":"50.00"}`},
		{"negative duration", `{"name":"Corte","duration_minutes":-15,"price":"50.00"}`},
		{"excessive duration", `{"name":"Corte","duration_minutes":600,"price":"50.00"}`},
		{"bad price", `{"name":"Corte","duration_minutes":30,"price":"fifty"}`},
		{"negative price", `{"name":"Corte","duration_minutes":30,"price":"-5"}`},
	}
	h := newTestScheduleHandler()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := asOwner(httptest.NewRequest(http.MethodPost, "/business/services", strings.NewReader(tc.body)))
			rr := httptest.NewRecorder()
			h.Services(rr, req)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
			}
		})
	}
}

func TestCreateProfessionalRejectsUnknownRole(t *testing.T) {
	h := newTestScheduleHandler()
	body := `{"name":"Joana","role":"janitor"}`
	req := asOwner(httptest.NewRequest(http.MethodPost, "/business/professionals", strings.NewReader(body)))
	rr := httptest.NewRecorder()
	h.Professionals(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestWorkingHoursUpsertValidation(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"missing professional", `{"weekday":1,"is_working":true,"start_minute":540,"end_minute":1020}`},
		{"bad weekday", `{"professional_id":"p1","weekday":7,"is_working":true,"start_minute":540,"end_minute":1020}`},
		{"start after end", `{"professional_id":"p1","weekday":1,"is_working":true,"start_minute":1020,"end_minute":540}`},
		{"start equals end", `{"professional_id":"p1","weekday":1,"is_working":true,"start_minute":540,"end_minute":540}`},
		{"end past midnight", `{"professional_id":"p1","weekday":1,"is_working":true,"start_minute":540,"end_minute":1500}`},
	}
	h := newTestScheduleHandler()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := asOwner(httptest.NewRequest(http.MethodPost, "/business/working-hours", strings.NewReader(tc.body)))
			rr := httptest.NewRecorder()
			h.WorkingHours(rr, req)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
			}
		})
	}
}

func TestTimeOffCreateValidation(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"missing professional", `{"start_time":"2026-03-02T12:00:00Z","end_time":"2026-03-02T14:00:00Z"}`},
		{"bad start", `{"professional_id":"p1","start_time":"noon","end_time":"2026-03-02T14:00:00Z"}`},
		{"bad end", `{"professional_id":"p1","start_time":"2026-03-02T12:00:00Z","end_time":"later"}`},
		{"end before start", `{"professional_id":"p1","start_time":"2026-03-02T14:00:00Z","end_time":"2026-03-02T12:00:00Z"}`},
	}
	h := newTestScheduleHandler()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := asOwner(httptest.NewRequest(http.MethodPost, "/business/time-off", strings.NewReader(tc.body)))
			rr := httptest.NewRecorder()
			h.TimeOff(rr, req)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
			}
		})
	}
}

func TestNormalizePrice(t *testing.T) {
	got, err := normalizePrice("49.9")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "49.90" {
		t.Fatalf("expected 49.90, got %s", got)
	}
	if _, err := normalizePrice("-1"); err == nil {
		t.Fatal("expected error for negative price")
	}
	if _, err := normalizePrice("abc"); err == nil {
		t.Fatal("expected error for non-numeric price")
	}
}
