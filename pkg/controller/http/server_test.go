package http_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/m-mizutani/gt"
	httpctrl "github.com/vistoria-lab/vistoria/pkg/controller/http"
	"github.com/vistoria-lab/vistoria/pkg/repository/memory"
	"github.com/vistoria-lab/vistoria/pkg/usecase"
)

type caseBody struct {
	ID             string `json:"id"`
	DisplayNumber  string `json:"display_number"`
	RequestID      string `json:"request_id"`
	Stage          string `json:"stage"`
	AppointmentRef string `json:"appointment_ref"`
	InspectionRef  string `json:"inspection_ref"`
}

type testClient struct {
	t   *testing.T
	srv *httptest.Server
}

func newTestClient(t *testing.T) *testClient {
	t.Helper()
	uc := usecase.New(memory.New())
	srv := httptest.NewServer(httpctrl.New(uc))
	t.Cleanup(srv.Close)
	return &testClient{t: t, srv: srv}
}

func (c *testClient) do(method, path string, body any, headers map[string]string) *http.Response {
	c.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		gt.NoError(c.t, json.NewEncoder(&buf).Encode(body)).Required()
	}
	req, err := http.NewRequest(method, c.srv.URL+path, &buf)
	gt.NoError(c.t, err).Required()
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	gt.NoError(c.t, err).Required()
	c.t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeCase(t *testing.T, resp *http.Response) caseBody {
	t.Helper()
	var out caseBody
	gt.NoError(t, json.NewDecoder(resp.Body).Decode(&out)).Required()
	return out
}

func (c *testClient) createScheduled(requestID string, assignee string) caseBody {
	c.t.Helper()

	resp := c.do(http.MethodPost, "/api/inspections",
		map[string]string{"assignee_id": assignee}, nil)
	gt.Value(c.t, resp.StatusCode).Equal(http.StatusCreated)
	var insp map[string]string
	gt.NoError(c.t, json.NewDecoder(resp.Body).Decode(&insp)).Required()

	resp = c.do(http.MethodPost, "/api/requests/"+requestID+"/accept", nil, nil)
	gt.Value(c.t, resp.StatusCode).Equal(http.StatusOK)

	resp = c.do(http.MethodPost, "/api/requests/"+requestID+"/schedule-inspection",
		map[string]string{"inspection_id": insp["id"]}, nil)
	gt.Value(c.t, resp.StatusCode).Equal(http.StatusOK)
	return decodeCase(c.t, resp)
}

func (c *testClient) scheduleAppointment(requestID string, assignee string) caseBody {
	c.t.Helper()

	resp := c.do(http.MethodPost, "/api/appointments",
		map[string]string{"assignee_id": assignee}, nil)
	gt.Value(c.t, resp.StatusCode).Equal(http.StatusCreated)
	var appt map[string]string
	gt.NoError(c.t, json.NewDecoder(resp.Body).Decode(&appt)).Required()

	resp = c.do(http.MethodPost, "/api/requests/"+requestID+"/schedule-appointment",
		map[string]string{"appointment_id": appt["id"]}, nil)
	gt.Value(c.t, resp.StatusCode).Equal(http.StatusOK)
	return decodeCase(c.t, resp)
}

func TestHealthEndpoint(t *testing.T) {
	c := newTestClient(t)
	resp := c.do(http.MethodGet, "/health", nil, nil)
	gt.Value(t, resp.StatusCode).Equal(http.StatusOK)
}

func TestCreateCaseEndpoint(t *testing.T) {
	c := newTestClient(t)

	resp := c.do(http.MethodPost, "/api/requests/req-1/case", nil, nil)
	gt.Value(t, resp.StatusCode).Equal(http.StatusCreated)
	first := decodeCase(t, resp)
	gt.Value(t, first.Stage).Equal("request_submitted")
	gt.Value(t, first.RequestID).Equal("req-1")
	gt.Bool(t, first.DisplayNumber != "").True()

	// a double post falls back to the existing case
	resp = c.do(http.MethodPost, "/api/requests/req-1/case", nil, nil)
	gt.Value(t, resp.StatusCode).Equal(http.StatusOK)
	second := decodeCase(t, resp)
	gt.Value(t, second.ID).Equal(first.ID)
}

func TestStageEndpoints(t *testing.T) {
	c := newTestClient(t)

	c.createScheduled("req-1", "eng-a")
	withAppt := c.scheduleAppointment("req-1", "eng-a")
	gt.Value(t, withAppt.Stage).Equal("appointment_scheduled")
	gt.Bool(t, withAppt.AppointmentRef != "").True()

	for _, step := range []struct {
		path string
		want string
	}{
		{"start-assessment", "assessment_in_progress"},
		{"complete-assessment", "assessment_completed"},
		{"finalize-estimate", "estimate_finalized"},
		{"start-frc", "frc_in_progress"},
		{"complete-frc", "frc_completed"},
		{"archive", "archived"},
	} {
		resp := c.do(http.MethodPost, "/api/requests/req-1/"+step.path, nil, nil)
		gt.Value(t, resp.StatusCode).Equal(http.StatusOK)
		gt.Value(t, decodeCase(t, resp).Stage).Equal(step.want)
	}
}

func TestStageEndpointErrors(t *testing.T) {
	c := newTestClient(t)

	t.Run("skipping ahead is a conflict", func(t *testing.T) {
		resp := c.do(http.MethodPost, "/api/requests/req-skip/case", nil, nil)
		gt.Value(t, resp.StatusCode).Equal(http.StatusCreated)

		resp = c.do(http.MethodPost, "/api/requests/req-skip/start-assessment", nil, nil)
		gt.Value(t, resp.StatusCode).Equal(http.StatusConflict)
	})

	t.Run("starting the assessment without an appointment is a conflict", func(t *testing.T) {
		c.createScheduled("req-nolink", "eng-a")
		resp := c.do(http.MethodPost, "/api/requests/req-nolink/start-assessment", nil, nil)
		gt.Value(t, resp.StatusCode).Equal(http.StatusConflict)
	})

	t.Run("schedule-inspection requires a body", func(t *testing.T) {
		resp := c.do(http.MethodPost, "/api/requests/req-body/schedule-inspection",
			map[string]string{}, nil)
		gt.Value(t, resp.StatusCode).Equal(http.StatusBadRequest)
	})
}

func TestCancelEndpoint(t *testing.T) {
	c := newTestClient(t)

	c.createScheduled("req-1", "eng-a")
	c.scheduleAppointment("req-1", "eng-a")

	resp := c.do(http.MethodPost, "/api/requests/req-1/cancel",
		map[string]any{"reason": "engineer unavailable", "terminal": false}, nil)
	gt.Value(t, resp.StatusCode).Equal(http.StatusOK)
	fallback := decodeCase(t, resp)
	gt.Value(t, fallback.Stage).Equal("inspection_scheduled")
	gt.Value(t, fallback.AppointmentRef).Equal("")

	resp = c.do(http.MethodPost, "/api/requests/req-1/cancel",
		map[string]any{"reason": "customer withdrew", "terminal": true}, nil)
	gt.Value(t, resp.StatusCode).Equal(http.StatusOK)
	gt.Value(t, decodeCase(t, resp).Stage).Equal("cancelled")
}

func TestListEndpoints(t *testing.T) {
	c := newTestClient(t)

	c.createScheduled("req-1", "eng-a")
	c.createScheduled("req-2", "eng-b")

	adminHeaders := map[string]string{
		"X-Vistoria-Actor": "boss",
		"X-Vistoria-Role":  "admin",
	}
	engHeaders := map[string]string{
		"X-Vistoria-Actor": "eng-a",
		"X-Vistoria-Role":  "engineer",
	}

	t.Run("actor headers are required", func(t *testing.T) {
		resp := c.do(http.MethodGet, "/api/cases", nil, nil)
		gt.Value(t, resp.StatusCode).Equal(http.StatusBadRequest)
	})

	t.Run("invalid role is rejected", func(t *testing.T) {
		resp := c.do(http.MethodGet, "/api/cases", nil, map[string]string{
			"X-Vistoria-Actor": "boss",
			"X-Vistoria-Role":  "owner",
		})
		gt.Value(t, resp.StatusCode).Equal(http.StatusBadRequest)
	})

	t.Run("list and count agree per actor", func(t *testing.T) {
		for name, headers := range map[string]map[string]string{
			"admin":    adminHeaders,
			"engineer": engHeaders,
		} {
			t.Run(name, func(t *testing.T) {
				resp := c.do(http.MethodGet, "/api/cases", nil, headers)
				gt.Value(t, resp.StatusCode).Equal(http.StatusOK)
				var listed struct {
					Cases []caseBody `json:"cases"`
				}
				gt.NoError(t, json.NewDecoder(resp.Body).Decode(&listed)).Required()

				resp = c.do(http.MethodGet, "/api/cases/count", nil, headers)
				gt.Value(t, resp.StatusCode).Equal(http.StatusOK)
				var counted struct {
					Count int `json:"count"`
				}
				gt.NoError(t, json.NewDecoder(resp.Body).Decode(&counted)).Required()

				gt.Value(t, counted.Count).Equal(len(listed.Cases))
			})
		}
	})

	t.Run("engineer sees only assigned cases", func(t *testing.T) {
		resp := c.do(http.MethodGet, "/api/cases", nil, engHeaders)
		var listed struct {
			Cases []caseBody `json:"cases"`
		}
		gt.NoError(t, json.NewDecoder(resp.Body).Decode(&listed)).Required()
		gt.Array(t, listed.Cases).Length(1)
		gt.Value(t, listed.Cases[0].RequestID).Equal("req-1")
	})

	t.Run("stage filter applies", func(t *testing.T) {
		resp := c.do(http.MethodGet, "/api/cases?stage=archived", nil, adminHeaders)
		gt.Value(t, resp.StatusCode).Equal(http.StatusOK)
		var listed struct {
			Cases []caseBody `json:"cases"`
		}
		gt.NoError(t, json.NewDecoder(resp.Body).Decode(&listed)).Required()
		gt.Array(t, listed.Cases).Length(0)
	})

	t.Run("unknown stage filter is rejected", func(t *testing.T) {
		resp := c.do(http.MethodGet, "/api/cases?stage=shipping", nil, adminHeaders)
		gt.Value(t, resp.StatusCode).Equal(http.StatusBadRequest)
	})
}

func TestGetCaseAndAuditEndpoints(t *testing.T) {
	c := newTestClient(t)

	resp := c.do(http.MethodPost, "/api/requests/req-1/case", nil, map[string]string{
		"X-Vistoria-Actor": "intake",
		"X-Vistoria-Role":  "admin",
	})
	gt.Value(t, resp.StatusCode).Equal(http.StatusCreated)
	created := decodeCase(t, resp)

	t.Run("get by ID", func(t *testing.T) {
		resp := c.do(http.MethodGet, "/api/cases/"+created.ID, nil, nil)
		gt.Value(t, resp.StatusCode).Equal(http.StatusOK)
		gt.Value(t, decodeCase(t, resp).ID).Equal(created.ID)
	})

	t.Run("get by request", func(t *testing.T) {
		resp := c.do(http.MethodGet, "/api/requests/req-1/case", nil, nil)
		gt.Value(t, resp.StatusCode).Equal(http.StatusOK)
		gt.Value(t, decodeCase(t, resp).ID).Equal(created.ID)
	})

	t.Run("missing case is 404", func(t *testing.T) {
		resp := c.do(http.MethodGet, "/api/cases/no-such-case", nil, nil)
		gt.Value(t, resp.StatusCode).Equal(http.StatusNotFound)

		resp = c.do(http.MethodGet, "/api/requests/req-none/case", nil, nil)
		gt.Value(t, resp.StatusCode).Equal(http.StatusNotFound)
	})

	t.Run("audit trail records the actor", func(t *testing.T) {
		resp := c.do(http.MethodGet, fmt.Sprintf("/api/cases/%s/audit", created.ID), nil, nil)
		gt.Value(t, resp.StatusCode).Equal(http.StatusOK)

		var trail struct {
			Entries []struct {
				Action string `json:"action"`
				Actor  string `json:"actor"`
			} `json:"entries"`
		}
		gt.NoError(t, json.NewDecoder(resp.Body).Decode(&trail)).Required()
		gt.Array(t, trail.Entries).Length(1)
		gt.Value(t, trail.Entries[0].Action).Equal("created")
		gt.Value(t, trail.Entries[0].Actor).Equal("intake")
	})
}
