package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func TestMetricsExposed(t *testing.T) {
	IncGeneration("tweet")
	IncGenerationError("tweet")
	IncQuotaDenial("generation")
	IncFeedback("rating")
	IncCommandRun("generate")

	srv := httptest.NewServer(promhttp.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	body := string(b)

	for _, name := range []string{
		"plume_generation_runs_total",
		"plume_generation_errors_total",
		"plume_quota_denials_total",
		"plume_feedback_events_total",
		"plume_command_runs_total",
	} {
		if !strings.Contains(body, name) {
			t.Errorf("metric %s not exposed", name)
		}
	}
}
