package worklist

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/carelist/carelist/internal/platform/fhir"
)

const restTimeout = 30 * time.Second

// maxSearchPages bounds the next-link crawl of an unwindowed search.
const maxSearchPages = 500

// RestEngine reads from a remote FHIR server over its REST search API.
// Requests carry no retries, so a failing upstream surfaces on the first
// call instead of hiding behind backoff.
type RestEngine struct {
	client *resty.Client
}

// NewRestEngine builds an engine against baseURL, e.g.
// "https://fhir.example.org/r4". An empty token leaves requests anonymous.
func NewRestEngine(baseURL, token string) *RestEngine {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(restTimeout).
		SetHeader("Accept", "application/fhir+json")
	if token != "" {
		client.SetAuthToken(token)
	}
	return &RestEngine{client: client}
}

func (e *RestEngine) SearchPatients(ctx context.Context, q fhir.Query) ([]fhir.Patient, int, error) {
	bundle := &fhir.Bundle{}
	resp, err := e.client.R().
		SetContext(ctx).
		SetQueryParamsFromValues(q.Values()).
		SetResult(bundle).
		Get("/Patient")
	if err != nil {
		return nil, 0, err
	}
	if resp.IsError() {
		return nil, 0, restError("search Patient", resp)
	}
	patients, err := fhir.UnmarshalEntries[fhir.Patient](bundle)
	if err != nil {
		return nil, 0, err
	}
	total := len(patients)
	if bundle.Total != nil {
		total = *bundle.Total
	}
	return patients, total, nil
}

func (e *RestEngine) CountPatients(ctx context.Context, q fhir.Query) (int, error) {
	// Filters only; _summary=count asks the server to skip the entries.
	values := (fhir.Query{Filters: q.Filters}).Values()
	values.Set("_summary", "count")

	bundle := &fhir.Bundle{}
	resp, err := e.client.R().
		SetContext(ctx).
		SetQueryParamsFromValues(values).
		SetResult(bundle).
		Get("/Patient")
	if err != nil {
		return 0, err
	}
	if resp.IsError() {
		return 0, restError("count Patient", resp)
	}
	if bundle.Total == nil {
		return 0, fmt.Errorf("worklist: count Patient: bundle has no total")
	}
	return *bundle.Total, nil
}

func (e *RestEngine) GetPatient(ctx context.Context, id string) (*fhir.Patient, error) {
	patient := &fhir.Patient{}
	resp, err := e.client.R().
		SetContext(ctx).
		SetResult(patient).
		Get("/Patient/" + url.PathEscape(id))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() == http.StatusNotFound || resp.StatusCode() == http.StatusGone {
		return nil, ErrNotFound
	}
	if resp.IsError() {
		return nil, restError("read Patient/"+id, resp)
	}
	return patient, nil
}

// SearchRiskAssessments crawls the server's next links until the result set
// is exhausted, so callers see every match no matter how the server pages.
func (e *RestEngine) SearchRiskAssessments(ctx context.Context, q fhir.Query) ([]fhir.RiskAssessment, error) {
	var out []fhir.RiskAssessment
	next := "/RiskAssessment"
	params := q.Values()
	for page := 0; ; page++ {
		if page >= maxSearchPages {
			return nil, fmt.Errorf("worklist: search RiskAssessment exceeded %d pages", maxSearchPages)
		}
		bundle := &fhir.Bundle{}
		req := e.client.R().SetContext(ctx).SetResult(bundle)
		if params != nil {
			req.SetQueryParamsFromValues(params)
		}
		resp, err := req.Get(next)
		if err != nil {
			return nil, err
		}
		if resp.IsError() {
			return nil, restError("search RiskAssessment", resp)
		}
		risks, err := fhir.UnmarshalEntries[fhir.RiskAssessment](bundle)
		if err != nil {
			return nil, err
		}
		out = append(out, risks...)

		nextURL := bundle.NextURL()
		if nextURL == "" {
			return out, nil
		}
		// The next link is absolute and already carries the paging params.
		next = nextURL
		params = nil
	}
}

func restError(op string, resp *resty.Response) error {
	var oo fhir.OperationOutcome
	if err := json.Unmarshal(resp.Body(), &oo); err == nil && len(oo.Issue) > 0 && oo.Issue[0].Diagnostics != "" {
		return fmt.Errorf("worklist: %s: %s: %s", op, resp.Status(), oo.Issue[0].Diagnostics)
	}
	return fmt.Errorf("worklist: %s: %s", op, resp.Status())
}
