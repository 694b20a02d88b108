//go:build integration
// +build integration

// Package integration provides end-to-end tests for the CapIntel explanation
// service.
//
// These tests verify the COMPLETE explanation pipeline:
//
//	Frozen decision payload → Prompt → Text generation → Policy filter →
//	Suggestions → Response composition → Audit trail
//
// Run with: go test -tags=integration -v ./tests/integration/...
//
// UNDERSTANDING THE DOMAIN:
//
//  1. FROZEN DECISION: An already-made credit decision (decision, risk score,
//     thin-file flag, ordered contributor lists). The service never re-scores;
//     it only explains.
//
//  2. ROLE: The audience. Customers get plain language, no score, and
//     improvement suggestions. Support and compliance see the score.
//
//  3. POLICY FILTER: Customer-facing text is rejected outright when it leaks
//     internal modeling terminology. The request fails rather than being
//     rewritten.
//
//  4. AUDIT TRAIL: Every request that reached the text generation backend is
//     recorded, including policy rejections (without the rejected text).
//
// The text generation backend is faked in-process with httptest; everything
// else (repository, cache, event bus, HTTP layer) is the real wiring on
// SQLite, the in-memory LRU cache, and the channel event bus.
package integration

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/opensource-finance/capintel/internal/api"
	"github.com/opensource-finance/capintel/internal/bus"
	"github.com/opensource-finance/capintel/internal/cache"
	"github.com/opensource-finance/capintel/internal/domain"
	"github.com/opensource-finance/capintel/internal/explain"
	"github.com/opensource-finance/capintel/internal/llm"
	"github.com/opensource-finance/capintel/internal/repository"
)

// fakeBackend is a minimal chat-completions endpoint returning a canned text.
type fakeBackend struct {
	server *httptest.Server
	text   atomic.Value
	calls  atomic.Int64
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	b := &fakeBackend{}
	b.text.Store("Your application was declined due to high debt levels.")

	b.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		b.calls.Add(1)

		content, _ := json.Marshal(b.text.Load().(string))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":` + string(content) + `}}]}`))
	}))
	t.Cleanup(b.server.Close)
	return b
}

type testStack struct {
	backend *fakeBackend
	repo    domain.Repository
	server  *api.Server
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()

	backend := newFakeBackend(t)

	repo, err := repository.New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "capintel_it.db"),
	})
	if err != nil {
		t.Fatalf("failed to boot repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	eventBus := bus.NewChannelBus(64)
	t.Cleanup(func() { eventBus.Close() })

	lru := cache.NewLRUCache(128)

	client := llm.NewClient(domain.LLMConfig{
		APIKey:         "integration-test-key",
		BaseURL:        backend.server.URL,
		Model:          "mistralai/mistral-7b-instruct",
		Temperature:    0,
		TopP:           1,
		MaxTokens:      350,
		TimeoutSeconds: 5,
	})

	svc := explain.NewService(client, repo, eventBus, false)
	server := api.NewServer(domain.ServerConfig{Host: "127.0.0.1", Port: 8080}, svc, repo, lru, "integration")

	return &testStack{backend: backend, repo: repo, server: server}
}

func do(t *testing.T, stack *testStack, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rr := httptest.NewRecorder()
	stack.server.Router().ServeHTTP(rr, req)
	return rr
}

const rejectedDecision = `{
	"decision": "Rejected",
	"risk_score": 0.73,
	"thin_file_flag": true,
	"top_negative": ["revolving_utilization", "dti_ratio"],
	"top_positive": ["on_time_payment_streak"]
}`

func TestExplainPipeline(t *testing.T) {
	stack := newTestStack(t)

	t.Run("SupportEndToEnd", func(t *testing.T) {
		stack.backend.text.Store("Decision: Rejected. Risk score: 0.73. Thin file applicant.")

		rr := do(t, stack, http.MethodPost, "/explain/support", rejectedDecision)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
		}

		var resp domain.ExplanationResponse
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.RiskScore == nil || *resp.RiskScore != 0.73 {
			t.Errorf("expected risk_score 0.73, got %v", resp.RiskScore)
		}
		if len(resp.KeyDrivers) != 3 || resp.KeyDrivers[0] != "revolving_utilization" {
			t.Errorf("unexpected key_drivers: %v", resp.KeyDrivers)
		}
		if len(resp.ImprovementSuggestions) != 0 {
			t.Errorf("support must not receive suggestions: %v", resp.ImprovementSuggestions)
		}
	})

	t.Run("CustomerEndToEnd", func(t *testing.T) {
		stack.backend.text.Store("Your application was declined because of high card balances and debt levels.")

		rr := do(t, stack, http.MethodPost, "/explain/customer", rejectedDecision)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
		}

		if strings.Contains(rr.Body.String(), "risk_score") {
			t.Errorf("customer response must omit risk_score: %s", rr.Body.String())
		}

		var resp domain.ExplanationResponse
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		want := []string{
			"Try to keep credit utilization lower over time.",
			"Reduce outstanding debt where possible.",
		}
		if len(resp.ImprovementSuggestions) != len(want) {
			t.Fatalf("expected %v, got %v", want, resp.ImprovementSuggestions)
		}
		for i := range want {
			if resp.ImprovementSuggestions[i] != want[i] {
				t.Errorf("suggestion %d: expected %q, got %q", i, want[i], resp.ImprovementSuggestions[i])
			}
		}
	})

	t.Run("PolicyRejectionAudited", func(t *testing.T) {
		stack.backend.text.Store("Our XGBoost model and SHAP values flagged your application.")

		rr := do(t, stack, http.MethodPost, "/explain/customer", rejectedDecision)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
		}
		if strings.Contains(strings.ToLower(rr.Body.String()), "xgboost") {
			t.Errorf("rejection must not leak the generated text: %s", rr.Body.String())
		}

		// The rejection shows up in the audit trail, textless.
		rec := latestRecord(t, stack, domain.RoleCustomer)
		if rec.Status != domain.RecordStatusRejected {
			t.Errorf("expected rejected audit record, got %s", rec.Status)
		}
		if rec.Explanation != "" {
			t.Error("rejected record must not carry the generated text")
		}
	})

	t.Run("AuditTrailRetrievable", func(t *testing.T) {
		stack.backend.text.Store("Formal compliance note for the rejected application.")

		rr := do(t, stack, http.MethodPost, "/explain/compliance", rejectedDecision)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
		}

		rec := latestRecord(t, stack, domain.RoleCompliance)
		if rec.Status != domain.RecordStatusCompleted {
			t.Fatalf("expected completed record, got %s", rec.Status)
		}

		// Fetch the same record by id; the second read exercises the cache.
		for i := 0; i < 2; i++ {
			rr = do(t, stack, http.MethodGet, "/explanations/"+rec.ID, "")
			if rr.Code != http.StatusOK {
				t.Fatalf("expected 200 on read %d, got %d", i, rr.Code)
			}
			var got domain.ExplanationRecord
			if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
				t.Fatalf("decode record: %v", err)
			}
			if got.ID != rec.ID || got.Role != domain.RoleCompliance {
				t.Errorf("unexpected record on read %d: %+v", i, got)
			}
		}
	})

	t.Run("SchemaViolationNeverReachesBackend", func(t *testing.T) {
		before := stack.backend.calls.Load()

		body := strings.Replace(rejectedDecision, `"decision"`, `"ssn": "123-45-6789", "decision"`, 1)
		rr := do(t, stack, http.MethodPost, "/explain/support", body)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rr.Code)
		}

		if stack.backend.calls.Load() != before {
			t.Error("schema violation must be rejected before the backend call")
		}
	})

	t.Run("Health", func(t *testing.T) {
		rr := do(t, stack, http.MethodGet, "/health", "")
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
		var body map[string]string
		if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode health: %v", err)
		}
		if body["status"] != "healthy" {
			t.Errorf("expected healthy, got %q", body["status"])
		}
	})
}

// latestRecord fetches the newest audit record for a role via the API.
func latestRecord(t *testing.T, stack *testStack, role domain.Role) *domain.ExplanationRecord {
	t.Helper()

	// Audit writes are synchronous here, but created_at ordering has
	// second-level granularity on some drivers; give it a moment.
	time.Sleep(10 * time.Millisecond)

	rr := do(t, stack, http.MethodGet, "/explanations?role="+string(role)+"&limit=1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 listing records, got %d: %s", rr.Code, rr.Body.String())
	}

	var body struct {
		Explanations []*domain.ExplanationRecord `json:"explanations"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(body.Explanations) == 0 {
		t.Fatalf("no audit records for role %s", role)
	}
	return body.Explanations[0]
}
