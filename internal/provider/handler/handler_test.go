package handler

import (
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"realname/internal/provider"
	"realname/pkg/testutil"
)

func newRouter(t *testing.T) chi.Router {
	t.Helper()
	dir := provider.NewDirectory(provider.NewInMemoryStore())
	r := chi.NewRouter()
	New(dir, testutil.NewLogger()).Register(r)
	return r
}

func registration(code string) map[string]any {
	return map[string]any{
		"name":              "Provider " + code,
		"code":              code,
		"type":              "aggregator",
		"supported_methods": []string{"personal_two", "carrier_three"},
		"endpoint":          "https://verify.example.com/" + code,
		"secret_config":     map[string]string{"secret": "sekrit"},
		"priority":          3,
	}
}

type providerBody struct {
	ID       string   `json:"id"`
	Code     string   `json:"code"`
	Methods  []string `json:"supported_methods"`
	Active   bool     `json:"active"`
	Valid    bool     `json:"valid"`
	Priority int      `json:"priority"`
}

func TestRegisterEndpoint(t *testing.T) {
	t.Run("registers and returns the provider without secrets", func(t *testing.T) {
		r := newRouter(t)
		rr := testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodPost, "/providers", registration("gov-a")))

		testutil.AssertStatus(t, rr, http.StatusCreated)
		got := testutil.UnmarshalResponse[providerBody](t, rr)
		assert.Equal(t, "gov-a", got.Code)
		assert.True(t, got.Active)
		assert.NotContains(t, string(testutil.ReadBody(t, rr)), "sekrit")
	})

	t.Run("duplicate code conflicts", func(t *testing.T) {
		r := newRouter(t)
		testutil.AssertStatus(t,
			testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodPost, "/providers", registration("gov-a"))),
			http.StatusCreated)

		rr := testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodPost, "/providers", registration("gov-a")))
		testutil.AssertStatusAndError(t, rr, http.StatusConflict, "conflict")
	})

	t.Run("unknown method in the allow-list is rejected", func(t *testing.T) {
		r := newRouter(t)
		body := registration("gov-a")
		body["supported_methods"] = []string{"psychic"}
		rr := testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodPost, "/providers", body))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "bad_request")
	})
}

func TestLookupEndpoints(t *testing.T) {
	r := newRouter(t)
	testutil.AssertStatus(t,
		testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodPost, "/providers", registration("gov-a"))),
		http.StatusCreated)

	t.Run("find by code", func(t *testing.T) {
		rr := testutil.DoRequest(r, testutil.NewRequest(t, http.MethodGet, "/providers/gov-a"))
		testutil.AssertStatus(t, rr, http.StatusOK)
		got := testutil.UnmarshalResponse[providerBody](t, rr)
		assert.Equal(t, "gov-a", got.Code)
		assert.ElementsMatch(t, []string{"personal_two", "carrier_three"}, got.Methods)
	})

	t.Run("list", func(t *testing.T) {
		rr := testutil.DoRequest(r, testutil.NewRequest(t, http.MethodGet, "/providers"))
		testutil.AssertStatus(t, rr, http.StatusOK)
		got := testutil.UnmarshalResponse[struct {
			Providers []providerBody `json:"providers"`
		}](t, rr)
		assert.Len(t, got.Providers, 1)
	})

	t.Run("unknown code is 404", func(t *testing.T) {
		rr := testutil.DoRequest(r, testutil.NewRequest(t, http.MethodGet, "/providers/nope"))
		testutil.AssertStatus(t, rr, http.StatusNotFound)
	})
}

func TestUpdateEndpoint(t *testing.T) {
	r := newRouter(t)
	testutil.AssertStatus(t,
		testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodPost, "/providers", registration("gov-a"))),
		http.StatusCreated)

	t.Run("flags and priority are updatable", func(t *testing.T) {
		active := false
		priority := 9
		rr := testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodPut, "/providers/gov-a", map[string]any{
			"active":   &active,
			"priority": &priority,
		}))
		testutil.AssertStatus(t, rr, http.StatusOK)

		got := testutil.UnmarshalResponse[providerBody](t, rr)
		assert.False(t, got.Active)
		assert.Equal(t, 9, got.Priority)
	})

	t.Run("negative priority is rejected", func(t *testing.T) {
		priority := -1
		rr := testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodPut, "/providers/gov-a", map[string]any{
			"priority": &priority,
		}))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "bad_request")
	})
}
