package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realname/internal/method"
)

func invokeAgainst(t *testing.T, handler http.HandlerFunc, opts ...InvokerOption) *Result {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p := newTestProvider(t, "gov-a", 1, method.PersonalTwo)
	p.Endpoint = srv.URL
	p.SecretConfig["secret"] = "sekrit"

	inv := NewInvoker(NewSignerRegistry(), opts...)
	return inv.Invoke(context.Background(), p, method.PersonalTwo, map[string]string{
		"name":      "张三",
		"id_number": "110101199003077774",
	})
}

func TestInvokerRequest(t *testing.T) {
	t.Run("posts signed form parameters", func(t *testing.T) {
		var form map[string]string
		result := invokeAgainst(t, func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseForm())
			form = map[string]string{}
			for k := range r.PostForm {
				form[k] = r.PostForm.Get(k)
			}
			w.Write([]byte(`{"success":true}`))
		})
		require.True(t, result.Success)

		assert.Equal(t, "张三", form["name"])
		assert.Equal(t, "110101199003077774", form["id_number"])
		assert.Equal(t, "personal_two", form["method"])
		assert.NotEmpty(t, form["timestamp"])
		assert.Equal(t, result.RequestID, form["request_id"])

		// The signature must cover every parameter except itself.
		sign := form["sign"]
		delete(form, "sign")
		assert.Equal(t, SortedParamsSigner{}.Sign(form, "sekrit"), sign)
	})
}

func TestInvokerResponseShapes(t *testing.T) {
	t.Run("success flag with confidence", func(t *testing.T) {
		result := invokeAgainst(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`{"success":true,"confidence":0.98}`))
		})
		assert.True(t, result.Success)
		require.NotNil(t, result.Confidence)
		assert.InDelta(t, 0.98, *result.Confidence, 1e-9)
		assert.Empty(t, result.ErrorCode)
	})

	t.Run("declined verification keeps the provider's own code", func(t *testing.T) {
		result := invokeAgainst(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`{"success":false,"error_code":"NO_MATCH","error_message":"name and id do not match"}`))
		})
		assert.False(t, result.Success)
		assert.Equal(t, "NO_MATCH", result.ErrorCode)
		assert.Equal(t, "name and id do not match", result.ErrorMessage)
	})

	t.Run("numeric code zero means success", func(t *testing.T) {
		result := invokeAgainst(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`{"code":0,"data":{"confidence":0.5}}`))
		})
		assert.True(t, result.Success)
		require.NotNil(t, result.Confidence)
		assert.InDelta(t, 0.5, *result.Confidence, 1e-9)
	})

	t.Run("nonzero numeric code is a failure", func(t *testing.T) {
		result := invokeAgainst(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`{"code":1001,"message":"identity mismatch"}`))
		})
		assert.False(t, result.Success)
		assert.Equal(t, "1001", result.ErrorCode)
		assert.Equal(t, "identity mismatch", result.ErrorMessage)
	})

	t.Run("status ok means success", func(t *testing.T) {
		result := invokeAgainst(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`{"status":"ok"}`))
		})
		assert.True(t, result.Success)
		assert.Nil(t, result.Confidence)
	})

	t.Run("confidence is clamped to the unit interval", func(t *testing.T) {
		result := invokeAgainst(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`{"success":true,"confidence":1.7}`))
		})
		require.NotNil(t, result.Confidence)
		assert.InDelta(t, 1.0, *result.Confidence, 1e-9)
	})

	t.Run("raw response is preserved for the audit trail", func(t *testing.T) {
		result := invokeAgainst(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`{"success":true,"vendor_trace":"abc123"}`))
		})
		assert.Equal(t, "abc123", result.ResponseData["vendor_trace"])
	})
}

func TestInvokerFailures(t *testing.T) {
	t.Run("unrecognized shape is a provider failure", func(t *testing.T) {
		result := invokeAgainst(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`{"weird":true}`))
		})
		assert.False(t, result.Success)
		assert.Equal(t, ErrCodeProvider, result.ErrorCode)
	})

	t.Run("malformed body is a provider failure", func(t *testing.T) {
		result := invokeAgainst(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`not json at all`))
		})
		assert.False(t, result.Success)
		assert.Equal(t, ErrCodeProvider, result.ErrorCode)
	})

	t.Run("non-2xx status is a provider failure", func(t *testing.T) {
		result := invokeAgainst(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})
		assert.False(t, result.Success)
		assert.Equal(t, ErrCodeProvider, result.ErrorCode)
	})

	t.Run("timeout is a terminal failure, not an error", func(t *testing.T) {
		result := invokeAgainst(t, func(w http.ResponseWriter, _ *http.Request) {
			time.Sleep(300 * time.Millisecond)
			w.Write([]byte(`{"success":true}`))
		}, WithHTTPClient(&http.Client{Timeout: 50 * time.Millisecond}))

		assert.False(t, result.Success)
		assert.Equal(t, ErrCodeProvider, result.ErrorCode)
		assert.NotEmpty(t, result.ErrorMessage)
	})

	t.Run("unreachable endpoint is a provider failure", func(t *testing.T) {
		p := newTestProvider(t, "gov-b", 1, method.PersonalTwo)
		p.Endpoint = "http://127.0.0.1:1/verify"

		inv := NewInvoker(NewSignerRegistry())
		result := inv.Invoke(context.Background(), p, method.PersonalTwo, map[string]string{"name": "n"})
		assert.False(t, result.Success)
		assert.Equal(t, ErrCodeProvider, result.ErrorCode)
	})
}

func TestInvokerResultMetadata(t *testing.T) {
	t.Run("every result carries id, provider, and latency", func(t *testing.T) {
		result := invokeAgainst(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`{"success":true}`))
		})
		assert.False(t, result.ID.IsNil())
		assert.False(t, result.ProviderID.IsNil())
		assert.NotEmpty(t, result.RequestID)
		assert.GreaterOrEqual(t, result.LatencyMs, int64(0))
		assert.False(t, result.CreatedAt.IsZero())
	})
}
