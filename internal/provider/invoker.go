package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"realname/internal/method"
	providermetrics "realname/internal/provider/metrics"
	"realname/pkg/domain"
)

// InvokeTimeout bounds one verification call. A timeout is an immediate
// terminal failure for that record; there is no retry or backoff.
const InvokeTimeout = 30 * time.Second

// ErrCodeProvider is the fixed error code recorded for any network, timeout,
// or parse failure during invocation.
const ErrCodeProvider = "PROVIDER_ERROR"

// Invoker executes one verification call and normalizes the outcome into a
// Result. Invoke never returns an error: every failure mode is converted into
// a failed Result so batch processing of remaining records continues.
type Invoker struct {
	client  *http.Client
	signers *SignerRegistry
	logger  *slog.Logger
	metrics *providermetrics.Metrics
}

type InvokerOption func(*Invoker)

func WithHTTPClient(client *http.Client) InvokerOption {
	return func(i *Invoker) { i.client = client }
}

func WithInvokerLogger(logger *slog.Logger) InvokerOption {
	return func(i *Invoker) { i.logger = logger }
}

func WithMetrics(m *providermetrics.Metrics) InvokerOption {
	return func(i *Invoker) { i.metrics = m }
}

func NewInvoker(signers *SignerRegistry, opts ...InvokerOption) *Invoker {
	inv := &Invoker{
		client:  &http.Client{Timeout: InvokeTimeout},
		signers: signers,
	}
	for _, opt := range opts {
		opt(inv)
	}
	if inv.logger == nil {
		inv.logger = slog.Default()
	}
	return inv
}

// Invoke posts one signed verification request to the provider and maps the
// raw response into the uniform result shape.
func (i *Invoker) Invoke(ctx context.Context, p *Provider, m method.Method, fields map[string]string) *Result {
	start := time.Now()
	result := &Result{
		ID:         domain.NewResultID(),
		RequestID:  uuid.NewString(),
		ProviderID: p.ID,
		CreatedAt:  start,
	}

	defer func() {
		result.LatencyMs = time.Since(start).Milliseconds()
		if i.metrics != nil {
			i.metrics.ObserveInvocation(start, result.Success)
		}
	}()

	body, err := i.post(ctx, p, m, fields, result.RequestID)
	if err != nil {
		i.logger.WarnContext(ctx, "provider invocation failed",
			"provider", p.Code,
			"method", m,
			"error", err,
		)
		result.ErrorCode = ErrCodeProvider
		result.ErrorMessage = err.Error()
		return result
	}

	i.interpret(body, result)
	return result
}

func (i *Invoker) post(ctx context.Context, p *Provider, m method.Method, fields map[string]string, requestID string) (map[string]any, error) {
	params := make(map[string]string, len(fields)+3)
	for k, v := range fields {
		params[k] = v
	}
	params["method"] = string(m)
	params["request_id"] = requestID
	params["timestamp"] = fmt.Sprintf("%d", time.Now().Unix())

	signer := i.signers.For(p.Code)
	params["sign"] = signer.Sign(params, p.SecretConfig["secret"])

	form := url.Values{}
	for k, v := range params {
		form.Set(k, v)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := i.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return body, nil
}

// interpret maps the small set of recognized response shapes into the uniform
// result. Unrecognized shapes count as provider failures.
func (i *Invoker) interpret(body map[string]any, result *Result) {
	result.ResponseData = body

	switch {
	case has(body, "success"):
		ok, _ := body["success"].(bool)
		result.Success = ok
		result.Confidence = confidenceFrom(body["confidence"])
		if !ok {
			result.ErrorCode = stringOr(body["error_code"], ErrCodeProvider)
			result.ErrorMessage = stringOr(body["error_message"], "provider reported failure")
		}

	case has(body, "code"):
		code, _ := body["code"].(float64)
		if code == 0 || code == 200 {
			result.Success = true
			if data, ok := body["data"].(map[string]any); ok {
				result.Confidence = confidenceFrom(data["confidence"])
			}
		} else {
			result.ErrorCode = fmt.Sprintf("%.0f", code)
			result.ErrorMessage = stringOr(body["message"], "provider reported failure")
		}

	case has(body, "status"):
		status, _ := body["status"].(string)
		if status == "ok" || status == "success" {
			result.Success = true
		} else {
			result.ErrorCode = ErrCodeProvider
			result.ErrorMessage = stringOr(body["reason"], "provider reported status "+status)
		}

	default:
		result.ErrorCode = ErrCodeProvider
		result.ErrorMessage = "unrecognized response shape"
	}
}

func has(body map[string]any, key string) bool {
	_, ok := body[key]
	return ok
}

func stringOr(v any, fallback string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return fallback
}

// confidenceFrom extracts a confidence score, clamped to [0,1]. Missing or
// non-numeric values yield nil.
func confidenceFrom(v any) *float64 {
	f, ok := v.(float64)
	if !ok {
		return nil
	}
	if f < 0 {
		f = 0
	}
	if f > 1 {
		f = 1
	}
	return &f
}
