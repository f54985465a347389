package handler

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realname/internal/authentication"
	"realname/internal/batch"
	"realname/internal/method"
	"realname/internal/provider"
	"realname/internal/ratelimit"
	"realname/pkg/testutil"
)

const uploadCSV = "name,id_number\n张三,110101199003077774\n李四,110101199003077775\n"

func newRouter(t *testing.T, providerBody string) chi.Router {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(providerBody))
	}))
	t.Cleanup(srv.Close)

	dir := provider.NewDirectory(provider.NewInMemoryStore())
	p, err := provider.New("Test Provider", "test-prov", provider.TypeAggregator,
		[]method.Method{method.PersonalTwo}, srv.URL, 1)
	require.NoError(t, err)
	require.NoError(t, dir.Register(context.Background(), p))

	authStore := authentication.NewInMemoryStore()
	auth := authentication.NewService(
		authStore, authStore,
		ratelimit.New(ratelimit.NewInMemoryCounterStore()),
		dir,
		provider.NewInvoker(provider.NewSignerRegistry()),
	)
	svc := batch.NewService(batch.NewInMemoryBatchStore(), batch.NewInMemoryRecordStore(), auth)

	r := chi.NewRouter()
	New(svc, testutil.NewLogger(), 0).Register(r)
	return r
}

func multipartUpload(t *testing.T, fileName, content string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/batches", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

type batchBody struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	TotalRecords int    `json:"total_records"`
	Succeeded    int    `json:"success_records"`
	Failed       int    `json:"failed_records"`
}

func uploadBatch(t *testing.T, r chi.Router, csv string) *batchBody {
	t.Helper()
	rr := testutil.DoRequest(r, multipartUpload(t, "upload.csv", csv))
	testutil.AssertStatus(t, rr, http.StatusCreated)
	return testutil.UnmarshalResponse[batchBody](t, rr)
}

func TestUploadBatch(t *testing.T) {
	t.Run("upload parses into a processing batch", func(t *testing.T) {
		r := newRouter(t, `{"success":true}`)
		body := uploadBatch(t, r, uploadCSV)

		assert.NotEmpty(t, body.ID)
		assert.Equal(t, "processing", body.Status)
		assert.Equal(t, 2, body.TotalRecords)
	})

	t.Run("missing file field is a bad request", func(t *testing.T) {
		r := newRouter(t, `{"success":true}`)

		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		require.NoError(t, mw.Close())
		req := httptest.NewRequest(http.MethodPost, "/batches", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())

		rr := testutil.DoRequest(r, req)
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "invalid_input")
	})

	t.Run("unsupported upload is rejected", func(t *testing.T) {
		r := newRouter(t, `{"success":true}`)
		rr := testutil.DoRequest(r, multipartUpload(t, "upload.pdf", "%PDF-1.4"))
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})
}

func TestProcessEndpoint(t *testing.T) {
	r := newRouter(t, `{"success":true}`)
	body := uploadBatch(t, r, uploadCSV)

	rr := testutil.DoRequest(r, testutil.NewRequest(t, http.MethodPost, "/batches/"+body.ID+"/process"))
	testutil.AssertStatus(t, rr, http.StatusOK)

	processed := testutil.UnmarshalResponse[batchBody](t, rr)
	assert.Equal(t, "completed", processed.Status)
	assert.Equal(t, 1, processed.Succeeded)
	assert.Equal(t, 1, processed.Failed)
}

func TestGetEndpoints(t *testing.T) {
	r := newRouter(t, `{"success":true}`)
	body := uploadBatch(t, r, uploadCSV)

	t.Run("get batch", func(t *testing.T) {
		rr := testutil.DoRequest(r, testutil.NewRequest(t, http.MethodGet, "/batches/"+body.ID))
		testutil.AssertStatus(t, rr, http.StatusOK)
		got := testutil.UnmarshalResponse[batchBody](t, rr)
		assert.Equal(t, body.ID, got.ID)
	})

	t.Run("list records", func(t *testing.T) {
		rr := testutil.DoRequest(r, testutil.NewRequest(t, http.MethodGet, "/batches/"+body.ID+"/records"))
		testutil.AssertStatus(t, rr, http.StatusOK)

		got := testutil.UnmarshalResponse[struct {
			Records []struct {
				RowNumber int    `json:"row_number"`
				Status    string `json:"status"`
			} `json:"records"`
		}](t, rr)
		require.Len(t, got.Records, 2)
		assert.Equal(t, 1, got.Records[0].RowNumber)
	})

	t.Run("unknown batch is 404", func(t *testing.T) {
		rr := testutil.DoRequest(r, testutil.NewRequest(t, http.MethodGet, "/batches/00000000-0000-0000-0000-000000000001"))
		testutil.AssertStatus(t, rr, http.StatusNotFound)
	})

	t.Run("malformed batch id is 400", func(t *testing.T) {
		rr := testutil.DoRequest(r, testutil.NewRequest(t, http.MethodGet, "/batches/not-a-uuid"))
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})
}

func TestCancelAndRetryEndpoints(t *testing.T) {
	t.Run("cancelling a parsed batch conflicts", func(t *testing.T) {
		r := newRouter(t, `{"success":true}`)
		body := uploadBatch(t, r, uploadCSV)

		rr := testutil.DoRequest(r, testutil.NewRequest(t, http.MethodPost, "/batches/"+body.ID+"/cancel"))
		testutil.AssertStatusAndError(t, rr, http.StatusConflict, "conflict")
	})

	t.Run("retry then reprocess clears failures from declined rows", func(t *testing.T) {
		r := newRouter(t, `{"success":false,"error_code":"NO_MATCH","error_message":"mismatch"}`)
		body := uploadBatch(t, r, "name,id_number\n张三,110101199003077774\n")

		rr := testutil.DoRequest(r, testutil.NewRequest(t, http.MethodPost, "/batches/"+body.ID+"/process"))
		testutil.AssertStatus(t, rr, http.StatusOK)
		require.Equal(t, 1, testutil.UnmarshalResponse[batchBody](t, rr).Failed)

		rr = testutil.DoRequest(r, testutil.NewRequest(t, http.MethodPost, "/batches/"+body.ID+"/retry"))
		testutil.AssertStatus(t, rr, http.StatusOK)
		assert.Zero(t, testutil.UnmarshalResponse[batchBody](t, rr).Failed)
	})
}

func TestTemplateEndpoint(t *testing.T) {
	r := newRouter(t, `{"success":true}`)
	rr := testutil.DoRequest(r, testutil.NewRequest(t, http.MethodGet, "/batches/template"))

	testutil.AssertStatus(t, rr, http.StatusOK)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/csv")

	body := testutil.ReadBody(t, rr)
	assert.True(t, bytes.HasPrefix(body, []byte{0xEF, 0xBB, 0xBF}))
	assert.Contains(t, string(body), "name,id_number,mobile,bank_card,method")
}
