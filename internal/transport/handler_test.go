package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"parts-finder/internal/classifier"
	"parts-finder/internal/domain"
	"parts-finder/internal/ingest"
	"parts-finder/internal/middleware"
	"parts-finder/internal/repository"
	"parts-finder/internal/search"
	"parts-finder/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testMaxBytes = 1 << 20

// runnerFunc adapts a function to service.ImageRunner
type runnerFunc func(ctx context.Context, session string, image []byte, mimeType string) (*domain.AISearchResult, error)

func (f runnerFunc) Run(ctx context.Context, session string, image []byte, mimeType string) (*domain.AISearchResult, error) {
	return f(ctx, session, image, mimeType)
}

func newTestRouter(t *testing.T, runner service.ImageRunner) (http.Handler, repository.InventoryRepository) {
	t.Helper()
	logger := zap.NewNop()

	repo := repository.NewInventoryRepository()
	require.NoError(t, repository.SeedDemo(context.Background(), repo))

	svc := service.NewInventoryService(repo, ingest.NewParser(), search.NewMatcher(search.Options{}), runner, logger)

	r := chi.NewRouter()
	NewInventoryHandler(svc, testMaxBytes, logger).RegisterRoutes(r)
	NewSearchHandler(svc, testMaxBytes, logger).RegisterRoutes(r, nil)
	return r, repo
}

func multipartBody(t *testing.T, field, filename, contentType string, data []byte, extra map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+filename+`"`)
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)

	for k, v := range extra {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) middleware.ErrorResponse {
	t.Helper()
	var resp middleware.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestListInventory(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/inventory", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var resp ItemListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 4, resp.Count)
	require.NotNil(t, resp.Total)
	assert.Equal(t, 4, *resp.Total)
	assert.Equal(t, "كوري", resp.Items[0].OriginLabel)
	assert.Equal(t, domain.OriginKorean, resp.Items[0].Origin)
	assert.False(t, resp.Items[0].LowStock)
	assert.True(t, resp.Items[1].LowStock)
}

func TestListInventory_OriginFilter(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	tests := []struct {
		query string
		code  int
		count int
	}{
		{"?origin=CHINESE", http.StatusOK, 1},
		{"?origin=korean", http.StatusOK, 2},
		{"?origin=ALL", http.StatusOK, 4},
		{"?origin=OTHER", http.StatusOK, 0},
		{"?origin=JAPANESE", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/inventory"+tt.query, nil))

			require.Equal(t, tt.code, w.Code)
			if tt.code != http.StatusOK {
				return
			}
			var resp ItemListResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.count, resp.Count)
			assert.NotNil(t, resp.Items)
		})
	}
}

func TestUpload(t *testing.T) {
	router, repo := newTestRouter(t, nil)

	csv := ingest.Header + "\nGM-1,بواجي,usa,80,3,CUST-9,تاهو\nbroken\n"
	body, ct := multipartBody(t, UploadField, "stock.csv", "text/csv", []byte(csv), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/inventory/upload", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp IngestResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Added)
	assert.Equal(t, 5, resp.Total)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "أمريكي", resp.Items[0].OriginLabel)
	assert.True(t, resp.Items[0].LowStock)
	require.Len(t, resp.Warnings, 1)
	assert.Equal(t, 2, resp.Warnings[0].Row)

	count, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}

func TestUpload_RejectsNonCSV(t *testing.T) {
	router, repo := newTestRouter(t, nil)

	body, ct := multipartBody(t, UploadField, "stock.xlsx", "application/vnd.ms-excel", []byte("PK\x03\x04"), nil)
	req := httptest.NewRequest(http.MethodPost, "/api/inventory/upload", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnsupportedMediaType, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, "stock.xlsx", resp.Error.Details["filename"])

	count, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestUpload_MissingFile(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/inventory/upload", strings.NewReader(""))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpload_TooLarge(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	big := bytes.Repeat([]byte("a,b,c\n"), testMaxBytes/4)
	body, ct := multipartBody(t, UploadField, "stock.csv", "text/csv", big, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/inventory/upload", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestTemplate(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/inventory/template", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), ingest.TemplateFilename)
	assert.Equal(t, ingest.Template(), w.Body.String())
}

func TestUpdateAndClear(t *testing.T) {
	router, repo := newTestRouter(t, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPatch, "/api/inventory/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	items, err := repo.List(context.Background())
	require.NoError(t, err)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPatch, "/api/inventory/"+items[0].ID, nil))
	assert.Equal(t, http.StatusNotImplemented, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/inventory", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	count, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSearch(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	tests := []struct {
		name  string
		body  string
		code  int
		count int
	}{
		{"text query", `{"query":"2s000"}`, http.StatusOK, 1},
		{"empty query lists everything", `{}`, http.StatusOK, 4},
		{"origin pre-filter", `{"query":"","origin":"KOREAN"}`, http.StatusOK, 2},
		{"ai result widens matches", `{"query":"zzz","ai_result":{"detectedName":"فلتر","confidence":0.5,"description":"","possiblePartNumbers":["CN-LIGHT"]}}`, http.StatusOK, 2},
		{"confidence out of range", `{"query":"x","ai_result":{"detectedName":"x","confidence":1.5}}`, http.StatusBadRequest, 0},
		{"unknown origin", `{"origin":"MARS"}`, http.StatusBadRequest, 0},
		{"malformed json", `{"query":`, http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			require.Equal(t, tt.code, w.Code, w.Body.String())
			if tt.code != http.StatusOK {
				resp := decodeError(t, w)
				assert.NotEmpty(t, resp.Error.Message)
				return
			}

			var resp ItemListResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.count, resp.Count)
			assert.Nil(t, resp.Total)
		})
	}
}

func TestSearchByImage(t *testing.T) {
	var gotSession, gotMime string
	runner := runnerFunc(func(ctx context.Context, session string, image []byte, mimeType string) (*domain.AISearchResult, error) {
		gotSession, gotMime = session, mimeType
		return &domain.AISearchResult{
			DetectedName:        "فلتر مكيف",
			Confidence:          0.8,
			Description:         "فلتر هواء المقصورة",
			PossiblePartNumbers: []string{},
		}, nil
	})
	router, _ := newTestRouter(t, runner)

	body, ct := multipartBody(t, ImageField, "part.png", "image/png", []byte("\x89PNG"), map[string]string{"origin": "KOREAN"})
	req := httptest.NewRequest(http.MethodPost, "/api/search/image", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set(middleware.SessionHeader, "shopper-42")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "session:shopper-42", gotSession)
	assert.Equal(t, "image/png", gotMime)

	var resp ImageSearchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "فلتر مكيف", resp.SuggestedQuery)
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, "AC-FILT-99", resp.Items[0].PartNumber)
	require.NotNil(t, resp.AIResult)
	assert.InDelta(t, 0.8, resp.AIResult.Confidence, 1e-9)
}

// rendezvousAnalyzer holds every analysis until the expected number of calls
// are in flight, so concurrent requests overlap deterministically
type rendezvousAnalyzer struct {
	arrived sync.WaitGroup
	all     chan struct{}
}

func newRendezvousAnalyzer(calls int) *rendezvousAnalyzer {
	a := &rendezvousAnalyzer{all: make(chan struct{})}
	a.arrived.Add(calls)
	go func() {
		a.arrived.Wait()
		close(a.all)
	}()
	return a
}

func (a *rendezvousAnalyzer) Analyze(ctx context.Context, image []byte, mimeType string) (*domain.AISearchResult, error) {
	a.arrived.Done()
	select {
	case <-a.all:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(2 * time.Second):
	}
	return &domain.AISearchResult{DetectedName: "فلتر مكيف", Confidence: 0.7, PossiblePartNumbers: []string{}}, nil
}

func TestSearchByImage_AnonymousClientsDoNotSupersedeEachOther(t *testing.T) {
	runner := classifier.NewRunner(newRendezvousAnalyzer(2), 5*time.Second, zap.NewNop())
	router, _ := newTestRouter(t, runner)

	addrs := []string{"10.0.0.1:40001", "10.0.0.2:40002"}
	codes := make([]int, len(addrs))

	var wg sync.WaitGroup
	for i, addr := range addrs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			body, ct := multipartBody(t, ImageField, "part.jpg", "image/jpeg", []byte("jpeg"), nil)
			req := httptest.NewRequest(http.MethodPost, "/api/search/image", body)
			req.Header.Set("Content-Type", ct)
			req.RemoteAddr = addr
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			codes[i] = w.Code
		}()
	}
	wg.Wait()

	assert.Equal(t, []int{http.StatusOK, http.StatusOK}, codes)
}

func TestSearchByImage_MimeTypeFallback(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

	tests := []struct {
		name     string
		declared string
		data     []byte
		want     string
	}{
		{"declared image type is kept", "image/webp", []byte("riff"), "image/webp"},
		{"octet-stream is sniffed", "application/octet-stream", png, "image/png"},
		{"unrecognized bytes default to jpeg", "application/octet-stream", []byte("not an image"), "image/jpeg"},
		{"missing type defaults to jpeg", "", []byte("not an image"), "image/jpeg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotMime string
			runner := runnerFunc(func(ctx context.Context, session string, image []byte, mimeType string) (*domain.AISearchResult, error) {
				gotMime = mimeType
				return &domain.AISearchResult{DetectedName: domain.UnknownPartName, PossiblePartNumbers: []string{}}, nil
			})
			router, _ := newTestRouter(t, runner)

			body, ct := multipartBody(t, ImageField, "part", tt.declared, tt.data, nil)
			req := httptest.NewRequest(http.MethodPost, "/api/search/image", body)
			req.Header.Set("Content-Type", ct)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			assert.Equal(t, tt.want, gotMime)
		})
	}
}

func TestSearchByImage_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"service failure", &classifier.ServiceError{Op: "gemini.Analyze", Err: classifier.ErrEmptyResponse}, http.StatusBadGateway},
		{"superseded", classifier.ErrSuperseded, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := runnerFunc(func(context.Context, string, []byte, string) (*domain.AISearchResult, error) {
				return nil, tt.err
			})
			router, _ := newTestRouter(t, runner)

			body, ct := multipartBody(t, ImageField, "part.jpg", "image/jpeg", []byte("jpeg"), nil)
			req := httptest.NewRequest(http.MethodPost, "/api/search/image", body)
			req.Header.Set("Content-Type", ct)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			require.Equal(t, tt.code, w.Code)
			assert.NotEmpty(t, decodeError(t, w).Error.Message)
		})
	}
}

func TestSearchByImage_EmptyImage(t *testing.T) {
	router, _ := newTestRouter(t, runnerFunc(func(context.Context, string, []byte, string) (*domain.AISearchResult, error) {
		t.Fatal("classifier must not be called")
		return nil, nil
	}))

	body, ct := multipartBody(t, ImageField, "part.jpg", "image/jpeg", nil, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/search/image", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
