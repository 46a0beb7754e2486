package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"dicomcat/internal/extractor"
	extractorMocks "dicomcat/internal/extractor/mocks"
	"dicomcat/internal/graphql"
	"dicomcat/internal/service"
	serviceMocks "dicomcat/internal/service/mocks"
	"dicomcat/internal/storage"
	storageMocks "dicomcat/internal/storage/mocks"
)

type testEnv struct {
	app      *fiber.App
	dbMock   sqlmock.Sqlmock
	catalog  *serviceMocks.MockCatalogService
	upload   *serviceMocks.MockUploadService
	ext      *extractorMocks.MockExtractor
	store    *storageMocks.MockStorage
	dicomDir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	env := &testEnv{
		dbMock:   dbMock,
		catalog:  new(serviceMocks.MockCatalogService),
		upload:   new(serviceMocks.MockUploadService),
		ext:      new(extractorMocks.MockExtractor),
		store:    new(storageMocks.MockStorage),
		dicomDir: t.TempDir(),
	}

	schema, err := graphql.NewSchema(env.catalog, env.upload)
	require.NoError(t, err)

	env.app = fiber.New(fiber.Config{ErrorHandler: ErrorHandler()})
	RegisterRoutes(env.app, schema, Services{
		DB:         db,
		Extractor:  env.ext,
		Storage:    env.store,
		UploadRoot: env.dicomDir,
	})
	return env
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	t.Run("healthy", func(t *testing.T) {
		env.dbMock.ExpectPing().WillReturnError(nil)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := env.app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "healthy", body["status"])
	})

	t.Run("unhealthy", func(t *testing.T) {
		env.dbMock.ExpectPing().WillReturnError(errors.New("db error"))

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := env.app.Test(req)

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

		var body errorPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "SERVICE_UNAVAILABLE", body.Error.Code)
	})
}

func TestLivenessProbe(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	resp, _ := env.app.Test(req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMetrics(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp, _ := env.app.Test(req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestProcessDicom_Get(t *testing.T) {
	env := newTestEnv(t)

	t.Run("success", func(t *testing.T) {
		full := filepath.Join(env.dicomDir, "a.dcm")
		env.ext.On("Extract", mock.Anything, full).Return(&extractor.Metadata{
			PatientName: "Doe",
			StudyDate:   "20240115",
			Modality:    "CT",
		}, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/process-dicom?filePath=a.dcm", nil)
		resp, _ := env.app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "Doe", body["PatientName"])
		assert.Equal(t, "a.dcm", body["filePath"])
		env.ext.AssertExpectations(t)
	})

	t.Run("missing file path", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/process-dicom", nil)
		resp, _ := env.app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("escaping path", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/process-dicom?filePath=..%2F..%2Fetc%2Fpasswd", nil)
		resp, _ := env.app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("file not found", func(t *testing.T) {
		env.ext.On("Extract", mock.Anything, mock.Anything).
			Return(nil, &extractor.NotFoundError{What: "file", Path: "missing.dcm"}).Once()

		req := httptest.NewRequest(http.MethodGet, "/process-dicom?filePath=missing.dcm", nil)
		resp, _ := env.app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)

		var body errorPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "FILE_NOT_FOUND", body.Error.Code)
	})

	t.Run("processing error", func(t *testing.T) {
		env.ext.On("Extract", mock.Anything, mock.Anything).
			Return(nil, &extractor.ProcessingError{Stderr: "bad pixel data", ExitCode: 1}).Once()

		req := httptest.NewRequest(http.MethodGet, "/process-dicom?filePath=broken.dcm", nil)
		resp, _ := env.app.Test(req)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

		var body errorPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "PROCESSING_ERROR", body.Error.Code)
	})

	t.Run("timeout", func(t *testing.T) {
		env.ext.On("Extract", mock.Anything, mock.Anything).
			Return(nil, &extractor.ProcessingError{Timeout: true}).Once()

		req := httptest.NewRequest(http.MethodGet, "/process-dicom?filePath=slow.dcm", nil)
		resp, _ := env.app.Test(req)

		assert.Equal(t, http.StatusGatewayTimeout, resp.StatusCode)
	})
}

func TestProcessDicom_Upload(t *testing.T) {
	env := newTestEnv(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "b.dcm")
	require.NoError(t, err)
	fw.Write([]byte("dicom bytes"))
	require.NoError(t, mw.Close())

	env.store.On("Put", mock.Anything, "b.dcm", mock.Anything, mock.Anything).
		Return(storage.ObjectInfo{Key: "b.dcm", Size: 11}, nil).Once()
	env.ext.On("Extract", mock.Anything, filepath.Join(env.dicomDir, "b.dcm")).
		Return(&extractor.Metadata{PatientName: "Doe", Modality: "MR"}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/process-dicom", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, _ := env.app.Test(req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// The upload must land in the staging directory before extraction.
	saved, err := os.ReadFile(filepath.Join(env.dicomDir, "b.dcm"))
	require.NoError(t, err)
	assert.Equal(t, "dicom bytes", string(saved))

	env.store.AssertExpectations(t)
	env.ext.AssertExpectations(t)
}

func TestProcessDicom_UploadWithoutFileOrPath(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/process-dicom", strings.NewReader(""))
	resp, _ := env.app.Test(req)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body errorPayload
	json.NewDecoder(resp.Body).Decode(&body)
	assert.Equal(t, "FILE_REQUIRED", body.Error.Code)
}

func TestDownload(t *testing.T) {
	env := newTestEnv(t)

	t.Run("success", func(t *testing.T) {
		content := "dicom bytes"
		env.store.On("Get", mock.Anything, "a.dcm").
			Return(io.NopCloser(strings.NewReader(content)), storage.ObjectInfo{Key: "a.dcm", Size: int64(len(content))}, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/download?filePath=a.dcm", nil)
		resp, _ := env.app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "application/dicom", resp.Header.Get(fiber.HeaderContentType))
		assert.Contains(t, resp.Header.Get(fiber.HeaderContentDisposition), "a.dcm")

		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, content, string(body))
	})

	t.Run("missing object", func(t *testing.T) {
		env.store.On("Get", mock.Anything, "gone.dcm").
			Return(nil, storage.ObjectInfo{}, errors.New("no such key")).Once()

		req := httptest.NewRequest(http.MethodGet, "/download?filePath=gone.dcm", nil)
		resp, _ := env.app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("missing file path", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/download", nil)
		resp, _ := env.app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestGraphQLEndpoint(t *testing.T) {
	env := newTestEnv(t)

	t.Run("query", func(t *testing.T) {
		env.catalog.On("CheckFilePathExists", mock.Anything, "a.dcm").Return(true, nil).Once()

		body := `{"query":"{ checkFilePathExists(filePath: \"a.dcm\") }"}`
		req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := env.app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var out struct {
			Data map[string]interface{} `json:"data"`
		}
		json.NewDecoder(resp.Body).Decode(&out)
		assert.Equal(t, true, out.Data["checkFilePathExists"])
	})

	t.Run("mutation error carries extension code", func(t *testing.T) {
		env.upload.On("ProcessUpload", mock.Anything, mock.Anything).
			Return(nil, &service.ValidationError{Field: "studyDate", Msg: "is required"}).Once()

		body := `{"query":"mutation { processDicomUpload(input: {patientName: \"Doe\", studyDate: \"bad\", modality: \"CT\", filePath: \"a.dcm\"}) { idFile } }"}`
		req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := env.app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var out struct {
			Errors []struct {
				Extensions map[string]interface{} `json:"extensions"`
			} `json:"errors"`
		}
		json.NewDecoder(resp.Body).Decode(&out)
		require.Len(t, out.Errors, 1)
		assert.Equal(t, "BAD_USER_INPUT", out.Errors[0].Extensions["code"])
	})

	t.Run("empty query", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := env.app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}
