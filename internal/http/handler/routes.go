package handler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	gql "github.com/graphql-go/graphql"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"dicomcat/internal/extractor"
	"dicomcat/internal/graphql"
	"dicomcat/internal/storage"
)

// Services bundles the dependencies the HTTP surface needs.
type Services struct {
	DB         *sql.DB
	Extractor  extractor.Extractor
	Storage    storage.Storage
	UploadRoot string
}

// processResponse merges extracted metadata with the catalog-relative path
// of the processed file.
type processResponse struct {
	*extractor.Metadata
	FilePath string `json:"filePath"`
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app. The GraphQL
// endpoint carries the catalog queries and the upload mutation; the REST
// routes cover file transfer and extraction.
func RegisterRoutes(app *fiber.App, schema gql.Schema, s Services) {
	// Serve OpenAPI spec and Swagger UI
	app.Get("/openapi.yaml", func(c *fiber.Ctx) error {
		c.Type("yaml")
		return c.SendFile("openapi.yaml")
	})
	app.Get("/docs", func(c *fiber.Ctx) error {
		html := `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>API Docs</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    window.ui = SwaggerUIBundle({
      url: '/openapi.yaml',
      dom_id: '#swagger-ui',
      presets: [SwaggerUIBundle.presets.apis],
      layout: 'BaseLayout'
    });
  </script>
</body>
</html>`
		return c.Type("html").SendString(html)
	})

	// Health endpoint: checks DB connectivity only
	app.Get("/health", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := s.DB.PingContext(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	})

	// Simple liveness probe
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	// Prometheus metrics
	app.Get("/metrics", func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())(c.Context())
		return nil
	})

	// GraphQL endpoint: catalog queries and the upload mutation
	app.Post("/graphql", graphql.Handler(schema))

	// Upload and process a new DICOM file (multipart field: file), or
	// process an already-staged one named by the filePath form value.
	app.Post("/process-dicom", func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			filePath := c.FormValue("filePath")
			if filePath == "" {
				return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "no file uploaded and no file path provided")
			}
			return processDicomFile(c, s, filePath)
		}

		name := filepath.Base(fh.Filename)
		dest, err := resolveUnderRoot(s.UploadRoot, name)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_PATH", "invalid file name")
		}
		if err := c.SaveFile(fh, dest); err != nil {
			return writeError(c, fiber.StatusInternalServerError, "SAVE_ERROR", "cannot save uploaded file")
		}

		if err := mirrorToStorage(c.UserContext(), s.Storage, name, dest); err != nil {
			return writeError(c, fiber.StatusInternalServerError, "STORAGE_ERROR", "cannot store uploaded file")
		}

		return processDicomFile(c, s, name)
	})

	// Process an existing DICOM file
	app.Get("/process-dicom", func(c *fiber.Ctx) error {
		filePath := c.Query("filePath")
		if filePath == "" {
			return writeError(c, fiber.StatusBadRequest, "FILE_PATH_REQUIRED", "no file path provided")
		}
		return processDicomFile(c, s, filePath)
	})

	// Download a DICOM file from object storage
	app.Get("/download", func(c *fiber.Ctx) error {
		filePath := c.Query("filePath")
		if filePath == "" {
			return writeError(c, fiber.StatusBadRequest, "FILE_PATH_REQUIRED", "no file path provided")
		}

		rc, info, err := s.Storage.Get(c.UserContext(), filePath)
		if err != nil {
			return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "file not found")
		}

		c.Set(fiber.HeaderContentType, "application/dicom")
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filepath.Base(filePath)))
		return c.SendStream(rc, int(info.Size))
	})
}

// processDicomFile resolves filePath under the upload root, runs extraction,
// and maps each adapter error kind to a status code.
func processDicomFile(c *fiber.Ctx, s Services, filePath string) error {
	fullPath, err := resolveUnderRoot(s.UploadRoot, filePath)
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, "INVALID_PATH", "invalid file path")
	}

	meta, err := s.Extractor.Extract(c.UserContext(), fullPath)
	if err != nil {
		var nf *extractor.NotFoundError
		var proc *extractor.ProcessingError
		var parse *extractor.ParseError
		switch {
		case errors.As(err, &nf):
			if nf.What == "file" {
				return writeError(c, fiber.StatusNotFound, "FILE_NOT_FOUND", "file not found")
			}
			return writeError(c, fiber.StatusInternalServerError, "TOOL_NOT_FOUND", nf.What+" not found")
		case errors.As(err, &proc):
			if proc.Timeout {
				return writeError(c, fiber.StatusGatewayTimeout, "PROCESSING_TIMEOUT", "processing timed out")
			}
			return writeError(c, fiber.StatusInternalServerError, "PROCESSING_ERROR", "error processing DICOM file")
		case errors.As(err, &parse):
			return writeError(c, fiber.StatusInternalServerError, "PARSE_ERROR", "error parsing DICOM data")
		default:
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
	}

	return c.JSON(processResponse{Metadata: meta, FilePath: filePath})
}

// mirrorToStorage copies the staged file into object storage under its
// catalog-relative key so downloads do not depend on local disk.
func mirrorToStorage(ctx context.Context, store storage.Storage, key, localPath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return err
	}

	_, err = store.Put(ctx, key, f, storage.PutObjectOptions{
		Size:        st.Size(),
		ContentType: "application/dicom",
	})
	return err
}

// resolveUnderRoot joins p onto root and rejects any result that escapes it.
func resolveUnderRoot(root, p string) (string, error) {
	full := filepath.Join(root, p)
	rel, err := filepath.Rel(root, full)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes the upload root", p)
	}
	return full, nil
}
