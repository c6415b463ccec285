// This file implements work-unit import endpoints:
//
//	POST /api/imports -> Create (multipart CSV upload)
//	GET  /api/imports -> List
package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jbaudry/previsk/internal/auth"
	"github.com/jbaudry/previsk/internal/domain"
	"github.com/jbaudry/previsk/internal/service"
)

// maxImportUpload caps CSV uploads at 1MB.
const maxImportUpload = 1 << 20

// ImportHandler handles work-unit CSV imports.
type ImportHandler struct {
	imports service.ImportService
	logger  *slog.Logger
}

// NewImportHandler creates a new ImportHandler.
func NewImportHandler(imports service.ImportService, logger *slog.Logger) *ImportHandler {
	return &ImportHandler{
		imports: imports,
		logger:  logger,
	}
}

type importResponse struct {
	ID         uuid.UUID `json:"id"`
	CompanyID  uuid.UUID `json:"company_id"`
	Filename   string    `json:"filename"`
	RowCount   int       `json:"row_count"`
	ImportedBy uuid.UUID `json:"imported_by"`
	CreatedAt  time.Time `json:"created_at"`
}

func newImportResponse(r domain.ImportRecord) importResponse {
	return importResponse{
		ID:         r.ID,
		CompanyID:  r.CompanyID,
		Filename:   r.Filename,
		RowCount:   r.RowCount,
		ImportedBy: r.ImportedBy,
		CreatedAt:  r.CreatedAt,
	}
}

// Create ingests a CSV of work units. The request is multipart/form-data
// with a site_id field and the CSV under "file".
func (h *ImportHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetUser(r.Context())
	if actor == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	if err := r.ParseMultipartForm(maxImportUpload); err != nil {
		ErrorResponse(w, r, h.logger,
			domain.Errorf(domain.ETOOLARGE, "import.create", "The file exceeds the 1MB upload limit"))
		return
	}

	siteID, err := uuid.Parse(r.FormValue("site_id"))
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("import.create", "A valid site_id is required"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("import.create", "A CSV file is required"))
		return
	}
	defer file.Close()

	result, err := h.imports.ImportWorkUnits(r.Context(), actor, siteID, header.Filename, file)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"import":  newImportResponse(result.Record),
		"created": result.Created,
	})
}

// List returns the tenant's import history.
func (h *ImportHandler) List(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetUser(r.Context())
	if actor == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	records, err := h.imports.ListImports(r.Context(), actor)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	out := make([]importResponse, len(records))
	for i, rec := range records {
		out[i] = newImportResponse(*rec)
	}
	respondJSON(w, http.StatusOK, map[string]any{"imports": out})
}
