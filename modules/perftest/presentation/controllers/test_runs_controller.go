package controllers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/perfhub/perfhub/modules/perftest/domain/testrun"
	"github.com/perfhub/perfhub/modules/perftest/infrastructure/persistence"
	"github.com/perfhub/perfhub/modules/perftest/jtl"
	"github.com/perfhub/perfhub/modules/perftest/presentation/controllers/dtos"
	"github.com/perfhub/perfhub/modules/perftest/services"
	"github.com/perfhub/perfhub/pkg/application"
	"github.com/perfhub/perfhub/pkg/configuration"
	"github.com/perfhub/perfhub/pkg/mapping"
	"github.com/perfhub/perfhub/pkg/middleware"
)

type TestRunsController struct {
	app           application.Application
	runService    *services.TestRunService
	resultService *services.ResultService
	exportService *services.ExcelExportService
	basePath      string
}

func NewTestRunsController(app application.Application) application.Controller {
	return &TestRunsController{
		app:           app,
		runService:    app.Service(services.TestRunService{}).(*services.TestRunService),
		resultService: app.Service(services.ResultService{}).(*services.ResultService),
		exportService: app.Service(services.ExcelExportService{}).(*services.ExcelExportService),
		basePath:      "/test-runs",
	}
}

func (c *TestRunsController) Key() string {
	return c.basePath
}

func (c *TestRunsController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.Use(middleware.WithTransaction())
	router.HandleFunc("", c.List).Methods(http.MethodGet)
	router.HandleFunc("", c.Upload).Methods(http.MethodPost)
	router.HandleFunc("/{id}", c.GetByID).Methods(http.MethodGet)
	router.HandleFunc("/{id}", c.Delete).Methods(http.MethodDelete)
	router.HandleFunc("/{id}/report", c.Report).Methods(http.MethodGet)
	router.HandleFunc("/{id}/export", c.Export).Methods(http.MethodGet)
}

func (c *TestRunsController) List(w http.ResponseWriter, r *http.Request) {
	params := &testrun.FindParams{
		Limit:  queryInt(r, "limit", 50),
		Offset: queryInt(r, "offset", 0),
	}
	if raw := r.URL.Query().Get("capability_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "INVALID_ID", "capability_id must be a UUID")
			return
		}
		params.CapabilityID = &id
	}
	runs, err := c.runService.GetPaginated(r.Context(), params)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "INTERNAL", err.Error())
		return
	}
	total, err := c.runService.Count(r.Context(), params)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "INTERNAL", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"items": mapping.MapViewModels(runs, dtos.NewTestRunResponse),
		"total": total,
	})
}

// Upload accepts a multipart JTL upload and runs the whole intake
// pipeline synchronously. A failed parse still returns the created run,
// with FAILED status and the error retained on it.
func (c *TestRunsController) Upload(w http.ResponseWriter, r *http.Request) {
	conf := configuration.Use()
	if err := r.ParseMultipartForm(conf.MaxUploadMemory); err != nil {
		writeJSONError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	files, ok := r.MultipartForm.File["file"]
	if !ok || len(files) == 0 {
		writeJSONError(w, http.StatusBadRequest, "MISSING_FILE", "no file found in form field 'file'")
		return
	}
	header := files[0]

	dto := &dtos.UploadTestRunDTO{
		CapabilityID: r.FormValue("capability_id"),
		TestName:     r.FormValue("test_name"),
		BuildNumber:  r.FormValue("build_number"),
		Description:  r.FormValue("description"),
		UploadedBy:   r.FormValue("uploaded_by"),
	}
	if fields, ok := dto.Ok(r.Context()); !ok {
		writeJSONError(w, http.StatusUnprocessableEntity, "VALIDATION_FAILED", "validation failed", fields)
		return
	}
	capabilityID, err := uuid.Parse(dto.CapabilityID)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "INVALID_ID", "capability_id must be a UUID")
		return
	}

	file, err := header.Open()
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			c.app.Logger().WithError(cerr).Warn("failed to close uploaded file")
		}
	}()

	run, err := c.runService.Process(r.Context(), &services.UploadDTO{
		CapabilityID: capabilityID,
		TestName:     dto.TestName,
		BuildNumber:  dto.BuildNumber,
		Description:  dto.Description,
		UploadedBy:   dto.UploadedBy,
		FileName:     header.Filename,
		Size:         header.Size,
		File:         file,
	})
	if err != nil && run == nil {
		writeUploadError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, dtos.NewTestRunResponse(run))
}

func (c *TestRunsController) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	run, err := c.runService.GetByID(r.Context(), id)
	if err != nil {
		writeTestRunError(w, err)
		return
	}
	resp := dtos.NewTestRunResponse(run)
	if run.Status() == testrun.StatusCompleted {
		verdict, err := c.runService.Verdict(r.Context(), id)
		if err != nil {
			writeTestRunError(w, err)
			return
		}
		resp = resp.WithVerdict(verdict)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (c *TestRunsController) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := c.runService.Delete(r.Context(), id); err != nil {
		writeTestRunError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (c *TestRunsController) Report(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	report, err := c.resultService.Assemble(r.Context(), id)
	if err != nil {
		writeReportError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dtos.NewReportResponse(report))
}

func (c *TestRunsController) Export(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	buf, err := c.exportService.Export(r.Context(), id)
	if err != nil {
		writeReportError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"test-run-%s.xlsx\"", id))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		c.app.Logger().WithError(err).Warn("failed to stream xlsx export")
	}
}

func writeUploadError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, jtl.ErrUnsupportedFormat):
		writeJSONError(w, http.StatusUnsupportedMediaType, "RESULT_UNSUPPORTED_FORMAT", err.Error())
	case errors.Is(err, jtl.ErrFileTooLarge):
		writeJSONError(w, http.StatusRequestEntityTooLarge, "RESULT_FILE_TOO_LARGE", err.Error())
	case errors.Is(err, persistence.ErrCapabilityNotFound):
		writeJSONError(w, http.StatusNotFound, "CAPABILITY_NOT_FOUND", "capability not found")
	default:
		writeJSONError(w, http.StatusInternalServerError, "INTERNAL", err.Error())
	}
}

func writeTestRunError(w http.ResponseWriter, err error) {
	if errors.Is(err, persistence.ErrTestRunNotFound) {
		writeJSONError(w, http.StatusNotFound, "TEST_RUN_NOT_FOUND", "test run not found")
		return
	}
	writeJSONError(w, http.StatusInternalServerError, "INTERNAL", err.Error())
}

func writeReportError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, persistence.ErrTestRunNotFound):
		writeJSONError(w, http.StatusNotFound, "TEST_RUN_NOT_FOUND", "test run not found")
	case errors.Is(err, services.ErrRunNotCompleted):
		writeJSONError(w, http.StatusConflict, "REPORT_RUN_NOT_COMPLETED", err.Error())
	case errors.Is(err, services.ErrCoverIncomplete):
		var coverErr *services.CoverIncompleteError
		if errors.As(err, &coverErr) {
			meta := make(map[string]string, len(coverErr.Missing))
			for _, field := range coverErr.Missing {
				meta[field] = "missing"
			}
			writeJSONError(w, http.StatusConflict, "REPORT_COVER_INCOMPLETE", err.Error(), meta)
			return
		}
		writeJSONError(w, http.StatusConflict, "REPORT_COVER_INCOMPLETE", err.Error())
	default:
		writeJSONError(w, http.StatusInternalServerError, "INTERNAL", err.Error())
	}
}
