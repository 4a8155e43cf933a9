package handler

import (
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	importapp "github.com/invoicely/backend/internal/application/import"
	"github.com/invoicely/backend/internal/domain/identity"
	csvimport "github.com/invoicely/backend/internal/infrastructure/import"
	"github.com/invoicely/backend/internal/interfaces/http/dto"
)

// Maximum file size for imports (10MB)
const maxImportFileSize = 10 * 1024 * 1024

// ImportHandler handles customer bulk import endpoints. Validation and
// import are separate steps: a validated file produces a validation ID
// that the import call redeems within the session TTL.
type ImportHandler struct {
	BaseHandler
	importService *importapp.CustomerImportService
	sessionStore  csvimport.SessionStore

	validRowsMu sync.RWMutex
	validRows   map[uuid.UUID][]*csvimport.Row
	cleanupStop chan struct{}
	cleanupOnce sync.Once
}

// NewImportHandler creates a new ImportHandler
func NewImportHandler(importService *importapp.CustomerImportService) *ImportHandler {
	h := &ImportHandler{
		importService: importService,
		sessionStore:  csvimport.NewInMemorySessionStore(15 * time.Minute),
		validRows:     make(map[uuid.UUID][]*csvimport.Row),
		cleanupStop:   make(chan struct{}),
	}
	go h.cleanupLoop()
	return h
}

// cleanupLoop drops valid rows whose session has expired
func (h *ImportHandler) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			h.validRowsMu.Lock()
			for sessionID := range h.validRows {
				session, _ := h.sessionStore.Get(sessionID)
				if session == nil {
					delete(h.validRows, sessionID)
				}
			}
			h.validRowsMu.Unlock()
		case <-h.cleanupStop:
			return
		}
	}
}

// Stop stops the background cleanup goroutine
func (h *ImportHandler) Stop() {
	h.cleanupOnce.Do(func() { close(h.cleanupStop) })
}

// ImportCustomersRequest represents the request to import validated customers
type ImportCustomersRequest struct {
	ValidationID string `json:"validation_id" binding:"required"`
	ConflictMode string `json:"conflict_mode" binding:"required,oneof=skip update fail"`
}

// CustomerValidationResponse represents the response from customer CSV validation
type CustomerValidationResponse struct {
	ValidationID string               `json:"validation_id"`
	TotalRows    int                  `json:"total_rows"`
	ValidRows    int                  `json:"valid_rows"`
	ErrorRows    int                  `json:"error_rows"`
	Errors       []csvimport.RowError `json:"errors,omitempty"`
	Preview      []map[string]any     `json:"preview,omitempty"`
	Warnings     []string             `json:"warnings,omitempty"`
	IsTruncated  bool                 `json:"is_truncated,omitempty"`
	TotalErrors  int                  `json:"total_errors,omitempty"`
}

// ValidateCustomers validates an uploaded customer CSV without importing it
func (h *ImportHandler) ValidateCustomers(c *gin.Context) {
	principal, ok := getPrincipal(c)
	if !ok {
		return
	}
	if principal.Role == identity.RoleCustomer {
		c.JSON(http.StatusForbidden, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeForbidden, "Access to this resource is forbidden", getRequestID(c),
		))
		return
	}
	ctx := c.Request.Context()

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		h.BadRequest(c, "file is required")
		return
	}
	defer file.Close()

	if header.Size > maxImportFileSize {
		c.JSON(http.StatusRequestEntityTooLarge, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeBadRequest, "file exceeds maximum size of 10MB", getRequestID(c),
		))
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType != "" && contentType != "text/csv" && contentType != "application/octet-stream" &&
		contentType != "text/plain" && contentType != "application/vnd.ms-excel" {
		c.JSON(http.StatusUnsupportedMediaType, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeBadRequest, "file must be a CSV file", getRequestID(c),
		))
		return
	}

	session := csvimport.NewImportSession(principal.ID, csvimport.EntityCustomers, header.Filename, header.Size)
	rules := h.importService.GetValidationRules()

	processor := csvimport.NewImportProcessor(
		csvimport.WithUniqueLookup(func(entityType, field, value string) (bool, error) {
			return h.importService.LookupUnique(ctx, field, value)
		}),
	)

	result, err := processor.Validate(ctx, session, file, rules)
	if err != nil {
		switch {
		case errors.Is(err, csvimport.ErrEmptyFile):
			h.BadRequest(c, "CSV file is empty")
		case errors.Is(err, csvimport.ErrInvalidEncoding):
			h.BadRequest(c, "CSV file has invalid encoding, must be UTF-8")
		case errors.Is(err, csvimport.ErrMissingHeader):
			h.BadRequest(c, "CSV file is missing header row")
		default:
			h.HandleError(c, err)
		}
		return
	}

	warnings := h.collectValidRows(session, file, result)

	if err := h.sessionStore.Save(session); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, CustomerValidationResponse{
		ValidationID: result.ValidationID,
		TotalRows:    result.TotalRows,
		ValidRows:    result.ValidRows,
		ErrorRows:    result.ErrorRows,
		Errors:       result.Errors,
		Preview:      result.Preview,
		Warnings:     warnings,
		IsTruncated:  result.IsTruncated,
		TotalErrors:  result.TotalErrors,
	})
}

// collectValidRows re-reads the uploaded file and stashes the rows that
// passed validation, collecting per-row warnings along the way.
func (h *ImportHandler) collectValidRows(session *csvimport.ImportSession, file io.ReadSeeker, result *csvimport.ValidationResult) []string {
	const maxWarnings = 100
	var warnings []string

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil
	}
	parser, err := csvimport.NewCSVParser(file)
	if err != nil {
		return nil
	}
	if err := parser.ParseHeader(); err != nil {
		return nil
	}

	errorRows := make(map[int]bool)
	for _, e := range result.Errors {
		errorRows[e.Row] = true
	}

	var validRows []*csvimport.Row
	for {
		row, err := parser.ReadRow()
		if err == io.EOF {
			break
		}
		if err != nil || row.IsEmpty() || errorRows[row.LineNumber] {
			continue
		}

		validRows = append(validRows, row)
		if len(warnings) < maxWarnings {
			for _, w := range h.importService.ValidateWithWarnings(row) {
				if len(warnings) < maxWarnings {
					warnings = append(warnings, w)
				}
			}
		}
	}

	if len(validRows) > 0 {
		h.validRowsMu.Lock()
		h.validRows[session.ID] = validRows
		h.validRowsMu.Unlock()
	}

	return warnings
}

// ImportCustomers imports customers from a previously validated CSV
func (h *ImportHandler) ImportCustomers(c *gin.Context) {
	principal, ok := getPrincipal(c)
	if !ok {
		return
	}

	var req ImportCustomersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	validationID, err := uuid.Parse(req.ValidationID)
	if err != nil {
		h.BadRequest(c, "Invalid validation_id")
		return
	}

	conflictMode := importapp.ConflictMode(req.ConflictMode)
	if !conflictMode.IsValid() {
		h.BadRequest(c, "Invalid conflict_mode, must be one of: skip, update, fail")
		return
	}

	session, err := h.sessionStore.Get(validationID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if session == nil || session.UserID != principal.ID {
		c.JSON(http.StatusNotFound, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeNotFound, "Import session not found or expired", getRequestID(c),
		))
		return
	}

	if session.State != csvimport.StateValidated {
		h.BadRequest(c, "Session must be validated before import. Current state: "+string(session.State))
		return
	}

	h.validRowsMu.RLock()
	validRows := h.validRows[validationID]
	h.validRowsMu.RUnlock()

	if len(validRows) == 0 {
		h.BadRequest(c, "No valid rows found for import. Please re-validate the file.")
		return
	}

	result, err := h.importService.Import(c.Request.Context(), principal, session, validRows, conflictMode)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.validRowsMu.Lock()
	delete(h.validRows, validationID)
	h.validRowsMu.Unlock()

	_ = h.sessionStore.Save(session)

	h.Success(c, result)
}
