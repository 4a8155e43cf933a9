package csvimport

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EntityType names a kind of record that can be bulk imported.
type EntityType string

const (
	EntityCustomers EntityType = "customers"
	EntityInvoices  EntityType = "invoices"
)

// ValidEntityTypes returns every importable entity type.
func ValidEntityTypes() []EntityType {
	return []EntityType{EntityCustomers, EntityInvoices}
}

// IsValidEntityType reports whether t names an importable entity.
func IsValidEntityType(t string) bool {
	for _, valid := range ValidEntityTypes() {
		if string(valid) == t {
			return true
		}
	}
	return false
}

// ImportState tracks a session through the two-phase flow: a file is
// validated first, then the validated rows are imported in a second call.
type ImportState string

const (
	StateCreated    ImportState = "created"
	StateValidating ImportState = "validating"
	StateValidated  ImportState = "validated"
	StateImporting  ImportState = "importing"
	StateCompleted  ImportState = "completed"
	StateFailed     ImportState = "failed"
	StateCancelled  ImportState = "cancelled"
)

// ImportSession is one user's in-flight import of one file.
type ImportSession struct {
	ID          uuid.UUID        `json:"id"`
	UserID      uuid.UUID        `json:"user_id"`
	EntityType  EntityType       `json:"entity_type"`
	FileName    string           `json:"file_name"`
	FileSize    int64            `json:"file_size"`
	State       ImportState      `json:"state"`
	TotalRows   int              `json:"total_rows"`
	ValidRows   int              `json:"valid_rows"`
	ErrorRows   int              `json:"error_rows"`
	Errors      []RowError       `json:"errors,omitempty"`
	Preview     []map[string]any `json:"preview,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}

func NewImportSession(userID uuid.UUID, entityType EntityType, fileName string, fileSize int64) *ImportSession {
	now := time.Now()
	return &ImportSession{
		ID:         uuid.New(),
		UserID:     userID,
		EntityType: entityType,
		FileName:   fileName,
		FileSize:   fileSize,
		State:      StateCreated,
		CreatedAt:  now,
		UpdatedAt:  now,
		Preview:    make([]map[string]any, 0),
		Errors:     make([]RowError, 0),
	}
}

// UpdateState moves the session to a new state, stamping CompletedAt when
// the state is terminal.
func (s *ImportSession) UpdateState(state ImportState) {
	s.State = state
	s.UpdatedAt = time.Now()
	if state == StateCompleted || state == StateFailed || state == StateCancelled {
		now := time.Now()
		s.CompletedAt = &now
	}
}

// SetValidationResult copies the validation outcome onto the session so
// it survives for the confirm step.
func (s *ImportSession) SetValidationResult(result *ValidationResult) {
	s.TotalRows = result.TotalRows
	s.ValidRows = result.ValidRows
	s.ErrorRows = result.ErrorRows
	s.Errors = result.Errors
	s.Preview = result.Preview
	s.UpdatedAt = time.Now()
}

// IsValid reports whether validation found no bad rows.
func (s *ImportSession) IsValid() bool {
	return s.ErrorRows == 0
}

// ImportProcessor runs the validation phase of an import: parse the file,
// apply field rules, resolve references, and check database uniqueness.
type ImportProcessor struct {
	maxFileSize     int64
	maxRows         int
	maxErrors       int
	previewRows     int
	referenceLookup func(refType, value string) (bool, error)
	uniqueLookup    func(entityType, field, value string) (bool, error)
}

// ProcessorOption configures an ImportProcessor.
type ProcessorOption func(*ImportProcessor)

func WithMaxFileSize(size int64) ProcessorOption {
	return func(p *ImportProcessor) { p.maxFileSize = size }
}

func WithMaxRows(rows int) ProcessorOption {
	return func(p *ImportProcessor) { p.maxRows = rows }
}

func WithMaxErrors(errors int) ProcessorOption {
	return func(p *ImportProcessor) { p.maxErrors = errors }
}

func WithPreviewRows(rows int) ProcessorOption {
	return func(p *ImportProcessor) { p.previewRows = rows }
}

// WithReferenceLookup supplies the function that resolves reference
// columns against existing records.
func WithReferenceLookup(fn func(refType, value string) (bool, error)) ProcessorOption {
	return func(p *ImportProcessor) { p.referenceLookup = fn }
}

// WithUniqueLookup supplies the function that checks values against
// what is already stored.
func WithUniqueLookup(fn func(entityType, field, value string) (bool, error)) ProcessorOption {
	return func(p *ImportProcessor) { p.uniqueLookup = fn }
}

func NewImportProcessor(opts ...ProcessorOption) *ImportProcessor {
	p := &ImportProcessor{
		maxFileSize: 10 * 1024 * 1024,
		maxRows:     100000,
		maxErrors:   100,
		previewRows: 5,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Validate parses and validates the file without writing anything. On
// success the session lands in StateValidated; any row error sends it to
// StateFailed so a broken file cannot be confirmed for import.
func (p *ImportProcessor) Validate(ctx context.Context, session *ImportSession, reader io.Reader, rules []FieldRule) (*ValidationResult, error) {
	session.UpdateState(StateValidating)

	parser, err := NewCSVParser(reader)
	if err != nil {
		session.UpdateState(StateFailed)
		return nil, err
	}
	if err := parser.ParseHeader(); err != nil {
		session.UpdateState(StateFailed)
		return nil, err
	}

	fieldValidator := NewFieldValidator(rules, p.maxErrors)

	var refValidator *ReferenceValidator
	if p.referenceLookup != nil {
		refValidator = NewReferenceValidator(p.referenceLookup, p.maxErrors)
	}
	var uniqueValidator *UniquenessValidator
	if p.uniqueLookup != nil {
		uniqueValidator = NewUniquenessValidator(p.uniqueLookup, p.maxErrors)
	}

	result := NewValidationResult(session.ID.String())
	parseErrors := NewErrorCollection(p.maxErrors)
	totalRows, validRows, errorRows := 0, 0, 0

	for {
		select {
		case <-ctx.Done():
			session.UpdateState(StateCancelled)
			return nil, ctx.Err()
		default:
		}

		row, err := parser.ReadRow()
		if err == io.EOF {
			break
		}
		if err != nil {
			parseErrors.Add(NewRowError(parser.CurrentRow(), "", ErrCodeImportCSVParsing, err.Error()))
			errorRows++
			continue
		}
		if row.IsEmpty() {
			continue
		}

		totalRows++
		if totalRows > p.maxRows {
			parseErrors.Add(NewRowError(row.LineNumber, "", ErrCodeImportValidation,
				"exceeded maximum number of rows"))
			break
		}

		rowOK := fieldValidator.ValidateRow(row)

		for _, rule := range rules {
			if refValidator != nil && rule.Reference != "" {
				if !refValidator.ValidateReference(row.LineNumber, rule.Column, rule.Reference, row.Get(rule.Column)) {
					rowOK = false
				}
			}
			if uniqueValidator != nil && rule.Unique {
				if !uniqueValidator.ValidateUnique(row.LineNumber, rule.Column, string(session.EntityType), row.Get(rule.Column)) {
					rowOK = false
				}
			}
		}

		if !rowOK {
			errorRows++
			continue
		}

		validRows++
		if len(result.Preview) < p.previewRows {
			preview := make(map[string]any, len(row.Data))
			for k, v := range row.Data {
				preview[k] = v
			}
			result.AddPreview(preview)
		}
	}

	merged := NewErrorCollection(p.maxErrors)
	for _, ec := range []*ErrorCollection{parseErrors, fieldValidator.Errors()} {
		for _, e := range ec.Errors() {
			merged.Add(e)
		}
	}
	if refValidator != nil {
		for _, e := range refValidator.Errors().Errors() {
			merged.Add(e)
		}
	}
	if uniqueValidator != nil {
		for _, e := range uniqueValidator.Errors().Errors() {
			merged.Add(e)
		}
	}

	result.SetCounts(totalRows, validRows, errorRows)
	result.SetErrors(merged)

	session.SetValidationResult(result)
	if errorRows > 0 {
		session.UpdateState(StateFailed)
	} else {
		session.UpdateState(StateValidated)
	}

	return result, nil
}

// SessionStore persists import sessions between the validate and import
// calls.
type SessionStore interface {
	Save(session *ImportSession) error
	Get(id uuid.UUID) (*ImportSession, error)
	GetByUser(userID uuid.UUID, limit int) ([]*ImportSession, error)
	Delete(id uuid.UUID) error
}

// InMemorySessionStore keeps sessions in process memory with a TTL.
// Sessions do not survive a restart; the user just re-validates the file.
type InMemorySessionStore struct {
	sessions map[uuid.UUID]*ImportSession
	mu       sync.RWMutex
	ttl      time.Duration
	stopCh   chan struct{}
}

func NewInMemorySessionStore(ttl time.Duration) *InMemorySessionStore {
	store := &InMemorySessionStore{
		sessions: make(map[uuid.UUID]*ImportSession),
		ttl:      ttl,
		stopCh:   make(chan struct{}),
	}
	go store.cleanupLoop()
	return store
}

func (s *InMemorySessionStore) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.Cleanup()
		case <-s.stopCh:
			return
		}
	}
}

// Stop terminates the background cleanup goroutine.
func (s *InMemorySessionStore) Stop() {
	close(s.stopCh)
}

func (s *InMemorySessionStore) Save(session *ImportSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
	return nil
}

// Get returns the session, or nil when it is unknown or expired.
func (s *InMemorySessionStore) Get(id uuid.UUID) (*ImportSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok || time.Since(session.CreatedAt) > s.ttl {
		return nil, nil
	}
	return session, nil
}

func (s *InMemorySessionStore) GetByUser(userID uuid.UUID, limit int) ([]*ImportSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*ImportSession
	for _, session := range s.sessions {
		if session.UserID == userID && time.Since(session.CreatedAt) <= s.ttl {
			result = append(result, session)
			if len(result) >= limit {
				break
			}
		}
	}
	return result, nil
}

func (s *InMemorySessionStore) Delete(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// Cleanup drops sessions older than the TTL.
func (s *InMemorySessionStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, session := range s.sessions {
		if time.Since(session.CreatedAt) > s.ttl {
			delete(s.sessions, id)
		}
	}
}
