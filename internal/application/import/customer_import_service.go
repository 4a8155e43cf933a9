package importapp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/invoicely/backend/internal/domain/identity"
	"github.com/invoicely/backend/internal/domain/partner"
	"github.com/invoicely/backend/internal/domain/shared"
	csvimport "github.com/invoicely/backend/internal/infrastructure/import"
)

// ConflictMode defines how to handle conflicts during import
type ConflictMode string

const (
	// ConflictModeSkip skips rows that conflict with existing data
	ConflictModeSkip ConflictMode = "skip"
	// ConflictModeUpdate updates existing records with new data
	ConflictModeUpdate ConflictMode = "update"
	// ConflictModeFail fails the import if any conflicts are found
	ConflictModeFail ConflictMode = "fail"
)

// IsValid checks if the conflict mode is valid
func (c ConflictMode) IsValid() bool {
	switch c {
	case ConflictModeSkip, ConflictModeUpdate, ConflictModeFail:
		return true
	}
	return false
}

// CustomerImportRow represents a row from the customer CSV import
type CustomerImportRow struct {
	Name        string `csv:"name"`
	CompanyName string `csv:"company_name"`
	Email       string `csv:"email"`
	Phone       string `csv:"phone"`
	Address     string `csv:"address"`
}

// CustomerImportResult represents the result of a customer import operation
type CustomerImportResult struct {
	TotalRows    int                  `json:"total_rows"`
	ImportedRows int                  `json:"imported_rows"`
	UpdatedRows  int                  `json:"updated_rows"`
	SkippedRows  int                  `json:"skipped_rows"`
	ErrorRows    int                  `json:"error_rows"`
	Errors       []csvimport.RowError `json:"errors,omitempty"`
	IsTruncated  bool                 `json:"is_truncated,omitempty"`
	TotalErrors  int                  `json:"total_errors,omitempty"`
}

// CustomerImportService handles customer bulk import operations
type CustomerImportService struct {
	customerRepo   partner.CustomerRepository
	authz          *identity.Authorizer
	eventPublisher shared.EventPublisher
}

// NewCustomerImportService creates a new CustomerImportService
func NewCustomerImportService(customerRepo partner.CustomerRepository) *CustomerImportService {
	return &CustomerImportService{
		customerRepo: customerRepo,
		authz:        identity.NewAuthorizer(),
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *CustomerImportService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// GetValidationRules returns the validation rules for customer import
func (s *CustomerImportService) GetValidationRules() []csvimport.FieldRule {
	return []csvimport.FieldRule{
		csvimport.Field("name").Required().String().MinLength(1).MaxLength(200).Build(),
		csvimport.Field("company_name").String().MaxLength(200).Build(),
		csvimport.Field("email").Required().Email().Unique().Build(),
		csvimport.Field("phone").String().MaxLength(50).Build(),
		csvimport.Field("address").String().MaxLength(500).Build(),
	}
}

// LookupUnique checks if a value already exists for a given field
func (s *CustomerImportService) LookupUnique(ctx context.Context, field, value string) (bool, error) {
	if value == "" {
		return false, nil // empty is not a duplicate
	}
	switch field {
	case "email":
		return s.customerRepo.ExistsByEmail(ctx, value)
	default:
		return false, nil
	}
}

// Import imports customers from validated rows. Customers created by a
// regular user are linked to that user so they can manage the records
// they imported.
func (s *CustomerImportService) Import(
	ctx context.Context,
	p identity.Principal,
	session *csvimport.ImportSession,
	validRows []*csvimport.Row,
	conflictMode ConflictMode,
) (*CustomerImportResult, error) {
	if !s.authz.CanCreateCustomer(p) {
		return nil, shared.ErrForbidden
	}

	if session.State != csvimport.StateValidated {
		return nil, shared.NewDomainError("INVALID_STATE", "Import session must be in validated state")
	}

	if !session.IsValid() {
		return nil, shared.NewDomainError("VALIDATION_ERRORS", "Cannot import session with validation errors")
	}

	session.UpdateState(csvimport.StateImporting)

	result := &CustomerImportResult{
		TotalRows: len(validRows),
	}
	errs := csvimport.NewErrorCollection(100)

	for _, row := range validRows {
		select {
		case <-ctx.Done():
			session.UpdateState(csvimport.StateCancelled)
			return nil, ctx.Err()
		default:
		}

		if err := s.importRow(ctx, p, row, conflictMode, result, errs); err != nil {
			// Critical error - stop import
			session.UpdateState(csvimport.StateFailed)
			return nil, err
		}
	}

	result.Errors = errs.Errors()
	result.IsTruncated = errs.IsTruncated()
	result.TotalErrors = errs.TotalCount()

	if result.ErrorRows > 0 {
		session.UpdateState(csvimport.StateFailed)
	} else {
		session.UpdateState(csvimport.StateCompleted)
	}

	return result, nil
}

// importRow imports a single customer row
func (s *CustomerImportService) importRow(
	ctx context.Context,
	p identity.Principal,
	row *csvimport.Row,
	conflictMode ConflictMode,
	result *CustomerImportResult,
	errs *csvimport.ErrorCollection,
) error {
	name := strings.TrimSpace(row.Get("name"))
	companyName := strings.TrimSpace(row.Get("company_name"))
	email := strings.TrimSpace(row.Get("email"))
	phone := strings.TrimSpace(row.Get("phone"))
	address := strings.TrimSpace(row.Get("address"))

	email = strings.ToLower(email)

	existing, err := s.customerRepo.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return fmt.Errorf("failed to check existing customer: %w", err)
	}

	if existing != nil {
		switch conflictMode {
		case ConflictModeSkip:
			result.SkippedRows++
			return nil
		case ConflictModeFail:
			errs.Add(csvimport.NewRowErrorWithValue(row.LineNumber, "email", csvimport.ErrCodeImportDuplicateInDB,
				fmt.Sprintf("customer with email '%s' already exists", email), email))
			result.ErrorRows++
			return nil
		case ConflictModeUpdate:
			return s.updateExistingCustomer(ctx, existing, row, name, companyName, email, phone, address, result, errs)
		}
	}

	customer, err := partner.NewCustomer(name, companyName, email, phone, address)
	if err != nil {
		errs.Add(csvimport.NewRowError(row.LineNumber, "", csvimport.ErrCodeImportValidation, err.Error()))
		result.ErrorRows++
		return nil
	}

	// The importing user manages the customers they imported.
	if p.Role == identity.RoleUser {
		if err := customer.LinkUser(p.ID); err != nil {
			errs.Add(csvimport.NewRowError(row.LineNumber, "", csvimport.ErrCodeImportValidation, err.Error()))
			result.ErrorRows++
			return nil
		}
	}

	if err := s.customerRepo.Save(ctx, customer); err != nil {
		errs.Add(csvimport.NewRowError(row.LineNumber, "", csvimport.ErrCodeImportValidation, "failed to save customer: "+err.Error()))
		result.ErrorRows++
		return nil
	}

	s.publishEvents(ctx, customer)

	result.ImportedRows++
	return nil
}

// updateExistingCustomer updates an existing customer with import data
func (s *CustomerImportService) updateExistingCustomer(
	ctx context.Context,
	customer *partner.Customer,
	row *csvimport.Row,
	name, companyName, email, phone, address string,
	result *CustomerImportResult,
	errs *csvimport.ErrorCollection,
) error {
	if companyName == "" {
		companyName = customer.CompanyName
	}
	if phone == "" {
		phone = customer.Phone
	}
	if address == "" {
		address = customer.Address
	}

	if err := customer.Update(name, companyName, email, phone, address); err != nil {
		errs.Add(csvimport.NewRowError(row.LineNumber, "", csvimport.ErrCodeImportValidation, err.Error()))
		result.ErrorRows++
		return nil
	}

	if err := s.customerRepo.SaveWithLock(ctx, customer); err != nil {
		errs.Add(csvimport.NewRowError(row.LineNumber, "", csvimport.ErrCodeImportValidation, "failed to save customer: "+err.Error()))
		result.ErrorRows++
		return nil
	}

	s.publishEvents(ctx, customer)

	result.UpdatedRows++
	return nil
}

func (s *CustomerImportService) publishEvents(ctx context.Context, customer *partner.Customer) {
	if s.eventPublisher == nil {
		return
	}
	_ = s.eventPublisher.Publish(ctx, customer.GetDomainEvents()...)
	customer.ClearDomainEvents()
}

// ValidateWithWarnings returns validation warnings (non-blocking issues)
func (s *CustomerImportService) ValidateWithWarnings(row *csvimport.Row) []string {
	var warnings []string

	email := row.Get("email")
	if email != "" {
		lowerEmail := strings.ToLower(email)
		if strings.Contains(lowerEmail, "test") || strings.Contains(lowerEmail, "example") {
			warnings = append(warnings, fmt.Sprintf("row %d: email appears to be a test address", row.LineNumber))
		}
	}

	if row.Get("phone") == "" && row.Get("address") == "" {
		warnings = append(warnings, fmt.Sprintf("row %d: no phone or address provided", row.LineNumber))
	}

	return warnings
}
