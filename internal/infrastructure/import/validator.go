package csvimport

import (
	"fmt"
	"net/mail"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FieldType is the declared type of an import column.
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeInt     FieldType = "int"
	TypeDecimal FieldType = "decimal"
	TypeDate    FieldType = "date"
	TypeEmail   FieldType = "email"
	TypeBool    FieldType = "bool"
	TypeUUID    FieldType = "uuid"
)

// FieldRule is the full validation contract for one column. Rules are
// declared by the import service for its entity and applied per row.
type FieldRule struct {
	Column      string
	Type        FieldType
	Required    bool
	MinLength   int
	MaxLength   int
	MinValue    *decimal.Decimal
	MaxValue    *decimal.Decimal
	Pattern     *regexp.Regexp
	PatternDesc string
	DateFormat  string
	Unique      bool
	Reference   string
	CustomFunc  func(value string) error
}

// FieldRuleBuilder assembles a FieldRule fluently.
type FieldRuleBuilder struct {
	rule FieldRule
}

// Field starts a rule for the named column. The type defaults to string
// and dates default to ISO format.
func Field(column string) *FieldRuleBuilder {
	return &FieldRuleBuilder{rule: FieldRule{
		Column:     column,
		Type:       TypeString,
		DateFormat: "2006-01-02",
	}}
}

func (b *FieldRuleBuilder) Required() *FieldRuleBuilder {
	b.rule.Required = true
	return b
}

func (b *FieldRuleBuilder) String() *FieldRuleBuilder {
	b.rule.Type = TypeString
	return b
}

func (b *FieldRuleBuilder) Int() *FieldRuleBuilder {
	b.rule.Type = TypeInt
	return b
}

func (b *FieldRuleBuilder) Decimal() *FieldRuleBuilder {
	b.rule.Type = TypeDecimal
	return b
}

func (b *FieldRuleBuilder) Date() *FieldRuleBuilder {
	b.rule.Type = TypeDate
	return b
}

func (b *FieldRuleBuilder) DateFormat(format string) *FieldRuleBuilder {
	b.rule.DateFormat = format
	return b
}

func (b *FieldRuleBuilder) Email() *FieldRuleBuilder {
	b.rule.Type = TypeEmail
	return b
}

func (b *FieldRuleBuilder) Bool() *FieldRuleBuilder {
	b.rule.Type = TypeBool
	return b
}

func (b *FieldRuleBuilder) UUID() *FieldRuleBuilder {
	b.rule.Type = TypeUUID
	return b
}

func (b *FieldRuleBuilder) MinLength(n int) *FieldRuleBuilder {
	b.rule.MinLength = n
	return b
}

func (b *FieldRuleBuilder) MaxLength(n int) *FieldRuleBuilder {
	b.rule.MaxLength = n
	return b
}

func (b *FieldRuleBuilder) Length(min, max int) *FieldRuleBuilder {
	b.rule.MinLength = min
	b.rule.MaxLength = max
	return b
}

func (b *FieldRuleBuilder) MinValue(v decimal.Decimal) *FieldRuleBuilder {
	b.rule.MinValue = &v
	return b
}

func (b *FieldRuleBuilder) MaxValue(v decimal.Decimal) *FieldRuleBuilder {
	b.rule.MaxValue = &v
	return b
}

func (b *FieldRuleBuilder) Range(min, max decimal.Decimal) *FieldRuleBuilder {
	b.rule.MinValue = &min
	b.rule.MaxValue = &max
	return b
}

// Pattern compiles the regex up front; invalid patterns panic at rule
// declaration time, not per row.
func (b *FieldRuleBuilder) Pattern(pattern, description string) *FieldRuleBuilder {
	b.rule.Pattern = regexp.MustCompile(pattern)
	b.rule.PatternDesc = description
	return b
}

// Unique requires the value to appear at most once in the file. Database
// uniqueness is a separate pass, see UniquenessValidator.
func (b *FieldRuleBuilder) Unique() *FieldRuleBuilder {
	b.rule.Unique = true
	return b
}

// Reference declares the value as a lookup key into another entity,
// resolved through the ReferenceValidator.
func (b *FieldRuleBuilder) Reference(refType string) *FieldRuleBuilder {
	b.rule.Reference = refType
	return b
}

func (b *FieldRuleBuilder) Custom(fn func(value string) error) *FieldRuleBuilder {
	b.rule.CustomFunc = fn
	return b
}

func (b *FieldRuleBuilder) Build() FieldRule {
	return b.rule
}

// FieldValidator applies a rule set row by row, tracking in-file
// duplicates for columns marked Unique.
type FieldValidator struct {
	rules  map[string]FieldRule
	seen   map[string]map[string]int
	errors *ErrorCollection
}

func NewFieldValidator(rules []FieldRule, maxErrors int) *FieldValidator {
	byColumn := make(map[string]FieldRule, len(rules))
	for _, r := range rules {
		byColumn[r.Column] = r
	}
	return &FieldValidator{
		rules:  byColumn,
		seen:   make(map[string]map[string]int),
		errors: NewErrorCollection(maxErrors),
	}
}

// ValidateRow checks every rule against the row and reports whether the
// row is clean. All failing columns are recorded, not just the first.
func (v *FieldValidator) ValidateRow(row *Row) bool {
	clean := true
	for column, rule := range v.rules {
		if !v.validateField(row, column, rule) {
			clean = false
		}
	}
	return clean
}

func (v *FieldValidator) validateField(row *Row, column string, rule FieldRule) bool {
	value := row.Get(column)

	if value == "" {
		if rule.Required {
			v.errors.AddRequiredError(row.LineNumber, column)
			return false
		}
		return true
	}

	if err := checkType(value, rule.Type, rule.DateFormat); err != nil {
		v.errors.AddTypeError(row.LineNumber, column, string(rule.Type), value)
		return false
	}

	ok := true

	if (rule.MinLength > 0 && len(value) < rule.MinLength) ||
		(rule.MaxLength > 0 && len(value) > rule.MaxLength) {
		v.errors.AddLengthError(row.LineNumber, column, rule.MinLength, rule.MaxLength)
		ok = false
	}

	if rule.Type == TypeInt || rule.Type == TypeDecimal {
		if !checkRange(value, rule.MinValue, rule.MaxValue) {
			if rule.MinValue != nil && rule.MaxValue != nil {
				lo, _ := rule.MinValue.Float64()
				hi, _ := rule.MaxValue.Float64()
				v.errors.AddRangeError(row.LineNumber, column, lo, hi)
			}
			ok = false
		}
	}

	if rule.Pattern != nil && !rule.Pattern.MatchString(value) {
		v.errors.AddPatternError(row.LineNumber, column, rule.PatternDesc, value)
		ok = false
	}

	if rule.Unique && !v.checkUniqueInFile(row.LineNumber, column, value) {
		ok = false
	}

	if rule.CustomFunc != nil {
		if err := rule.CustomFunc(value); err != nil {
			v.errors.AddValidationError(row.LineNumber, column, ErrCodeImportValidation, err.Error())
			ok = false
		}
	}

	return ok
}

func (v *FieldValidator) checkUniqueInFile(line int, column, value string) bool {
	if v.seen[column] == nil {
		v.seen[column] = make(map[string]int)
	}
	if first, dup := v.seen[column][value]; dup {
		v.errors.Add(NewRowErrorWithValue(line, column, ErrCodeImportDuplicateInFile,
			fmt.Sprintf("duplicate value '%s' (first seen in row %d)", value, first), value))
		return false
	}
	v.seen[column][value] = line
	return true
}

var boolValues = map[string]struct{}{
	"true": {}, "false": {}, "1": {}, "0": {},
	"yes": {}, "no": {}, "y": {}, "n": {},
}

func checkType(value string, fieldType FieldType, dateFormat string) error {
	switch fieldType {
	case TypeInt:
		_, err := strconv.ParseInt(value, 10, 64)
		return err
	case TypeDecimal:
		_, err := decimal.NewFromString(value)
		return err
	case TypeDate:
		_, err := time.Parse(dateFormat, value)
		return err
	case TypeEmail:
		_, err := mail.ParseAddress(value)
		return err
	case TypeBool:
		if _, ok := boolValues[strings.ToLower(value)]; !ok {
			return fmt.Errorf("invalid boolean value: %s", value)
		}
		return nil
	case TypeUUID:
		_, err := uuid.Parse(value)
		return err
	default:
		return nil
	}
}

func checkRange(value string, min, max *decimal.Decimal) bool {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return false
	}
	if min != nil && d.LessThan(*min) {
		return false
	}
	if max != nil && d.GreaterThan(*max) {
		return false
	}
	return true
}

// Errors returns the accumulated row errors.
func (v *FieldValidator) Errors() *ErrorCollection {
	return v.errors
}

// Reset clears duplicate tracking and errors so the validator can run
// over another file.
func (v *FieldValidator) Reset() {
	v.seen = make(map[string]map[string]int)
	v.errors.Clear()
}

// ReferenceValidator resolves reference columns against existing records,
// caching lookups so a file with one customer repeated a thousand times
// costs one query.
type ReferenceValidator struct {
	cache  map[string]map[string]bool
	lookup func(refType, value string) (bool, error)
	errors *ErrorCollection
}

func NewReferenceValidator(lookup func(refType, value string) (bool, error), maxErrors int) *ReferenceValidator {
	return &ReferenceValidator{
		cache:  make(map[string]map[string]bool),
		lookup: lookup,
		errors: NewErrorCollection(maxErrors),
	}
}

// PreloadReferences warms the cache for a batch of values.
func (v *ReferenceValidator) PreloadReferences(refType string, values []string) error {
	if v.cache[refType] == nil {
		v.cache[refType] = make(map[string]bool)
	}
	for _, value := range values {
		exists, err := v.lookup(refType, value)
		if err != nil {
			return err
		}
		v.cache[refType][value] = exists
	}
	return nil
}

// ValidateReference reports whether the value resolves to an existing
// record. Blank values pass; Required is the field validator's job.
func (v *ReferenceValidator) ValidateReference(row int, column, refType, value string) bool {
	if value == "" {
		return true
	}

	exists, cached := false, false
	if byValue := v.cache[refType]; byValue != nil {
		if e, hit := byValue[value]; hit {
			exists, cached = e, true
		}
	}

	if !cached {
		var err error
		exists, err = v.lookup(refType, value)
		if err != nil {
			v.errors.AddValidationError(row, column, ErrCodeImportValidation,
				fmt.Sprintf("error checking %s reference: %v", refType, err))
			return false
		}
		if v.cache[refType] == nil {
			v.cache[refType] = make(map[string]bool)
		}
		v.cache[refType][value] = exists
	}

	if !exists {
		v.errors.AddReferenceError(row, column, value, refType)
		return false
	}
	return true
}

func (v *ReferenceValidator) Errors() *ErrorCollection {
	return v.errors
}

func (v *ReferenceValidator) Reset() {
	v.cache = make(map[string]map[string]bool)
	v.errors.Clear()
}

// UniquenessValidator checks values against what is already stored, for
// columns that must not collide with existing records.
type UniquenessValidator struct {
	lookup func(entityType, field, value string) (bool, error)
	errors *ErrorCollection
}

func NewUniquenessValidator(lookup func(entityType, field, value string) (bool, error), maxErrors int) *UniquenessValidator {
	return &UniquenessValidator{
		lookup: lookup,
		errors: NewErrorCollection(maxErrors),
	}
}

// ValidateUnique reports whether the value is absent from storage.
func (v *UniquenessValidator) ValidateUnique(row int, column, entityType, value string) bool {
	if value == "" {
		return true
	}

	exists, err := v.lookup(entityType, column, value)
	if err != nil {
		v.errors.AddValidationError(row, column, ErrCodeImportValidation,
			fmt.Sprintf("error checking uniqueness: %v", err))
		return false
	}
	if exists {
		v.errors.AddDuplicateError(row, column, value, true)
		return false
	}
	return true
}

func (v *UniquenessValidator) Errors() *ErrorCollection {
	return v.errors
}
