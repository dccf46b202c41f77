package categories

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/partstrack-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/partstrack-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

// DateLayout is the canonical layout for date context values.
const DateLayout = "2006-01-02"

var acceptedDateLayouts = []string{DateLayout, time.RFC3339, time.RFC3339Nano, "02-01-2006", "02/01/2006"}

type ViolationCode string

const (
	CodeMissingRequiredField ViolationCode = "MISSING_REQUIRED_FIELD"
	CodeInvalidFieldType     ViolationCode = "INVALID_FIELD_TYPE"
	CodeUnknownCategory      ViolationCode = "UNKNOWN_CATEGORY"
)

// Violation is one field-level problem with a context payload.
type Violation struct {
	Field   string        `json:"field"`
	Code    ViolationCode `json:"code"`
	Message string        `json:"message"`
}

// ValidationError lists every violation found in one payload.
type ValidationError struct {
	Category   enums.Category
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, fmt.Sprintf("%s: %s", v.Field, v.Code))
	}
	return fmt.Sprintf("invalid %s context (%s)", e.Category, strings.Join(parts, ", "))
}

// ViolationsOf extracts the field violations carried by err, if any.
func ViolationsOf(err error) []Violation {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Violations
	}
	return nil
}

// Context is a normalized, category specific payload.
type Context map[string]any

// String returns the string value of name, or "" when absent.
func (c Context) String(name string) string {
	if s, ok := c[name].(string); ok {
		return s
	}
	return ""
}

// Number returns the numeric value of name. Contexts decoded from storage
// carry json.Number rather than float64.
func (c Context) Number(name string) (float64, bool) {
	switch v := c[name].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case decimal.Decimal:
		return v.InexactFloat64(), true
	default:
		return 0, false
	}
}

// Bool returns the boolean value of name, false when absent.
func (c Context) Bool(name string) bool {
	b, _ := c[name].(bool)
	return b
}

// Validate checks raw against the category contract and returns the
// normalized context. Every violation is reported, not only the first.
// Keys outside the contract are dropped.
func Validate(category enums.Category, raw map[string]any) (Context, error) {
	return normalize(category, raw, true)
}

// Normalize type-checks and normalizes raw like Validate but does not enforce
// required fields. Serial creation and import use it because their sources
// cannot supply category details such as SPU ids.
func Normalize(category enums.Category, raw map[string]any) (Context, error) {
	return normalize(category, raw, false)
}

func normalize(category enums.Category, raw map[string]any, strict bool) (Context, error) {
	schema, ok := SchemaFor(category)
	if !ok {
		return nil, wrap(&ValidationError{
			Category: category,
			Violations: []Violation{{
				Field:   "category",
				Code:    CodeUnknownCategory,
				Message: fmt.Sprintf("unknown category %q", category),
			}},
		})
	}

	out := Context{}
	var violations []Violation
	required := map[string]bool{}
	for _, name := range schema.Required {
		required[name] = true
	}

	for _, name := range schema.fields() {
		value, present := raw[name]
		if !present || isBlank(value) {
			if strict && required[name] {
				violations = append(violations, Violation{
					Field:   name,
					Code:    CodeMissingRequiredField,
					Message: fmt.Sprintf("%s is required for %s", name, category),
				})
			}
			continue
		}
		normalized, err := coerce(fieldSpecs[name], value)
		if err != nil {
			violations = append(violations, Violation{
				Field:   name,
				Code:    CodeInvalidFieldType,
				Message: err.Error(),
			})
			continue
		}
		out[name] = normalized
	}

	if len(violations) > 0 {
		return nil, wrap(&ValidationError{Category: category, Violations: violations})
	}

	applyDerived(category, schema, out)
	return out, nil
}

func wrap(verr *ValidationError) error {
	return pkgerrors.Wrap(pkgerrors.CodeValidation, verr, "invalid category context").WithDetails(map[string]any{
		"category":   verr.Category,
		"violations": verr.Violations,
	})
}

func applyDerived(category enums.Category, schema Schema, out Context) {
	if category.IsSPU() {
		out[FieldSPUStatus] = string(enums.SPUStatusFor(category))
	}
	if category == enums.CategoryReceivedForOthers {
		if _, ok := out[FieldTransferStatus]; !ok {
			out[FieldTransferStatus] = string(enums.TransferStatusPending)
		}
	}
	if category == enums.CategoryOG {
		out[FieldIsChargeable] = true
		if cash, ok := out[FieldCashAmount]; ok {
			out[FieldChargeAmount] = cash
		}
	}

	if !schema.Allows(FieldIsChargeable) {
		return
	}
	if out.Bool(FieldIsChargeable) {
		return
	}
	out[FieldIsChargeable] = false
	for _, name := range chargeableDependents {
		out[name] = nil
	}
}

func isBlank(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	default:
		return false
	}
}

func coerce(spec FieldSpec, value any) (any, error) {
	switch spec.Type {
	case FieldString:
		return coerceString(value)
	case FieldNumber:
		return coerceNumber(value)
	case FieldDate:
		return coerceDate(value)
	case FieldBool:
		return coerceBool(value)
	case FieldEnum:
		return coerceEnum(spec, value)
	default:
		return nil, fmt.Errorf("unsupported field type %q", spec.Type)
	}
}

func coerceString(value any) (any, error) {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v), nil
	case float64:
		if v == math.Trunc(v) {
			return strconv.FormatInt(int64(v), 10), nil
		}
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case json.Number:
		return v.String(), nil
	default:
		return nil, fmt.Errorf("expected text, got %T", value)
	}
}

func coerceNumber(value any) (any, error) {
	var f float64
	switch v := value.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return nil, fmt.Errorf("expected a number, got %q", v.String())
		}
		f = parsed
	case decimal.Decimal:
		f = v.InexactFloat64()
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, fmt.Errorf("expected a number, got %q", v)
		}
		f = parsed
	default:
		return nil, fmt.Errorf("expected a number, got %T", value)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("expected a finite number")
	}
	if f < 0 {
		return nil, fmt.Errorf("must not be negative")
	}
	return f, nil
}

func coerceDate(value any) (any, error) {
	switch v := value.(type) {
	case time.Time:
		return v.Format(DateLayout), nil
	case *time.Time:
		if v == nil {
			return nil, fmt.Errorf("expected a date")
		}
		return v.Format(DateLayout), nil
	case string:
		parsed, err := ParseDate(v)
		if err != nil {
			return nil, err
		}
		return parsed.Format(DateLayout), nil
	default:
		return nil, fmt.Errorf("expected a date, got %T", value)
	}
}

// ParseDate accepts YYYY-MM-DD, RFC3339 and DD-MM-YYYY / DD/MM/YYYY strings.
func ParseDate(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	for _, layout := range acceptedDateLayouts {
		if parsed, err := time.Parse(layout, trimmed); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("expected a date (YYYY-MM-DD), got %q", value)
}

func coerceBool(value any) (any, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("expected true or false, got %q", v)
		}
		return parsed, nil
	default:
		return nil, fmt.Errorf("expected true or false, got %T", value)
	}
}

func coerceEnum(spec FieldSpec, value any) (any, error) {
	s, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("expected one of %s, got %T", strings.Join(spec.Values, ", "), value)
	}
	normalized := strings.ToUpper(strings.TrimSpace(s))
	for _, allowed := range spec.Values {
		if allowed == normalized {
			return normalized, nil
		}
	}
	return nil, fmt.Errorf("expected one of %s, got %q", strings.Join(spec.Values, ", "), s)
}
