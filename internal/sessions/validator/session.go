package validator

import (
	"errors"
	"fmt"
	"strings"

	"bookwell/pkg/logger"
	"bookwell/pkg/model"
	"bookwell/pkg/timetable"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

type SessionValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewSessionValidator(log *logger.Logger) *SessionValidator {
	v := validator.New()

	if err := v.RegisterValidation("hhmm", validateHHMM); err != nil {
		log.Fatal("Failed to register 'hhmm' validator", "error", err)
	}

	return &SessionValidator{
		validate: v,
		logger:   log,
	}
}

func validateHHMM(fl validator.FieldLevel) bool {
	_, _, err := timetable.ParseHHMM(fl.Field().String())
	return err == nil
}

func (v *SessionValidator) Validate(session *model.ServiceSession) error {
	if err := v.validate.Struct(session); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return translateValidationErrors(validationErrs)
		}
		return err
	}

	for _, slot := range session.Timetable {
		if err := v.validateSlotOrder(slot); err != nil {
			return err
		}
	}
	return nil
}

func (v *SessionValidator) ValidateUpdate(update *model.ServiceSessionUpdate) error {
	if err := v.validate.Struct(update); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func (v *SessionValidator) ValidateSlot(slot model.TimeSlotTemplate) error {
	if err := v.validate.Struct(slot); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return translateValidationErrors(validationErrs)
		}
		return err
	}
	return v.validateSlotOrder(slot)
}

// validateSlotOrder enforces end strictly after start within the same day.
// Overnight templates are not supported.
func (v *SessionValidator) validateSlotOrder(slot model.TimeSlotTemplate) error {
	sh, sm, err := timetable.ParseHHMM(slot.StartTime)
	if err != nil {
		return ValidationErrors{{Field: "start_time", Message: "must be in HH:mm 24-hour format"}}
	}
	eh, em, err := timetable.ParseHHMM(slot.EndTime)
	if err != nil {
		return ValidationErrors{{Field: "end_time", Message: "must be in HH:mm 24-hour format"}}
	}
	if eh*60+em <= sh*60+sm {
		return ValidationErrors{{Field: "end_time", Message: "must be after start_time"}}
	}
	return nil
}

func translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "hexcolor":
			message = fmt.Sprintf("%s must be a hex color like #1a2b3c", err.Field())
		case "hhmm":
			message = fmt.Sprintf("%s must be in HH:mm 24-hour format", err.Field())
		case "mongodb":
			message = fmt.Sprintf("%s must be a valid object ID", err.Field())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
