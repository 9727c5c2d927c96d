package validator

import (
	"testing"

	"bookwell/pkg/logger"
	"bookwell/pkg/model"
)

func newTestValidator() *SessionValidator {
	log := logger.New(logger.Config{
		Level:     "info",
		Format:    logger.JSON,
		AddSource: false,
		Service:   "test",
	})
	return NewSessionValidator(log)
}

func TestValidateSlot(t *testing.T) {
	v := newTestValidator()

	tests := []struct {
		name      string
		slot      model.TimeSlotTemplate
		wantError bool
	}{
		{
			name:      "valid slot",
			slot:      model.TimeSlotTemplate{DayOfWeek: 1, StartTime: "09:00", EndTime: "10:30"},
			wantError: false,
		},
		{
			name:      "full day slot",
			slot:      model.TimeSlotTemplate{DayOfWeek: 0, StartTime: "00:00", EndTime: "23:59"},
			wantError: false,
		},
		{
			name:      "end equals start",
			slot:      model.TimeSlotTemplate{DayOfWeek: 1, StartTime: "09:00", EndTime: "09:00"},
			wantError: true,
		},
		{
			name:      "end before start",
			slot:      model.TimeSlotTemplate{DayOfWeek: 1, StartTime: "18:00", EndTime: "09:00"},
			wantError: true,
		},
		{
			name:      "hour out of range",
			slot:      model.TimeSlotTemplate{DayOfWeek: 1, StartTime: "25:00", EndTime: "26:00"},
			wantError: true,
		},
		{
			name:      "minute out of range",
			slot:      model.TimeSlotTemplate{DayOfWeek: 1, StartTime: "09:60", EndTime: "10:00"},
			wantError: true,
		},
		{
			name:      "wrong separator",
			slot:      model.TimeSlotTemplate{DayOfWeek: 1, StartTime: "09-00", EndTime: "10:00"},
			wantError: true,
		},
		{
			name:      "day of week too large",
			slot:      model.TimeSlotTemplate{DayOfWeek: 7, StartTime: "09:00", EndTime: "10:00"},
			wantError: true,
		},
		{
			name:      "negative day of week",
			slot:      model.TimeSlotTemplate{DayOfWeek: -1, StartTime: "09:00", EndTime: "10:00"},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateSlot(tt.slot)
			if tt.wantError && err == nil {
				t.Errorf("expected error for slot %+v, got nil", tt.slot)
			}
			if !tt.wantError && err != nil {
				t.Errorf("unexpected error for slot %+v: %v", tt.slot, err)
			}
		})
	}
}

func TestValidate_TimetableChecked(t *testing.T) {
	v := newTestValidator()

	session := &model.ServiceSession{
		OrganizationID: "64a0000000000000000000a1",
		Name:           "Morning Flow",
		ThemeColor:     "#1a2b3c",
		Slots:          10,
		Timetable: []model.TimeSlotTemplate{
			{DayOfWeek: 1, StartTime: "09:00", EndTime: "10:00"},
			{DayOfWeek: 3, StartTime: "17:00", EndTime: "08:00"},
		},
	}

	if err := v.Validate(session); err == nil {
		t.Error("expected error for inverted template inside the timetable")
	}

	session.Timetable[1].EndTime = "18:00"
	if err := v.Validate(session); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
