package scheduler

import "testing"

func TestScheduleDailyValidTime(t *testing.T) {
	s, err := New()
	if err != nil {
		t.Fatalf("Failed to create scheduler: %v", err)
	}
	defer s.Shutdown()

	if err := s.ScheduleDaily("09:00", func() {}); err != nil {
		t.Fatalf("Failed to schedule: %v", err)
	}
}

func TestScheduleDailyInvalidTime(t *testing.T) {
	s, err := New()
	if err != nil {
		t.Fatalf("Failed to create scheduler: %v", err)
	}
	defer s.Shutdown()

	for _, at := range []string{"", "9am", "25:00", "12:61"} {
		if err := s.ScheduleDaily(at, func() {}); err == nil {
			t.Errorf("Expected an error for schedule time %q", at)
		}
	}
}
