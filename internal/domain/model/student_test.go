package model

import "testing"

func sptr(s string) *string  { return &s }
func fptr(v float64) *float64 { return &v }

// TestFullName — ФИО собирается из непустых частей.
func TestFullName(t *testing.T) {
	cases := []struct {
		name    string
		student Student
		want    string
	}{
		{
			"все части",
			Student{LastName: sptr("Иванов"), FirstName: sptr("Иван"), Patronymic: sptr("Иванович")},
			"Иванов Иван Иванович",
		},
		{
			"без отчества",
			Student{LastName: sptr("Иванов"), FirstName: sptr("Иван")},
			"Иванов Иван",
		},
		{
			"пустая запись",
			Student{},
			"",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.student.FullName(); got != tc.want {
				t.Errorf("FullName = %q, ожидалось %q", got, tc.want)
			}
		})
	}
}

// TestScore — NULL-балл трактуется как 0.
func TestScore(t *testing.T) {
	if got := (&Student{}).Score(); got != 0 {
		t.Errorf("Score без балла = %v", got)
	}
	if got := (&Student{StudyScore: fptr(87.5)}).Score(); got != 87.5 {
		t.Errorf("Score = %v", got)
	}
}

// TestDebts — NULL трактуется как отсутствие долгов.
func TestDebts(t *testing.T) {
	if got := (&Student{}).Debts(); got != 0 {
		t.Errorf("Debts без значения = %d", got)
	}
	d := 2
	if got := (&Student{DebtCount: &d}).Debts(); got != 2 {
		t.Errorf("Debts = %d", got)
	}
}

// TestSchool — направление, затем факультет, затем заглушка.
func TestSchool(t *testing.T) {
	s := Student{DirectionName: sptr("Программная инженерия"), Faculty: sptr("ИШИТР")}
	if got := s.School(); got != "Программная инженерия" {
		t.Errorf("School = %q", got)
	}

	s = Student{Faculty: sptr("ИШИТР")}
	if got := s.School(); got != "ИШИТР" {
		t.Errorf("School = %q", got)
	}

	if got := (&Student{}).School(); got != "Не указано" {
		t.Errorf("School пустой записи = %q", got)
	}
}
