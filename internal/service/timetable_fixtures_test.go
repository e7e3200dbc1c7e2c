package service

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/el-siradj/SCHOOL/internal/models"
)

const (
	dayMon      int64 = 1
	dayTue      int64 = 2
	periodP1    int64 = 10
	periodP2    int64 = 11
	classSixA   int64 = 100
	classSixB   int64 = 101
	subjectMath int64 = 1
	subjectSci  int64 = 2
	teacherT    int64 = 7
	teacherU    int64 = 8
)

// fakeTimetableStore keeps catalog, capability and slot rows in memory and enforces the two
// uniqueness constraints the migration declares.
type fakeTimetableStore struct {
	mu sync.Mutex

	classes    map[int64]*models.Class
	subjects   map[int64]*models.Subject
	teachers   map[int64]*models.Teacher
	days       []models.Day
	periods    []models.Period
	windows    map[string][]models.WindowSlot
	membership map[models.SlotKey]models.WindowMembership
	quotas     map[string][]models.LevelSubjectQuotaDetail
	eligible   map[int64][]models.EligibleTeacher

	teacherSubjects map[int64][]int64
	teacherClasses  map[int64][]int64
	availability    []models.TeacherAvailability

	slots  []models.TimetableSlot
	nextID int64

	insertErr error
	upserted  []models.LevelSubjectQuota
	calls     map[string]int
}

// newMiddleSchoolStore seeds cycle MIDDLE with {(Mon,P1),(Mon,P2),(Tue,P1)}, class 6A at level 6th,
// Math needing 2 periods and teacher T eligible for Math in 6A.
func newMiddleSchoolStore() *fakeTimetableStore {
	s := &fakeTimetableStore{
		classes: map[int64]*models.Class{
			classSixA: {ID: classSixA, Level: "6th", Name: "6A", Cycle: "middle", Active: true},
			classSixB: {ID: classSixB, Level: "6th", Name: "6B", Cycle: "middle", Active: true},
		},
		subjects: map[int64]*models.Subject{
			subjectMath: {ID: subjectMath, Name: "Math", Code: "MATH", Active: true},
			subjectSci:  {ID: subjectSci, Name: "Science", Code: "SCI", Active: true},
		},
		teachers: map[int64]*models.Teacher{
			teacherT: {ID: teacherT, FullName: "T. Smith", Active: true},
			teacherU: {ID: teacherU, FullName: "U. Doe", Active: true},
		},
		days: []models.Day{
			{ID: dayMon, Code: "MON", Label: "Monday", Order: 1, Active: true},
			{ID: dayTue, Code: "TUE", Label: "Tuesday", Order: 2, Active: true},
		},
		periods: []models.Period{
			{ID: periodP1, Code: "P1", StartTime: "08:00", EndTime: "08:45", Order: 1, Active: true},
			{ID: periodP2, Code: "P2", StartTime: "08:45", EndTime: "09:30", Order: 2, Active: true},
		},
		windows: map[string][]models.WindowSlot{
			"MIDDLE": {
				{DayID: dayMon, PeriodID: periodP1, DayOrder: 1, PeriodOrder: 1},
				{DayID: dayMon, PeriodID: periodP2, DayOrder: 1, PeriodOrder: 2},
				{DayID: dayTue, PeriodID: periodP1, DayOrder: 2, PeriodOrder: 1},
			},
		},
		quotas: map[string][]models.LevelSubjectQuotaDetail{
			"6th": {
				{LevelSubjectQuota: models.LevelSubjectQuota{Level: "6th", SubjectID: subjectMath, WeeklyPeriods: 2, Active: true}, SubjectName: "Math", SubjectCode: "MATH"},
			},
		},
		eligible: map[int64][]models.EligibleTeacher{
			classSixA: {{SubjectID: subjectMath, TeacherID: teacherT, FullName: "T. Smith"}},
			classSixB: {{SubjectID: subjectMath, TeacherID: teacherT, FullName: "T. Smith"}},
		},
		teacherSubjects: map[int64][]int64{teacherT: {subjectMath}},
		teacherClasses:  map[int64][]int64{teacherT: {classSixA, classSixB}},
		calls:           map[string]int{},
	}
	s.membership = make(map[models.SlotKey]models.WindowMembership)
	for _, cell := range s.windows["MIDDLE"] {
		s.membership[cell.Key()] = models.WindowMembership{WindowActive: true, DayActive: true, PeriodActive: true}
	}
	return s
}

func (s *fakeTimetableStore) hit(name string) {
	s.calls[name]++
}

func (s *fakeTimetableStore) seedSlot(classID, dayID, periodID, subjectID, teacherID int64) models.TimetableSlot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	slot := models.TimetableSlot{ID: s.nextID, ClassID: classID, DayID: dayID, PeriodID: periodID, SubjectID: subjectID, TeacherID: teacherID}
	s.slots = append(s.slots, slot)
	return slot
}

func (s *fakeTimetableStore) classSlots(classID int64) []models.TimetableSlot {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.TimetableSlot
	for _, slot := range s.slots {
		if slot.ClassID == classID {
			out = append(out, slot)
		}
	}
	return out
}

// catalog

func (s *fakeTimetableStore) GetClass(ctx context.Context, id int64) (*models.Class, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hit("GetClass")
	class, ok := s.classes[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	c := *class
	return &c, nil
}

func (s *fakeTimetableStore) GetSubject(ctx context.Context, id int64) (*models.Subject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	subject, ok := s.subjects[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	c := *subject
	return &c, nil
}

func (s *fakeTimetableStore) GetTeacher(ctx context.Context, id int64) (*models.Teacher, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	teacher, ok := s.teachers[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	c := *teacher
	return &c, nil
}

func (s *fakeTimetableStore) ListActiveDays(ctx context.Context) ([]models.Day, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hit("ListActiveDays")
	return append([]models.Day(nil), s.days...), nil
}

func (s *fakeTimetableStore) ListActivePeriods(ctx context.Context) ([]models.Period, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hit("ListActivePeriods")
	return append([]models.Period(nil), s.periods...), nil
}

func (s *fakeTimetableStore) ListStudyWindow(ctx context.Context, cycle string) ([]models.WindowSlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hit("ListStudyWindow")
	return append([]models.WindowSlot(nil), s.windows[models.NormalizeCycle(cycle)]...), nil
}

func (s *fakeTimetableStore) GetWindowMembership(ctx context.Context, cycle string, dayID, periodID int64) (*models.WindowMembership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.membership[models.SlotKey{DayID: dayID, PeriodID: periodID}]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &m, nil
}

func (s *fakeTimetableStore) ListLevels(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[string]struct{}{}
	var levels []string
	for _, class := range s.classes {
		if _, ok := seen[class.Level]; ok || !class.Active {
			continue
		}
		seen[class.Level] = struct{}{}
		levels = append(levels, class.Level)
	}
	sort.Strings(levels)
	return levels, nil
}

func (s *fakeTimetableStore) ListSubjectsByIDs(ctx context.Context, ids []int64) ([]models.Subject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Subject
	for _, id := range ids {
		if subject, ok := s.subjects[id]; ok {
			out = append(out, *subject)
		}
	}
	return out, nil
}

func (s *fakeTimetableStore) ListClassesByIDs(ctx context.Context, ids []int64) ([]models.Class, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Class
	for _, id := range ids {
		if class, ok := s.classes[id]; ok {
			out = append(out, *class)
		}
	}
	return out, nil
}

// quotas

func (s *fakeTimetableStore) ListByLevel(ctx context.Context, level string) ([]models.LevelSubjectQuotaDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.LevelSubjectQuotaDetail(nil), s.quotas[level]...), nil
}

func (s *fakeTimetableStore) ListSchedulableByLevel(ctx context.Context, level string) ([]models.LevelSubjectQuotaDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.LevelSubjectQuotaDetail
	for _, q := range s.quotas[level] {
		if q.Schedulable() {
			out = append(out, q)
		}
	}
	return out, nil
}

func (s *fakeTimetableStore) Upsert(ctx context.Context, exec sqlx.ExtContext, quotas []models.LevelSubjectQuota) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserted = append(s.upserted, quotas...)
	return nil
}

// capability

func (s *fakeTimetableStore) IsEligible(ctx context.Context, teacherID, subjectID, classID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.eligible[classID] {
		if e.TeacherID == teacherID && e.SubjectID == subjectID {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeTimetableStore) GetAvailability(ctx context.Context, teacherID, dayID, periodID int64) (*bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.availability {
		if row.TeacherID == teacherID && row.DayID == dayID && row.PeriodID == periodID {
			v := row.IsAvailable
			return &v, nil
		}
	}
	return nil, nil
}

func (s *fakeTimetableStore) ListEligibleTeachers(ctx context.Context, classID int64) ([]models.EligibleTeacher, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.EligibleTeacher(nil), s.eligible[classID]...), nil
}

func (s *fakeTimetableStore) ListAvailabilityForTeachers(ctx context.Context, teacherIDs []int64) ([]models.TeacherAvailability, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.TeacherAvailability
	for _, row := range s.availability {
		for _, id := range teacherIDs {
			if row.TeacherID == id {
				out = append(out, row)
			}
		}
	}
	return out, nil
}

func (s *fakeTimetableStore) ListTeacherSubjects(ctx context.Context, teacherID int64) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.teacherSubjects[teacherID]...), nil
}

func (s *fakeTimetableStore) ReplaceTeacherSubjects(ctx context.Context, exec sqlx.ExtContext, teacherID int64, subjectIDs []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teacherSubjects[teacherID] = append([]int64(nil), subjectIDs...)
	return nil
}

func (s *fakeTimetableStore) ListTeacherClasses(ctx context.Context, teacherID int64) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.teacherClasses[teacherID]...), nil
}

func (s *fakeTimetableStore) ReplaceTeacherClasses(ctx context.Context, exec sqlx.ExtContext, teacherID int64, classIDs []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teacherClasses[teacherID] = append([]int64(nil), classIDs...)
	return nil
}

func (s *fakeTimetableStore) ListTeacherAvailability(ctx context.Context, teacherID int64) ([]models.TeacherAvailability, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.TeacherAvailability
	for _, row := range s.availability {
		if row.TeacherID == teacherID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (s *fakeTimetableStore) ReplaceTeacherAvailability(ctx context.Context, exec sqlx.ExtContext, teacherID int64, rows []models.TeacherAvailability) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.availability[:0]
	for _, row := range s.availability {
		if row.TeacherID != teacherID {
			kept = append(kept, row)
		}
	}
	s.availability = append(kept, rows...)
	return nil
}

// slots

func (s *fakeTimetableStore) details(match func(models.TimetableSlot) bool) []models.TimetableSlotDetail {
	var out []models.TimetableSlotDetail
	for _, slot := range s.slots {
		if !match(slot) {
			continue
		}
		detail := models.TimetableSlotDetail{TimetableSlot: slot}
		if subject, ok := s.subjects[slot.SubjectID]; ok {
			detail.SubjectName, detail.SubjectCode = subject.Name, subject.Code
		}
		if teacher, ok := s.teachers[slot.TeacherID]; ok {
			detail.TeacherName = teacher.FullName
		}
		if class, ok := s.classes[slot.ClassID]; ok {
			detail.ClassName, detail.ClassLevel = class.Name, class.Level
		}
		out = append(out, detail)
	}
	return out
}

func (s *fakeTimetableStore) ListDetailsByClass(ctx context.Context, classID int64) ([]models.TimetableSlotDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.details(func(slot models.TimetableSlot) bool { return slot.ClassID == classID }), nil
}

func (s *fakeTimetableStore) ListDetailsByTeacher(ctx context.Context, teacherID int64) ([]models.TimetableSlotDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.details(func(slot models.TimetableSlot) bool { return slot.TeacherID == teacherID }), nil
}

func (s *fakeTimetableStore) ListClassOccupancy(ctx context.Context, classID int64) ([]models.SlotOccupancy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.SlotOccupancy
	for _, slot := range s.slots {
		if slot.ClassID == classID {
			out = append(out, models.SlotOccupancy{SlotID: slot.ID, OwnerID: classID, DayID: slot.DayID, PeriodID: slot.PeriodID, SubjectID: slot.SubjectID})
		}
	}
	return out, nil
}

func (s *fakeTimetableStore) ListTeacherOccupancy(ctx context.Context, teacherIDs []int64) ([]models.SlotOccupancy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.SlotOccupancy
	for _, slot := range s.slots {
		for _, id := range teacherIDs {
			if slot.TeacherID == id {
				out = append(out, models.SlotOccupancy{SlotID: slot.ID, OwnerID: id, DayID: slot.DayID, PeriodID: slot.PeriodID, SubjectID: slot.SubjectID})
			}
		}
	}
	return out, nil
}

func (s *fakeTimetableStore) FindClassOccupant(ctx context.Context, classID, dayID, periodID int64) (*models.SlotOccupancy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, slot := range s.slots {
		if slot.ClassID == classID && slot.DayID == dayID && slot.PeriodID == periodID {
			return &models.SlotOccupancy{SlotID: slot.ID, OwnerID: classID, DayID: dayID, PeriodID: periodID, SubjectID: slot.SubjectID}, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *fakeTimetableStore) FindTeacherOccupant(ctx context.Context, teacherID, dayID, periodID int64) (*models.SlotOccupancy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, slot := range s.slots {
		if slot.TeacherID == teacherID && slot.DayID == dayID && slot.PeriodID == periodID {
			return &models.SlotOccupancy{SlotID: slot.ID, OwnerID: teacherID, DayID: dayID, PeriodID: periodID, SubjectID: slot.SubjectID}, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *fakeTimetableStore) violation(slot models.TimetableSlot, pending []models.TimetableSlot) error {
	for _, existing := range append(append([]models.TimetableSlot(nil), s.slots...), pending...) {
		if existing.DayID != slot.DayID || existing.PeriodID != slot.PeriodID {
			continue
		}
		if existing.ClassID == slot.ClassID {
			return &pq.Error{Code: "23505", Constraint: "uq_timetable_slots_class_day_period"}
		}
		if existing.TeacherID == slot.TeacherID {
			return &pq.Error{Code: "23505", Constraint: "uq_timetable_slots_teacher_day_period"}
		}
	}
	return nil
}

func (s *fakeTimetableStore) Create(ctx context.Context, exec sqlx.ExtContext, slot *models.TimetableSlot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return s.insertErr
	}
	if err := s.violation(*slot, nil); err != nil {
		return err
	}
	s.nextID++
	slot.ID = s.nextID
	slot.CreatedAt = time.Now().UTC()
	s.slots = append(s.slots, *slot)
	return nil
}

// CreateBatch is all-or-nothing like the transaction it runs in.
func (s *fakeTimetableStore) CreateBatch(ctx context.Context, exec sqlx.ExtContext, slots []models.TimetableSlot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return s.insertErr
	}
	pending := make([]models.TimetableSlot, 0, len(slots))
	for _, slot := range slots {
		if err := s.violation(slot, pending); err != nil {
			return err
		}
		pending = append(pending, slot)
	}
	for i := range pending {
		s.nextID++
		pending[i].ID = s.nextID
	}
	s.slots = append(s.slots, pending...)
	return nil
}

func (s *fakeTimetableStore) Delete(ctx context.Context, exec sqlx.ExtContext, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, slot := range s.slots {
		if slot.ID == id {
			s.slots = append(s.slots[:i], s.slots[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (s *fakeTimetableStore) DeleteByClass(ctx context.Context, exec sqlx.ExtContext, classID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.slots[:0]
	var deleted int64
	for _, slot := range s.slots {
		if slot.ClassID == classID {
			deleted++
			continue
		}
		kept = append(kept, slot)
	}
	s.slots = kept
	return deleted, nil
}

type recordingMetrics struct {
	mu         sync.Mutex
	outcomes   []string
	placed     int
	unplaced   int
	rejections []string
}

func (m *recordingMetrics) RecordAutofill(outcome string, placed, unplaced int, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, outcome)
	m.placed += placed
	m.unplaced += unplaced
}

func (m *recordingMetrics) RecordPlacementRejection(code string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejections = append(m.rejections, code)
}

type txProviderMock struct {
	db *sqlx.DB
}

func newTxProviderMock(t *testing.T) (*txProviderMock, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlx.NewDb(db, "sqlmock")}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}
