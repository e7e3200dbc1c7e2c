package service

import (
	"sort"

	"github.com/el-siradj/SCHOOL/internal/dto"
	"github.com/el-siradj/SCHOOL/internal/models"
)

const (
	autofillBaseScore       = 1000.0
	autofillDayLoadPenalty  = 10.0
	autofillSameDayPenalty  = 60.0
	autofillPeriodOrderCost = 0.2
)

// subjectDemand is the undischarged weekly quota of one subject and the teachers able to take it.
type subjectDemand struct {
	SubjectID int64
	Remaining int
	Teachers  []int64
}

// autofillOptions mirrors the caller-facing switches of one run.
type autofillOptions struct {
	AvoidSameSubjectPerDay bool
	MaxSameSubjectPerDay   int
}

// autofillState is the mutable accumulator owned by a single run: occupancy, per-day load,
// per-day subject counts and the pending placements. Nothing in it outlives the call.
type autofillState struct {
	classID    int64
	window     []models.WindowSlot
	mirror     *occupancyMirror
	dayLoad    map[int64]int
	daySubject map[int64]map[int64]int
	remaining  map[int64]int
	pending    []models.Placement
}

func newAutofillState(classID int64, window []models.WindowSlot, mirror *occupancyMirror, classSlots []models.SlotOccupancy) *autofillState {
	st := &autofillState{
		classID:    classID,
		window:     window,
		mirror:     mirror,
		dayLoad:    make(map[int64]int),
		daySubject: make(map[int64]map[int64]int),
		remaining:  make(map[int64]int),
	}
	for _, slot := range classSlots {
		st.count(slot.DayID, slot.SubjectID)
	}
	return st
}

func (st *autofillState) count(dayID, subjectID int64) {
	st.dayLoad[dayID]++
	perDay, ok := st.daySubject[dayID]
	if !ok {
		perDay = make(map[int64]int)
		st.daySubject[dayID] = perDay
	}
	perDay[subjectID]++
}

func (st *autofillState) place(p models.Placement) {
	st.mirror.occupy(p.TeacherID, p.Key())
	st.count(p.DayID, p.SubjectID)
	st.remaining[p.SubjectID]--
	st.pending = append(st.pending, p)
}

// classFull reports whether every window cell already holds a lesson for the class.
// Slots left on cells outside the current window do not count.
func (st *autofillState) classFull() bool {
	if len(st.window) == 0 {
		return false
	}
	for _, cell := range st.window {
		if st.mirror.classFree(cell.Key()) {
			return false
		}
	}
	return true
}

func score(dayLoad, sameSubject, periodOrder int) float64 {
	return autofillBaseScore -
		autofillDayLoadPenalty*float64(dayLoad) -
		autofillSameDayPenalty*float64(sameSubject) -
		autofillPeriodOrderCost*float64(periodOrder)
}

// bestCandidate scans window × teachers in order and keeps the first strictly highest score.
func (st *autofillState) bestCandidate(demand subjectDemand, opts autofillOptions) (models.Placement, bool) {
	var (
		best      models.Placement
		bestScore float64
		found     bool
	)
	for _, cell := range st.window {
		key := cell.Key()
		if !st.mirror.classFree(key) {
			continue
		}
		same := st.daySubject[cell.DayID][demand.SubjectID]
		if opts.AvoidSameSubjectPerDay && same >= opts.MaxSameSubjectPerDay {
			continue
		}
		for _, teacherID := range demand.Teachers {
			if !st.mirror.teacherFree(teacherID, key) {
				continue
			}
			s := score(st.dayLoad[cell.DayID], same, cell.PeriodOrder)
			if !found || s > bestScore {
				best = models.Placement{
					ClassID:   st.classID,
					DayID:     cell.DayID,
					PeriodID:  cell.PeriodID,
					SubjectID: demand.SubjectID,
					TeacherID: teacherID,
				}
				bestScore = s
				found = true
			}
		}
	}
	return best, found
}

// planAutofill runs the greedy placement loop. The subject with the largest remaining demand
// goes first (lowest id on ties); a subject with no legal candidate is retired for the run.
func planAutofill(st *autofillState, demands []subjectDemand, opts autofillOptions) ([]models.Placement, []dto.UnscheduledSubject) {
	if opts.MaxSameSubjectPerDay < 1 {
		opts.MaxSameSubjectPerDay = 1
	}

	active := make([]subjectDemand, 0, len(demands))
	for _, demand := range demands {
		if demand.Remaining <= 0 || len(demand.Teachers) == 0 {
			continue
		}
		teachers := append([]int64(nil), demand.Teachers...)
		sort.Slice(teachers, func(i, j int) bool { return teachers[i] < teachers[j] })
		demand.Teachers = teachers
		st.remaining[demand.SubjectID] = demand.Remaining
		active = append(active, demand)
	}

	for len(active) > 0 && !st.classFull() {
		idx := 0
		for i := 1; i < len(active); i++ {
			ri, rb := st.remaining[active[i].SubjectID], st.remaining[active[idx].SubjectID]
			if ri > rb || (ri == rb && active[i].SubjectID < active[idx].SubjectID) {
				idx = i
			}
		}
		demand := active[idx]

		placement, ok := st.bestCandidate(demand, opts)
		if !ok {
			active = append(active[:idx], active[idx+1:]...)
			continue
		}
		st.place(placement)
		if st.remaining[demand.SubjectID] <= 0 {
			active = append(active[:idx], active[idx+1:]...)
		}
	}

	unscheduled := make([]dto.UnscheduledSubject, 0)
	for _, demand := range demands {
		if len(demand.Teachers) == 0 || demand.Remaining <= 0 {
			continue
		}
		if left := st.remaining[demand.SubjectID]; left > 0 {
			unscheduled = append(unscheduled, dto.UnscheduledSubject{SubjectID: demand.SubjectID, Remaining: left})
		}
	}
	sort.Slice(unscheduled, func(i, j int) bool { return unscheduled[i].SubjectID < unscheduled[j].SubjectID })
	return st.pending, unscheduled
}

// buildDemands subtracts placed sessions from each quota and splits subjects without an eligible
// teacher out as unschedulable. Both outputs are ordered by subject id.
func buildDemands(quotas []models.LevelSubjectQuotaDetail, classSlots []models.SlotOccupancy, eligible []models.EligibleTeacher) ([]subjectDemand, []dto.UnschedulableSubject) {
	placed := make(map[int64]int)
	for _, slot := range classSlots {
		placed[slot.SubjectID]++
	}
	teachers := make(map[int64][]int64)
	for _, e := range eligible {
		teachers[e.SubjectID] = append(teachers[e.SubjectID], e.TeacherID)
	}

	sorted := append([]models.LevelSubjectQuotaDetail(nil), quotas...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].SubjectID < sorted[j].SubjectID })

	demands := make([]subjectDemand, 0, len(sorted))
	unschedulable := make([]dto.UnschedulableSubject, 0)
	for _, quota := range sorted {
		if !quota.Schedulable() {
			continue
		}
		remaining := quota.WeeklyPeriods - placed[quota.SubjectID]
		if remaining <= 0 {
			continue
		}
		if len(teachers[quota.SubjectID]) == 0 {
			unschedulable = append(unschedulable, dto.UnschedulableSubject{
				SubjectID: quota.SubjectID,
				Remaining: remaining,
				Reason:    dto.ReasonNoEligibleTeacher,
			})
			continue
		}
		demands = append(demands, subjectDemand{SubjectID: quota.SubjectID, Remaining: remaining, Teachers: teachers[quota.SubjectID]})
	}
	return demands, unschedulable
}
