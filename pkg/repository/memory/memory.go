package memory

import (
	"sync"

	"github.com/vistoria-lab/vistoria/pkg/domain/interfaces"
	"github.com/vistoria-lab/vistoria/pkg/domain/model"
	"github.com/vistoria-lab/vistoria/pkg/domain/types"
)

// Memory is an in-process repository backend for development and tests. All
// entity maps hang off one store guarded by a single RWMutex, which is what
// lets the case queries join appointment/inspection assignments under the
// same read lock.
type Memory struct {
	caseRepo        *caseRepository
	appointmentRepo *appointmentRepository
	inspectionRepo  *inspectionRepository
	auditRepo       *auditRepository
	sequenceRepo    *sequenceRepository
}

var _ interfaces.Repository = &Memory{}

type store struct {
	mu sync.RWMutex

	cases          map[types.CaseID]*model.Case
	casesByRequest map[types.RequestID]types.CaseID
	numbers        map[string]types.CaseID

	appointments map[types.AppointmentID]*model.Appointment
	inspections  map[types.InspectionID]*model.Inspection

	audits    map[string][]*model.AuditEntry
	sequences map[string]int64
}

// New creates a new in-memory repository
func New() *Memory {
	s := &store{
		cases:          make(map[types.CaseID]*model.Case),
		casesByRequest: make(map[types.RequestID]types.CaseID),
		numbers:        make(map[string]types.CaseID),
		appointments:   make(map[types.AppointmentID]*model.Appointment),
		inspections:    make(map[types.InspectionID]*model.Inspection),
		audits:         make(map[string][]*model.AuditEntry),
		sequences:      make(map[string]int64),
	}
	return &Memory{
		caseRepo:        &caseRepository{store: s},
		appointmentRepo: &appointmentRepository{store: s},
		inspectionRepo:  &inspectionRepository{store: s},
		auditRepo:       &auditRepository{store: s},
		sequenceRepo:    &sequenceRepository{store: s},
	}
}

func (m *Memory) Case() interfaces.CaseRepository {
	return m.caseRepo
}

func (m *Memory) Appointment() interfaces.AppointmentRepository {
	return m.appointmentRepo
}

func (m *Memory) Inspection() interfaces.InspectionRepository {
	return m.inspectionRepo
}

func (m *Memory) Audit() interfaces.AuditRepository {
	return m.auditRepo
}

func (m *Memory) Sequence() interfaces.SequenceRepository {
	return m.sequenceRepo
}

func (m *Memory) Close() error {
	return nil
}

// lockedAssignments implements model.AssignmentLookup against the store maps.
// It must only be used while the store lock is already held: Match runs
// inside List/Count and re-locking here would deadlock against writers.
type lockedAssignments struct {
	store *store
}

func (l lockedAssignments) AppointmentAssignedTo(id types.AppointmentID, actor types.ActorID) bool {
	a, ok := l.store.appointments[id]
	return ok && a.AssigneeID == actor
}

func (l lockedAssignments) InspectionAssignedTo(id types.InspectionID, actor types.ActorID) bool {
	i, ok := l.store.inspections[id]
	return ok && i.AssigneeID == actor
}
