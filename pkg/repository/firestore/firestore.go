package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/vistoria-lab/vistoria/pkg/domain/interfaces"
)

// Firestore is the production repository backend. Uniqueness invariants are
// enforced with lookup documents written in the same transaction as the case
// document; sequences are transactional counter documents.
type Firestore struct {
	client          *firestore.Client
	caseRepo        *caseRepository
	appointmentRepo *appointmentRepository
	inspectionRepo  *inspectionRepository
	auditRepo       *auditRepository
	sequenceRepo    *sequenceRepository
}

var _ interfaces.Repository = &Firestore{}

type Option func(*Firestore)

// WithCollectionPrefix namespaces all collections, used to isolate test runs
func WithCollectionPrefix(prefix string) Option {
	return func(f *Firestore) {
		f.caseRepo.collectionPrefix = prefix
		f.appointmentRepo.collectionPrefix = prefix
		f.inspectionRepo.collectionPrefix = prefix
		f.auditRepo.collectionPrefix = prefix
		f.sequenceRepo.collectionPrefix = prefix
	}
}

// New creates a Firestore-backed repository
func New(ctx context.Context, projectID, databaseID string, opts ...Option) (*Firestore, error) {
	var client *firestore.Client
	var err error
	if databaseID == "" {
		client, err = firestore.NewClient(ctx, projectID)
	} else {
		client, err = firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("project_id", projectID), goerr.V("database_id", databaseID))
	}

	f := &Firestore{
		client:          client,
		caseRepo:        &caseRepository{client: client},
		appointmentRepo: &appointmentRepository{client: client},
		inspectionRepo:  &inspectionRepository{client: client},
		auditRepo:       &auditRepository{client: client},
		sequenceRepo:    &sequenceRepository{client: client},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

func (f *Firestore) Case() interfaces.CaseRepository {
	return f.caseRepo
}

func (f *Firestore) Appointment() interfaces.AppointmentRepository {
	return f.appointmentRepo
}

func (f *Firestore) Inspection() interfaces.InspectionRepository {
	return f.inspectionRepo
}

func (f *Firestore) Audit() interfaces.AuditRepository {
	return f.auditRepo
}

func (f *Firestore) Sequence() interfaces.SequenceRepository {
	return f.sequenceRepo
}

func (f *Firestore) Close() error {
	if err := f.client.Close(); err != nil {
		return goerr.Wrap(err, "failed to close firestore client")
	}
	return nil
}

func prefixed(prefix, name string) string {
	if prefix != "" {
		return prefix + "_" + name
	}
	return name
}
