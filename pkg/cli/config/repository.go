package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"github.com/vistoria-lab/vistoria/pkg/domain/interfaces"
	"github.com/vistoria-lab/vistoria/pkg/repository/firestore"
	"github.com/vistoria-lab/vistoria/pkg/repository/memory"
)

// Repository holds CLI flags for repository backend selection
type Repository struct {
	backend             string
	firestoreProjectID  string
	firestoreDatabaseID string
	collectionPrefix    string
}

// Flags returns CLI flags for repository configuration
func (r *Repository) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "repository-backend",
			Usage:       "Repository backend (memory or firestore)",
			Value:       "memory",
			Sources:     cli.EnvVars("VISTORIA_REPOSITORY_BACKEND"),
			Destination: &r.backend,
		},
		&cli.StringFlag{
			Name:        "firestore-project-id",
			Usage:       "Firestore project ID",
			Sources:     cli.EnvVars("VISTORIA_FIRESTORE_PROJECT_ID"),
			Destination: &r.firestoreProjectID,
		},
		&cli.StringFlag{
			Name:        "firestore-database-id",
			Usage:       "Firestore database ID (uses the default database when empty)",
			Sources:     cli.EnvVars("VISTORIA_FIRESTORE_DATABASE_ID"),
			Destination: &r.firestoreDatabaseID,
		},
		&cli.StringFlag{
			Name:        "firestore-collection-prefix",
			Usage:       "Prefix for Firestore collection names",
			Sources:     cli.EnvVars("VISTORIA_FIRESTORE_COLLECTION_PREFIX"),
			Destination: &r.collectionPrefix,
		},
	}
}

// Configure creates the repository for the selected backend
func (r *Repository) Configure(ctx context.Context) (interfaces.Repository, error) {
	switch r.backend {
	case "memory", "":
		return memory.New(), nil

	case "firestore":
		if r.firestoreProjectID == "" {
			return nil, goerr.New("firestore-project-id is required for the firestore backend")
		}
		var opts []firestore.Option
		if r.collectionPrefix != "" {
			opts = append(opts, firestore.WithCollectionPrefix(r.collectionPrefix))
		}
		repo, err := firestore.New(ctx, r.firestoreProjectID, r.firestoreDatabaseID, opts...)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create firestore repository")
		}
		return repo, nil

	default:
		return nil, goerr.New("invalid repository backend", goerr.V("backend", r.backend))
	}
}

// LogValue renders the configuration for startup logging
func (r *Repository) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("backend", r.backend),
		slog.String("firestore_project_id", r.firestoreProjectID),
		slog.String("firestore_database_id", r.firestoreDatabaseID),
		slog.String("collection_prefix", r.collectionPrefix),
	)
}
