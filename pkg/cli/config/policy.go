package config

import (
	"log/slog"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v3"
	"github.com/vistoria-lab/vistoria/pkg/domain/model"
	"github.com/vistoria-lab/vistoria/pkg/domain/types"
)

// Policy holds CLI flags for the visibility policy file
type Policy struct {
	path string
}

type policyFile struct {
	Visibility []policyEntry `toml:"visibility"`
}

type policyEntry struct {
	Stage string `toml:"stage"`
	Join  string `toml:"join"`
}

func (e *policyEntry) validate() error {
	if _, err := types.ParseStage(e.Stage); err != nil {
		return err
	}
	if !model.ScopeJoin(e.Join).IsValid() {
		return goerr.New("invalid join", goerr.V("join", e.Join))
	}
	return nil
}

// Flags returns CLI flags for policy configuration
func (p *Policy) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "policy-file",
			Usage:       "TOML file overriding per-stage visibility joins",
			Sources:     cli.EnvVars("VISTORIA_POLICY_FILE"),
			Destination: &p.path,
		},
	}
}

// Configure loads the visibility policy. Without a file the built-in
// defaults apply.
func (p *Policy) Configure() (*model.VisibilityPolicy, error) {
	if p.path == "" {
		return model.DefaultVisibilityPolicy(), nil
	}

	data, err := os.ReadFile(p.path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read policy file", goerr.V("path", p.path))
	}

	var cfg policyFile
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, goerr.Wrap(err, "failed to parse policy file", goerr.V("path", p.path))
	}

	overrides := make(map[types.Stage]model.ScopeJoin, len(cfg.Visibility))
	for _, entry := range cfg.Visibility {
		if err := entry.validate(); err != nil {
			return nil, goerr.Wrap(err, "invalid policy entry", goerr.V("path", p.path))
		}
		stage := types.Stage(entry.Stage)
		if _, ok := overrides[stage]; ok {
			return nil, goerr.New("duplicate policy entry", goerr.V("stage", entry.Stage))
		}
		overrides[stage] = model.ScopeJoin(entry.Join)
	}

	policy, err := model.NewVisibilityPolicy(overrides)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build visibility policy", goerr.V("path", p.path))
	}
	return policy, nil
}

// LogValue renders the configuration for startup logging
func (p *Policy) LogValue() slog.Value {
	return slog.GroupValue(slog.String("path", p.path))
}
