package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/aretw0/otec"
	"github.com/aretw0/otec/internal/logging"
	"github.com/aretw0/otec/pkg/domain"
	"github.com/aretw0/otec/pkg/text"
	"gopkg.in/yaml.v3"
)

// MaxConvergentAgents is the largest number of agents for which Replay
// guarantees that all replicas converge.
const MaxConvergentAgents = 2

// Script describes a scripted editing session between replicas.
//
//	entity: 1
//	initial: "hello world"
//	agents: [alice, bob]
//	steps:
//	  - agent: alice
//	    mutations: [{kind: insert, pos: 5, text: ","}]
//	  - agent: bob
//	    mutations: [{kind: delete, pos: 0, len: 1}]
//	  - sync: true
type Script struct {
	Entity  int      `yaml:"entity"`
	Initial string   `yaml:"initial"`
	Agents  []string `yaml:"agents"`
	Steps   []Step   `yaml:"steps"`
}

// Step is either an edit by one agent or a sync delivering all pending edits.
type Step struct {
	Agent     string           `yaml:"agent,omitempty"`
	Mutations []map[string]any `yaml:"mutations,omitempty"`
	Sync      bool             `yaml:"sync,omitempty"`
}

// AgentResult is the final view of one replica.
type AgentResult struct {
	Name     string
	Content  string
	Revision int
	History  []*domain.Operation
}

// ReplayResult is the outcome of a script.
type ReplayResult struct {
	Agents    []AgentResult
	Converged bool
}

// LoadScript reads a replay script from a YAML file.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse script %s: %w", path, err)
	}
	return &s, s.Validate()
}

// Validate checks agent references.
func (s *Script) Validate() error {
	if len(s.Agents) == 0 {
		return fmt.Errorf("script needs at least one agent")
	}
	seen := make(map[string]bool, len(s.Agents))
	for _, a := range s.Agents {
		if a == "" || seen[a] {
			return fmt.Errorf("agent names must be unique and non-empty (got %q)", a)
		}
		seen[a] = true
	}
	for i, st := range s.Steps {
		switch {
		case st.Sync && st.Agent != "":
			return fmt.Errorf("step %d: a step is either an edit or a sync", i)
		case !st.Sync && !seen[st.Agent]:
			return fmt.Errorf("step %d: unknown agent %q", i, st.Agent)
		}
	}
	return nil
}

type replica struct {
	name    string
	engine  *otec.Engine
	inbox   []domain.Record
	pending bool // has an edit not yet delivered to the others
}

// Replay runs the script with one in-memory engine per agent.
//
// Edits are applied locally and queued for every other agent. A sync step
// delivers every queued edit. An agent's edit is delivered before its next one,
// and a final sync runs after the last step.
//
// Convergence is guaranteed for two agents only; with more agents the result
// may be reported as diverged.
func Replay(ctx context.Context, s *Script, logger *slog.Logger, hooks domain.LifecycleHooks) (*ReplayResult, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	if logger == nil {
		logger = logging.NewNop()
	}
	if len(s.Agents) > MaxConvergentAgents {
		logger.Warn("Convergence is only guaranteed for two agents",
			"agents", len(s.Agents),
		)
	}

	codec := text.NewCodec()
	replicas := make([]*replica, len(s.Agents))
	byName := make(map[string]*replica, len(s.Agents))
	for i, name := range s.Agents {
		eng, err := otec.New(
			otec.WithName(name),
			otec.WithLogger(logger),
			otec.WithLifecycleHooks(hooks),
		)
		if err != nil {
			return nil, err
		}
		replicas[i] = &replica{name: name, engine: eng}
		byName[name] = replicas[i]
	}

	if s.Initial != "" {
		seed := []domain.Mutation{text.Insert{Pos: 0, Text: s.Initial}}
		if err := edit(ctx, replicas, replicas[0], s.Entity, seed); err != nil {
			return nil, fmt.Errorf("initial content: %w", err)
		}
		if err := deliverAll(ctx, replicas); err != nil {
			return nil, err
		}
	}

	for i, st := range s.Steps {
		if st.Sync {
			if err := deliverAll(ctx, replicas); err != nil {
				return nil, fmt.Errorf("step %d: %w", i, err)
			}
			continue
		}

		r := byName[st.Agent]
		if r.pending {
			logger.Debug("Delivering pending edit before next one", "agent", r.name, "step", i)
			if err := deliverAll(ctx, replicas); err != nil {
				return nil, fmt.Errorf("step %d: %w", i, err)
			}
		}
		muts, err := codec.DecodeAll(st.Mutations)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		if err := edit(ctx, replicas, r, s.Entity, muts); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
	}
	if err := deliverAll(ctx, replicas); err != nil {
		return nil, err
	}

	return collect(ctx, replicas, s.Entity)
}

func edit(ctx context.Context, replicas []*replica, r *replica, entityID int, muts []domain.Mutation) error {
	op, err := r.engine.Submit(ctx, entityID, r.name, muts)
	if err != nil {
		return fmt.Errorf("agent %s: %w", r.name, err)
	}
	if op.IsNoop() {
		return nil
	}
	rec, err := r.engine.Export(op)
	if err != nil {
		return err
	}
	for _, other := range replicas {
		if other != r {
			other.inbox = append(other.inbox, rec)
		}
	}
	r.pending = true
	return nil
}

func deliverAll(ctx context.Context, replicas []*replica) error {
	for _, r := range replicas {
		for _, rec := range r.inbox {
			op, err := r.engine.Import(rec)
			if err != nil {
				return fmt.Errorf("agent %s: %w", r.name, err)
			}
			if _, err := r.engine.Receive(ctx, op); err != nil {
				return fmt.Errorf("agent %s receiving %s: %w", r.name, rec.OperationID, err)
			}
		}
		r.inbox = nil
	}
	for _, r := range replicas {
		r.pending = false
	}
	return nil
}

func collect(ctx context.Context, replicas []*replica, entityID int) (*ReplayResult, error) {
	res := &ReplayResult{Converged: true}
	for _, r := range replicas {
		doc, err := r.engine.Snapshot(ctx, entityID)
		if err != nil {
			return nil, err
		}
		history, err := r.engine.History(ctx, entityID)
		if err != nil {
			return nil, err
		}
		res.Agents = append(res.Agents, AgentResult{
			Name:     r.name,
			Content:  fmt.Sprint(doc.State().Get()),
			Revision: doc.Revision(),
			History:  history,
		})
	}
	first := res.Agents[0]
	res.Converged = !slices.ContainsFunc(res.Agents[1:], func(a AgentResult) bool {
		return a.Content != first.Content || a.Revision != first.Revision
	})
	return res, nil
}
