package app

import (
	"context"
	"fmt"
	"time"

	"github.com/yungbote/neurobridge-mastery/internal/config"
	"github.com/yungbote/neurobridge-mastery/internal/data/graph"
	"github.com/yungbote/neurobridge-mastery/internal/data/repos"
	"github.com/yungbote/neurobridge-mastery/internal/mastery/knowledge"
	"github.com/yungbote/neurobridge-mastery/internal/mastery/policy"
	"github.com/yungbote/neurobridge-mastery/internal/mastery/skillgraph"
	"github.com/yungbote/neurobridge-mastery/internal/platform/keylock"
	"github.com/yungbote/neurobridge-mastery/internal/platform/logger"
	"github.com/yungbote/neurobridge-mastery/internal/realtime/bus"
	"github.com/yungbote/neurobridge-mastery/internal/services"
	"github.com/yungbote/neurobridge-mastery/internal/temporalx/outcomeflow"
	"github.com/yungbote/neurobridge-mastery/internal/temporalx/temporalworker"
)

type Services struct {
	Mastery services.MasteryService
	Bus     bus.Bus
	Locker  keylock.Locker
	// Dispatcher and Worker are nil without Temporal.
	Dispatcher *outcomeflow.Dispatcher
	Worker     *temporalworker.Runner
}

func wireServices(ctx context.Context, cfg *config.Config, log *logger.Logger, reposet repos.Set, clients Clients) (Services, error) {
	log.Info("Wiring services...")
	var out Services

	// Locks and unlock events go through Redis when it is configured so that
	// several replicas serialise on the same learner.
	out.Locker = keylock.NewLocal()
	out.Bus = bus.NewLocal()
	if clients.Redis != nil {
		l, err := keylock.NewRedis(clients.Redis, keylock.RedisOptions{TTL: cfg.Redis.LockTTL.Duration}, log)
		if err != nil {
			return out, fmt.Errorf("init redis lock: %w", err)
		}
		out.Locker = l
		b, err := bus.NewRedisBus(clients.Redis, cfg.Redis.UnlockChannel, log)
		if err != nil {
			return out, fmt.Errorf("init unlock bus: %w", err)
		}
		out.Bus = b
	}

	source, err := wireSkillGraphSource(ctx, cfg, log, clients)
	if err != nil {
		return out, err
	}

	seed := cfg.Policy.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	mastery, err := services.NewMasteryService(log, source, reposet, out.Locker, out.Bus, services.MasteryConfig{
		Knowledge: knowledge.Params{
			PGuess:             cfg.Knowledge.PGuess,
			PSlip:              cfg.Knowledge.PSlip,
			ForgetRate:         cfg.Knowledge.ForgetRate,
			InitialProbability: cfg.Knowledge.InitialProbability,
			DisableForgetting:  cfg.Knowledge.ForgetRate == 0,
		},
		Policy: policy.Config{
			LearningRate: cfg.Policy.LearningRate,
			Discount:     cfg.Policy.Discount,
			Epsilon:      cfg.Policy.Epsilon,
		},
		Random: policy.NewRandomSource(seed),
	})
	if err != nil {
		return out, fmt.Errorf("init mastery service: %w", err)
	}
	if err := mastery.Initialize(ctx); err != nil {
		return out, fmt.Errorf("initialize mastery engine: %w", err)
	}
	out.Mastery = mastery

	if clients.Temporal != nil {
		tcfg := temporalConfig(cfg)
		d, err := outcomeflow.NewDispatcher(clients.Temporal, cfg.Temporal.TaskQueue, cfg.Temporal.IdleTimeout.Duration, cfg.Temporal.MaxOutcomesPerRun)
		if err != nil {
			return out, err
		}
		out.Dispatcher = d
		if cfg.Temporal.RunWorker {
			w, err := temporalworker.NewRunner(log, clients.Temporal, tcfg, mastery)
			if err != nil {
				return out, fmt.Errorf("init temporal worker: %w", err)
			}
			out.Worker = w
		}
	}
	return out, nil
}

// wireSkillGraphSource picks the graph source; a file graph can be mirrored
// into Neo4j at startup.
func wireSkillGraphSource(ctx context.Context, cfg *config.Config, log *logger.Logger, clients Clients) (skillgraph.Source, error) {
	switch cfg.SkillGraph.Source {
	case "neo4j":
		src, err := graph.NewNeo4jSkillGraphSource(clients.Neo4j, log)
		if err != nil {
			return nil, fmt.Errorf("init neo4j skill graph: %w", err)
		}
		return src, nil
	default:
		src := skillgraph.FileSource{Path: cfg.SkillGraph.Path}
		if cfg.SkillGraph.SyncToNeo4j && clients.Neo4j != nil {
			def, err := src.Load(ctx)
			if err != nil {
				return nil, fmt.Errorf("load skill graph: %w", err)
			}
			if _, err := skillgraph.New(def); err != nil {
				return nil, err
			}
			if err := graph.SyncSkillGraph(ctx, clients.Neo4j, log, def); err != nil {
				return nil, fmt.Errorf("sync skill graph to neo4j: %w", err)
			}
		}
		return src, nil
	}
}
