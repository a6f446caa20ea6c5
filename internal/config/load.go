package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/neurobridge-mastery/internal/platform/envutil"
)

// UnmarshalYAML accepts "5s" style strings or integer nanoseconds.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	s := strings.TrimSpace(node.Value)
	if s == "" || s == "null" || s == "~" {
		d.Duration = 0
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		d.Duration = time.Duration(n)
		return nil
	}
	dd, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("duration must be a string like \"5s\" or int nanoseconds: %w", err)
	}
	d.Duration = dd
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

func defaultConfig() *Config {
	return &Config{
		Env: "development",
		Log: LogConfig{Mode: "development", Redact: true},
		HTTP: HTTPConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: Duration{Duration: 5 * time.Second},
			IdleTimeout:       Duration{Duration: 2 * time.Minute},
			ShutdownTimeout:   Duration{Duration: 15 * time.Second},
			MaxRequestBytes:   1 << 20,
		},
		Database: DatabaseConfig{
			Driver:        "sqlite",
			DSN:           "file:mastery.db?_pragma=busy_timeout(5000)",
			SlowThreshold: Duration{Duration: 200 * time.Millisecond},
		},
		Redis: RedisConfig{
			UnlockChannel: "mastery.unlocks",
			LockTTL:       Duration{Duration: 10 * time.Second},
		},
		Neo4j:      Neo4jConfig{User: "neo4j", Timeout: Duration{Duration: 10 * time.Second}, MaxPoolSize: 50},
		SkillGraph: SkillGraphConfig{Source: "file", Path: "config/skill_graph.yaml"},
		Temporal: TemporalConfig{
			Namespace:         "mastery",
			TaskQueue:         "mastery-outcomes",
			IdleTimeout:       Duration{Duration: 10 * time.Minute},
			MaxOutcomesPerRun: 500,
		},
		Knowledge: KnowledgeConfig{PGuess: 0.25, PSlip: 0.10, ForgetRate: 0.05, InitialProbability: 0.5},
		Policy:    PolicyConfig{LearningRate: 0.1, Discount: 0.9, Epsilon: 0.1},
		OTel:      OTelConfig{ServiceName: "neurobridge-mastery", SampleRatio: 0.1},
	}
}

// Load reads MASTERY_CONFIG_PATH (or ./config/config.yaml when present),
// applies environment overrides and validates the result.
func Load() (*Config, error) {
	cfgPath := strings.TrimSpace(os.Getenv("MASTERY_CONFIG_PATH"))
	if cfgPath == "" {
		if wd, err := os.Getwd(); err == nil {
			p := filepath.Join(wd, "config", "config.yaml")
			if _, err := os.Stat(p); err == nil {
				cfgPath = p
			}
		}
	}
	var raw []byte
	if cfgPath != "" {
		b, err := os.ReadFile(cfgPath)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	return Parse(raw)
}

// Parse overlays a YAML document on the defaults, then env, then validates.
func Parse(raw []byte) (*Config, error) {
	cfg := defaultConfig()
	if len(bytes.TrimSpace(raw)) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(raw))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
	}
	applyEnv(cfg)
	if err := normalize(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Env = envutil.String("APP_ENV", cfg.Env)
	cfg.Log.Mode = envutil.String("LOG_MODE", cfg.Log.Mode)
	cfg.Log.Redact = envutil.Bool("LOG_REDACT", cfg.Log.Redact)
	cfg.Log.HashSalt = envutil.String("LOG_HASH_SALT", cfg.Log.HashSalt)

	cfg.HTTP.Addr = envutil.String("HTTP_ADDR", cfg.HTTP.Addr)
	if v := envutil.String("CORS_ORIGINS", ""); v != "" {
		cfg.HTTP.CORSOrigins = splitCSV(v)
	}
	cfg.Auth.JWTSecret = envutil.String("JWT_SECRET_KEY", cfg.Auth.JWTSecret)

	cfg.Database.Driver = envutil.String("DATABASE_DRIVER", cfg.Database.Driver)
	cfg.Database.DSN = envutil.String("DATABASE_DSN", cfg.Database.DSN)

	cfg.Redis.Addr = envutil.String("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = envutil.String("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.UnlockChannel = envutil.String("REDIS_UNLOCK_CHANNEL", cfg.Redis.UnlockChannel)

	cfg.Neo4j.URI = envutil.String("NEO4J_URI", cfg.Neo4j.URI)
	cfg.Neo4j.User = envutil.String("NEO4J_USER", cfg.Neo4j.User)
	cfg.Neo4j.Password = envutil.String("NEO4J_PASSWORD", cfg.Neo4j.Password)
	cfg.Neo4j.Database = envutil.String("NEO4J_DATABASE", cfg.Neo4j.Database)

	cfg.SkillGraph.Source = envutil.String("SKILL_GRAPH_SOURCE", cfg.SkillGraph.Source)
	cfg.SkillGraph.Path = envutil.String("SKILL_GRAPH_PATH", cfg.SkillGraph.Path)

	cfg.Temporal.Address = envutil.String("TEMPORAL_ADDRESS", cfg.Temporal.Address)
	cfg.Temporal.Namespace = envutil.String("TEMPORAL_NAMESPACE", cfg.Temporal.Namespace)
	cfg.Temporal.TaskQueue = envutil.String("TEMPORAL_TASK_QUEUE", cfg.Temporal.TaskQueue)
	cfg.Temporal.ClientCertPath = envutil.String("TEMPORAL_CLIENT_CERT_PATH", cfg.Temporal.ClientCertPath)
	cfg.Temporal.ClientKeyPath = envutil.String("TEMPORAL_CLIENT_KEY_PATH", cfg.Temporal.ClientKeyPath)
	cfg.Temporal.ClientCAPath = envutil.String("TEMPORAL_CLIENT_CA_PATH", cfg.Temporal.ClientCAPath)
	cfg.Temporal.RunWorker = envutil.Bool("TEMPORAL_RUN_WORKER", cfg.Temporal.RunWorker)
	cfg.Temporal.AutoRegisterNamespace = envutil.Bool("TEMPORAL_AUTO_REGISTER_NAMESPACE", cfg.Temporal.AutoRegisterNamespace)
	cfg.Temporal.WorkerConcurrency = envutil.Int("WORKER_CONCURRENCY", cfg.Temporal.WorkerConcurrency)

	cfg.Policy.Epsilon = envutil.Float("POLICY_EPSILON", cfg.Policy.Epsilon)
	cfg.Policy.Seed = int64(envutil.Int("POLICY_SEED", int(cfg.Policy.Seed)))

	cfg.OTel.Enabled = envutil.Bool("OTEL_ENABLED", cfg.OTel.Enabled)
	cfg.OTel.Endpoint = envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTel.Endpoint)
	cfg.OTel.Insecure = envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", cfg.OTel.Insecure)
	cfg.OTel.Headers = envutil.String("OTEL_EXPORTER_OTLP_HEADERS", cfg.OTel.Headers)
	cfg.OTel.SampleRatio = envutil.Float("OTEL_SAMPLER_RATIO", cfg.OTel.SampleRatio)
}

func normalize(cfg *Config) error {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "development"
	}
	if strings.TrimSpace(cfg.HTTP.Addr) == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.HTTP.MaxRequestBytes <= 0 {
		cfg.HTTP.MaxRequestBytes = 1 << 20
	}

	cfg.Database.Driver = strings.ToLower(strings.TrimSpace(cfg.Database.Driver))
	switch cfg.Database.Driver {
	case "postgres", "sqlite":
		if strings.TrimSpace(cfg.Database.DSN) == "" {
			return fmt.Errorf("config: database.dsn required for driver %q", cfg.Database.Driver)
		}
	case "memory":
	default:
		return fmt.Errorf("config: unknown database.driver %q", cfg.Database.Driver)
	}

	cfg.SkillGraph.Source = strings.ToLower(strings.TrimSpace(cfg.SkillGraph.Source))
	switch cfg.SkillGraph.Source {
	case "file":
		if strings.TrimSpace(cfg.SkillGraph.Path) == "" {
			return errors.New("config: skill_graph.path required for file source")
		}
	case "neo4j":
		if strings.TrimSpace(cfg.Neo4j.URI) == "" {
			return errors.New("config: neo4j.uri required for neo4j skill graph source")
		}
	default:
		return fmt.Errorf("config: unknown skill_graph.source %q", cfg.SkillGraph.Source)
	}
	if cfg.SkillGraph.SyncToNeo4j && strings.TrimSpace(cfg.Neo4j.URI) == "" {
		return errors.New("config: skill_graph.sync_to_neo4j needs neo4j.uri")
	}

	k := cfg.Knowledge
	if !open01(k.PGuess) || !open01(k.PSlip) || !open01(k.InitialProbability) {
		return fmt.Errorf("config: knowledge probabilities must be in (0,1): %+v", k)
	}
	if k.ForgetRate < 0 {
		return fmt.Errorf("config: knowledge.forget_rate must be >= 0, got %v", k.ForgetRate)
	}

	p := cfg.Policy
	if p.LearningRate <= 0 || p.LearningRate > 1 {
		return fmt.Errorf("config: policy.learning_rate must be in (0,1], got %v", p.LearningRate)
	}
	if p.Discount < 0 || p.Discount >= 1 {
		return fmt.Errorf("config: policy.discount must be in [0,1), got %v", p.Discount)
	}
	if p.Epsilon < 0 || p.Epsilon > 1 {
		return fmt.Errorf("config: policy.epsilon must be in [0,1], got %v", p.Epsilon)
	}

	if cfg.Temporal.MaxOutcomesPerRun <= 0 {
		cfg.Temporal.MaxOutcomesPerRun = 500
	}
	if cfg.OTel.SampleRatio < 0 {
		cfg.OTel.SampleRatio = 0
	}
	if cfg.OTel.SampleRatio > 1 {
		cfg.OTel.SampleRatio = 1
	}
	return nil
}

func open01(v float64) bool { return v > 0 && v < 1 }

func splitCSV(v string) []string {
	out := []string{}
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
