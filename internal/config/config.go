package config

import "time"

type Duration struct {
	Duration time.Duration
}

type LogConfig struct {
	Mode string `yaml:"mode"`
	// Redact masks secrets and hashes learner ids in log fields.
	Redact   bool   `yaml:"redact"`
	HashSalt string `yaml:"hash_salt"`
}

type HTTPConfig struct {
	Addr              string   `yaml:"addr"`
	ReadHeaderTimeout Duration `yaml:"read_header_timeout"`
	IdleTimeout       Duration `yaml:"idle_timeout"`
	ShutdownTimeout   Duration `yaml:"shutdown_timeout"`
	MaxRequestBytes   int64    `yaml:"max_request_bytes"`
	CORSOrigins       []string `yaml:"cors_origins"`
}

type AuthConfig struct {
	// JWTSecret enables bearer auth on /v1 when set.
	JWTSecret string `yaml:"jwt_secret"`
}

type DatabaseConfig struct {
	// Driver is postgres, sqlite or memory.
	Driver        string   `yaml:"driver"`
	DSN           string   `yaml:"dsn"`
	SlowThreshold Duration `yaml:"slow_threshold"`
	MaxOpenConns  int      `yaml:"max_open_conns"`
	MaxIdleConns  int      `yaml:"max_idle_conns"`
}

type RedisConfig struct {
	Addr          string   `yaml:"addr"`
	Password      string   `yaml:"password"`
	DB            int      `yaml:"db"`
	UnlockChannel string   `yaml:"unlock_channel"`
	LockTTL       Duration `yaml:"lock_ttl"`
}

type Neo4jConfig struct {
	URI         string   `yaml:"uri"`
	User        string   `yaml:"user"`
	Password    string   `yaml:"password"`
	Database    string   `yaml:"database"`
	Timeout     Duration `yaml:"timeout"`
	MaxPoolSize int      `yaml:"max_pool_size"`
}

type SkillGraphConfig struct {
	// Source is file or neo4j.
	Source string `yaml:"source"`
	Path   string `yaml:"path"`
	// SyncToNeo4j pushes the file graph into Neo4j at startup.
	SyncToNeo4j bool `yaml:"sync_to_neo4j"`
}

type TemporalConfig struct {
	Address               string `yaml:"address"`
	Namespace             string `yaml:"namespace"`
	TaskQueue             string `yaml:"task_queue"`
	ClientCertPath        string `yaml:"client_cert_path"`
	ClientKeyPath         string `yaml:"client_key_path"`
	ClientCAPath          string `yaml:"client_ca_path"`
	AutoRegisterNamespace bool   `yaml:"auto_register_namespace"`
	WorkerConcurrency     int    `yaml:"worker_concurrency"`
	// RunWorker starts an outcome worker inside this process.
	RunWorker         bool     `yaml:"run_worker"`
	IdleTimeout       Duration `yaml:"idle_timeout"`
	MaxOutcomesPerRun int      `yaml:"max_outcomes_per_run"`
}

type KnowledgeConfig struct {
	PGuess             float64 `yaml:"p_guess"`
	PSlip              float64 `yaml:"p_slip"`
	ForgetRate         float64 `yaml:"forget_rate"`
	InitialProbability float64 `yaml:"initial_probability"`
}

type PolicyConfig struct {
	LearningRate float64 `yaml:"learning_rate"`
	Discount     float64 `yaml:"discount"`
	Epsilon      float64 `yaml:"epsilon"`
	// Seed fixes the exploration sequence; 0 seeds from the clock.
	Seed int64 `yaml:"seed"`
}

type OTelConfig struct {
	Enabled     bool    `yaml:"enabled"`
	ServiceName string  `yaml:"service_name"`
	Endpoint    string  `yaml:"endpoint"`
	Insecure    bool    `yaml:"insecure"`
	Headers     string  `yaml:"headers"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

type Config struct {
	Env        string           `yaml:"env"`
	Version    string           `yaml:"version"`
	Log        LogConfig        `yaml:"log"`
	HTTP       HTTPConfig       `yaml:"http"`
	Auth       AuthConfig       `yaml:"auth"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Neo4j      Neo4jConfig      `yaml:"neo4j"`
	SkillGraph SkillGraphConfig `yaml:"skill_graph"`
	Temporal   TemporalConfig   `yaml:"temporal"`
	Knowledge  KnowledgeConfig  `yaml:"knowledge"`
	Policy     PolicyConfig     `yaml:"policy"`
	OTel       OTelConfig       `yaml:"otel"`
}
