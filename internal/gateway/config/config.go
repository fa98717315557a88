package config

import (
	"flag"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port       string
	Env        string
	LogLevel   string
	LogFormat  string
	Curriculum string
	Session    SessionConfig
	App        AppFlags
	Feedback   FeedbackConfig
	Collision  string
}

type SessionConfig struct {
	Key   string
	Path  string
	PgDSN string
}

// AppFlags seed the app segment of a fresh session.
type AppFlags struct {
	Debug            bool
	Test             bool
	Reset            bool
	PresentationMode bool
}

// PreserveState reports whether snapshots are saved and restored. Debug
// sessions always start fresh.
func (f AppFlags) PreserveState() bool {
	return !f.Reset && !f.Debug
}

type FeedbackConfig struct {
	Enabled bool
	Path    string
	S3      S3Config
}

type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Enabled reports whether enough is configured to reach a bucket.
func (c S3Config) Enabled() bool {
	return c.Endpoint != "" && c.AccessKey != "" && c.SecretKey != ""
}

func Load() (*Config, error) {
	return LoadArgs(os.Args[1:])
}

// LoadArgs reads .env, then flags, then the environment. Environment values
// win over flags, as for PORT in every deployment.
func LoadArgs(args []string) (*Config, error) {
	_ = godotenv.Load()

	fs := flag.NewFlagSet("gateway", flag.ContinueOnError)
	port := fs.String("port", ":8081", "server port")
	curriculum := fs.String("curriculum", "curriculum.yaml", "curriculum file (.yaml or .json)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if envPort := os.Getenv("PORT"); envPort != "" {
		if strings.HasPrefix(envPort, ":") {
			*port = envPort
		} else {
			*port = ":" + envPort
		}
	}

	env := strings.TrimSpace(os.Getenv("APP_ENV"))
	if env == "" {
		env = "local"
	}

	return &Config{
		Port:       *port,
		Env:        env,
		LogLevel:   firstNonEmpty(strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL"))), "info"),
		LogFormat:  firstNonEmpty(strings.ToLower(strings.TrimSpace(os.Getenv("LOG_FORMAT"))), "text"),
		Curriculum: firstNonEmpty(strings.TrimSpace(os.Getenv("CURRICULUM_PATH")), *curriculum),
		Session: SessionConfig{
			Key:   firstNonEmpty(strings.TrimSpace(os.Getenv("SESSION_STATE_KEY")), "state"),
			Path:  firstNonEmpty(strings.TrimSpace(os.Getenv("SESSION_STATE_PATH")), "tmp/session_state.json"),
			PgDSN: strings.TrimSpace(os.Getenv("SESSION_STORE_PG_DSN")),
		},
		App: AppFlags{
			Debug:            envBool("CODELAB_DEBUG", false),
			Test:             envBool("CODELAB_TEST", false),
			Reset:            envBool("CODELAB_RESET", false),
			PresentationMode: envBool("CODELAB_PRESENT", false),
		},
		Feedback:  loadFeedbackConfig(env),
		Collision: firstNonEmpty(strings.TrimSpace(os.Getenv("DECLARATION_COLLISION_POLICY")), "replace"),
	}, nil
}

func loadFeedbackConfig(env string) FeedbackConfig {
	local := strings.EqualFold(strings.TrimSpace(env), "local")
	return FeedbackConfig{
		Enabled: envBool("FEEDBACK_ENABLED", false),
		Path:    firstNonEmpty(strings.TrimSpace(os.Getenv("FEEDBACK_PATH")), "/feedback"),
		S3: S3Config{
			Endpoint:  strings.TrimSpace(os.Getenv("FEEDBACK_S3_ENDPOINT")),
			Region:    firstNonEmpty(strings.TrimSpace(os.Getenv("FEEDBACK_S3_REGION")), "us-east-1"),
			AccessKey: firstNonEmpty(strings.TrimSpace(os.Getenv("FEEDBACK_S3_ACCESS_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_USER"))),
			SecretKey: firstNonEmpty(strings.TrimSpace(os.Getenv("FEEDBACK_S3_SECRET_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_PASSWORD"))),
			Bucket:    firstNonEmpty(strings.TrimSpace(os.Getenv("FEEDBACK_S3_BUCKET")), "codelab-feedback"),
			UseSSL:    !local && envBool("FEEDBACK_S3_USE_SSL", true),
		},
	}
}

func envBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
