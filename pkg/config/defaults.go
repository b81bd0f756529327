package config

const (
	defaultStorageDriver = "memory"
	defaultAPIListen     = ":8081"

	defaultClientAPITarget = "http://localhost:8081"

	defaultGeneratorProvider = "template"

	defaultEventStreamProvider = "nop"
	defaultEventStreamTopic    = "inkwell.activity"

	defaultMaxLineBytes = 1024 * 1024

	defaultActivityWorkers   = 2
	defaultActivityQueueSize = 256
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Storage: StorageConfig{
			Driver: defaultStorageDriver,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		Client: ClientConfig{
			APITarget: defaultClientAPITarget,
		},
		Generator: GeneratorConfig{
			Provider: defaultGeneratorProvider,
		},
		EventStream: EventStreamConfig{
			Provider: defaultEventStreamProvider,
			Topic:    defaultEventStreamTopic,
		},
		Stream: StreamConfig{
			MaxLineBytes: defaultMaxLineBytes,
		},
		Activity: ActivityConfig{
			Workers:   defaultActivityWorkers,
			QueueSize: defaultActivityQueueSize,
		},
	}
}
