package config

// ServiceConfig is the top-level YAML structure.
type ServiceConfig struct {
	Version  string       `yaml:"version" json:"version"`
	Server   ServerConf   `yaml:"server" json:"server"`
	Engine   EngineConf   `yaml:"engine" json:"engine"`
	Analysis AnalysisConf `yaml:"analysis" json:"analysis"`
}

// ServerConf holds the HTTP surface settings.
type ServerConf struct {
	Addr              string   `yaml:"addr" json:"addr"`
	MaxUploadMB       int      `yaml:"max_upload_mb" json:"max_upload_mb"`
	AllowedExtensions []string `yaml:"allowed_extensions" json:"allowed_extensions"`
	CORS              CORSConf `yaml:"cors" json:"cors"`
}

// CORSConf lists the origins allowed to call the API. "*" allows any origin.
type CORSConf struct {
	AllowedOrigins []string `yaml:"allowed_origins" json:"allowed_origins"`
}

// EngineConf holds tunable concurrency settings.
type EngineConf struct {
	Workers    int `yaml:"workers" json:"workers"`
	QueueDepth int `yaml:"queue_depth" json:"queue_depth"`
	TimeoutMs  int `yaml:"timeout_ms" json:"timeout_ms"`
}

// AnalysisConf tunes decoding and aggregation.
type AnalysisConf struct {
	// TracePolicy is "fail" or "skip" for traces without concept:name.
	TracePolicy      string   `yaml:"trace_policy" json:"trace_policy"`
	TimestampLayouts []string `yaml:"timestamp_layouts" json:"timestamp_layouts"`
}

// MaxUploadBytes converts MaxUploadMB to bytes.
func (s ServerConf) MaxUploadBytes() int64 {
	return int64(s.MaxUploadMB) << 20
}
