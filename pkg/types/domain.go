package types

// DevicePreference selects where a model's weights should be materialized.
type DevicePreference string

const (
	DeviceCPU  DevicePreference = "cpu"
	DeviceGPU  DevicePreference = "gpu"
	DeviceAuto DevicePreference = "auto"
)

// ModelDescriptor describes one catalog entry. Descriptors are defined at
// configuration load time and never mutated.
type ModelDescriptor struct {
	// Short human-chosen name used as the unique lookup key.
	// example: qwen2.5-3b
	Alias string `json:"alias" yaml:"alias" toml:"alias" example:"qwen2.5-3b"`
	// Opaque identifier handed to the inference engine (path or hub id).
	// example: Qwen/Qwen2.5-3B-Instruct
	ModelID string `json:"model_id" yaml:"model_id" toml:"model_id" example:"Qwen/Qwen2.5-3B-Instruct"`
	// Estimated resident memory in MB, checked against the budget before load.
	// example: 6500
	EstMemoryMB int `json:"est_memory_mb" yaml:"est_memory_mb" toml:"est_memory_mb" example:"6500"`
	// Device preference: cpu, gpu or auto.
	// example: auto
	Device DevicePreference `json:"device,omitempty" yaml:"device,omitempty" toml:"device,omitempty" example:"auto"`
}
