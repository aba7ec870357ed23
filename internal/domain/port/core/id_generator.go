package core

// IDGenerator names every transaction the orchestrator creates.
type IDGenerator interface {
	// NextID returns a process-wide strictly increasing numeric id
	NextID() (int64, error)
	// GenerateUniqueID returns the externally visible payment id: the decimal
	// digits of NextID interleaved with random alphanumerics to a fixed length.
	// Obfuscation only, not a security control.
	GenerateUniqueID() (string, error)
}
