package config

// Backend is where persisted settings live: a flat store of dotted keys
// ("ollama.model", "memory.max_tokens"). A key that is not set reports
// ok == false and is left at its default.
type Backend interface {
	GetString(key string) (val string, ok bool, err error)
	GetInt(key string) (val int, ok bool, err error)
	SetString(key, val string) error
	SetInt(key string, val int) error
}
