package config

import "fmt"

// Error reports an invalid configuration value. Key is the config document
// key (e.g. "output.quality") and Layer names the layer that supplied it.
type Error struct {
	Key   Key
	Layer LayerName
	Err   error
}

func (e *Error) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("config (%s): %v", e.Layer, e.Err)
	}
	return fmt.Sprintf("config %s (%s): %v", e.Key, e.Layer, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
