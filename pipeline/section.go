package pipeline

import "log"

// Section is one independently computed part of the dashboard: either Data
// or Error is set.
type Section[T any] struct {
	Data  *T     `json:"data"`
	Error string `json:"error,omitempty"`
}

func (s *Section[T]) OK() bool {
	return s != nil && s.Error == ""
}

// runSection computes one section. A failure is recorded under name in errs
// and never escapes to the caller.
func runSection[T any](name string, errs map[string]string, fn func() (T, error)) *Section[T] {
	data, err := fn()
	if err != nil {
		log.Printf("⚠️  [DASHBOARD] section %s failed: %v", name, err)
		errs[name] = err.Error()
		return &Section[T]{Error: err.Error()}
	}
	return &Section[T]{Data: &data}
}
