// Package store holds a registry of entry-store backends
// that can be created by name from a configuration map.
// Backends register themselves in their init functions,
// so callers import the backends they want for side effects.
package store

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/bobg/ledger"
)

// Factory creates a Store from a configuration map.
type Factory func(context.Context, map[string]interface{}) (ledger.Store, error)

var registry = make(map[string]Factory)

// Register makes a backend available to Create under the given key.
func Register(key string, f Factory) {
	registry[key] = f
}

// Create creates a Store of the type registered under key.
func Create(ctx context.Context, key string, conf map[string]interface{}) (ledger.Store, error) {
	f, ok := registry[key]
	if !ok {
		return nil, fmt.Errorf("key %s not found in registry (have %s)", key, strings.Join(Keys(), ", "))
	}
	return f(ctx, conf)
}

// Keys lists the registered backend names.
func Keys() []string {
	result := make([]string, 0, len(registry))
	for k := range registry {
		result = append(result, k)
	}
	sort.Strings(result)
	return result
}

// Nested creates the Store described by the "nested" parameter of conf,
// for backends that wrap another one.
func Nested(ctx context.Context, conf map[string]interface{}) (ledger.Store, error) {
	nested, ok := conf["nested"].(map[string]interface{})
	if !ok {
		return nil, errors.New(`missing "nested" parameter`)
	}
	nestedType, ok := nested["type"].(string)
	if !ok {
		return nil, errors.New(`"nested" parameter missing "type"`)
	}
	s, err := Create(ctx, nestedType, nested)
	return s, errors.Wrap(err, "creating nested store")
}

// Int reads an integer parameter from conf.
// Config decoders produce different integer types,
// so all the common ones are accepted.
func Int(conf map[string]interface{}, key string) (int, bool) {
	switch v := conf[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}
