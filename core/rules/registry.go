package rules

import (
	"sync"

	"go.uber.org/zap"
)

// Registry maps rule names to rule functions and model names to factories.
// It is safe for concurrent use.
type Registry struct {
	rules  map[string]RuleFunc
	models map[string]ModelFactory
	mu     sync.RWMutex
	logger *zap.Logger
}

// NewRegistry creates a registry populated with the built-in rules.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		rules:  make(map[string]RuleFunc),
		models: make(map[string]ModelFactory),
		logger: logger,
	}
	for name, fn := range builtins() {
		r.rules[name] = fn
	}
	return r
}

// Register adds or replaces a named rule.
func (r *Registry) Register(name string, fn RuleFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules[name] = fn
	r.logger.Info("Registered rule", zap.String("name", name))
}

// RegisterRules adds or replaces several named rules.
func (r *Registry) RegisterRules(functionMap map[string]RuleFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, fn := range functionMap {
		r.rules[name] = fn
		r.logger.Info("Registered rule", zap.String("name", name))
	}
}

// Lookup returns the rule registered under name.
func (r *Registry) Lookup(name string) (RuleFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.rules[name]
	return fn, ok
}

// RegisterModel makes a model available to the contains rule under name.
func (r *Registry) RegisterModel(name string, factory ModelFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.models[name] = factory
	r.logger.Info("Registered model", zap.String("name", name))
}

// NewModel creates an empty instance of the model registered under name.
func (r *Registry) NewModel(name string) (Model, bool) {
	r.mu.RLock()
	factory, ok := r.models[name]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return factory(), true
}
