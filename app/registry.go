package app

import (
	"aigovern/adapters/battery"
	"aigovern/domain/asset"
	"aigovern/domain/govtest"
	"aigovern/ports"
)

// Registry maps test names to adapter implementations and holds the static
// model-type compatibility table. It is assembled once at startup; there is
// no runtime discovery or reflection.
type Registry struct {
	adapters      map[govtest.TestName]ports.TestAdapter
	compatibility map[govtest.TestName]map[asset.ModelType]bool
	order         []govtest.TestName
}

// NewRegistry builds the default registry with all five test families
func NewRegistry() *Registry {
	r := &Registry{
		adapters:      make(map[govtest.TestName]ports.TestAdapter),
		compatibility: make(map[govtest.TestName]map[asset.ModelType]bool),
	}
	r.register(battery.NewPerformanceAdapter(), asset.ModelTabular, asset.ModelImage)
	r.register(battery.NewFairnessAdapter(), asset.ModelTabular)
	r.register(battery.NewExplainabilityAdapter(), asset.ModelTabular)
	r.register(battery.NewRobustnessAdapter(), asset.ModelTabular, asset.ModelImage)
	r.register(battery.NewPrivacyAdapter(), asset.ModelTabular, asset.ModelImage, asset.ModelGenerative)
	return r
}

func (r *Registry) register(adapter ports.TestAdapter, types ...asset.ModelType) {
	name := adapter.Name()
	r.adapters[name] = adapter
	compat := make(map[asset.ModelType]bool, len(types))
	for _, t := range types {
		compat[t] = true
	}
	r.compatibility[name] = compat
	r.order = append(r.order, name)
}

// Adapter resolves a registered adapter by name
func (r *Registry) Adapter(name govtest.TestName) (ports.TestAdapter, bool) {
	a, ok := r.adapters[name]
	return a, ok
}

// IsCompatible reports whether a test applies to a model type
func (r *Registry) IsCompatible(name govtest.TestName, modelType asset.ModelType) bool {
	return r.compatibility[name][modelType]
}

// AvailableTests returns the registered test names applicable to a model
// type, in registration order. This is a static compatibility table, not
// inferred from the model instance.
func (r *Registry) AvailableTests(modelType asset.ModelType) []govtest.TestName {
	var out []govtest.TestName
	for _, name := range r.order {
		if r.compatibility[name][modelType] {
			out = append(out, name)
		}
	}
	return out
}

// RegisteredTests returns every registered test name in registration order
func (r *Registry) RegisteredTests() []govtest.TestName {
	out := make([]govtest.TestName, len(r.order))
	copy(out, r.order)
	return out
}
