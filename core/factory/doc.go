// Package factory is a generic registry that builds named modules from raw
// configuration maps. Scoring rules and metric sinks are constructed through
// it so that configuration files can select them by name.
//
//	reg := factory.NewRegistry[scoring.Rule]()
//	_ = reg.Register("earliest-start-time", func(conf map[string]any) (scoring.Rule, error) {
//	    return scoring.EarliestStart{}, nil
//	})
//	rule, err := reg.Create(factory.ModuleConfig{Type: "earliest-start-time"})
package factory
