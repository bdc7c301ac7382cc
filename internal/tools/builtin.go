package tools

import "fmt"

// NewDefaultRegistry returns a registry with the built-in tools. The
// recall_history tool is registered only when archive is non-nil.
func NewDefaultRegistry(archive Archive) *Registry {
	r := NewRegistry()
	mustRegister(r, &RunCommandTool{}, NewFetchURLTool(), &ReadPDFTool{})
	if archive != nil {
		mustRegister(r, &RecallHistoryTool{Archive: archive})
	}
	return r
}

// mustRegister panics if r rejects any of tools.
func mustRegister(r *Registry, tools ...Tool) {
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			panic(fmt.Sprintf("tools: registering built-in %q: %v", t.Name(), err))
		}
	}
}
