package analysis

import "context"

// The detector consults up to four independent dependency graphs, each
// behind its own provider interface. Providers are external, best-effort
// collaborators: any of them may be absent (nil), which disables the
// corresponding expansion step without error.

// Module is a unit of the project's module graph as reported by a
// ModuleKnowledgeProvider.
type Module struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Path     string   `json:"path,omitempty"`
	Entities []string `json:"entities,omitempty"`
}

// ModuleLink is one edge of the module graph. Outgoing links carry the
// target module, incoming links the source.
type ModuleLink struct {
	TargetModuleID string `json:"target_module_id,omitempty"`
	SourceModuleID string `json:"source_module_id,omitempty"`
	LinkType       string `json:"link_type"`
}

// ModuleLinks groups a module's edges by direction.
type ModuleLinks struct {
	Outgoing []ModuleLink `json:"outgoing"`
	Incoming []ModuleLink `json:"incoming"`
}

// SpecDependency is a dependency declared by a spec document.
type SpecDependency struct {
	SpecID       string `json:"spec_id"`
	ModuleID     string `json:"module_id"`
	Relationship string `json:"relationship"`
}

// Spec is the subset of a spec document the detector cares about.
type Spec struct {
	ID       string `json:"id"`
	ModuleID string `json:"module_id"`
	Title    string `json:"title,omitempty"`
}

// ModuleKnowledgeProvider exposes the project's module graph.
type ModuleKnowledgeProvider interface {
	GetModule(ctx context.Context, id string) (*Module, error)
	GetModuleByName(ctx context.Context, name string) (*Module, error)
	ListModules(ctx context.Context) ([]Module, error)
	// DetectModuleFromPath resolves the module owning a file path, or
	// nil if no module claims it.
	DetectModuleFromPath(ctx context.Context, path string) (*Module, error)
	GetModuleLinks(ctx context.Context, moduleID string) (*ModuleLinks, error)
}

// SpecProvider resolves spec documents and their declared dependencies.
type SpecProvider interface {
	GetSpec(ctx context.Context, specID string) (*Spec, error)
	GetSpecDependencies(ctx context.Context, specID string) ([]SpecDependency, error)
}

// ImportGraphProvider exposes the file-level import graph.
type ImportGraphProvider interface {
	// GetImporters returns the files that import the given file.
	GetImporters(ctx context.Context, filePath string) ([]string, error)
	// GetImports returns the files the given file imports.
	GetImports(ctx context.Context, filePath string) ([]string, error)
}

// DataFlowProvider exposes the data-flow graph keyed by entity name.
type DataFlowProvider interface {
	GetEntityFlows(ctx context.Context, entityName string) ([]DataFlow, error)
}
