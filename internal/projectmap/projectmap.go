// Package projectmap loads a file-backed project map (ripple.yaml) and
// exposes it behind the analysis provider interfaces.
//
// The analysis engine performs no static analysis itself: module links,
// file imports, and data flows come from providers. This package is the
// standalone implementation — a declarative YAML map checked into the
// analyzed project.
package projectmap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/impactmap/ripple/internal/analysis"
	"gopkg.in/yaml.v3"
)

// DefaultFilename is the project-map filename looked up in a project root.
const DefaultFilename = "ripple.yaml"

// --- YAML document schema ---

type document struct {
	Modules []moduleEntry `yaml:"modules"`
	Links   []linkEntry   `yaml:"links"`
	Specs   []specEntry   `yaml:"specs"`
	Imports []importEntry `yaml:"imports"`
	Flows   []flowEntry   `yaml:"flows"`
}

type moduleEntry struct {
	ID       string   `yaml:"id"`
	Name     string   `yaml:"name"`
	Path     string   `yaml:"path"`
	Entities []string `yaml:"entities"`
}

type linkEntry struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
	Type string `yaml:"type"`
}

type specEntry struct {
	ID           string            `yaml:"id"`
	Module       string            `yaml:"module"`
	Title        string            `yaml:"title"`
	Dependencies []specDependEntry `yaml:"dependencies"`
}

type specDependEntry struct {
	Module       string `yaml:"module"`
	Relationship string `yaml:"relationship"`
}

type importEntry struct {
	File    string   `yaml:"file"`
	Imports []string `yaml:"imports"`
}

type flowEntry struct {
	From          string   `yaml:"from"`
	To            string   `yaml:"to"`
	Entities      []string `yaml:"entities"`
	Type          string   `yaml:"type"`
	Strength      string   `yaml:"strength"`
	Relationships []string `yaml:"relationships"`
}

// Map is an in-memory project map. It implements all four analysis
// provider interfaces; lookups never touch the filesystem after Load.
type Map struct {
	modules   []analysis.Module
	byID      map[string]*analysis.Module
	byName    map[string]*analysis.Module
	links     map[string]*analysis.ModuleLinks
	specs     map[string]*analysis.Spec
	specDeps  map[string][]analysis.SpecDependency
	imports   map[string][]string
	importers map[string][]string
	flows     []analysis.DataFlow
}

// Load reads and indexes a project map file.
func Load(path string) (*Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading project map: %w", err)
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing project map %s: %w", filepath.Base(path), err)
	}

	m := &Map{
		byID:      map[string]*analysis.Module{},
		byName:    map[string]*analysis.Module{},
		links:     map[string]*analysis.ModuleLinks{},
		specs:     map[string]*analysis.Spec{},
		specDeps:  map[string][]analysis.SpecDependency{},
		imports:   map[string][]string{},
		importers: map[string][]string{},
	}

	for _, e := range doc.Modules {
		if e.ID == "" {
			return nil, fmt.Errorf("project map: module with empty id")
		}
		name := e.Name
		if name == "" {
			name = e.ID
		}
		m.modules = append(m.modules, analysis.Module{
			ID:       e.ID,
			Name:     name,
			Path:     e.Path,
			Entities: e.Entities,
		})
	}
	for i := range m.modules {
		mod := &m.modules[i]
		m.byID[mod.ID] = mod
		m.byName[mod.Name] = mod
	}

	for _, l := range doc.Links {
		linkType := l.Type
		if linkType == "" {
			linkType = "depends_on"
		}
		from := m.ensureLinks(l.From)
		from.Outgoing = append(from.Outgoing, analysis.ModuleLink{TargetModuleID: l.To, LinkType: linkType})
		to := m.ensureLinks(l.To)
		to.Incoming = append(to.Incoming, analysis.ModuleLink{SourceModuleID: l.From, LinkType: linkType})
	}

	for _, sp := range doc.Specs {
		m.specs[sp.ID] = &analysis.Spec{ID: sp.ID, ModuleID: sp.Module, Title: sp.Title}
		for _, dep := range sp.Dependencies {
			m.specDeps[sp.ID] = append(m.specDeps[sp.ID], analysis.SpecDependency{
				SpecID:       sp.ID,
				ModuleID:     dep.Module,
				Relationship: dep.Relationship,
			})
		}
	}

	for _, imp := range doc.Imports {
		m.imports[imp.File] = append(m.imports[imp.File], imp.Imports...)
		for _, target := range imp.Imports {
			m.importers[target] = append(m.importers[target], imp.File)
		}
	}

	for _, f := range doc.Flows {
		m.flows = append(m.flows, analysis.DataFlow{
			From:          f.From,
			To:            f.To,
			Entities:      f.Entities,
			FlowType:      analysis.FlowType(f.Type),
			Strength:      analysis.FlowStrength(f.Strength),
			Relationships: f.Relationships,
		})
	}

	return m, nil
}

func (m *Map) ensureLinks(moduleID string) *analysis.ModuleLinks {
	if links, ok := m.links[moduleID]; ok {
		return links
	}
	links := &analysis.ModuleLinks{}
	m.links[moduleID] = links
	return links
}

// --- analysis.ModuleKnowledgeProvider ---

// GetModule returns the module with the given id, or nil when unknown.
func (m *Map) GetModule(_ context.Context, id string) (*analysis.Module, error) {
	return m.byID[id], nil
}

// GetModuleByName returns the module with the given name, or nil.
func (m *Map) GetModuleByName(_ context.Context, name string) (*analysis.Module, error) {
	return m.byName[name], nil
}

// ListModules returns all declared modules.
func (m *Map) ListModules(_ context.Context) ([]analysis.Module, error) {
	return m.modules, nil
}

// DetectModuleFromPath resolves the module owning a file path by longest
// declared-path prefix. Returns nil when no module claims the path.
func (m *Map) DetectModuleFromPath(_ context.Context, path string) (*analysis.Module, error) {
	clean := filepath.ToSlash(path)
	var best *analysis.Module
	bestLen := -1
	for i := range m.modules {
		mod := &m.modules[i]
		if mod.Path == "" {
			continue
		}
		prefix := strings.TrimSuffix(filepath.ToSlash(mod.Path), "/")
		if (clean == prefix || strings.HasPrefix(clean, prefix+"/")) && len(prefix) > bestLen {
			best = mod
			bestLen = len(prefix)
		}
	}
	return best, nil
}

// GetModuleLinks returns the module's edges in both directions.
func (m *Map) GetModuleLinks(_ context.Context, moduleID string) (*analysis.ModuleLinks, error) {
	if links, ok := m.links[moduleID]; ok {
		return links, nil
	}
	return &analysis.ModuleLinks{}, nil
}

// --- analysis.SpecProvider ---

// GetSpec returns the spec with the given id, or nil when unknown.
func (m *Map) GetSpec(_ context.Context, specID string) (*analysis.Spec, error) {
	return m.specs[specID], nil
}

// GetSpecDependencies returns the spec's declared dependencies.
func (m *Map) GetSpecDependencies(_ context.Context, specID string) ([]analysis.SpecDependency, error) {
	return m.specDeps[specID], nil
}

// --- analysis.ImportGraphProvider ---

// GetImporters returns the files that import the given file.
func (m *Map) GetImporters(_ context.Context, filePath string) ([]string, error) {
	return m.importers[filePath], nil
}

// GetImports returns the files the given file imports.
func (m *Map) GetImports(_ context.Context, filePath string) ([]string, error) {
	return m.imports[filePath], nil
}

// --- analysis.DataFlowProvider ---

// GetEntityFlows returns every flow that carries the named entity.
func (m *Map) GetEntityFlows(_ context.Context, entityName string) ([]analysis.DataFlow, error) {
	var result []analysis.DataFlow
	for _, f := range m.flows {
		for _, e := range f.Entities {
			if e == entityName {
				result = append(result, f)
				break
			}
		}
	}
	return result, nil
}

// AllFlows returns every declared flow, for whole-project diagrams.
func (m *Map) AllFlows() []analysis.DataFlow {
	return m.flows
}
