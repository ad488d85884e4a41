package analysis

import (
	"context"
	"fmt"
	"strings"
	"unicode"
)

// Options bounds the detector's expansion work.
type Options struct {
	// MaxDepth bounds every breadth-first expansion (modules, files).
	MaxDepth int
	// IncludeIndirect keeps transitive (depth > 1) expansion results.
	// When false only depth-1 expansions are kept.
	IncludeIndirect bool
	// ExpandImports enables file-import expansion.
	ExpandImports bool
	// ExpandDataFlows enables entity expansion through data flows.
	ExpandDataFlows bool
}

// DefaultOptions returns the detector defaults: depth 3 with all
// expansions enabled.
func DefaultOptions() Options {
	return Options{
		MaxDepth:        3,
		IncludeIndirect: true,
		ExpandImports:   true,
		ExpandDataFlows: true,
	}
}

// Detector computes the blast radius of a change by consulting whichever
// providers are configured. Every provider field may be nil; a missing
// provider silently disables its expansion step, so a zero-provider
// detector still returns the explicit/primary data.
type Detector struct {
	opts    Options
	modules ModuleKnowledgeProvider
	specs   SpecProvider
	imports ImportGraphProvider
	flows   DataFlowProvider
}

// NewDetector creates a Detector with the given options and providers.
// Any provider may be nil.
func NewDetector(opts Options, modules ModuleKnowledgeProvider, specs SpecProvider, imports ImportGraphProvider, flows DataFlowProvider) *Detector {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultOptions().MaxDepth
	}
	return &Detector{
		opts:    opts,
		modules: modules,
		specs:   specs,
		imports: imports,
		flows:   flows,
	}
}

// Detect computes the ChangeScope for a change request. It is a pure
// function of its inputs and the configured providers: no state is kept
// between calls, and provider failures narrow the result instead of
// failing it. The only returned error is context cancellation.
func (d *Detector) Detect(ctx context.Context, input ChangeInput, parsed ParsedChange) (*ChangeScope, error) {
	depth := d.opts.MaxDepth
	if !d.opts.IncludeIndirect {
		depth = 1
	}

	scope := &ChangeScope{
		PrimaryModules:   []string{},
		PrimaryFiles:     []string{},
		DependentModules: []DependentModule{},
		AffectedFiles:    []AffectedFile{},
		AffectedEntities: []string{},
		ExpansionDepth:   depth,
	}

	primaryModules := map[string]bool{}
	primaryFiles := map[string]bool{}

	addPrimaryModule := func(id string) {
		if id == "" || primaryModules[id] {
			return
		}
		primaryModules[id] = true
		scope.PrimaryModules = append(scope.PrimaryModules, id)
	}
	addPrimaryFile := func(path string) {
		if path == "" || primaryFiles[path] {
			return
		}
		primaryFiles[path] = true
		scope.PrimaryFiles = append(scope.PrimaryFiles, path)
	}

	// Step 1: explicit targets seed the primary set. Each explicit file
	// also pulls in its owning module when a module provider can resolve it.
	for _, m := range input.TargetModules {
		addPrimaryModule(m)
	}
	for _, f := range input.TargetFiles {
		addPrimaryFile(f)
		if d.modules != nil {
			if mod, err := d.modules.DetectModuleFromPath(ctx, f); err == nil && mod != nil {
				addPrimaryModule(mod.ID)
			}
		}
	}

	// Dedup map for dependents, seeded later with primaries so a primary
	// module is never re-added as dependent. First-seen wins.
	dependentSeen := map[string]bool{}
	addDependent := func(dep DependentModule) {
		if dep.ModuleID == "" || primaryModules[dep.ModuleID] || dependentSeen[dep.ModuleID] {
			return
		}
		dependentSeen[dep.ModuleID] = true
		scope.DependentModules = append(scope.DependentModules, dep)
	}

	// Step 2: spec-driven seeding. The spec's own module is primary; its
	// declared dependencies are direct dependents.
	if input.SpecID != "" && d.specs != nil {
		if spec, err := d.specs.GetSpec(ctx, input.SpecID); err == nil && spec != nil {
			addPrimaryModule(spec.ModuleID)
		}
		if deps, err := d.specs.GetSpecDependencies(ctx, input.SpecID); err == nil {
			for _, dep := range deps {
				addDependent(DependentModule{
					ModuleID:       dep.ModuleID,
					ModuleName:     d.moduleName(ctx, dep.ModuleID),
					ImpactLevel:    ImpactDirect,
					DependencyPath: []string{input.SpecID, dep.ModuleID},
					Reason:         fmt.Sprintf("declared by spec %s (%s)", input.SpecID, dep.Relationship),
				})
			}
		}
	}

	// Step 3: entity/keyword inference, only when nothing explicit
	// resolved a module. PascalCase entities become kebab-case module
	// names; keywords must match a module name exactly.
	if len(scope.PrimaryModules) == 0 && d.modules != nil {
		for _, entity := range parsed.Entities {
			name := entityToModuleName(entity)
			if mod, err := d.modules.GetModuleByName(ctx, name); err == nil && mod != nil {
				addPrimaryModule(mod.ID)
			}
		}
		for _, kw := range parsed.Keywords {
			if mod, err := d.modules.GetModuleByName(ctx, kw); err == nil && mod != nil {
				addPrimaryModule(mod.ID)
			}
		}
	}

	// A module seeded as a spec dependent in step 2 can be promoted
	// to primary by step 3 inference. A module never appears in both
	// sets; primary wins, so drop such dependents before expansion.
	if len(scope.DependentModules) > 0 {
		kept := scope.DependentModules[:0]
		for _, dep := range scope.DependentModules {
			if primaryModules[dep.ModuleID] {
				continue
			}
			kept = append(kept, dep)
		}
		scope.DependentModules = kept
	}

	// Step 4: module dependency expansion, breadth-first over both link
	// directions, bounded by depth. One hop is direct, beyond is indirect.
	if d.modules != nil {
		if err := d.expandModules(ctx, scope, addDependent, depth); err != nil {
			return nil, err
		}
	}

	// Step 5: file import expansion, same shape over the import graph.
	if d.opts.ExpandImports && d.imports != nil {
		if err := d.expandImports(ctx, scope, depth); err != nil {
			return nil, err
		}
	}

	// Step 6: entity expansion. Primary entities are included
	// unconditionally; data flows extend the set by one hop.
	entitySeen := map[string]bool{}
	addEntity := func(name string) {
		if name == "" || entitySeen[name] {
			return
		}
		entitySeen[name] = true
		scope.AffectedEntities = append(scope.AffectedEntities, name)
	}
	for _, e := range parsed.Entities {
		addEntity(e)
	}
	if d.opts.ExpandDataFlows && d.flows != nil {
		for _, e := range parsed.Entities {
			flows, err := d.flows.GetEntityFlows(ctx, e)
			if err != nil {
				continue
			}
			for _, flow := range flows {
				for _, fe := range flow.Entities {
					addEntity(fe)
				}
			}
		}
	}

	return scope, nil
}

// moduleName resolves a module's display name, falling back to its id
// when the provider cannot resolve it.
func (d *Detector) moduleName(ctx context.Context, id string) string {
	if d.modules == nil {
		return id
	}
	mod, err := d.modules.GetModule(ctx, id)
	if err != nil || mod == nil {
		return id
	}
	return mod.Name
}

type moduleQueueItem struct {
	id    string
	depth int
	path  []string
}

// expandModules walks the module graph from every primary module,
// following both outgoing (depends_on) and incoming (used_by) links.
// Links pointing at modules the provider cannot resolve are skipped.
func (d *Detector) expandModules(ctx context.Context, scope *ChangeScope, addDependent func(DependentModule), maxDepth int) error {
	visited := map[string]bool{}
	var queue []moduleQueueItem
	for _, id := range scope.PrimaryModules {
		visited[id] = true
		queue = append(queue, moduleQueueItem{id: id, depth: 0, path: []string{id}})
	}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		current := queue[0]
		queue = queue[1:]

		if current.depth >= maxDepth {
			continue
		}

		links, err := d.modules.GetModuleLinks(ctx, current.id)
		if err != nil || links == nil {
			continue
		}

		type neighbor struct {
			id     string
			reason string
		}
		var neighbors []neighbor
		for _, link := range links.Outgoing {
			neighbors = append(neighbors, neighbor{
				id:     link.TargetModuleID,
				reason: fmt.Sprintf("%s depends on it (%s)", current.id, linkTypeOrDefault(link.LinkType, "depends_on")),
			})
		}
		for _, link := range links.Incoming {
			neighbors = append(neighbors, neighbor{
				id:     link.SourceModuleID,
				reason: fmt.Sprintf("it uses %s (%s)", current.id, linkTypeOrDefault(link.LinkType, "used_by")),
			})
		}

		for _, n := range neighbors {
			if n.id == "" || visited[n.id] {
				continue
			}
			visited[n.id] = true

			mod, err := d.modules.GetModule(ctx, n.id)
			if err != nil || mod == nil {
				continue // link points at a module the provider no longer knows
			}

			nodeDepth := current.depth + 1
			level := ImpactIndirect
			if nodeDepth == 1 {
				level = ImpactDirect
			}

			path := make([]string, len(current.path), len(current.path)+1)
			copy(path, current.path)
			path = append(path, n.id)

			addDependent(DependentModule{
				ModuleID:       n.id,
				ModuleName:     mod.Name,
				ImpactLevel:    level,
				DependencyPath: path,
				Reason:         n.reason,
			})
			queue = append(queue, moduleQueueItem{id: n.id, depth: nodeDepth, path: path})
		}
	}
	return nil
}

type fileQueueItem struct {
	path  string
	depth int
}

// expandImports walks the file-import graph from every primary file,
// following both importers and imports of each file.
func (d *Detector) expandImports(ctx context.Context, scope *ChangeScope, maxDepth int) error {
	visited := map[string]bool{}
	var queue []fileQueueItem
	for _, f := range scope.PrimaryFiles {
		visited[f] = true
		queue = append(queue, fileQueueItem{path: f, depth: 0})
	}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		current := queue[0]
		queue = queue[1:]

		if current.depth >= maxDepth {
			continue
		}

		var neighbors []string
		if importers, err := d.imports.GetImporters(ctx, current.path); err == nil {
			neighbors = append(neighbors, importers...)
		}
		if imports, err := d.imports.GetImports(ctx, current.path); err == nil {
			neighbors = append(neighbors, imports...)
		}

		for _, n := range neighbors {
			if n == "" || visited[n] {
				continue
			}
			visited[n] = true

			nodeDepth := current.depth + 1
			level := ImpactIndirect
			if nodeDepth == 1 {
				level = ImpactDirect
			}

			scope.AffectedFiles = append(scope.AffectedFiles, AffectedFile{
				FilePath:    n,
				ImpactLevel: level,
				Reason:      fmt.Sprintf("import link with %s", current.path),
			})
			queue = append(queue, fileQueueItem{path: n, depth: nodeDepth})
		}
	}
	return nil
}

func linkTypeOrDefault(linkType, fallback string) string {
	if linkType == "" {
		return fallback
	}
	return linkType
}

// entityToModuleName converts a PascalCase entity name to the kebab-case
// module naming convention. Example: "UserProfile" → "user-profile".
func entityToModuleName(entity string) string {
	var b strings.Builder
	for i, r := range entity {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
