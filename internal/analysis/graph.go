package analysis

// --- Flow graph types ---

// NodeType distinguishes module endpoints from entity nodes.
type NodeType string

const (
	NodeModule NodeType = "module"
	NodeEntity NodeType = "entity"
)

// FlowNode is one node of a flow graph: a module endpoint or an entity
// carried by a flow.
type FlowNode struct {
	ID          string      `json:"id"`
	Label       string      `json:"label"`
	Type        NodeType    `json:"type"`
	IsAffected  bool        `json:"is_affected"`
	ImpactLevel ImpactLevel `json:"impact_level,omitempty"`
}

// FlowEdge is one edge of a flow graph, carrying the flow it came from.
type FlowEdge struct {
	ID         string       `json:"id"`
	Source     string       `json:"source"`
	Target     string       `json:"target"`
	Label      string       `json:"label"`
	FlowType   FlowType     `json:"flow_type"`
	Strength   FlowStrength `json:"strength"`
	IsAffected bool         `json:"is_affected"`
}

// GraphMetadata summarizes a flow graph.
type GraphMetadata struct {
	TotalNodes       int     `json:"total_nodes"`
	TotalEdges       int     `json:"total_edges"`
	AffectedNodes    int     `json:"affected_nodes"`
	AffectedEdges    int     `json:"affected_edges"`
	CriticalityScore float64 `json:"criticality_score"`
}

// FlowGraph is the navigable rendering of a set of classified flows.
type FlowGraph struct {
	Nodes    []FlowNode    `json:"nodes"`
	Edges    []FlowEdge    `json:"edges"`
	Metadata GraphMetadata `json:"metadata"`
}

// BuildFlowGraph renders classified flows into a graph. Every distinct
// module endpoint and entity becomes exactly one node; every flow
// becomes one edge. A node is affected when the scope names it as a
// primary module, a dependent module, or an affected entity; an edge is
// affected when either endpoint is.
func BuildFlowGraph(flows []ImpactDataFlow, scope *ChangeScope) *FlowGraph {
	graph := &FlowGraph{
		Nodes: []FlowNode{},
		Edges: []FlowEdge{},
	}

	nodeIndex := map[string]int{}
	addNode := func(id string, nodeType NodeType) {
		if id == "" {
			return
		}
		if _, ok := nodeIndex[id]; ok {
			return
		}
		affected, level := scopeMembership(id, scope)
		nodeIndex[id] = len(graph.Nodes)
		graph.Nodes = append(graph.Nodes, FlowNode{
			ID:          id,
			Label:       id,
			Type:        nodeType,
			IsAffected:  affected,
			ImpactLevel: level,
		})
	}

	for _, flow := range flows {
		addNode(flow.From, NodeModule)
		addNode(flow.To, NodeModule)
		for _, e := range flow.Entities {
			addNode(e, NodeEntity)
		}
	}

	for _, flow := range flows {
		affected := nodeAffected(graph, nodeIndex, flow.From) || nodeAffected(graph, nodeIndex, flow.To)
		graph.Edges = append(graph.Edges, FlowEdge{
			ID:         flow.ID,
			Source:     flow.From,
			Target:     flow.To,
			Label:      edgeLabel(flow),
			FlowType:   flow.FlowType,
			Strength:   flow.Strength,
			IsAffected: affected,
		})
	}

	graph.Metadata = buildMetadata(graph)
	return graph
}

// scopeMembership reports whether the scope names the given id, and at
// what impact level.
func scopeMembership(id string, scope *ChangeScope) (bool, ImpactLevel) {
	if scope == nil {
		return false, ""
	}
	if scope.HasPrimaryModule(id) {
		return true, ImpactDirect
	}
	for _, dep := range scope.DependentModules {
		if dep.ModuleID == id {
			return true, dep.ImpactLevel
		}
	}
	if scope.HasAffectedEntity(id) {
		return true, ImpactDirect
	}
	return false, ""
}

func nodeAffected(graph *FlowGraph, index map[string]int, id string) bool {
	i, ok := index[id]
	if !ok {
		return false
	}
	return graph.Nodes[i].IsAffected
}

// edgeLabel uses the first relationship verb, falling back to the flow type.
func edgeLabel(flow ImpactDataFlow) string {
	if len(flow.Relationships) > 0 {
		return flow.Relationships[0]
	}
	return string(flow.FlowType)
}

// strengthWeight grades a flow's strength for the criticality score.
var strengthWeight = map[FlowStrength]float64{
	StrengthOptional:  0.25,
	StrengthImportant: 0.5,
	StrengthCritical:  1.0,
}

// buildMetadata computes the graph summary. The criticality score
// aggregates per-edge strength weight plus a full point for each
// affected edge, normalized by the maximum attainable sum so it stays
// in [0,1] and grows with both criticality and blast radius.
func buildMetadata(graph *FlowGraph) GraphMetadata {
	meta := GraphMetadata{
		TotalNodes: len(graph.Nodes),
		TotalEdges: len(graph.Edges),
	}
	for _, n := range graph.Nodes {
		if n.IsAffected {
			meta.AffectedNodes++
		}
	}

	var sum float64
	for _, e := range graph.Edges {
		if e.IsAffected {
			meta.AffectedEdges++
			sum += 1.0
		}
		sum += strengthWeight[e.Strength]
	}
	if len(graph.Edges) > 0 {
		meta.CriticalityScore = sum / (2.0 * float64(len(graph.Edges)))
	}
	return meta
}
