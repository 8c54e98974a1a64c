package shopping

// Route maps the state's routing decision to the strategy that should
// execute. Total over all inputs: anything unrecognized or unset falls
// back to the medium-effort detailed strategy.
func Route(state *PipelineState) RoutingDecision {
	if state == nil || state.RoutingDecision == "" {
		return RouteDetailed
	}
	return NormalizeRouting(string(state.RoutingDecision))
}
