// Package reflection implements multi-round self-refinement on top of an
// adapter.Adapter.
//
// A session asks the model the original query, then for each round feeds the
// query and the previous answer back through a strategy template (critique,
// alternatives, confidence, verification or adversarial) and keeps the new
// answer. Token usage is accumulated across every call.
package reflection
