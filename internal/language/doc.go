// Package language defines the fixed set of language labels a track can be
// bucketed into and the script heuristics used to guess a label from raw text.
//
// Heuristics are expressed as ordered rules: a Rule pairs a Label with a
// predicate and Detect returns the label of the first rule whose predicate
// matches. DefaultRules fixes the precedence used by the classifier.
package language
