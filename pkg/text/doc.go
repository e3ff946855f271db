/*
Package text is the reference plain-text document model for otec.

It provides a rune-indexed State, Insert and Delete mutations, a Transformer
that reconciles concurrent text operations so that both cross-orders converge,
and a Codec that turns mutations into plain maps for persistence.
*/
package text
