// Package component holds the value types shared by every stage of the
// pipeline: the graph node describing one package coordinate, the
// "must build before" edge between two nodes, and the filter configuration
// applied upstream of graph construction.
//
// Nodes are compared by ID only. Two nodes carrying the same ID are the same
// node, whatever their other attributes say.
package component
