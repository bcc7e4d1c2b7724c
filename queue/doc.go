/*
Package queue provides an interface for
queues of tree-growth tasks
and a memory-backed implementation
*/
package queue
