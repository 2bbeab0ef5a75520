// Package pipeline fans record batches out to a fixed pool of workers.
//
// The only contracts to implement are Source (Next) and Processor
// (Process/Flush). Workers never share processor state; Flush is the one
// place a processor touches shared output.
package pipeline
