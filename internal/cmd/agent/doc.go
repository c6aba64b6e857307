// Package agentrun wires storage, the event queue, the upload pipeline, and
// the local HTTP API into a running agent process.
package agentrun
