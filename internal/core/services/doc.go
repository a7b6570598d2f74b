// Package services contains the core pipeline logic, independent of any
// concrete backend. The pipeline service orchestrates the build flow
// (load, chunk, embed, index) and the query flow (retrieve, synthesize),
// talking to collaborators through the driven ports only.
package services
