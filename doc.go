// Package avcore provides the support types shared by every client in
// this module: device/process/instance identifiers, versions, domain
// UUIDs, format descriptors, the error-kind taxonomy, and the small
// fixed-width bit-set types used for capability and status flags.
//
// Nothing in this package performs I/O; it is the vocabulary the
// wire, reqtable, conmon, routing, browse, domain and runtimeglue
// packages build on.
package avcore
