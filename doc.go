// Copyright 2026 The Fabric Authors. All rights reserved.
// Mount of this source code is governed by a Apache-2.0 license that can be found
// at https://github.com/meshfabric/fabric/blob/master/LICENSE.txt.

// Package fabric implements the core routing engine of a distributed
// pub/sub-plus-query routing fabric: a per-node resource tree, face
// table and link-state network view, from which message routes for
// publications, queries, query replies and subscription/queryable
// declarations are computed and dispatched.
//
// The engine never touches bytes on the wire: it is handed already
// decoded message shapes (see package wire) over a [Link] capability,
// and leaves transport, the byte-level codec and configuration
// loading to callers. See SPEC_FULL.md for the full specification and
// DESIGN.md for how each package maps back to its reference sources.
package fabric
