// Package docker manages the Kolla containers running on the local host
// through the Docker Engine API.
//
// This package handles:
//   - Docker client initialization with automatic socket detection
//     (Linux, macOS)
//   - Finding Kolla containers by the kolla_version image label
//   - Stopping and removing them for a local-mode host destroy
//
// The package uses github.com/docker/docker/client as the underlying
// Docker SDK, with version negotiation enabled for broad compatibility.
package docker
