// Package docker implements the audit environment for a container.
//
// Every operation is proxied through the container runtime client on the host
// environment: `docker ps -a` to resolve the container once, `docker exec` for
// commands and probes, and `docker cp` to copy files out. When the host is
// itself a container the client is reached through `chroot` into the host root.
package docker
