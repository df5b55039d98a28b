// Package config loads the service configuration.
//
// Layers, lowest precedence first:
//
//  1. Built-in defaults (Default).
//  2. An optional YAML file: the path passed to Load, else $PINOG_CONFIG,
//     else the first of DefaultPaths that exists.
//  3. Environment variables. The service's established names (REDIS_URL,
//     RPC_URL, PORT, CHAIN_ID, ...) map to fixed keys; any other setting
//     is reachable as PINOG_<SECTION>_<KEY>, e.g. PINOG_RENDER_TIMEOUT=15s.
//
// String settings that carry credentials may be secret references
// (secretref:env:NAME, secretref:file:/run/secrets/name) or contain ${VAR};
// they are resolved after loading, before validation.
package config
